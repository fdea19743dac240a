// Package eligibility decides whether a student may start or resume an attempt and
// governs the attempt lifecycle.
package eligibility

import (
	"fmt"
	"time"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/timing"
)

// Refusal and resume reasons.
const (
	ReasonNotActive   = "Quiz is not active"
	ReasonNotStarted  = "Quiz has not started yet"
	ReasonEnded       = "Quiz has ended"
	ReasonResume      = "Resume existing attempt"
	ReasonMaxAttempts = "Maximum attempts reached"
)

// Decision is the outcome of CanAttemptQuiz.
type Decision struct {
	CanAttempt bool   `json:"canAttempt"`
	Reason     string `json:"reason,omitempty"`
	// Resume points at the in-progress attempt when Reason is ReasonResume.
	Resume *domain.QuizAttempt `json:"-"`
}

// Err converts a refusal into an error wrapping domain.ErrNotEligible.
func (d Decision) Err() error {
	if d.CanAttempt {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrNotEligible, d.Reason)
}

// CanAttemptQuiz evaluates the attempt rules for one student's existing attempts.
func CanAttemptQuiz(quiz domain.Quiz, existing []domain.QuizAttempt, now time.Time) Decision {
	if !quiz.IsActive {
		return Decision{Reason: ReasonNotActive}
	}
	if now.Before(quiz.AvailableFrom) {
		return Decision{Reason: ReasonNotStarted}
	}
	if now.After(quiz.AvailableTo) {
		return Decision{Reason: ReasonEnded}
	}
	for i := range existing {
		if existing[i].Status == domain.StatusInProgress {
			resume := existing[i]
			return Decision{CanAttempt: true, Reason: ReasonResume, Resume: &resume}
		}
	}
	if countUsed(existing) >= quiz.MaxAttempts {
		return Decision{Reason: ReasonMaxAttempts}
	}
	return Decision{CanAttempt: true}
}

// RemainingAttempts returns how many more attempts may be started.
func RemainingAttempts(maxAttempts int, existing []domain.QuizAttempt) int {
	left := maxAttempts - countUsed(existing)
	if left < 0 {
		return 0
	}
	return left
}

// NextAttemptNumber is one past the highest attempt number seen.
func NextAttemptNumber(existing []domain.QuizAttempt) int {
	highest := 0
	for _, a := range existing {
		if a.AttemptNumber > highest {
			highest = a.AttemptNumber
		}
	}
	return highest + 1
}

func countUsed(existing []domain.QuizAttempt) int {
	n := 0
	for _, a := range existing {
		if a.Status.CountsTowardLimit() {
			n++
		}
	}
	return n
}

// Transition validates a lifecycle move. Only IN_PROGRESS may move, and only to a terminal state.
func Transition(from, to domain.AttemptStatus) error {
	if from != domain.StatusInProgress {
		return fmt.Errorf("%w: attempt is %s", domain.ErrAttemptConflict, from)
	}
	if !to.Terminal() {
		return fmt.Errorf("invalid target status %q", to)
	}
	return nil
}

// Policy tunes how expired attempts are finalized.
type Policy struct {
	// AbandonUnanswered routes expired attempts without responses to ABANDONED instead of TIMEOUT.
	AbandonUnanswered bool
}

// ResolveTerminalStatus picks the terminal state for a finalization request at now.
func ResolveTerminalStatus(quiz domain.Quiz, attempt domain.QuizAttempt, responseCount int, now time.Time, policy Policy) domain.AttemptStatus {
	countdown := timing.RemainingTime(attempt.StartedAt, quiz.TimeLimitMinutes, quiz.SubmissionWindowMinutes, now)
	if !countdown.IsExpired {
		return domain.StatusCompleted
	}
	if policy.AbandonUnanswered && responseCount == 0 {
		return domain.StatusAbandoned
	}
	return domain.StatusTimeout
}

// IsExpired reports whether the attempt's combined window has elapsed at now.
func IsExpired(quiz domain.Quiz, attempt domain.QuizAttempt, now time.Time) bool {
	return timing.RemainingTime(attempt.StartedAt, quiz.TimeLimitMinutes, quiz.SubmissionWindowMinutes, now).IsExpired
}

// Edit restriction messages reported once attempts exist.
const (
	RestrictMaxScore        = "max_score cannot be changed after attempts exist"
	RestrictQuestionRemoval = "questions cannot be removed after attempts exist; only additions are allowed"
	RestrictQuestionPoints  = "question points cannot be changed after attempts exist"
)

// EditRestrictions reports which edits the authoring surface should block.
type EditRestrictions struct {
	HasAttempts  bool     `json:"hasAttempts"`
	AttemptCount int      `json:"attemptCount"`
	Restrictions []string `json:"restrictions"`
}

// CanEditQuiz lists the edit restrictions for a quiz given how many attempts exist.
func CanEditQuiz(attemptCount int) EditRestrictions {
	r := EditRestrictions{AttemptCount: attemptCount, Restrictions: []string{}}
	if attemptCount == 0 {
		return r
	}
	r.HasAttempts = true
	r.Restrictions = append(r.Restrictions, RestrictMaxScore, RestrictQuestionRemoval, RestrictQuestionPoints)
	return r
}
