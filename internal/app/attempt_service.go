package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/eligibility"
	"quiz-engine/internal/engine/presenter"
	"quiz-engine/internal/engine/scoring"
	"quiz-engine/internal/engine/stats"
	"quiz-engine/internal/engine/timing"
	"quiz-engine/internal/metrics"
)

// AttemptView is what a student sees while taking a quiz.
type AttemptView struct {
	Attempt           domain.QuizAttempt    `json:"attempt"`
	Questions         []domain.QuizQuestion `json:"questions"`
	Responses         []domain.QuizResponse `json:"responses"`
	Countdown         timing.Countdown      `json:"countdown"`
	RemainingAttempts int                   `json:"remainingAttempts"`
	Resumed           bool                  `json:"resumed"`
}

// Result is the outcome of a finalized attempt.
type Result struct {
	Attempt          domain.QuizAttempt    `json:"attempt"`
	Responses        []domain.QuizResponse `json:"responses"`
	Review           []domain.QuizQuestion `json:"review"`
	PerformanceLevel string                `json:"performanceLevel,omitempty"`
	Summary          string                `json:"summary,omitempty"`
}

// Option configures an AttemptService.
type Option func(*AttemptService)

func WithClock(now func() time.Time) Option { return func(s *AttemptService) { s.now = now } }
func WithLogger(l *zap.Logger) Option       { return func(s *AttemptService) { s.log = l } }
func WithIDGenerator(f func() string) Option {
	return func(s *AttemptService) { s.newID = f }
}
func WithScoringPolicy(p scoring.Policy) Option {
	return func(s *AttemptService) { s.engine = scoring.NewEngine(p) }
}
func WithLifecyclePolicy(p eligibility.Policy) Option {
	return func(s *AttemptService) { s.policy = p }
}

// AttemptService contains the attempt use cases: start/resume, answer, submit, abandon, sweep.
type AttemptService struct {
	store   QuizDataService
	catalog QuizCatalog
	locks   AttemptLocker
	feed    *LeaderboardFeed

	engine *scoring.Engine
	policy eligibility.Policy
	now    func() time.Time
	newID  func() string
	log    *zap.Logger
}

func NewAttemptService(store QuizDataService, catalog QuizCatalog, locks AttemptLocker, feed *LeaderboardFeed, opts ...Option) *AttemptService {
	s := &AttemptService{
		store:   store,
		catalog: catalog,
		locks:   locks,
		feed:    feed,
		engine:  scoring.NewEngine(scoring.DefaultPolicy()),
		now:     time.Now,
		newID:   uuid.NewString,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Eligibility reports whether studentID may start or resume quizID right now.
func (s *AttemptService) Eligibility(ctx context.Context, quizID, studentID string) (eligibility.Decision, int, error) {
	def, err := s.catalog.GetDefinition(ctx, quizID)
	if err != nil {
		return eligibility.Decision{}, 0, err
	}
	attempts, err := s.store.ListAttempts(ctx, quizID, studentID)
	if err != nil {
		return eligibility.Decision{}, 0, err
	}
	return eligibility.CanAttemptQuiz(def.Quiz, attempts, s.now()), eligibility.RemainingAttempts(def.Quiz.MaxAttempts, attempts), nil
}

// StartAttempt resumes the student's in-progress attempt or creates the next one.
func (s *AttemptService) StartAttempt(ctx context.Context, quizID, studentID string) (AttemptView, error) {
	def, err := s.catalog.GetDefinition(ctx, quizID)
	if err != nil {
		return AttemptView{}, err
	}

	unlock, err := s.locks.Lock(ctx, startLockKey(quizID, studentID))
	if err != nil {
		return AttemptView{}, err
	}
	defer unlock()

	attempts, err := s.store.ListAttempts(ctx, quizID, studentID)
	if err != nil {
		return AttemptView{}, err
	}

	now := s.now()
	for i, a := range attempts {
		if a.Status != domain.StatusInProgress || !eligibility.IsExpired(def.Quiz, a, now) {
			continue
		}
		final, _, err := s.finalizeExpired(ctx, def, a.ID, now)
		if err != nil && !errors.Is(err, domain.ErrAttemptConflict) {
			return AttemptView{}, err
		}
		if err == nil {
			attempts[i] = final
		} else if fresh, gerr := s.store.GetAttempt(ctx, a.ID); gerr == nil {
			attempts[i] = fresh
		}
	}

	decision := eligibility.CanAttemptQuiz(def.Quiz, attempts, now)
	if !decision.CanAttempt {
		s.log.Info("attempt refused", zap.String("quiz_id", quizID), zap.String("student_id", studentID), zap.String("reason", decision.Reason))
		return AttemptView{}, decision.Err()
	}

	view := AttemptView{Resumed: decision.Resume != nil}
	if decision.Resume != nil {
		view.Attempt = *decision.Resume
	} else {
		attempt := domain.QuizAttempt{
			ID:            s.newID(),
			QuizID:        quizID,
			StudentID:     studentID,
			AttemptNumber: eligibility.NextAttemptNumber(attempts),
			Status:        domain.StatusInProgress,
			StartedAt:     now,
		}
		if err := s.store.CreateAttempt(ctx, attempt); err != nil {
			if errors.Is(err, domain.ErrAttemptConflict) {
				metrics.AttemptConflicts.WithLabelValues("create").Inc()
			}
			return AttemptView{}, err
		}
		metrics.AttemptsStarted.Inc()
		s.log.Info("attempt started",
			zap.String("attempt_id", attempt.ID),
			zap.String("quiz_id", quizID),
			zap.String("student_id", studentID),
			zap.Int("attempt_number", attempt.AttemptNumber))
		view.Attempt = attempt
		attempts = append(attempts, attempt)
	}

	responses, err := s.store.ListResponses(ctx, view.Attempt.ID)
	if err != nil {
		return AttemptView{}, err
	}
	view.Responses = studentResponses(responses)
	view.Questions = presenter.PrepareQuestionsForAttempt(def.Questions, def.Quiz.ShuffleQuestions, def.Quiz.ShuffleOptions, shuffleSource(view.Attempt.ID))
	view.Countdown = timing.RemainingTime(view.Attempt.StartedAt, def.Quiz.TimeLimitMinutes, def.Quiz.SubmissionWindowMinutes, now)
	view.RemainingAttempts = eligibility.RemainingAttempts(def.Quiz.MaxAttempts, attempts)
	return view, nil
}

// SaveResponse records (or overwrites) the student's answer to one question.
// When the window has elapsed the attempt is finalized as timed out and ErrAttemptExpired is returned.
func (s *AttemptService) SaveResponse(ctx context.Context, attemptID, studentID, questionID string, selected []string, timeSpentSeconds int) (timing.Countdown, error) {
	unlock, err := s.locks.Lock(ctx, attemptLockKey(attemptID))
	if err != nil {
		return timing.Countdown{}, err
	}
	defer unlock()

	attempt, def, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return timing.Countdown{}, err
	}
	if attempt.Status.Terminal() {
		metrics.AttemptConflicts.WithLabelValues("answer").Inc()
		return timing.Countdown{}, fmt.Errorf("%w: attempt is %s", domain.ErrAttemptConflict, attempt.Status)
	}

	question, ok := def.Question(questionID)
	if !ok {
		return timing.Countdown{}, domain.ErrQuestionNotFound
	}
	keys := dedupe(selected)
	for _, key := range keys {
		if !question.HasOption(key) {
			return timing.Countdown{}, fmt.Errorf("%w: %q", domain.ErrOptionNotFound, key)
		}
	}

	now := s.now()
	countdown := timing.RemainingTime(attempt.StartedAt, def.Quiz.TimeLimitMinutes, def.Quiz.SubmissionWindowMinutes, now)
	if countdown.IsExpired {
		if _, _, err := s.finalizeLocked(ctx, def, attempt, now); err != nil {
			return countdown, err
		}
		return countdown, domain.ErrAttemptExpired
	}

	if timeSpentSeconds < 0 {
		timeSpentSeconds = 0
	}
	err = s.store.SaveResponse(ctx, domain.QuizResponse{
		AttemptID:        attemptID,
		QuestionID:       questionID,
		SelectedAnswers:  keys,
		TimeSpentSeconds: timeSpentSeconds,
	})
	if err != nil {
		return countdown, err
	}
	return countdown, nil
}

// Submit finalizes the attempt: COMPLETED inside the window, TIMEOUT (or ABANDONED) after it.
func (s *AttemptService) Submit(ctx context.Context, attemptID, studentID string) (Result, error) {
	unlock, err := s.locks.Lock(ctx, attemptLockKey(attemptID))
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	attempt, def, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return Result{}, err
	}
	final, responses, err := s.finalizeLocked(ctx, def, attempt, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrAttemptConflict) {
			metrics.AttemptConflicts.WithLabelValues("submit").Inc()
		}
		return Result{}, err
	}
	return buildResult(def, final, responses), nil
}

// Abandon discards an in-progress attempt that has no answers without scoring it.
// An expired attempt is finalized the same way Submit would finalize it.
func (s *AttemptService) Abandon(ctx context.Context, attemptID, studentID string) (domain.QuizAttempt, error) {
	unlock, err := s.locks.Lock(ctx, attemptLockKey(attemptID))
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	defer unlock()

	attempt, def, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if err := eligibility.Transition(attempt.Status, domain.StatusAbandoned); err != nil {
		metrics.AttemptConflicts.WithLabelValues("abandon").Inc()
		return domain.QuizAttempt{}, err
	}
	now := s.now()
	if eligibility.IsExpired(def.Quiz, attempt, now) {
		final, _, err := s.finalizeLocked(ctx, def, attempt, now)
		return final, err
	}
	responses, err := s.store.ListResponses(ctx, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if answered(responses) > 0 {
		metrics.AttemptConflicts.WithLabelValues("abandon").Inc()
		return domain.QuizAttempt{}, fmt.Errorf("%w: answered attempts must be submitted", domain.ErrAttemptConflict)
	}
	final, _, err := s.close(ctx, def, attempt, domain.StatusAbandoned, responses, now)
	return final, err
}

// Result returns the stored outcome of a finalized attempt.
func (s *AttemptService) Result(ctx context.Context, attemptID, studentID string) (Result, error) {
	attempt, def, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return Result{}, err
	}
	if !attempt.Status.Terminal() {
		return Result{}, fmt.Errorf("%w: attempt is still in progress", domain.ErrAttemptConflict)
	}
	responses, err := s.store.ListResponses(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	return buildResult(def, attempt, responses), nil
}

// Remaining returns the countdown of an attempt.
func (s *AttemptService) Remaining(ctx context.Context, attemptID, studentID string) (timing.Countdown, error) {
	attempt, def, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return timing.Countdown{}, err
	}
	if attempt.Status.Terminal() {
		return timing.Countdown{IsExpired: true}, nil
	}
	return timing.RemainingTime(attempt.StartedAt, def.Quiz.TimeLimitMinutes, def.Quiz.SubmissionWindowMinutes, s.now()), nil
}

// SweepExpired finalizes every in-progress attempt whose combined window has elapsed.
// It returns how many attempts were finalized.
func (s *AttemptService) SweepExpired(ctx context.Context) (int, error) {
	attempts, err := s.store.ListInProgressAttempts(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	finalized := 0
	var errs []error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		def, err := s.catalog.GetDefinition(ctx, a.QuizID)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep attempt %s: %w", a.ID, err))
			continue
		}
		if !eligibility.IsExpired(def.Quiz, a, now) {
			continue
		}
		if _, _, err := s.finalizeExpired(ctx, def, a.ID, now); err != nil {
			if errors.Is(err, domain.ErrAttemptConflict) {
				continue
			}
			errs = append(errs, fmt.Errorf("sweep attempt %s: %w", a.ID, err))
			continue
		}
		finalized++
	}
	if finalized > 0 {
		s.log.Info("expired attempts finalized", zap.Int("count", finalized))
	}
	return finalized, errors.Join(errs...)
}

// finalizeExpired re-reads the attempt under its lock before finalizing it.
func (s *AttemptService) finalizeExpired(ctx context.Context, def domain.QuizDefinition, attemptID string, now time.Time) (domain.QuizAttempt, []domain.QuizResponse, error) {
	unlock, err := s.locks.Lock(ctx, attemptLockKey(attemptID))
	if err != nil {
		return domain.QuizAttempt{}, nil, err
	}
	defer unlock()

	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, nil, err
	}
	return s.finalizeLocked(ctx, def, attempt, now)
}

// finalizeLocked must run while holding the attempt lock.
func (s *AttemptService) finalizeLocked(ctx context.Context, def domain.QuizDefinition, attempt domain.QuizAttempt, now time.Time) (domain.QuizAttempt, []domain.QuizResponse, error) {
	if err := eligibility.Transition(attempt.Status, domain.StatusCompleted); err != nil {
		return domain.QuizAttempt{}, nil, err
	}
	responses, err := s.store.ListResponses(ctx, attempt.ID)
	if err != nil {
		return domain.QuizAttempt{}, nil, err
	}
	status := eligibility.ResolveTerminalStatus(def.Quiz, attempt, answered(responses), now, s.policy)
	return s.close(ctx, def, attempt, status, responses, now)
}

func (s *AttemptService) close(ctx context.Context, def domain.QuizDefinition, attempt domain.QuizAttempt, status domain.AttemptStatus, responses []domain.QuizResponse, now time.Time) (domain.QuizAttempt, []domain.QuizResponse, error) {
	final := attempt
	final.Status = status
	submitted := now
	final.SubmittedAt = &submitted

	taken := int(now.Sub(attempt.StartedAt) / time.Second)
	if allowed, timed := timing.AllowedSeconds(def.Quiz.TimeLimitMinutes, def.Quiz.SubmissionWindowMinutes); timed && int64(taken) > allowed {
		taken = int(allowed)
	}
	if taken < 0 {
		taken = 0
	}
	final.TimeTakenSeconds = &taken

	scored := responses
	if status != domain.StatusAbandoned {
		result := s.engine.ScoreAttempt(def, responses)
		grade := result.Grade
		final.Grade = &grade
		scored = result.Responses
	}

	if err := s.store.FinalizeAttempt(ctx, final, scored); err != nil {
		return domain.QuizAttempt{}, nil, err
	}

	metrics.AttemptsFinalized.WithLabelValues(string(status)).Inc()
	fields := []zap.Field{
		zap.String("attempt_id", final.ID),
		zap.String("quiz_id", final.QuizID),
		zap.String("student_id", final.StudentID),
		zap.String("status", string(status)),
		zap.Int("time_taken_seconds", taken),
	}
	if final.Grade != nil {
		metrics.AttemptPercentage.Observe(final.Grade.Percentage)
		fields = append(fields, zap.Float64("score", final.Grade.Score), zap.Float64("percentage", final.Grade.Percentage))
	}
	s.log.Info("attempt finalized", fields...)

	if status == domain.StatusCompleted {
		s.publishLeaderboard(ctx, final.QuizID, now)
	}
	return final, scored, nil
}

func (s *AttemptService) publishLeaderboard(ctx context.Context, quizID string, now time.Time) {
	if s.feed == nil {
		return
	}
	attempts, err := s.store.ListAttempts(ctx, quizID, "")
	if err != nil {
		s.log.Warn("leaderboard refresh failed", zap.String("quiz_id", quizID), zap.Error(err))
		return
	}
	s.feed.Publish(LeaderboardUpdate{
		QuizID:    quizID,
		Entries:   stats.Leaderboard(attempts, stats.DefaultLeaderboardSize),
		UpdatedAt: now,
	})
}

func (s *AttemptService) loadOwned(ctx context.Context, attemptID, studentID string) (domain.QuizAttempt, domain.QuizDefinition, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, domain.QuizDefinition{}, err
	}
	if attempt.StudentID != studentID {
		return domain.QuizAttempt{}, domain.QuizDefinition{}, domain.ErrForbidden
	}
	def, err := s.catalog.GetDefinition(ctx, attempt.QuizID)
	if err != nil {
		return domain.QuizAttempt{}, domain.QuizDefinition{}, err
	}
	return attempt, def, nil
}

func buildResult(def domain.QuizDefinition, attempt domain.QuizAttempt, responses []domain.QuizResponse) Result {
	r := Result{
		Attempt:   attempt,
		Responses: responses,
		Review:    presenter.ReviewQuestions(def, attempt.Status),
	}
	if attempt.Grade != nil {
		r.PerformanceLevel = scoring.PerformanceLevel(attempt.Grade.Percentage)
		r.Summary = scoring.FormatScore(*attempt.Grade)
	}
	return r
}

// studentResponses strips grading fields from responses of an in-progress attempt.
func studentResponses(responses []domain.QuizResponse) []domain.QuizResponse {
	out := make([]domain.QuizResponse, len(responses))
	for i, r := range responses {
		out[i] = domain.QuizResponse{
			AttemptID:        r.AttemptID,
			QuestionID:       r.QuestionID,
			SelectedAnswers:  r.SelectedAnswers,
			TimeSpentSeconds: r.TimeSpentSeconds,
		}
	}
	return out
}

// shuffleSource seeds the presentation shuffle from the attempt id so a resumed
// attempt sees the same order.
func shuffleSource(attemptID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(attemptID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func answered(responses []domain.QuizResponse) int {
	n := 0
	for _, r := range responses {
		if len(r.SelectedAnswers) > 0 {
			n++
		}
	}
	return n
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
