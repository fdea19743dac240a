// Package scoring turns submitted answers into points, grades, and performance levels.
package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quiz-engine/internal/domain"
)

// Outcome is the scoring result for one response.
type Outcome struct {
	Earned    float64 `json:"earned"`
	Deducted  float64 `json:"deducted"`
	IsCorrect bool    `json:"isCorrect"`
}

// ScoreResponse applies the all-or-nothing rule. An empty selection is unattempted and never penalized.
func ScoreResponse(selected, correct []string, questionType domain.QuestionType, points, negativePoints float64) Outcome {
	chosen := toSet(selected)
	if len(chosen) == 0 {
		return Outcome{}
	}

	var ok bool
	switch questionType {
	case domain.SingleChoice:
		ok = len(chosen) == 1 && len(correct) == 1
		if ok {
			_, ok = chosen[correct[0]]
		}
	case domain.MultiChoice:
		ok = setEqual(chosen, toSet(correct))
	}

	if ok {
		return Outcome{Earned: points, IsCorrect: true}
	}
	return Outcome{Deducted: negativePoints}
}

// Policy controls attempt-level aggregation.
type Policy struct {
	// ClampScore bounds the attempt score to [0, max_score]. Off by default, so negative
	// marking may surface a negative score.
	ClampScore bool
}

// DefaultPolicy returns the unclamped policy.
func DefaultPolicy() Policy {
	return Policy{}
}

// Engine aggregates responses into graded attempts.
type Engine struct {
	policy Policy
}

// NewEngine creates a scoring engine with the provided policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// ScoredAttempt carries the graded responses and the resulting grade.
type ScoredAttempt struct {
	Responses []domain.QuizResponse
	Grade     domain.Grade
}

// ScoreAttempt scores every response against its question and grades the attempt.
// Responses to questions not in the definition are dropped.
func (e *Engine) ScoreAttempt(def domain.QuizDefinition, responses []domain.QuizResponse) ScoredAttempt {
	scored := make([]domain.QuizResponse, 0, len(responses))
	var earned, deducted float64
	for _, r := range responses {
		q, ok := def.Question(r.QuestionID)
		if !ok {
			continue
		}
		out := ScoreResponse(r.SelectedAnswers, q.CorrectAnswers, q.Type, q.Points, q.NegativePoints)
		r.IsCorrect = out.IsCorrect
		r.PointsEarned = out.Earned
		r.PointsDeducted = out.Deducted
		earned += out.Earned
		deducted += out.Deducted
		scored = append(scored, r)
	}
	return ScoredAttempt{
		Responses: scored,
		Grade:     e.Grade(def.Quiz, earned-deducted),
	}
}

// Grade derives percentage and pass/fail from a raw score.
func (e *Engine) Grade(quiz domain.Quiz, raw float64) domain.Grade {
	score := raw
	if e.policy.ClampScore {
		if score < 0 {
			score = 0
		}
		if score > quiz.MaxScore {
			score = quiz.MaxScore
		}
	}

	// Percentage and pass are judged on the unrounded score.
	g := domain.Grade{
		Score:      Round2(score),
		MaxScore:   quiz.MaxScore,
		Percentage: Percent(score, quiz.MaxScore),
	}
	if quiz.PassingScore != nil {
		passed := score >= *quiz.PassingScore
		g.Passed = &passed
	}
	return g
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Percent returns part/whole*100 rounded to two decimals, or 0 when whole is zero.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// Performance level thresholds, in percent.
const (
	ThresholdExcellent    = 90.0
	ThresholdGood         = 80.0
	ThresholdSatisfactory = 70.0
	ThresholdPassing      = 60.0
)

// Performance levels.
const (
	LevelExcellent        = "Excellent"
	LevelGood             = "Good"
	LevelSatisfactory     = "Satisfactory"
	LevelPassing          = "Passing"
	LevelNeedsImprovement = "Needs Improvement"
)

// PerformanceLevel maps a percentage onto the shared threshold bands.
func PerformanceLevel(percentage float64) string {
	switch {
	case percentage >= ThresholdExcellent:
		return LevelExcellent
	case percentage >= ThresholdGood:
		return LevelGood
	case percentage >= ThresholdSatisfactory:
		return LevelSatisfactory
	case percentage >= ThresholdPassing:
		return LevelPassing
	default:
		return LevelNeedsImprovement
	}
}

// FormatScore renders "score/max (pct%)".
func FormatScore(g domain.Grade) string {
	return fmt.Sprintf("%s/%s (%s%%)",
		decimal.NewFromFloat(g.Score).String(),
		decimal.NewFromFloat(g.MaxScore).String(),
		decimal.NewFromFloat(g.Percentage).StringFixed(2))
}

func toSet(keys []string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
