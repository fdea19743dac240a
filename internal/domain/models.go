package domain

import "time"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	SingleChoice QuestionType = "SINGLE_CHOICE"
	MultiChoice  QuestionType = "MULTI_CHOICE"
)

// AttemptStatus is the lifecycle state of a QuizAttempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusCompleted  AttemptStatus = "COMPLETED"
	StatusTimeout    AttemptStatus = "TIMEOUT"
	StatusAbandoned  AttemptStatus = "ABANDONED"
)

// Terminal reports whether no further transition is allowed.
func (s AttemptStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusTimeout || s == StatusAbandoned
}

// CountsTowardLimit reports whether the attempt consumes the attempt budget.
func (s AttemptStatus) CountsTowardLimit() bool {
	return s == StatusCompleted || s == StatusTimeout
}

// Quiz holds the scheduling and scoring configuration of a timed quiz.
type Quiz struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	ClassID   string `json:"classId" yaml:"classId"`
	BranchID  string `json:"branchId,omitempty" yaml:"branchId"`
	TeacherID string `json:"teacherId" yaml:"teacherId"`

	AvailableFrom time.Time `json:"availableFrom" yaml:"availableFrom"`
	AvailableTo   time.Time `json:"availableTo" yaml:"availableTo"`
	// TimeLimitMinutes is nil for untimed quizzes.
	TimeLimitMinutes        *int `json:"timeLimitMinutes" yaml:"timeLimitMinutes"`
	SubmissionWindowMinutes int  `json:"submissionWindowMinutes" yaml:"submissionWindowMinutes"`

	MaxAttempts  int      `json:"maxAttempts" yaml:"maxAttempts"`
	MaxScore     float64  `json:"maxScore" yaml:"maxScore"`
	PassingScore *float64 `json:"passingScore" yaml:"passingScore"`

	ShuffleQuestions   bool `json:"shuffleQuestions" yaml:"shuffleQuestions"`
	ShuffleOptions     bool `json:"shuffleOptions" yaml:"shuffleOptions"`
	ShowCorrectAnswers bool `json:"showCorrectAnswers" yaml:"showCorrectAnswers"`
	IsActive           bool `json:"isActive" yaml:"isActive"`
}

// Option is one answer choice. Keys are unique within a question.
type Option struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

// QuizQuestion belongs to exactly one Quiz.
type QuizQuestion struct {
	ID             string       `json:"id" yaml:"id"`
	QuizID         string       `json:"quizId" yaml:"quizId"`
	Prompt         string       `json:"prompt" yaml:"prompt"`
	Type           QuestionType `json:"questionType" yaml:"questionType"`
	Options        []Option     `json:"options" yaml:"options"`
	CorrectAnswers []string     `json:"correctAnswers" yaml:"correctAnswers"`
	Explanation    *string      `json:"explanation" yaml:"explanation"`
	Points         float64      `json:"points" yaml:"points"`
	NegativePoints float64      `json:"negativePoints" yaml:"negativePoints"`
	Order          int          `json:"questionOrder" yaml:"questionOrder"`
}

// HasOption reports whether key is one of the question's option keys.
func (q QuizQuestion) HasOption(key string) bool {
	for _, opt := range q.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// QuizDefinition is a quiz together with its full question set.
type QuizDefinition struct {
	Quiz      Quiz           `json:"quiz" yaml:"quiz"`
	Questions []QuizQuestion `json:"questions" yaml:"questions"`
}

// Question looks up a question by id.
func (d QuizDefinition) Question(id string) (QuizQuestion, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return QuizQuestion{}, false
}

// Grade is present only once an attempt has been scored.
type Grade struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"maxScore"`
	Percentage float64 `json:"percentage"`
	// Passed is nil when the quiz has no passing score.
	Passed *bool `json:"passed"`
}

// QuizAttempt is one student's pass at a quiz.
type QuizAttempt struct {
	ID            string        `json:"id"`
	QuizID        string        `json:"quizId"`
	StudentID     string        `json:"studentId"`
	AttemptNumber int           `json:"attemptNumber"`
	Status        AttemptStatus `json:"status"`
	StartedAt     time.Time     `json:"startedAt"`
	SubmittedAt   *time.Time    `json:"submittedAt"`
	// Grade is nil while ungraded (IN_PROGRESS or ABANDONED).
	Grade            *Grade `json:"grade"`
	TimeTakenSeconds *int   `json:"timeTakenSeconds"`
}

// Graded reports whether the attempt carries a score.
func (a QuizAttempt) Graded() bool {
	return a.Grade != nil
}

// QuizResponse is the answer to one question within one attempt.
type QuizResponse struct {
	AttemptID        string   `json:"attemptId"`
	QuestionID       string   `json:"questionId"`
	SelectedAnswers  []string `json:"selectedAnswers"`
	IsCorrect        bool     `json:"isCorrect"`
	PointsEarned     float64  `json:"pointsEarned"`
	PointsDeducted   float64  `json:"pointsDeducted"`
	TimeSpentSeconds int      `json:"timeSpentSeconds"`
}
