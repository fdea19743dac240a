package app

import (
	"context"

	"quiz-engine/internal/domain"
)

// QuizDataService abstracts how quizzes, attempts and responses are stored (in-memory, Postgres).
type QuizDataService interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuestions(ctx context.Context, quizID string) ([]domain.QuizQuestion, error)
	// ListQuizzes returns the quizzes assigned to a class.
	ListQuizzes(ctx context.Context, classID string) ([]domain.Quiz, error)
	SaveQuiz(ctx context.Context, def domain.QuizDefinition) error

	// ListAttempts returns a quiz's attempts, narrowed to one student when studentID is set.
	ListAttempts(ctx context.Context, quizID, studentID string) ([]domain.QuizAttempt, error)
	ListInProgressAttempts(ctx context.Context) ([]domain.QuizAttempt, error)
	GetAttempt(ctx context.Context, attemptID string) (domain.QuizAttempt, error)
	// CreateAttempt must reject a second IN_PROGRESS attempt for the same (quiz, student)
	// with domain.ErrAttemptConflict.
	CreateAttempt(ctx context.Context, attempt domain.QuizAttempt) error
	// FinalizeAttempt moves an IN_PROGRESS attempt to its terminal state and stores the scored
	// responses. Exactly one finalization may succeed; later ones get domain.ErrAttemptConflict.
	FinalizeAttempt(ctx context.Context, attempt domain.QuizAttempt, responses []domain.QuizResponse) error

	// SaveResponse upserts the (attempt, question) response of an IN_PROGRESS attempt.
	SaveResponse(ctx context.Context, response domain.QuizResponse) error
	ListResponses(ctx context.Context, attemptID string) ([]domain.QuizResponse, error)
}

// QuizCatalog loads quiz definitions (from cache/backing store).
type QuizCatalog interface {
	GetDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error)
	Invalidate(ctx context.Context, quizID string) error
}

// AttemptLocker serialises work on one key across goroutines (or instances).
type AttemptLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func startLockKey(quizID, studentID string) string {
	return "attempt:start:" + quizID + ":" + studentID
}

func attemptLockKey(attemptID string) string {
	return "attempt:" + attemptID
}
