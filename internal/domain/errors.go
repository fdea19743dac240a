package domain

import (
	"errors"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option key is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptNotFound is returned for unknown attempt ids.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptConflict covers finalize-once and single in-progress violations.
	ErrAttemptConflict = errors.New("attempt already in progress or already submitted")
	// ErrAttemptExpired is returned when the attempt window elapsed before the request.
	ErrAttemptExpired = errors.New("attempt time window has elapsed")
	// ErrNotEligible wraps the reason a new attempt was refused.
	ErrNotEligible = errors.New("not eligible to attempt quiz")
	// ErrForbidden is returned when a student acts on someone else's attempt.
	ErrForbidden = errors.New("attempt belongs to another student")
)

// ValidationError lists every authoring problem found in a quiz or question.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid quiz: " + strings.Join(e.Problems, "; ")
}
