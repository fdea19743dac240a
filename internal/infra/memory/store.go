package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quiz-engine/internal/domain"
)

// Store is an in-memory implementation of app.QuizDataService.
type Store struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	questions map[string][]domain.QuizQuestion
	attempts  map[string]domain.QuizAttempt
	// order keeps attempt ids in creation order.
	order     []string
	responses map[string][]domain.QuizResponse
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string][]domain.QuizQuestion),
		attempts:  make(map[string]domain.QuizAttempt),
		responses: make(map[string][]domain.QuizResponse),
	}
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListQuestions(_ context.Context, quizID string) ([]domain.QuizQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	return cloneQuestions(s.questions[quizID]), nil
}

func (s *Store) ListQuizzes(_ context.Context, classID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if q.ClassID == classID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveQuiz(_ context.Context, def domain.QuizDefinition) error {
	questions := cloneQuestions(def.Questions)
	for i := range questions {
		questions[i].QuizID = def.Quiz.ID
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[def.Quiz.ID] = def.Quiz
	s.questions[def.Quiz.ID] = questions
	return nil
}

// LoadDefinition implements DefinitionLoader.
func (s *Store) LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	questions, err := s.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	return domain.QuizDefinition{Quiz: quiz, Questions: questions}, nil
}

func (s *Store) ListAttempts(_ context.Context, quizID, studentID string) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for _, id := range s.order {
		a := s.attempts[id]
		if a.QuizID != quizID || (studentID != "" && a.StudentID != studentID) {
			continue
		}
		out = append(out, cloneAttempt(a))
	}
	return out, nil
}

func (s *Store) ListInProgressAttempts(_ context.Context) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for _, id := range s.order {
		if a := s.attempts[id]; a.Status == domain.StatusInProgress {
			out = append(out, cloneAttempt(a))
		}
	}
	return out, nil
}

func (s *Store) GetAttempt(_ context.Context, attemptID string) (domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(a), nil
}

func (s *Store) CreateAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("%w: duplicate attempt id %s", domain.ErrAttemptConflict, attempt.ID)
	}
	for _, a := range s.attempts {
		if a.QuizID != attempt.QuizID || a.StudentID != attempt.StudentID {
			continue
		}
		if a.Status == domain.StatusInProgress {
			return fmt.Errorf("%w: attempt %s is in progress", domain.ErrAttemptConflict, a.ID)
		}
		if a.AttemptNumber == attempt.AttemptNumber {
			return fmt.Errorf("%w: attempt number %d taken", domain.ErrAttemptConflict, attempt.AttemptNumber)
		}
	}
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	s.order = append(s.order, attempt.ID)
	return nil
}

func (s *Store) FinalizeAttempt(_ context.Context, attempt domain.QuizAttempt, responses []domain.QuizResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.attempts[attempt.ID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if current.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: attempt is %s", domain.ErrAttemptConflict, current.Status)
	}
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	s.responses[attempt.ID] = append([]domain.QuizResponse(nil), responses...)
	return nil
}

func (s *Store) SaveResponse(_ context.Context, response domain.QuizResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[response.AttemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if a.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: attempt is %s", domain.ErrAttemptConflict, a.Status)
	}
	response.SelectedAnswers = append([]string(nil), response.SelectedAnswers...)
	existing := s.responses[response.AttemptID]
	for i := range existing {
		if existing[i].QuestionID == response.QuestionID {
			existing[i] = response
			return nil
		}
	}
	s.responses[response.AttemptID] = append(existing, response)
	return nil
}

func (s *Store) ListResponses(_ context.Context, attemptID string) ([]domain.QuizResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.attempts[attemptID]; !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return append([]domain.QuizResponse{}, s.responses[attemptID]...), nil
}

func cloneAttempt(a domain.QuizAttempt) domain.QuizAttempt {
	if a.SubmittedAt != nil {
		v := *a.SubmittedAt
		a.SubmittedAt = &v
	}
	if a.Grade != nil {
		g := *a.Grade
		if g.Passed != nil {
			p := *g.Passed
			g.Passed = &p
		}
		a.Grade = &g
	}
	if a.TimeTakenSeconds != nil {
		v := *a.TimeTakenSeconds
		a.TimeTakenSeconds = &v
	}
	return a
}

func cloneQuestions(in []domain.QuizQuestion) []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, len(in))
	for i, q := range in {
		q.Options = append([]domain.Option(nil), q.Options...)
		q.CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
		out[i] = q
	}
	return out
}
