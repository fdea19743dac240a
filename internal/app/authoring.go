package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/eligibility"
)

// AuthoringService stores quiz definitions after validating them.
type AuthoringService struct {
	store   QuizDataService
	catalog QuizCatalog
	log     *zap.Logger
}

func NewAuthoringService(store QuizDataService, catalog QuizCatalog, log *zap.Logger) *AuthoringService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthoringService{store: store, catalog: catalog, log: log}
}

// SaveQuiz validates and stores def. When attempts already exist, edits that would change
// max score, drop questions or change question points are refused.
func (s *AuthoringService) SaveQuiz(ctx context.Context, def domain.QuizDefinition) (eligibility.EditRestrictions, error) {
	if err := def.Validate(); err != nil {
		return eligibility.EditRestrictions{}, err
	}

	attempts, err := s.store.ListAttempts(ctx, def.Quiz.ID, "")
	if err != nil {
		return eligibility.EditRestrictions{}, err
	}
	restrictions := eligibility.CanEditQuiz(len(attempts))
	if restrictions.HasAttempts {
		current, err := s.catalog.GetDefinition(ctx, def.Quiz.ID)
		if err != nil {
			return restrictions, err
		}
		if problems := restrictedChanges(current, def); len(problems) > 0 {
			return restrictions, &domain.ValidationError{Problems: problems}
		}
	}

	if err := s.store.SaveQuiz(ctx, def); err != nil {
		return restrictions, err
	}
	if err := s.catalog.Invalidate(ctx, def.Quiz.ID); err != nil {
		s.log.Warn("quiz cache invalidation failed", zap.String("quiz_id", def.Quiz.ID), zap.Error(err))
	}
	s.log.Info("quiz saved",
		zap.String("quiz_id", def.Quiz.ID),
		zap.Int("questions", len(def.Questions)),
		zap.Int("attempts", restrictions.AttemptCount))
	return restrictions, nil
}

func restrictedChanges(current, next domain.QuizDefinition) []string {
	var problems []string
	if current.Quiz.MaxScore != next.Quiz.MaxScore {
		problems = append(problems, eligibility.RestrictMaxScore)
	}
	for _, q := range current.Questions {
		updated, ok := next.Question(q.ID)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s (%s)", eligibility.RestrictQuestionRemoval, q.ID))
			continue
		}
		if updated.Points != q.Points || updated.NegativePoints != q.NegativePoints {
			problems = append(problems, fmt.Sprintf("%s (%s)", eligibility.RestrictQuestionPoints, q.ID))
		}
	}
	return problems
}
