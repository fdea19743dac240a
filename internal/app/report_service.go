package app

import (
	"context"
	"errors"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/eligibility"
	"quiz-engine/internal/engine/stats"
)

// ReportService contains the read-only analytics use cases.
type ReportService struct {
	store   QuizDataService
	catalog QuizCatalog
}

func NewReportService(store QuizDataService, catalog QuizCatalog) *ReportService {
	return &ReportService{store: store, catalog: catalog}
}

// QuizStatistics aggregates every attempt at quizID.
func (s *ReportService) QuizStatistics(ctx context.Context, quizID string, totalStudents int) (stats.QuizStats, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return stats.QuizStats{}, err
	}
	attempts, err := s.store.ListAttempts(ctx, quizID, "")
	if err != nil {
		return stats.QuizStats{}, err
	}
	return stats.QuizStatistics(quizID, totalStudents, attempts), nil
}

// QuestionStatistics reports per-question analytics over graded attempts.
func (s *ReportService) QuestionStatistics(ctx context.Context, quizID string) ([]stats.QuestionStats, error) {
	def, err := s.catalog.GetDefinition(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, quizID, "")
	if err != nil {
		return nil, err
	}
	var responses []domain.QuizResponse
	for _, a := range attempts {
		if !a.Graded() {
			continue
		}
		rs, err := s.store.ListResponses(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, rs...)
	}
	return stats.QuestionStatisticsForQuiz(def.Questions, responses), nil
}

// StudentSummary summarises studentID's record over quizIDs.
func (s *ReportService) StudentSummary(ctx context.Context, studentID string, quizIDs []string) (stats.StudentSummary, error) {
	var attempts []domain.QuizAttempt
	for _, quizID := range quizIDs {
		as, err := s.store.ListAttempts(ctx, quizID, studentID)
		if err != nil && !errors.Is(err, domain.ErrQuizNotFound) {
			return stats.StudentSummary{}, err
		}
		attempts = append(attempts, as...)
	}
	return stats.StudentQuizSummary(studentID, quizIDs, attempts), nil
}

// ClassReport summarises classID. An empty quizIDs means every quiz assigned to the class.
func (s *ReportService) ClassReport(ctx context.Context, classID string, quizIDs []string, totalStudents int) (stats.ClassReport, error) {
	if len(quizIDs) == 0 {
		quizzes, err := s.store.ListQuizzes(ctx, classID)
		if err != nil {
			return stats.ClassReport{}, err
		}
		for _, q := range quizzes {
			quizIDs = append(quizIDs, q.ID)
		}
	}
	var attempts []domain.QuizAttempt
	for _, quizID := range quizIDs {
		as, err := s.store.ListAttempts(ctx, quizID, "")
		if err != nil {
			return stats.ClassReport{}, err
		}
		attempts = append(attempts, as...)
	}
	return stats.ClassQuizReport(classID, quizIDs, totalStudents, attempts), nil
}

// Leaderboard ranks each student's best completed attempt at quizID.
func (s *ReportService) Leaderboard(ctx context.Context, quizID string, limit int) ([]stats.LeaderboardEntry, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, quizID, "")
	if err != nil {
		return nil, err
	}
	return stats.Leaderboard(attempts, limit), nil
}

// EditRestrictions lists the edits blocked on quizID because attempts exist.
func (s *ReportService) EditRestrictions(ctx context.Context, quizID string) (eligibility.EditRestrictions, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return eligibility.EditRestrictions{}, err
	}
	attempts, err := s.store.ListAttempts(ctx, quizID, "")
	if err != nil {
		return eligibility.EditRestrictions{}, err
	}
	return eligibility.CanEditQuiz(len(attempts)), nil
}
