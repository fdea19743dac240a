package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/eligibility"
)

func completeAttempt(t *testing.T, h *harness, studentID string, answers map[string][]string) domain.QuizAttempt {
	t.Helper()
	ctx := context.Background()
	view, err := h.attempts.StartAttempt(ctx, "quiz-1", studentID)
	if err != nil {
		t.Fatalf("start %s: %v", studentID, err)
	}
	for questionID, selected := range answers {
		if _, err := h.attempts.SaveResponse(ctx, view.Attempt.ID, studentID, questionID, selected, 10); err != nil {
			t.Fatalf("answer %s: %v", questionID, err)
		}
	}
	h.clock.Advance(time.Minute)
	result, err := h.attempts.Submit(ctx, view.Attempt.ID, studentID)
	if err != nil {
		t.Fatalf("submit %s: %v", studentID, err)
	}
	return result.Attempt
}

func TestReportServiceAggregates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, sampleDefinition())

	completeAttempt(t, h, "s1", map[string][]string{"q1": {"B"}, "q2": {"A", "C"}})
	completeAttempt(t, h, "s2", map[string][]string{"q1": {"A"}})
	if _, err := h.attempts.StartAttempt(ctx, "quiz-1", "s3"); err != nil {
		t.Fatalf("start s3: %v", err)
	}

	stats, err := h.reports.QuizStatistics(ctx, "quiz-1", 4)
	if err != nil {
		t.Fatalf("quiz statistics: %v", err)
	}
	if stats.AttemptedCount != 3 || stats.CompletedCount != 2 || stats.InProgressCount != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.PassedCount != 1 || stats.FailedCount != 1 || stats.PassRate != 50 {
		t.Fatalf("unexpected pass stats %+v", stats)
	}
	if stats.HighestScore != 3 || stats.LowestScore != -0.5 {
		t.Fatalf("unexpected score range %+v", stats)
	}

	questions, err := h.reports.QuestionStatistics(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("question statistics: %v", err)
	}
	if len(questions) != 2 || questions[0].ResponseCount != 2 || questions[0].CorrectCount != 1 {
		t.Fatalf("unexpected q1 statistics %+v", questions)
	}

	board, err := h.reports.Leaderboard(ctx, "quiz-1", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].StudentID != "s1" || board[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	summary, err := h.reports.StudentSummary(ctx, "s1", []string{"quiz-1", "quiz-2"})
	if err != nil {
		t.Fatalf("student summary: %v", err)
	}
	if summary.AttemptedQuizzes != 1 || summary.PendingQuizzes != 1 || summary.BestQuizID != "quiz-1" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	report, err := h.reports.ClassReport(ctx, "class-1", nil, 4)
	if err != nil {
		t.Fatalf("class report: %v", err)
	}
	if report.TotalQuizzes != 1 || report.AverageAttemptRate != 75 || report.AveragePassRate != 50 || report.StudentsPassedAll != 1 {
		t.Fatalf("unexpected class report %+v", report)
	}

	if _, err := h.reports.QuizStatistics(ctx, "missing", 1); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestAuthoringRestrictsEditsOnceAttempted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, sampleDefinition())

	def := sampleDefinition()
	def.Quiz.Title = "Arithmetic (revised)"
	restrictions, err := h.authoring.SaveQuiz(ctx, def)
	if err != nil {
		t.Fatalf("save before attempts: %v", err)
	}
	if restrictions.HasAttempts {
		t.Fatalf("expected no restrictions, got %+v", restrictions)
	}
	cached, _ := h.catalog.GetDefinition(ctx, "quiz-1")
	if cached.Quiz.Title != "Arithmetic (revised)" {
		t.Fatalf("expected catalog invalidated, got %q", cached.Quiz.Title)
	}

	completeAttempt(t, h, "s1", map[string][]string{"q1": {"B"}})

	blocked := sampleDefinition()
	blocked.Quiz.MaxScore = 5
	blocked.Questions = blocked.Questions[:1]
	_, err = h.authoring.SaveQuiz(ctx, blocked)
	var invalid *domain.ValidationError
	if !errors.As(err, &invalid) || len(invalid.Problems) != 2 {
		t.Fatalf("expected max score and removal problems, got %v", err)
	}

	allowed := sampleDefinition()
	allowed.Quiz.Title = "Arithmetic (typo fixed)"
	restrictions, err = h.authoring.SaveQuiz(ctx, allowed)
	if err != nil {
		t.Fatalf("cosmetic edit must be allowed: %v", err)
	}
	if !restrictions.HasAttempts || restrictions.AttemptCount != 1 || len(restrictions.Restrictions) != 3 {
		t.Fatalf("unexpected restrictions %+v", restrictions)
	}

	got, err := h.reports.EditRestrictions(ctx, "quiz-1")
	if err != nil || got.Restrictions[0] != eligibility.RestrictMaxScore {
		t.Fatalf("unexpected edit restrictions %+v %v", got, err)
	}
}

func TestAuthoringRejectsInvalidQuiz(t *testing.T) {
	h := newHarness(t, sampleDefinition())
	def := sampleDefinition()
	def.Quiz.ID = "quiz-2"
	def.Quiz.MaxAttempts = 0
	def.Questions[0].CorrectAnswers = []string{"A", "B"}

	_, err := h.authoring.SaveQuiz(context.Background(), def)
	var invalid *domain.ValidationError
	if !errors.As(err, &invalid) || len(invalid.Problems) < 2 {
		t.Fatalf("expected validation problems, got %v", err)
	}
	if _, err := h.store.GetQuiz(context.Background(), "quiz-2"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("invalid quiz must not be stored")
	}
}
