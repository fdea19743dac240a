package stats

import (
	"testing"

	"quiz-engine/internal/domain"
)

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

func graded(id, quizID, student string, status domain.AttemptStatus, score float64, passed *bool, secs *int) domain.QuizAttempt {
	return domain.QuizAttempt{
		ID:               id,
		QuizID:           quizID,
		StudentID:        student,
		Status:           status,
		Grade:            &domain.Grade{Score: score, MaxScore: 100, Percentage: score, Passed: passed},
		TimeTakenSeconds: secs,
	}
}

func TestQuizStatisticsEmpty(t *testing.T) {
	s := QuizStatistics("quiz-1", 10, nil)
	if s.AttemptedCount != 0 || s.NotAttemptedCount != 10 || s.AttemptRate != 0 || s.PassRate != 0 {
		t.Fatalf("unexpected empty stats %+v", s)
	}
	if s.AverageScore != 0 || s.AverageTimeSeconds != 0 {
		t.Fatalf("expected zero averages, got %+v", s)
	}

	zero := QuizStatistics("quiz-1", 0, nil)
	if zero.AttemptRate != 0 || zero.NotAttemptedCount != 0 {
		t.Fatalf("expected zero rates with no students, got %+v", zero)
	}
}

func TestQuizStatisticsAggregates(t *testing.T) {
	attempts := []domain.QuizAttempt{
		graded("a1", "quiz-1", "s1", domain.StatusCompleted, 80, boolPtr(true), intPtr(600)),
		graded("a2", "quiz-1", "s1", domain.StatusCompleted, 40, boolPtr(false), intPtr(300)),
		graded("a3", "quiz-1", "s2", domain.StatusTimeout, 10, boolPtr(false), intPtr(900)),
		{ID: "a4", QuizID: "quiz-1", StudentID: "s3", Status: domain.StatusInProgress},
	}
	s := QuizStatistics("quiz-1", 8, attempts)

	if s.AttemptedCount != 3 || s.NotAttemptedCount != 5 {
		t.Fatalf("unexpected attempted counts %+v", s)
	}
	if s.CompletedCount != 2 || s.InProgressCount != 1 || s.TimeoutCount != 1 {
		t.Fatalf("unexpected status counts %+v", s)
	}
	if s.PassedCount != 1 || s.FailedCount != 1 || s.PassRate != 50 {
		t.Fatalf("pass stats must only use completed attempts: %+v", s)
	}
	if s.AverageScore != 60 || s.HighestScore != 80 || s.LowestScore != 40 {
		t.Fatalf("unexpected score stats %+v", s)
	}
	if s.AverageTimeSeconds != 600 {
		t.Fatalf("expected average time 600, got %v", s.AverageTimeSeconds)
	}
	if s.AttemptRate != 37.5 {
		t.Fatalf("expected attempt rate 37.5, got %v", s.AttemptRate)
	}
}

func TestQuestionStatistics(t *testing.T) {
	q := domain.QuizQuestion{
		ID:      "q1",
		Options: []domain.Option{{Key: "A"}, {Key: "B"}, {Key: "C"}},
	}
	responses := []domain.QuizResponse{
		{QuestionID: "q1", SelectedAnswers: []string{"B"}, IsCorrect: true, TimeSpentSeconds: 10},
		{QuestionID: "q1", SelectedAnswers: []string{"A"}, TimeSpentSeconds: 20},
		{QuestionID: "q1", SelectedAnswers: []string{"B"}, IsCorrect: true, TimeSpentSeconds: 30},
		{QuestionID: "q1", SelectedAnswers: []string{"A"}, TimeSpentSeconds: 40},
		{QuestionID: "q1", TimeSpentSeconds: 0},
		{QuestionID: "q2", SelectedAnswers: []string{"C"}},
	}
	s := QuestionStatistics(q, responses)

	if s.ResponseCount != 5 || s.CorrectCount != 2 || s.IncorrectCount != 3 || s.SkippedCount != 1 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.CorrectRate != 40 || s.AverageTimeSeconds != 20 {
		t.Fatalf("unexpected rates %+v", s)
	}
	if s.MostSelectedOption != "A" {
		t.Fatalf("tie must resolve to first option in order, got %q", s.MostSelectedOption)
	}
	want := []OptionCount{{"A", 2}, {"B", 2}, {"C", 0}}
	for i, oc := range want {
		if s.OptionDistribution[i] != oc {
			t.Fatalf("distribution[%d]: expected %+v, got %+v", i, oc, s.OptionDistribution[i])
		}
	}
}

func TestQuestionStatisticsEmpty(t *testing.T) {
	s := QuestionStatistics(domain.QuizQuestion{ID: "q1", Options: []domain.Option{{Key: "A"}}}, nil)
	if s.ResponseCount != 0 || s.CorrectRate != 0 || s.MostSelectedOption != "" {
		t.Fatalf("unexpected empty stats %+v", s)
	}
}

func TestQuestionStatisticsForQuizOrdersByQuestionOrder(t *testing.T) {
	questions := []domain.QuizQuestion{{ID: "q2", Order: 2}, {ID: "q1", Order: 1}}
	out := QuestionStatisticsForQuiz(questions, []domain.QuizResponse{{QuestionID: "q2", IsCorrect: true}})
	if len(out) != 2 || out[0].QuestionID != "q1" || out[1].CorrectCount != 1 {
		t.Fatalf("unexpected per-question stats %+v", out)
	}
}

func TestStudentQuizSummary(t *testing.T) {
	attempts := []domain.QuizAttempt{
		graded("a1", "quiz-1", "s1", domain.StatusCompleted, 70, boolPtr(true), intPtr(100)),
		graded("a2", "quiz-2", "s1", domain.StatusCompleted, 90, boolPtr(true), intPtr(200)),
		graded("a3", "quiz-2", "s1", domain.StatusCompleted, 90, boolPtr(true), intPtr(50)),
		graded("a4", "quiz-3", "s1", domain.StatusTimeout, 20, boolPtr(false), intPtr(300)),
		graded("a5", "quiz-1", "s2", domain.StatusCompleted, 100, boolPtr(true), intPtr(10)),
		graded("a6", "quiz-9", "s1", domain.StatusCompleted, 100, boolPtr(true), intPtr(10)),
	}
	s := StudentQuizSummary("s1", []string{"quiz-1", "quiz-2", "quiz-3", "quiz-4"}, attempts)

	if s.AttemptedQuizzes != 3 || s.PendingQuizzes != 1 {
		t.Fatalf("unexpected attempted/pending %+v", s)
	}
	if s.CompletedAttempts != 3 || s.PassedCount != 3 || s.FailedCount != 0 {
		t.Fatalf("unexpected completed counts %+v", s)
	}
	if s.TotalTimeSeconds != 650 {
		t.Fatalf("expected summed time 650, got %d", s.TotalTimeSeconds)
	}
	if s.AverageScore != 83.33 {
		t.Fatalf("expected average 83.33, got %v", s.AverageScore)
	}
	if s.BestQuizID != "quiz-2" || s.BestPercentage != 90 {
		t.Fatalf("expected first best quiz-2, got %s %v", s.BestQuizID, s.BestPercentage)
	}
}

func TestStudentQuizSummaryEmpty(t *testing.T) {
	s := StudentQuizSummary("s1", []string{"quiz-1"}, nil)
	if s.PendingQuizzes != 1 || s.BestQuizID != "" || s.AverageScore != 0 {
		t.Fatalf("unexpected empty summary %+v", s)
	}
}

func TestClassQuizReportAveragesQuizRates(t *testing.T) {
	attempts := []domain.QuizAttempt{
		graded("a1", "quiz-1", "s1", domain.StatusCompleted, 80, boolPtr(true), nil),
		graded("a2", "quiz-1", "s2", domain.StatusCompleted, 30, boolPtr(false), nil),
		graded("a3", "quiz-1", "s3", domain.StatusCompleted, 90, boolPtr(true), nil),
		graded("a4", "quiz-1", "s4", domain.StatusCompleted, 95, boolPtr(true), nil),
		graded("a5", "quiz-2", "s1", domain.StatusCompleted, 70, boolPtr(true), nil),
		{ID: "a6", QuizID: "quiz-3", StudentID: "s2", Status: domain.StatusInProgress},
	}
	r := ClassQuizReport("class-1", []string{"quiz-1", "quiz-2", "quiz-3"}, 4, attempts)

	if len(r.Quizzes) != 3 {
		t.Fatalf("expected 3 quiz rows, got %d", len(r.Quizzes))
	}
	// attempt rates 100, 25, 25 -> 50
	if r.AverageAttemptRate != 50 {
		t.Fatalf("expected average attempt rate 50, got %v", r.AverageAttemptRate)
	}
	// pass rates 75 and 100 over quizzes with completions -> 87.5; pooled would be 80
	if r.AveragePassRate != 87.5 {
		t.Fatalf("expected quiz-weighted pass rate 87.5, got %v", r.AveragePassRate)
	}
	if r.Quizzes[2].PassRate != nil {
		t.Fatalf("quiz without completions must have nil pass rate")
	}
	if r.StudentsPassedAll != 0 {
		t.Fatalf("nobody passed quiz-3, got %d", r.StudentsPassedAll)
	}

	two := ClassQuizReport("class-1", []string{"quiz-1", "quiz-2"}, 4, attempts)
	if two.StudentsPassedAll != 1 {
		t.Fatalf("expected s1 to pass every quiz, got %d", two.StudentsPassedAll)
	}
}

func TestClassQuizReportEmpty(t *testing.T) {
	r := ClassQuizReport("class-1", nil, 0, nil)
	if r.AverageAttemptRate != 0 || r.AveragePassRate != 0 || r.StudentsPassedAll != 0 || r.Quizzes == nil {
		t.Fatalf("unexpected empty report %+v", r)
	}
}

func TestLeaderboardKeepsBestAttempt(t *testing.T) {
	attempts := []domain.QuizAttempt{
		graded("a1", "quiz-1", "s1", domain.StatusCompleted, 80, nil, intPtr(100)),
		graded("a2", "quiz-1", "s1", domain.StatusCompleted, 95, nil, intPtr(300)),
		graded("a3", "quiz-1", "s2", domain.StatusCompleted, 90, nil, intPtr(50)),
		graded("a4", "quiz-1", "s3", domain.StatusTimeout, 99, nil, intPtr(10)),
	}
	board := Leaderboard(attempts, 0)
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	if board[0].AttemptID != "a2" || board[0].Rank != 1 {
		t.Fatalf("expected s1's 95 attempt first, got %+v", board[0])
	}
	if board[1].StudentID != "s2" || board[1].Rank != 2 {
		t.Fatalf("expected s2 second, got %+v", board[1])
	}
}

func TestLeaderboardTieBreaksAndDenseRank(t *testing.T) {
	attempts := []domain.QuizAttempt{
		graded("a1", "quiz-1", "s1", domain.StatusCompleted, 80, nil, intPtr(200)),
		graded("a2", "quiz-1", "s1", domain.StatusCompleted, 80, nil, intPtr(120)),
		graded("a3", "quiz-1", "s2", domain.StatusCompleted, 80, nil, intPtr(120)),
		graded("a4", "quiz-1", "s3", domain.StatusCompleted, 80, nil, intPtr(400)),
		graded("a5", "quiz-1", "s4", domain.StatusCompleted, 60, nil, intPtr(10)),
	}
	board := Leaderboard(attempts, 3)
	if len(board) != 3 {
		t.Fatalf("expected limit 3, got %d", len(board))
	}
	if board[0].AttemptID != "a2" || board[0].Rank != 1 || board[1].StudentID != "s2" || board[1].Rank != 1 {
		t.Fatalf("expected shared rank 1, got %+v", board[:2])
	}
	if board[2].StudentID != "s3" || board[2].Rank != 2 {
		t.Fatalf("expected dense rank 2, got %+v", board[2])
	}
}
