package scoring

import (
	"testing"

	"quiz-engine/internal/domain"
)

func TestScoreResponseSingleChoice(t *testing.T) {
	correct := []string{"B"}
	cases := []struct {
		name     string
		selected []string
		want     Outcome
	}{
		{"correct key", []string{"B"}, Outcome{Earned: 4, IsCorrect: true}},
		{"wrong key", []string{"A"}, Outcome{Deducted: 1}},
		{"two keys", []string{"A", "B"}, Outcome{Deducted: 1}},
		{"empty", nil, Outcome{}},
		{"duplicate correct key", []string{"B", "B"}, Outcome{Earned: 4, IsCorrect: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreResponse(tc.selected, correct, domain.SingleChoice, 4, 1)
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestScoreResponseMultiChoice(t *testing.T) {
	correct := []string{"A", "B"}
	cases := []struct {
		name     string
		selected []string
		want     Outcome
	}{
		{"exact set", []string{"B", "A"}, Outcome{Earned: 3, IsCorrect: true}},
		{"subset", []string{"A"}, Outcome{Deducted: 0.5}},
		{"superset", []string{"A", "B", "C"}, Outcome{Deducted: 0.5}},
		{"empty", []string{}, Outcome{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreResponse(tc.selected, correct, domain.MultiChoice, 3, 0.5)
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestScoreResponseIsIdempotent(t *testing.T) {
	first := ScoreResponse([]string{"A", "C"}, []string{"A", "C"}, domain.MultiChoice, 2, 1)
	second := ScoreResponse([]string{"A", "C"}, []string{"A", "C"}, domain.MultiChoice, 2, 1)
	if first != second {
		t.Fatalf("rescoring differs: %+v vs %+v", first, second)
	}
}

func definition(passing *float64) domain.QuizDefinition {
	return domain.QuizDefinition{
		Quiz: domain.Quiz{ID: "quiz-1", MaxScore: 6, PassingScore: passing},
		Questions: []domain.QuizQuestion{
			{ID: "q1", Type: domain.SingleChoice, CorrectAnswers: []string{"B"}, Points: 2, NegativePoints: 1},
			{ID: "q2", Type: domain.MultiChoice, CorrectAnswers: []string{"A", "C"}, Points: 4, NegativePoints: 2},
		},
	}
}

func TestScoreAttemptAggregates(t *testing.T) {
	pass := 4.0
	engine := NewEngine(DefaultPolicy())
	res := engine.ScoreAttempt(definition(&pass), []domain.QuizResponse{
		{QuestionID: "q1", SelectedAnswers: []string{"B"}},
		{QuestionID: "q2", SelectedAnswers: []string{"A", "C"}},
		{QuestionID: "ghost", SelectedAnswers: []string{"A"}},
	})
	if len(res.Responses) != 2 {
		t.Fatalf("expected unknown question dropped, got %d responses", len(res.Responses))
	}
	if res.Grade.Score != 6 || res.Grade.Percentage != 100 {
		t.Fatalf("unexpected grade %+v", res.Grade)
	}
	if res.Grade.Passed == nil || !*res.Grade.Passed {
		t.Fatalf("expected pass, got %+v", res.Grade.Passed)
	}
	if !res.Responses[0].IsCorrect || res.Responses[0].PointsEarned != 2 {
		t.Fatalf("response not annotated: %+v", res.Responses[0])
	}
}

func TestScoreAttemptNegativeTotals(t *testing.T) {
	wrong := []domain.QuizResponse{
		{QuestionID: "q1", SelectedAnswers: []string{"A"}},
		{QuestionID: "q2", SelectedAnswers: []string{"A"}},
	}

	unclamped := NewEngine(DefaultPolicy()).ScoreAttempt(definition(nil), wrong)
	if unclamped.Grade.Score != -3 || unclamped.Grade.Percentage != -50 {
		t.Fatalf("expected raw negative score, got %+v", unclamped.Grade)
	}
	if unclamped.Grade.Passed != nil {
		t.Fatalf("expected nil passed without passing score")
	}

	clamped := NewEngine(Policy{ClampScore: true}).ScoreAttempt(definition(nil), wrong)
	if clamped.Grade.Score != 0 || clamped.Grade.Percentage != 0 {
		t.Fatalf("expected clamped score 0, got %+v", clamped.Grade)
	}
}

func TestGradeRoundsPercentage(t *testing.T) {
	g := NewEngine(DefaultPolicy()).Grade(domain.Quiz{MaxScore: 3}, 2)
	if g.Percentage != 66.67 {
		t.Fatalf("expected 66.67, got %v", g.Percentage)
	}
}

func TestGradeJudgesPassOnUnroundedScore(t *testing.T) {
	passing := 1.0
	g := NewEngine(DefaultPolicy()).Grade(domain.Quiz{MaxScore: 2, PassingScore: &passing}, 0.999)
	if g.Score != 1 {
		t.Fatalf("expected stored score rounded to 1, got %v", g.Score)
	}
	if g.Passed == nil || *g.Passed {
		t.Fatalf("0.999 must not pass a 1.0 threshold, got %+v", g)
	}
	if g.Percentage != 49.95 {
		t.Fatalf("expected 49.95, got %v", g.Percentage)
	}
}

func TestPercentZeroWhole(t *testing.T) {
	if got := Percent(5, 0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestPerformanceLevel(t *testing.T) {
	cases := map[float64]string{
		95:    LevelExcellent,
		90:    LevelExcellent,
		89.99: LevelGood,
		80:    LevelGood,
		70:    LevelSatisfactory,
		60:    LevelPassing,
		59.99: LevelNeedsImprovement,
		-10:   LevelNeedsImprovement,
	}
	for pct, want := range cases {
		if got := PerformanceLevel(pct); got != want {
			t.Fatalf("%v: expected %s, got %s", pct, want, got)
		}
	}
}

func TestFormatScore(t *testing.T) {
	got := FormatScore(domain.Grade{Score: 7.5, MaxScore: 10, Percentage: 75})
	if got != "7.5/10 (75.00%)" {
		t.Fatalf("got %q", got)
	}
}
