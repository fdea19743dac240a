package presenter

import (
	"math/rand"
	"testing"

	"quiz-engine/internal/domain"
)

func sampleQuestions() []domain.QuizQuestion {
	why := "because"
	return []domain.QuizQuestion{
		{
			ID: "q2", Type: domain.MultiChoice, Order: 2, Points: 2,
			Options:        []domain.Option{{Key: "A", Text: "red"}, {Key: "B", Text: "blue"}, {Key: "C", Text: "green"}, {Key: "D", Text: "cat"}},
			CorrectAnswers: []string{"A", "B", "C"}, Explanation: &why,
		},
		{
			ID: "q1", Type: domain.SingleChoice, Order: 1, Points: 1,
			Options:        []domain.Option{{Key: "A", Text: "3"}, {Key: "B", Text: "4"}},
			CorrectAnswers: []string{"B"}, Explanation: &why,
		},
		{
			ID: "q3", Type: domain.SingleChoice, Order: 3, Points: 1,
			Options:        []domain.Option{{Key: "A", Text: "yes"}, {Key: "B", Text: "no"}},
			CorrectAnswers: []string{"A"},
		},
	}
}

func TestSanitizedPayloadNeverLeaksSecrets(t *testing.T) {
	for _, shuffleQ := range []bool{false, true} {
		for _, shuffleO := range []bool{false, true} {
			out := PrepareQuestionsForAttempt(sampleQuestions(), shuffleQ, shuffleO, rand.New(rand.NewSource(7)))
			if len(out) != 3 {
				t.Fatalf("expected 3 questions, got %d", len(out))
			}
			for _, q := range out {
				if q.CorrectAnswers == nil || len(q.CorrectAnswers) != 0 {
					t.Fatalf("shuffleQ=%v shuffleO=%v: correct answers leaked on %s: %v", shuffleQ, shuffleO, q.ID, q.CorrectAnswers)
				}
				if q.Explanation != nil {
					t.Fatalf("shuffleQ=%v shuffleO=%v: explanation leaked on %s", shuffleQ, shuffleO, q.ID)
				}
			}
		}
	}
}

func TestPrepareOrdersByQuestionOrder(t *testing.T) {
	out := PrepareQuestionsForAttempt(sampleQuestions(), false, false, rand.New(rand.NewSource(1)))
	for i, want := range []string{"q1", "q2", "q3"} {
		if out[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, out[i].ID)
		}
	}
}

func TestShuffleOptionsKeepsKeyTextPairs(t *testing.T) {
	out := PrepareQuestionsForAttempt(sampleQuestions(), true, true, rand.New(rand.NewSource(42)))
	original := map[string]map[string]string{}
	for _, q := range sampleQuestions() {
		original[q.ID] = map[string]string{}
		for _, o := range q.Options {
			original[q.ID][o.Key] = o.Text
		}
	}
	for _, q := range out {
		if len(q.Options) != len(original[q.ID]) {
			t.Fatalf("option count changed for %s", q.ID)
		}
		for _, o := range q.Options {
			if original[q.ID][o.Key] != o.Text {
				t.Fatalf("key %s of %s now maps to %q", o.Key, q.ID, o.Text)
			}
		}
	}
}

func TestPrepareIsDeterministicForSeed(t *testing.T) {
	a := PrepareQuestionsForAttempt(sampleQuestions(), true, true, rand.New(rand.NewSource(99)))
	b := PrepareQuestionsForAttempt(sampleQuestions(), true, true, rand.New(rand.NewSource(99)))
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("question order differs at %d", i)
		}
		for j := range a[i].Options {
			if a[i].Options[j].Key != b[i].Options[j].Key {
				t.Fatalf("option order differs at %d/%d", i, j)
			}
		}
	}
}

func TestPrepareDoesNotMutateInput(t *testing.T) {
	in := sampleQuestions()
	_ = PrepareQuestionsForAttempt(in, true, true, rand.New(rand.NewSource(3)))
	if len(in[0].CorrectAnswers) != 3 || in[0].Explanation == nil {
		t.Fatalf("input question was sanitized in place")
	}
	if in[0].Options[0].Key != "A" || in[0].Options[3].Key != "D" {
		t.Fatalf("input options were reordered: %+v", in[0].Options)
	}
}

func TestReviewRevealsOnlyWhenAllowed(t *testing.T) {
	def := domain.QuizDefinition{Quiz: domain.Quiz{ShowCorrectAnswers: true}, Questions: sampleQuestions()}
	if got := ReviewQuestions(def, domain.StatusInProgress); len(got[0].CorrectAnswers) != 0 {
		t.Fatalf("in-progress review leaked answers")
	}
	if got := ReviewQuestions(def, domain.StatusCompleted); len(got[0].CorrectAnswers) != 1 || got[0].ID != "q1" {
		t.Fatalf("expected revealed answers for completed attempt, got %+v", got[0])
	}
	def.Quiz.ShowCorrectAnswers = false
	if got := ReviewQuestions(def, domain.StatusCompleted); len(got[0].CorrectAnswers) != 0 {
		t.Fatalf("review leaked answers when quiz hides them")
	}
}
