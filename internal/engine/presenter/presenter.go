// Package presenter builds the question payload an attempting student may see.
package presenter

import (
	"math/rand"
	"sort"

	"quiz-engine/internal/domain"
)

// PrepareQuestionsForAttempt orders (or shuffles) the questions and their options, then
// strips scoring secrets. Option keys never change; only display order is randomized,
// so submitted keys always resolve against the original answer key.
// The input slice is not modified.
func PrepareQuestionsForAttempt(questions []domain.QuizQuestion, shuffleQuestions, shuffleOptions bool, rnd *rand.Rand) []domain.QuizQuestion {
	out := cloneQuestions(questions)

	if shuffleQuestions {
		fisherYates(rnd, len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	}

	if shuffleOptions {
		for i := range out {
			opts := out[i].Options
			fisherYates(rnd, len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		}
	}

	return SanitizeQuestionsForStudent(out)
}

// SanitizeQuestionsForStudent clears correct answers and explanations on every question.
func SanitizeQuestionsForStudent(questions []domain.QuizQuestion) []domain.QuizQuestion {
	out := cloneQuestions(questions)
	for i := range out {
		out[i].CorrectAnswers = []string{}
		out[i].Explanation = nil
	}
	return out
}

// ReviewQuestions returns the post-attempt review payload. Correct answers and
// explanations are only revealed for terminal attempts on quizzes that allow it.
func ReviewQuestions(def domain.QuizDefinition, status domain.AttemptStatus) []domain.QuizQuestion {
	ordered := cloneQuestions(def.Questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	if def.Quiz.ShowCorrectAnswers && status.Terminal() {
		return ordered
	}
	return SanitizeQuestionsForStudent(ordered)
}

func fisherYates(rnd *rand.Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, rnd.Intn(i+1))
	}
}

func cloneQuestions(questions []domain.QuizQuestion) []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, len(questions))
	for i, q := range questions {
		q.Options = append([]domain.Option(nil), q.Options...)
		q.CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
		if q.Explanation != nil {
			e := *q.Explanation
			q.Explanation = &e
		}
		out[i] = q
	}
	return out
}
