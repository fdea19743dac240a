// Package stats reduces scored attempts and responses into reports. Every function is
// pure and degrades to zero values on empty input.
package stats

import (
	"sort"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/scoring"
)

// DefaultLeaderboardSize is used when a non-positive limit is requested.
const DefaultLeaderboardSize = 10

// QuizStats summarises every attempt at one quiz.
type QuizStats struct {
	QuizID             string  `json:"quizId"`
	TotalStudents      int     `json:"totalStudents"`
	AttemptedCount     int     `json:"attemptedCount"`
	NotAttemptedCount  int     `json:"notAttemptedCount"`
	TotalAttempts      int     `json:"totalAttempts"`
	CompletedCount     int     `json:"completedCount"`
	InProgressCount    int     `json:"inProgressCount"`
	TimeoutCount       int     `json:"timeoutCount"`
	AbandonedCount     int     `json:"abandonedCount"`
	PassedCount        int     `json:"passedCount"`
	FailedCount        int     `json:"failedCount"`
	AverageScore       float64 `json:"averageScore"`
	HighestScore       float64 `json:"highestScore"`
	LowestScore        float64 `json:"lowestScore"`
	AveragePercentage  float64 `json:"averagePercentage"`
	AverageTimeSeconds float64 `json:"averageTimeSeconds"`
	AttemptRate        float64 `json:"attemptRate"`
	PassRate           float64 `json:"passRate"`
}

// QuizStatistics aggregates attempts for a single quiz.
func QuizStatistics(quizID string, totalStudents int, attempts []domain.QuizAttempt) QuizStats {
	s := QuizStats{QuizID: quizID, TotalStudents: totalStudents, TotalAttempts: len(attempts)}

	students := make(map[string]struct{})
	var scoreSum, pctSum float64
	var scored int
	var timeSum, timed int
	for _, a := range attempts {
		students[a.StudentID] = struct{}{}
		switch a.Status {
		case domain.StatusCompleted:
			s.CompletedCount++
		case domain.StatusInProgress:
			s.InProgressCount++
		case domain.StatusTimeout:
			s.TimeoutCount++
		case domain.StatusAbandoned:
			s.AbandonedCount++
		}
		if a.TimeTakenSeconds != nil {
			timeSum += *a.TimeTakenSeconds
			timed++
		}
		if a.Status != domain.StatusCompleted || a.Grade == nil {
			continue
		}

		if a.Grade.Passed != nil {
			if *a.Grade.Passed {
				s.PassedCount++
			} else {
				s.FailedCount++
			}
		}
		score := a.Grade.Score
		if scored == 0 || score > s.HighestScore {
			s.HighestScore = score
		}
		if scored == 0 || score < s.LowestScore {
			s.LowestScore = score
		}
		scoreSum += score
		pctSum += a.Grade.Percentage
		scored++
	}

	s.AttemptedCount = len(students)
	s.NotAttemptedCount = max(totalStudents-s.AttemptedCount, 0)
	s.AverageScore = mean(scoreSum, scored)
	s.AveragePercentage = mean(pctSum, scored)
	s.AverageTimeSeconds = mean(float64(timeSum), timed)
	s.AttemptRate = scoring.Percent(float64(s.AttemptedCount), float64(totalStudents))
	s.PassRate = scoring.Percent(float64(s.PassedCount), float64(s.CompletedCount))
	return s
}

// OptionCount is how often one option key was selected.
type OptionCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// QuestionStats summarises the responses to one question.
type QuestionStats struct {
	QuestionID         string        `json:"questionId"`
	ResponseCount      int           `json:"responseCount"`
	CorrectCount       int           `json:"correctCount"`
	IncorrectCount     int           `json:"incorrectCount"`
	SkippedCount       int           `json:"skippedCount"`
	CorrectRate        float64       `json:"correctRate"`
	AverageTimeSeconds float64       `json:"averageTimeSeconds"`
	OptionDistribution []OptionCount `json:"optionDistribution"`
	// MostSelectedOption is empty when nothing was selected.
	MostSelectedOption string `json:"mostSelectedOption"`
}

// QuestionStatistics aggregates responses for q. Options are counted in the question's
// option order, followed by any unknown keys in the order they were first seen.
func QuestionStatistics(q domain.QuizQuestion, responses []domain.QuizResponse) QuestionStats {
	s := QuestionStats{QuestionID: q.ID}

	index := make(map[string]int, len(q.Options))
	dist := make([]OptionCount, 0, len(q.Options))
	for _, opt := range q.Options {
		index[opt.Key] = len(dist)
		dist = append(dist, OptionCount{Key: opt.Key})
	}

	var timeSum int
	for _, r := range responses {
		if r.QuestionID != q.ID {
			continue
		}
		s.ResponseCount++
		timeSum += r.TimeSpentSeconds
		if r.IsCorrect {
			s.CorrectCount++
		} else {
			s.IncorrectCount++
		}
		if len(r.SelectedAnswers) == 0 {
			s.SkippedCount++
		}
		for _, key := range r.SelectedAnswers {
			i, ok := index[key]
			if !ok {
				i = len(dist)
				index[key] = i
				dist = append(dist, OptionCount{Key: key})
			}
			dist[i].Count++
		}
	}

	best := 0
	for _, oc := range dist {
		if oc.Count > best {
			best = oc.Count
			s.MostSelectedOption = oc.Key
		}
	}
	s.OptionDistribution = dist
	s.CorrectRate = scoring.Percent(float64(s.CorrectCount), float64(s.ResponseCount))
	s.AverageTimeSeconds = mean(float64(timeSum), s.ResponseCount)
	return s
}

// QuestionStatisticsForQuiz runs QuestionStatistics for every question, in question order.
func QuestionStatisticsForQuiz(questions []domain.QuizQuestion, responses []domain.QuizResponse) []QuestionStats {
	ordered := append([]domain.QuizQuestion(nil), questions...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	byQuestion := make(map[string][]domain.QuizResponse, len(ordered))
	for _, r := range responses {
		byQuestion[r.QuestionID] = append(byQuestion[r.QuestionID], r)
	}
	out := make([]QuestionStats, 0, len(ordered))
	for _, q := range ordered {
		out = append(out, QuestionStatistics(q, byQuestion[q.ID]))
	}
	return out
}

// StudentSummary is one student's record across a set of quizzes.
type StudentSummary struct {
	StudentID         string  `json:"studentId"`
	TotalQuizzes      int     `json:"totalQuizzes"`
	AttemptedQuizzes  int     `json:"attemptedQuizzes"`
	PendingQuizzes    int     `json:"pendingQuizzes"`
	TotalAttempts     int     `json:"totalAttempts"`
	CompletedAttempts int     `json:"completedAttempts"`
	PassedCount       int     `json:"passedCount"`
	FailedCount       int     `json:"failedCount"`
	AverageScore      float64 `json:"averageScore"`
	AveragePercentage float64 `json:"averagePercentage"`
	TotalTimeSeconds  int     `json:"totalTimeSeconds"`
	// BestQuizID is empty until a completed, graded attempt exists.
	BestQuizID     string  `json:"bestQuizId"`
	BestPercentage float64 `json:"bestPercentage"`
}

// StudentQuizSummary summarises studentID's attempts over quizIDs. Attempts by other
// students or at quizzes outside quizIDs are ignored.
func StudentQuizSummary(studentID string, quizIDs []string, attempts []domain.QuizAttempt) StudentSummary {
	s := StudentSummary{StudentID: studentID, TotalQuizzes: len(quizIDs)}

	inSet := make(map[string]struct{}, len(quizIDs))
	for _, id := range quizIDs {
		inSet[id] = struct{}{}
	}

	attempted := make(map[string]struct{})
	var scoreSum, pctSum float64
	bestFound := false
	for _, a := range attempts {
		if a.StudentID != studentID {
			continue
		}
		if _, ok := inSet[a.QuizID]; !ok {
			continue
		}
		attempted[a.QuizID] = struct{}{}
		s.TotalAttempts++
		if a.TimeTakenSeconds != nil {
			s.TotalTimeSeconds += *a.TimeTakenSeconds
		}
		if a.Status != domain.StatusCompleted || a.Grade == nil {
			continue
		}
		s.CompletedAttempts++
		if a.Grade.Passed != nil {
			if *a.Grade.Passed {
				s.PassedCount++
			} else {
				s.FailedCount++
			}
		}
		scoreSum += a.Grade.Score
		pctSum += a.Grade.Percentage
		if !bestFound || a.Grade.Percentage > s.BestPercentage {
			bestFound = true
			s.BestQuizID = a.QuizID
			s.BestPercentage = a.Grade.Percentage
		}
	}

	s.AttemptedQuizzes = len(attempted)
	s.PendingQuizzes = max(s.TotalQuizzes-s.AttemptedQuizzes, 0)
	s.AverageScore = mean(scoreSum, s.CompletedAttempts)
	s.AveragePercentage = mean(pctSum, s.CompletedAttempts)
	return s
}

// ClassQuizRow is the per-quiz line of a class report.
type ClassQuizRow struct {
	QuizID         string  `json:"quizId"`
	AttemptedCount int     `json:"attemptedCount"`
	AttemptRate    float64 `json:"attemptRate"`
	CompletedCount int     `json:"completedCount"`
	// PassRate is nil when the quiz has no completed attempts.
	PassRate *float64 `json:"passRate"`
}

// ClassReport summarises a class over its assigned quizzes.
type ClassReport struct {
	ClassID       string         `json:"classId"`
	TotalStudents int            `json:"totalStudents"`
	TotalQuizzes  int            `json:"totalQuizzes"`
	Quizzes       []ClassQuizRow `json:"quizzes"`
	// Averages are taken over per-quiz rates, not pooled over students.
	AverageAttemptRate float64 `json:"averageAttemptRate"`
	AveragePassRate    float64 `json:"averagePassRate"`
	StudentsPassedAll  int     `json:"studentsPassedAll"`
}

// ClassQuizReport builds the class report from every attempt at the class's quizzes.
func ClassQuizReport(classID string, quizIDs []string, totalStudents int, attempts []domain.QuizAttempt) ClassReport {
	r := ClassReport{ClassID: classID, TotalStudents: totalStudents, TotalQuizzes: len(quizIDs), Quizzes: []ClassQuizRow{}}

	byQuiz := make(map[string][]domain.QuizAttempt, len(quizIDs))
	for _, a := range attempts {
		byQuiz[a.QuizID] = append(byQuiz[a.QuizID], a)
	}

	// passedQuizzes[student] holds the quizzes that student passed at least once.
	passedQuizzes := make(map[string]map[string]struct{})
	var attemptRateSum, passRateSum float64
	var passRated int
	for _, quizID := range quizIDs {
		qs := QuizStatistics(quizID, totalStudents, byQuiz[quizID])
		row := ClassQuizRow{
			QuizID:         quizID,
			AttemptedCount: qs.AttemptedCount,
			AttemptRate:    qs.AttemptRate,
			CompletedCount: qs.CompletedCount,
		}
		if qs.CompletedCount > 0 {
			pr := qs.PassRate
			row.PassRate = &pr
			passRateSum += pr
			passRated++
		}
		attemptRateSum += qs.AttemptRate
		r.Quizzes = append(r.Quizzes, row)

		for _, a := range byQuiz[quizID] {
			if a.Status != domain.StatusCompleted || a.Grade == nil || a.Grade.Passed == nil || !*a.Grade.Passed {
				continue
			}
			if passedQuizzes[a.StudentID] == nil {
				passedQuizzes[a.StudentID] = make(map[string]struct{})
			}
			passedQuizzes[a.StudentID][quizID] = struct{}{}
		}
	}

	r.AverageAttemptRate = mean(attemptRateSum, len(quizIDs))
	r.AveragePassRate = mean(passRateSum, passRated)
	if len(quizIDs) > 0 {
		distinct := make(map[string]struct{}, len(quizIDs))
		for _, id := range quizIDs {
			distinct[id] = struct{}{}
		}
		for _, passed := range passedQuizzes {
			if len(passed) == len(distinct) {
				r.StudentsPassedAll++
			}
		}
	}
	return r
}

// LeaderboardEntry is one ranked best attempt.
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	StudentID        string  `json:"studentId"`
	QuizID           string  `json:"quizId"`
	AttemptID        string  `json:"attemptId"`
	Score            float64 `json:"score"`
	Percentage       float64 `json:"percentage"`
	TimeTakenSeconds *int    `json:"timeTakenSeconds"`
}

// Leaderboard keeps each student's best completed attempt per quiz, orders by score
// descending then time ascending, and returns the top limit entries with dense ranks.
func Leaderboard(attempts []domain.QuizAttempt, limit int) []LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}

	type key struct{ quiz, student string }
	best := make(map[key]domain.QuizAttempt)
	order := make([]key, 0)
	for _, a := range attempts {
		if a.Status != domain.StatusCompleted || a.Grade == nil {
			continue
		}
		k := key{a.QuizID, a.StudentID}
		cur, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = a
			continue
		}
		if outranks(a, cur) {
			best[k] = a
		}
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, k := range order {
		a := best[k]
		entries = append(entries, LeaderboardEntry{
			StudentID:        a.StudentID,
			QuizID:           a.QuizID,
			AttemptID:        a.ID,
			Score:            a.Grade.Score,
			Percentage:       a.Grade.Percentage,
			TimeTakenSeconds: a.TimeTakenSeconds,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		ti, tj := timeOrMax(entries[i].TimeTakenSeconds), timeOrMax(entries[j].TimeTakenSeconds)
		if ti != tj {
			return ti < tj
		}
		return entries[i].StudentID < entries[j].StudentID
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score ||
			timeOrMax(entries[i].TimeTakenSeconds) != timeOrMax(entries[i-1].TimeTakenSeconds) {
			rank++
		}
		entries[i].Rank = rank
	}
	return entries
}

func outranks(a, b domain.QuizAttempt) bool {
	if a.Grade.Score != b.Grade.Score {
		return a.Grade.Score > b.Grade.Score
	}
	return timeOrMax(a.TimeTakenSeconds) < timeOrMax(b.TimeTakenSeconds)
}

func timeOrMax(t *int) int {
	if t == nil {
		return int(^uint(0) >> 1)
	}
	return *t
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return scoring.Round2(sum / float64(n))
}
