package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"quiz-engine/internal/domain"
)

func TestReportingRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.attempts.StartAttempt(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.attempts.SaveResponse(ctx, view.Attempt.ID, "s1", "q2", []string{"A", "C"}, 5); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := f.attempts.Submit(ctx, view.Attempt.ID, "s1"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	server := f.server()
	defer server.Close()

	var stats map[string]any
	getJSON(t, server.URL+"/quizzes/quiz-1/statistics?totalStudents=4", http.StatusOK, &stats)
	if stats["completedCount"] != float64(1) || stats["attemptRate"] != float64(25) {
		t.Fatalf("unexpected quiz statistics %v", stats)
	}

	var board []map[string]any
	getJSON(t, server.URL+"/quizzes/quiz-1/leaderboard?limit=5", http.StatusOK, &board)
	if len(board) != 1 || board[0]["studentId"] != "s1" {
		t.Fatalf("unexpected leaderboard %v", board)
	}

	var questions []map[string]any
	getJSON(t, server.URL+"/quizzes/quiz-1/questions/statistics", http.StatusOK, &questions)
	if len(questions) != 2 || questions[1]["correctCount"] != float64(1) {
		t.Fatalf("unexpected question statistics %v", questions)
	}

	var summary map[string]any
	getJSON(t, server.URL+"/students/s1/summary?quizIds=quiz-1,quiz-2", http.StatusOK, &summary)
	if summary["attemptedQuizzes"] != float64(1) || summary["pendingQuizzes"] != float64(1) {
		t.Fatalf("unexpected summary %v", summary)
	}

	var report map[string]any
	getJSON(t, server.URL+"/classes/class-1/report?totalStudents=2", http.StatusOK, &report)
	if report["totalQuizzes"] != float64(1) || report["averageAttemptRate"] != float64(50) {
		t.Fatalf("unexpected class report %v", report)
	}

	var restrictions map[string]any
	getJSON(t, server.URL+"/quizzes/quiz-1/restrictions", http.StatusOK, &restrictions)
	if restrictions["hasAttempts"] != true {
		t.Fatalf("expected restrictions once attempted, got %v", restrictions)
	}

	var result map[string]any
	getJSON(t, server.URL+"/attempts/"+view.Attempt.ID+"/result?studentId=s1", http.StatusOK, &result)
	if result["summary"] == "" {
		t.Fatalf("expected score summary, got %v", result)
	}
}

func TestRouteErrorMapping(t *testing.T) {
	f := newFixture(t)
	server := f.server()
	defer server.Close()

	var failure map[string]any
	getJSON(t, server.URL+"/quizzes/missing/statistics", http.StatusNotFound, &failure)
	if failure["code"] != "not_found" {
		t.Fatalf("expected not_found, got %v", failure)
	}

	getJSON(t, server.URL+"/quizzes/quiz-1/statistics?totalStudents=abc", http.StatusBadRequest, &failure)
	getJSON(t, server.URL+"/attempts/nope/result?studentId=s1", http.StatusNotFound, &failure)
	getJSON(t, server.URL+"/quizzes/quiz-1/eligibility", http.StatusBadRequest, &failure)

	var eligibility map[string]any
	getJSON(t, server.URL+"/quizzes/quiz-1/eligibility?studentId=s1", http.StatusOK, &eligibility)
	if eligibility["canAttempt"] != true || eligibility["remainingAttempts"] != float64(2) {
		t.Fatalf("unexpected eligibility %v", eligibility)
	}

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", resp.StatusCode)
	}
}

func TestSaveQuizRoute(t *testing.T) {
	f := newFixture(t)
	server := f.server()
	defer server.Close()

	def := sampleDefinition()
	def.Quiz.ID = ""
	def.Quiz.Title = "Arithmetic II"
	status, body := putJSON(t, server.URL+"/quizzes/quiz-1", def)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	quiz, err := f.store.GetQuiz(context.Background(), "quiz-1")
	if err != nil || quiz.Title != "Arithmetic II" {
		t.Fatalf("expected updated title, got %+v (%v)", quiz, err)
	}

	invalid := sampleDefinition()
	invalid.Questions[0].CorrectAnswers = []string{"Z"}
	status, body = putJSON(t, server.URL+"/quizzes/quiz-1", invalid)
	if status != http.StatusBadRequest || body["code"] != "invalid" {
		t.Fatalf("expected validation failure, got %d: %v", status, body)
	}

	mismatched := sampleDefinition()
	mismatched.Quiz.ID = "quiz-2"
	status, _ = putJSON(t, server.URL+"/quizzes/quiz-1", mismatched)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched id, got %d", status)
	}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("get %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func putJSON(t *testing.T, url string, body domain.QuizDefinition) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}
