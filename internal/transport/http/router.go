package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/metrics"
)

// API serves the reporting and authoring routes.
type API struct {
	attempts  *app.AttemptService
	reports   *app.ReportService
	authoring *app.AuthoringService
	log       *zap.Logger
}

// NewRouter mounts the REST routes, the websocket endpoint, health and metrics.
func NewRouter(attempts *app.AttemptService, reports *app.ReportService, authoring *app.AuthoringService, feed *app.LeaderboardFeed, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	api := &API{attempts: attempts, reports: reports, authoring: authoring, log: log}
	ws := NewWSHandler(attempts, feed, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", ws.ServeWS)

	r.Route("/quizzes/{quizID}", func(r chi.Router) {
		r.Put("/", api.saveQuiz)
		r.Get("/statistics", api.quizStatistics)
		r.Get("/questions/statistics", api.questionStatistics)
		r.Get("/leaderboard", api.leaderboard)
		r.Get("/restrictions", api.restrictions)
		r.Get("/eligibility", api.eligibility)
	})
	r.Get("/attempts/{attemptID}/result", api.attemptResult)
	r.Get("/students/{studentID}/summary", api.studentSummary)
	r.Get("/classes/{classID}/report", api.classReport)
	return r
}

func (a *API) quizStatistics(w http.ResponseWriter, r *http.Request) {
	total, err := intParam(r, "totalStudents", 0)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	out, err := a.reports.QuizStatistics(r.Context(), chi.URLParam(r, "quizID"), total)
	a.respond(w, r, out, err)
}

func (a *API) questionStatistics(w http.ResponseWriter, r *http.Request) {
	out, err := a.reports.QuestionStatistics(r.Context(), chi.URLParam(r, "quizID"))
	a.respond(w, r, out, err)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	out, err := a.reports.Leaderboard(r.Context(), chi.URLParam(r, "quizID"), limit)
	a.respond(w, r, out, err)
}

func (a *API) restrictions(w http.ResponseWriter, r *http.Request) {
	out, err := a.reports.EditRestrictions(r.Context(), chi.URLParam(r, "quizID"))
	a.respond(w, r, out, err)
}

func (a *API) eligibility(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		a.badRequest(w, fmt.Errorf("studentId is required"))
		return
	}
	decision, remaining, err := a.attempts.Eligibility(r.Context(), chi.URLParam(r, "quizID"), studentID)
	a.respond(w, r, map[string]any{
		"canAttempt":        decision.CanAttempt,
		"reason":            decision.Reason,
		"remainingAttempts": remaining,
	}, err)
}

func (a *API) attemptResult(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		a.badRequest(w, fmt.Errorf("studentId is required"))
		return
	}
	out, err := a.attempts.Result(r.Context(), chi.URLParam(r, "attemptID"), studentID)
	a.respond(w, r, out, err)
}

func (a *API) studentSummary(w http.ResponseWriter, r *http.Request) {
	quizIDs := listParam(r, "quizIds")
	out, err := a.reports.StudentSummary(r.Context(), chi.URLParam(r, "studentID"), quizIDs)
	a.respond(w, r, out, err)
}

func (a *API) classReport(w http.ResponseWriter, r *http.Request) {
	total, err := intParam(r, "totalStudents", 0)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	out, err := a.reports.ClassReport(r.Context(), chi.URLParam(r, "classID"), listParam(r, "quizIds"), total)
	a.respond(w, r, out, err)
}

func (a *API) saveQuiz(w http.ResponseWriter, r *http.Request) {
	var def domain.QuizDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		a.badRequest(w, fmt.Errorf("decode quiz: %w", err))
		return
	}
	quizID := chi.URLParam(r, "quizID")
	if def.Quiz.ID == "" {
		def.Quiz.ID = quizID
	}
	if def.Quiz.ID != quizID {
		a.badRequest(w, fmt.Errorf("quiz id %q does not match path %q", def.Quiz.ID, quizID))
		return
	}
	out, err := a.authoring.SaveQuiz(r.Context(), def)
	a.respond(w, r, out, err)
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		status, payload := classify(err)
		if status == http.StatusInternalServerError {
			a.log.Error("request failed",
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
		}
		writeJSON(w, status, payload)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorPayload{Code: "bad_request", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func listParam(r *http.Request, name string) []string {
	out := []string{}
	for _, part := range strings.Split(r.URL.Query().Get(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
