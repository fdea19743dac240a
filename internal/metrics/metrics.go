package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Total number of quiz attempts created",
		},
	)

	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_finalized_total",
			Help: "Total number of quiz attempts finalized, by terminal status",
		},
		[]string{"status"},
	)

	AttemptConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempt_conflicts_total",
			Help: "Attempt lifecycle violations rejected, by operation",
		},
		[]string{"operation"},
	)

	AttemptPercentage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_attempt_percentage",
			Help:    "Distribution of graded attempt percentages",
			Buckets: []float64{0, 20, 40, 60, 70, 80, 90, 100},
		},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(AttemptsStarted)
		prometheus.MustRegister(AttemptsFinalized)
		prometheus.MustRegister(AttemptConflicts)
		prometheus.MustRegister(AttemptPercentage)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
