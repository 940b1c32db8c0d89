package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	engineRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "engine_requests_total",
		Help:      "Total number of outbound interview-engine calls",
	}, []string{"endpoint", "outcome"})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "sessions_created_total",
		Help:      "Interview sessions successfully seeded with questions",
	})

	sessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "sessions_completed_total",
		Help:      "Interview sessions that reached COMPLETED",
	})

	sessionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "sessions_failed_total",
		Help:      "Interview sessions that reached FAILED during seeding",
	})

	questionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prepmate",
		Name:      "questions_generated_total",
		Help:      "Interview questions persisted across all sessions",
	})
)

// ObserveEngineRequest records one outbound engine call and its outcome
// ("ok", "network_error", "bad_status" or "bad_json").
func ObserveEngineRequest(endpoint, outcome string) {
	engineRequests.WithLabelValues(endpoint, outcome).Inc()
}

func SessionCreated() { sessionsCreated.Inc() }

func SessionCompleted() { sessionsCompleted.Inc() }

func SessionFailed() { sessionsFailed.Inc() }

func QuestionsGenerated(n int) { questionsGenerated.Add(float64(n)) }

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
