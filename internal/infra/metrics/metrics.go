package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline holds the counters the expiration pipeline reports. A fresh set
// is built per process (and per test) and registered on an explicit
// registry so tests never collide on the global one.
type Pipeline struct {
	CycleRuns            *prometheus.CounterVec
	NotificationsCreated prometheus.Counter
	PushOutcomes         *prometheus.CounterVec
	SubscriptionsPruned  prometheus.Counter
}

func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		CycleRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymsetu_cycle_runs_total",
				Help: "Expiration check cycles, by triggering job and result",
			},
			[]string{"job", "result"},
		),
		NotificationsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gymsetu_notifications_created_total",
				Help: "Expiration notifications written to the ledger",
			},
		),
		PushOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymsetu_push_deliveries_total",
				Help: "Push delivery attempts, by outcome",
			},
			[]string{"outcome"},
		),
		SubscriptionsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gymsetu_subscriptions_pruned_total",
				Help: "Push subscriptions deleted after permanent delivery failure",
			},
		),
	}
	reg.MustRegister(p.CycleRuns, p.NotificationsCreated, p.PushOutcomes, p.SubscriptionsPruned)
	return p
}
