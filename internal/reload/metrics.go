package reload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reload lifecycle counters, scraped via GET /metrics. The labels keep
// explicit admin reloads distinguishable from watcher-triggered ones.
var (
	reloadAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscore_reload_attempts_total",
		Help: "Rule reload attempts, by trigger.",
	}, []string{"trigger"})

	reloadSuccesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscore_reload_success_total",
		Help: "Successful rule set publishes, by trigger.",
	}, []string{"trigger"})

	reloadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscore_reload_failures_total",
		Help: "Rejected or timed-out reload attempts, by trigger.",
	}, []string{"trigger"})

	rulesLoadedAt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadscore_rules_loaded_at_seconds",
		Help: "Unix time the active rule set was published.",
	})

	activeRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadscore_active_rules",
		Help: "Number of rules in the active rule set.",
	})
)
