package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "updates_total",
		Help:      "Inbound updates by kind.",
	}, []string{"kind"})

	metricCachePuts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "cache_puts_total",
		Help:      "Main group messages recorded in the correlation cache.",
	})

	metricLookupMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "lookup_misses_total",
		Help:      "Forwarded messages that could not be correlated.",
	})

	metricPrompts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "prompts_total",
		Help:      "Confirmation prompts sent to moderators.",
	})

	metricNotices = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "notices_total",
		Help:      "Public off-topic notices posted to the main group.",
	})

	metricDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "authorization_denied_total",
		Help:      "Moderation signals ignored because the sender is not an admin.",
	})

	metricDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "token_decode_failures_total",
		Help:      "Callback activations with a malformed payload.",
	})

	metricTransportErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "onobot",
		Name:      "transport_errors_total",
		Help:      "Failed outbound platform calls.",
	})
)
