package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bioattend_notifications_total",
		Help: "Notification send attempts by transport and result.",
	}, []string{"transport", "result"})

	failoversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bioattend_transport_failovers_total",
		Help: "Switches from the primary to the fallback mail transport.",
	})
)
