// README: Prometheus counters for the dispatch core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unihub_orders_created_total",
		Help: "Orders successfully created, by service type.",
	}, []string{"service_type"})

	OrdersClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unihub_orders_claimed_total",
		Help: "Orders successfully claimed by a driver.",
	})

	ClaimConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unihub_claim_conflicts_total",
		Help: "Accept attempts that lost the claim race.",
	})

	DeclinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unihub_declines_total",
		Help: "Orders declined by drivers.",
	})

	FeedPollCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unihub_feed_poll_cycles_total",
		Help: "Poll cycles run by the feed bridge.",
	})

	FeedRealtimeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unihub_feed_realtime_events_total",
		Help: "Realtime change events received, by source table.",
	}, []string{"table"})

	NotifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unihub_notify_failures_total",
		Help: "User notification writes that failed.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unihub_operation_errors_total",
		Help: "Errors encountered during specific operations.",
	}, []string{"operation"})
)
