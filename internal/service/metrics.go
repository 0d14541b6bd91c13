package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

var (
	reactionOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_reaction_ops_total",
		Help: "Ledger calls by subject kind, operation and outcome.",
	}, []string{"kind", "op", "outcome"})

	counterSyncDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_counter_sync_dropped_total",
		Help: "Cache refresh jobs dropped because the queue was full.",
	})

	counterSyncLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blog_counter_sync_latency_seconds",
		Help:    "Time from enqueue to cache write.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	fanoutDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_fanout_feed_items_total",
		Help: "Feed items written by the fanout worker.",
	})
)

func kindLabel(kind model.SubjectKind) string {
	if !kind.Valid() {
		return "invalid"
	}
	return string(kind)
}

// outcome 把账本结果折叠为有限的标签值
func outcome(changed bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case changed:
		return "changed"
	default:
		return "noop"
	}
}
