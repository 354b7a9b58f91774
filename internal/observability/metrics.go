package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the launch core.
type Metrics struct {
	// --- Operation Processing ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	CoreSequence prometheus.Gauge

	// --- Trading ---
	TradesExecuted *prometheus.CounterVec
	TradeVolume    *prometheus.CounterVec
	Graduations    prometheus.Counter
	TokensLaunched prometheus.Counter
	FeesRouted     *prometheus.CounterVec

	// --- Competitions ---
	PrizePoolBalance  *prometheus.GaugeVec
	PrizesClaimed     prometheus.Counter
	CompetitionsLive  prometheus.Gauge

	// --- Channel & Backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	ProjectionDrops     *prometheus.CounterVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Idempotency ---
	IdempotencyDuplicates *prometheus.CounterVec
	DedupLRUSize          prometheus.Gauge

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistTradesWritten prometheus.Counter
	PersistBatchSize     prometheus.Histogram
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistRetry         prometheus.Counter
	PersistLastSequence  prometheus.Gauge

	// --- Projection ---
	ProjectionUpdateDur *prometheus.HistogramVec
	ProjectionSequence  prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_core_ops_applied_total",
			Help: "Operations successfully applied by the core",
		}, []string{"op_type"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_core_ops_rejected_total",
			Help: "Operations rejected (duplicate, validation, authorization, state, insufficiency)",
		}, []string{"op_type", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launch_core_op_apply_duration_seconds",
			Help:    "Time to apply a single operation in the core",
			Buckets: latencyBuckets,
		}, []string{"op_type"}),

		CoreSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "launch_core_sequence",
			Help: "Current global sequence number",
		}),

		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_trades_executed_total",
			Help: "Curve trades executed",
		}, []string{"direction"}),

		TradeVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_trade_volume_base_units",
			Help: "Base-currency volume traded against the curve",
		}, []string{"direction"}),

		Graduations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_graduations_total",
			Help: "Pools handed off to the external venue",
		}),

		TokensLaunched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_tokens_launched_total",
			Help: "Token pools created",
		}),

		FeesRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_fees_routed_total",
			Help: "Fee units routed, by destination (treasury/competition)",
		}, []string{"destination"}),

		PrizePoolBalance: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "launch_prize_pool_balance",
			Help: "Current prize pool balance per competition",
		}, []string{"competition_id"}),

		PrizesClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_prizes_claimed_total",
			Help: "Winner prize claims paid out",
		}),

		CompetitionsLive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "launch_competitions_live",
			Help: "Competitions not yet finalized or cancelled",
		}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "launch_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "launch_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "launch_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_projection_drops_total",
			Help: "Events dropped due to full projection channel",
		}, []string{"projection"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_publish_drops_total",
			Help: "Events dropped due to full publish channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_persist_backpressure_total",
			Help: "Times the core blocked on the persist channel",
		}),

		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_idempotency_duplicates_total",
			Help: "Duplicates caught (lru/postgres)",
		}, []string{"op_type", "tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "launch_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_persist_events_written_total",
			Help: "Event envelopes written to Postgres",
		}),

		PersistTradesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_persist_trades_written_total",
			Help: "Trade rows written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "launch_persist_batch_size",
			Help:    "Events per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "launch_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launch_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "launch_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		ProjectionUpdateDur: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launch_projection_update_duration_seconds",
			Help:    "Projection table update duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"projection"}),

		ProjectionSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "launch_projection_sequence",
			Help: "Last sequence applied to projections",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launch_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launch_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
