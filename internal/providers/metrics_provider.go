package providers

import (
	"rad/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncSpamDecision(kind string)
	IncRewardTriggered()
	IncRewardRerolled()
	IncMilestoneActivated()
	IncCacheHits(ns string)
	IncCacheMisses(ns string)
	ObserveFlushDuration(duration time.Duration)
	AddFlushedOps(collection string, count int)
	IncFlushErrors(collection string)
	RegisterQueueDepth(fn func() float64)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	spamDecisions       *prometheus.CounterVec
	rewardsTriggered    prometheus.Counter
	rewardsRerolled     prometheus.Counter
	milestoneActivated  prometheus.Counter
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	flushDuration       prometheus.Histogram
	flushedOps          *prometheus.CounterVec
	flushErrors         *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncSpamDecision(kind string) {
	m.spamDecisions.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) IncRewardTriggered() {
	m.rewardsTriggered.Inc()
}

func (m *MetricsProvider) IncRewardRerolled() {
	m.rewardsRerolled.Inc()
}

func (m *MetricsProvider) IncMilestoneActivated() {
	m.milestoneActivated.Inc()
}

func (m *MetricsProvider) IncCacheHits(ns string) {
	m.cacheHits.WithLabelValues(ns).Inc()
}

func (m *MetricsProvider) IncCacheMisses(ns string) {
	m.cacheMisses.WithLabelValues(ns).Inc()
}

func (m *MetricsProvider) ObserveFlushDuration(duration time.Duration) {
	m.flushDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) AddFlushedOps(collection string, count int) {
	m.flushedOps.WithLabelValues(collection).Add(float64(count))
}

func (m *MetricsProvider) IncFlushErrors(collection string) {
	m.flushErrors.WithLabelValues(collection).Inc()
}

func (m *MetricsProvider) RegisterQueueDepth(fn func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rad_queue_depth",
		Help: "Current number of pending write-behind increments",
	}, fn)
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rad_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rad_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		spamDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rad_spam_decisions_total",
			Help: "Spam classifications by kind",
		}, []string{"kind"}),

		rewardsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rad_rewards_triggered_total",
			Help: "Reward-interval triggers",
		}),

		rewardsRerolled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rad_rewards_rerolled_total",
			Help: "Triggers re-rolled because the winner was ineligible",
		}),

		milestoneActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rad_milestone_activations_total",
			Help: "Milestone bonus windows activated",
		}),

		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rad_cache_hits_total",
			Help: "Cache hits per namespace",
		}, []string{"namespace"}),

		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rad_cache_misses_total",
			Help: "Cache misses per namespace",
		}, []string{"namespace"}),

		flushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rad_flush_duration_seconds",
			Help:    "Duration of write-behind flush cycles",
			Buckets: prometheus.DefBuckets,
		}),

		flushedOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rad_flushed_ops_total",
			Help: "Batched increment operations applied per collection",
		}, []string{"collection"}),

		flushErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rad_flush_errors_total",
			Help: "Failed flush batches per collection",
		}, []string{"collection"}),
	}
}

type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncSpamDecision(_ string)                         {}
func (n *noopMetrics) IncRewardTriggered()                              {}
func (n *noopMetrics) IncRewardRerolled()                               {}
func (n *noopMetrics) IncMilestoneActivated()                           {}
func (n *noopMetrics) IncCacheHits(_ string)                            {}
func (n *noopMetrics) IncCacheMisses(_ string)                          {}
func (n *noopMetrics) ObserveFlushDuration(_ time.Duration)             {}
func (n *noopMetrics) AddFlushedOps(_ string, _ int)                    {}
func (n *noopMetrics) IncFlushErrors(_ string)                          {}
func (n *noopMetrics) RegisterQueueDepth(_ func() float64)              {}
