package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricName represent metric name
type MetricName string

func (mn MetricName) String() string {
	return string(mn)
}

const (
	requestsTotalMetricName    MetricName = "storefront_requests_total"
	requestFailuresMetricName  MetricName = "storefront_request_failures_total"
	requestDurationMetricName  MetricName = "storefront_request_duration_seconds"
	cacheHitsMetricName        MetricName = "storefront_cache_hits_total"
	cacheMissesMetricName      MetricName = "storefront_cache_misses_total"
	sharedRequestsMetricName   MetricName = "storefront_shared_requests_total"
	gatewayBatchSizeMetricName MetricName = "storefront_gateway_batch_size"
)

// Set map to check metric name availability.
type Set map[MetricName]struct{}

// Has function check and return bool for metric availability.
func (ms Set) Has(mn MetricName) bool {
	_, exists := ms[mn]
	return exists
}

// Add function add metric name.
func (ms Set) Add(mn MetricName) {
	ms[mn] = struct{}{}
}

// BuildAllMetricsSet returns every metric the exporter knows.
func BuildAllMetricsSet() Set {
	allMetricsSet := Set{}
	allMetricsSet.Add(requestsTotalMetricName)
	allMetricsSet.Add(requestFailuresMetricName)
	allMetricsSet.Add(requestDurationMetricName)
	allMetricsSet.Add(cacheHitsMetricName)
	allMetricsSet.Add(cacheMissesMetricName)
	allMetricsSet.Add(sharedRequestsMetricName)
	allMetricsSet.Add(gatewayBatchSizeMetricName)
	return allMetricsSet
}

// BuildDeniedMetricsSet validates the deny list against the known metrics.
func BuildDeniedMetricsSet(metricsDenylist []string) (Set, error) {
	deniedMetricsSet := Set{}
	allMetricsSet := BuildAllMetricsSet()
	for _, metric := range metricsDenylist {
		if !allMetricsSet.Has(MetricName(metric)) {
			return nil, fmt.Errorf("metric %s doesn't exists", metric)
		}
		deniedMetricsSet.Add(MetricName(metric))
	}
	return deniedMetricsSet, nil
}

// Collectors records storefront client activity. It implements
// client.Observer.
type Collectors struct {
	requestsTotal   *prometheus.CounterVec
	requestFailures *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	sharedRequests  *prometheus.CounterVec
	batchSize       prometheus.Histogram
}

// NewCollectors creates the collectors and registers those not denied with reg.
func NewCollectors(reg prometheus.Registerer, deniedMetrics Set) *Collectors {
	c := &Collectors{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: requestsTotalMetricName.String(),
			Help: "Number of storefront responses per operation and HTTP status",
		}, []string{"operation", "code"}),
		requestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: requestFailuresMetricName.String(),
			Help: "Number of storefront requests that got no response",
		}, []string{"operation"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    requestDurationMetricName.String(),
			Help:    "Storefront round trip latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: cacheHitsMetricName.String(),
			Help: "Number of queries answered from the session cache",
		}, []string{"operation"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: cacheMissesMetricName.String(),
			Help: "Number of cacheable queries not found in the session cache",
		}, []string{"operation"}),
		sharedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: sharedRequestsMetricName.String(),
			Help: "Number of queries that shared an in-flight storefront request",
		}, []string{"operation"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    gatewayBatchSizeMetricName.String(),
			Help:    "Number of operations per gateway batch request",
			Buckets: prometheus.LinearBuckets(1, 5, 6),
		}),
	}

	register := func(name MetricName, collector prometheus.Collector) {
		if !deniedMetrics.Has(name) {
			reg.MustRegister(collector)
		}
	}
	register(requestsTotalMetricName, c.requestsTotal)
	register(requestFailuresMetricName, c.requestFailures)
	register(requestDurationMetricName, c.requestDuration)
	register(cacheHitsMetricName, c.cacheHits)
	register(cacheMissesMetricName, c.cacheMisses)
	register(sharedRequestsMetricName, c.sharedRequests)
	register(gatewayBatchSizeMetricName, c.batchSize)
	return c
}

// RequestDone implements client.Observer.
func (c *Collectors) RequestDone(operation string, statusCode int, took time.Duration) {
	c.requestsTotal.With(prometheus.Labels{"operation": operation, "code": strconv.Itoa(statusCode)}).Inc()
	c.requestDuration.With(prometheus.Labels{"operation": operation}).Observe(took.Seconds())
}

// RequestFailed implements client.Observer.
func (c *Collectors) RequestFailed(operation string, took time.Duration) {
	c.requestFailures.With(prometheus.Labels{"operation": operation}).Inc()
	c.requestDuration.With(prometheus.Labels{"operation": operation}).Observe(took.Seconds())
}

// CacheHit implements client.Observer.
func (c *Collectors) CacheHit(operation string) {
	c.cacheHits.With(prometheus.Labels{"operation": operation}).Inc()
}

// CacheMiss implements client.Observer.
func (c *Collectors) CacheMiss(operation string) {
	c.cacheMisses.With(prometheus.Labels{"operation": operation}).Inc()
}

// Shared implements client.Observer.
func (c *Collectors) Shared(operation string) {
	c.sharedRequests.With(prometheus.Labels{"operation": operation}).Inc()
}

// ObserveBatch records the size of a gateway batch.
func (c *Collectors) ObserveBatch(size int) {
	c.batchSize.Observe(float64(size))
}
