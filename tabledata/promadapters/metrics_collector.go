// Package promadapters provides a Prometheus implementation of the
// tabledata.MetricsCollector interface. Collectors are created lazily
// per metric name so callers do not have to declare every metric up
// front.
package promadapters

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go9sky/tuckview/tabledata"
)

// Ensure Collector implements tabledata.MetricsCollector.
var _ tabledata.MetricsCollector = (*Collector)(nil)

// Collector implements tabledata.MetricsCollector on top of a
// prometheus.Registerer. Histograms, counters, and gauges are created
// on first use and cached by metric name.
type Collector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewCollector creates a Collector registering its metrics on the given
// registerer. A nil registerer falls back to the default registry.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Collector{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration observes a duration in seconds on the histogram named
// by metric.
func (c *Collector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	labelNames, labelValues := splitLabels(labels)

	c.mu.Lock()
	histogram, found := c.histograms[metric]
	if !found {
		histogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metric,
				Help:    "Duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			labelNames,
		)
		c.registerer.MustRegister(histogram)
		c.histograms[metric] = histogram
	}
	c.mu.Unlock()

	histogram.WithLabelValues(labelValues...).Observe(duration.Seconds())
}

// IncrementCounter increments the counter named by metric.
func (c *Collector) IncrementCounter(metric string, labels map[string]string) {
	labelNames, labelValues := splitLabels(labels)

	c.mu.Lock()
	counter, found := c.counters[metric]
	if !found {
		counter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metric,
				Help: "Total count of events.",
			},
			labelNames,
		)
		c.registerer.MustRegister(counter)
		c.counters[metric] = counter
	}
	c.mu.Unlock()

	counter.WithLabelValues(labelValues...).Inc()
}

// RecordValue sets the gauge named by metric to the given value.
func (c *Collector) RecordValue(metric string, value float64, labels map[string]string) {
	labelNames, labelValues := splitLabels(labels)

	c.mu.Lock()
	gauge, found := c.gauges[metric]
	if !found {
		gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metric,
				Help: "Last observed value.",
			},
			labelNames,
		)
		c.registerer.MustRegister(gauge)
		c.gauges[metric] = gauge
	}
	c.mu.Unlock()

	gauge.WithLabelValues(labelValues...).Set(value)
}

// splitLabels returns label names in sorted order with their values in
// matching positions. Sorting keeps the label set stable across calls,
// which Prometheus requires for a registered vector.
func splitLabels(labels map[string]string) ([]string, []string) {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, len(names))
	for i, name := range names {
		values[i] = labels[name]
	}

	return names, values
}
