package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics registers one collector per metric name on its own registry.
// Collectors are created on first use.
type PrometheusMetrics struct {
	namespace  string
	registry   *prometheus.Registry
	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics creates a sink whose metric names are prefixed with namespace.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		namespace:  namespace,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the registry holding every collector of this sink.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusMetrics) Initialize(ctx context.Context) error { return nil }
func (p *PrometheusMetrics) Flush(ctx context.Context) error      { return nil }
func (p *PrometheusMetrics) Shutdown(ctx context.Context) error   { return nil }

func (p *PrometheusMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      fmt.Sprintf("flashswap gauge %s", name),
		})
		if err := p.registry.Register(g); err != nil {
			return fmt.Errorf("register gauge %s: %w", name, err)
		}
		p.gauges[name] = g
	}
	g.Set(value)
	return nil
}

func (p *PrometheusMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name + "_total",
			Help:      fmt.Sprintf("flashswap counter %s", name),
		})
		if err := p.registry.Register(c); err != nil {
			return fmt.Errorf("register counter %s: %w", name, err)
		}
		p.counters[name] = c
	}
	c.Add(float64(value))
	return nil
}

func (p *PrometheusMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      fmt.Sprintf("flashswap histogram %s", name),
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		})
		if err := p.registry.Register(h); err != nil {
			return fmt.Errorf("register histogram %s: %w", name, err)
		}
		p.histograms[name] = h
	}
	h.Observe(value)
	return nil
}
