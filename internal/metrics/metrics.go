// Package metrics collects runtime counters for executed transactions and
// program instructions.
//
// The Metrics interface is implemented by a no-op sink, a logrus-backed sink
// and a Prometheus sink. Collection fans every call out to several sinks.
package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Metrics defines the interface for collecting and managing runtime metrics.
type Metrics interface {
	// Initialize prepares the metrics system for data collection.
	Initialize(ctx context.Context) error

	// Flush sends any buffered metrics data to ensure all metrics are reported.
	Flush(ctx context.Context) error

	// Shutdown gracefully shuts down the metrics system, performing cleanup.
	Shutdown(ctx context.Context) error

	// UpdateGauge sets a gauge, such as the number of ledger accounts.
	UpdateGauge(ctx context.Context, name string, value float64) error

	IncrementCounter(ctx context.Context, name string, value uint64) error

	// RecordHistogram observes one value, such as a transaction's duration.
	RecordHistogram(ctx context.Context, name string, value float64) error
}

// Collection fans every call out to its sinks. A failing sink does not stop
// the others; the errors are joined.
type Collection struct {
	mu    sync.RWMutex
	sinks []Metrics
}

func NewCollection(sinks ...Metrics) *Collection {
	return &Collection{sinks: sinks}
}

func (c *Collection) Add(m Metrics) {
	c.mu.Lock()
	c.sinks = append(c.sinks, m)
	c.mu.Unlock()
}

func (c *Collection) each(fn func(Metrics) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, m := range c.sinks {
		if err := fn(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Collection) Initialize(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Initialize(ctx) })
}

func (c *Collection) Flush(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Flush(ctx) })
}

func (c *Collection) Shutdown(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Shutdown(ctx) })
}

func (c *Collection) UpdateGauge(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.UpdateGauge(ctx, name, value) })
}

func (c *Collection) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return c.each(func(m Metrics) error { return m.IncrementCounter(ctx, name, value) })
}

func (c *Collection) RecordHistogram(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.RecordHistogram(ctx, name, value) })
}

// Len returns the number of sinks.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sinks)
}

// NoopMetrics discards everything. The runtime uses it when no sink is set.
type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) Initialize(ctx context.Context) error                              { return nil }
func (n *NoopMetrics) Flush(ctx context.Context) error                                   { return nil }
func (n *NoopMetrics) Shutdown(ctx context.Context) error                                { return nil }
func (n *NoopMetrics) UpdateGauge(ctx context.Context, name string, value float64) error { return nil }
func (n *NoopMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return nil
}
func (n *NoopMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	return nil
}

// Summary aggregates the values recorded into one histogram.
type Summary struct {
	Count uint64  `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func (s *Summary) observe(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
}

// LogMetrics keeps metrics in memory and writes them through logrus on Flush.
// Individual updates are logged at debug level.
type LogMetrics struct {
	logger logrus.FieldLogger

	mu         sync.RWMutex
	gauges     map[string]float64
	counters   map[string]uint64
	histograms map[string]*Summary
}

// NewLogMetrics falls back to the standard logger when logger is nil.
func NewLogMetrics(logger logrus.FieldLogger) *LogMetrics {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogMetrics{
		logger:     logger,
		gauges:     make(map[string]float64),
		counters:   make(map[string]uint64),
		histograms: make(map[string]*Summary),
	}
}

func (l *LogMetrics) Initialize(ctx context.Context) error {
	l.logger.Debug("log metrics ready")
	return nil
}

func (l *LogMetrics) Flush(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fields := logrus.Fields{}
	for name, v := range l.counters {
		fields[name] = v
	}
	for name, v := range l.gauges {
		fields[name] = v
	}
	for name, h := range l.histograms {
		if h.Count > 0 {
			fields[name+"_avg"] = h.Sum / float64(h.Count)
			fields[name+"_max"] = h.Max
		}
	}
	l.logger.WithFields(fields).Info("metrics")
	return nil
}

func (l *LogMetrics) Shutdown(ctx context.Context) error {
	return nil
}

func (l *LogMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	l.gauges[name] = value
	l.mu.Unlock()

	l.logger.WithField(name, value).Debug("gauge")
	return nil
}

func (l *LogMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	l.mu.Lock()
	l.counters[name] += value
	total := l.counters[name]
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{"counter": name, "delta": value, "total": total}).Debug("counter")
	return nil
}

func (l *LogMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	h, ok := l.histograms[name]
	if !ok {
		h = &Summary{}
		l.histograms[name] = h
	}
	h.observe(value)
	l.mu.Unlock()
	return nil
}

// Counter returns the accumulated value of a counter.
func (l *LogMetrics) Counter(name string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters[name]
}

// Histogram returns a copy of a histogram summary.
func (l *LogMetrics) Histogram(name string) Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if h, ok := l.histograms[name]; ok {
		return *h
	}
	return Summary{}
}

// Metric names used by the runtime.
const (
	MetricTransactionsExecuted        = "transactions_executed"
	MetricTransactionsSucceeded       = "transactions_succeeded"
	MetricTransactionsFailed          = "transactions_failed"
	MetricTransactionsRolledBack      = "transactions_rolled_back"
	MetricInstructionsProcessed       = "instructions_processed"
	MetricCrossProgramInvocations     = "cross_program_invocations"
	MetricTransactionTimeMilliseconds = "transaction_time_milliseconds"
	MetricLedgerAccounts              = "ledger_accounts"
)
