package metrics

import (
	"context"
	"log/slog"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Printer periodically logs a snapshot of the node's own metrics
type Printer struct {
	metrics  *Metrics
	interval time.Duration
	filter   map[string]struct{}
	log      *slog.Logger
}

func NewPrinter(m *Metrics, c *Config, l *slog.Logger) *Printer {
	var filter map[string]struct{}

	if len(c.LogFilter) > 0 {
		filter = make(map[string]struct{}, len(c.LogFilter))

		for _, name := range c.LogFilter {
			filter[name] = struct{}{}
		}
	}

	return &Printer{
		metrics:  m,
		interval: time.Duration(c.RotateInterval) * time.Second,
		filter:   filter,
		log:      l.With("context", "metrics"),
	}
}

// Run logs metrics every interval until the context is cancelled
func (p *Printer) Run(ctx context.Context) {
	p.log.Info("log metrics", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Print()
		}
	}
}

// Print logs the current snapshot
func (p *Printer) Print() {
	snapshot, err := p.Snapshot()

	if err != nil {
		p.log.Error("failed to gather metrics", "error", err)
		return
	}

	attrs := make([]any, 0, len(snapshot)*2)

	for name, val := range snapshot {
		attrs = append(attrs, name, val)
	}

	p.log.Info("", attrs...)
}

// Snapshot returns the values of the node's counters and gauges
// (summed over labels) keyed by metric name without the namespace prefix
func (p *Printer) Snapshot() (map[string]float64, error) {
	families, err := p.metrics.Registry.Gather()

	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]float64)

	for _, family := range families {
		name, ok := strings.CutPrefix(family.GetName(), namespace+"_")

		if !ok {
			continue
		}

		if p.filter != nil {
			if _, ok := p.filter[name]; !ok {
				continue
			}
		}

		switch family.GetType() {
		case dto.MetricType_COUNTER:
			for _, m := range family.GetMetric() {
				snapshot[name] += m.GetCounter().GetValue()
			}
		case dto.MetricType_GAUGE:
			for _, m := range family.GetMetric() {
				snapshot[name] += m.GetGauge().GetValue()
			}
		}
	}

	return snapshot, nil
}
