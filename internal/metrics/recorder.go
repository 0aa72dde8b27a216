package metrics

import (
	"context"
	"sync"
)

// Recorder receives metrics as calls complete. Record must be safe for
// concurrent use and must not block for long.
type Recorder interface {
	Record(m Metric)
}

// Collector is an in-memory Recorder for one document run.
type Collector struct {
	mu      sync.Mutex
	metrics []Metric
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record implements Recorder.
func (c *Collector) Record(m Metric) {
	c.mu.Lock()
	c.metrics = append(c.metrics, m)
	c.mu.Unlock()
}

// Metrics returns a copy of everything recorded so far.
func (c *Collector) Metrics() []Metric {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Metric(nil), c.metrics...)
}

// Attribution tags every metric recorded through a context.
type Attribution struct {
	RunID  string
	Source string
}

type recorderKey struct{}

type attributionKey struct{}

// WithRecorder returns a context whose Record calls go to r.
func WithRecorder(ctx context.Context, r Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

// RecorderFrom returns the context's recorder, or nil.
func RecorderFrom(ctx context.Context) Recorder {
	r, _ := ctx.Value(recorderKey{}).(Recorder)
	return r
}

// WithAttribution returns a context that tags recorded metrics with a.
func WithAttribution(ctx context.Context, a Attribution) context.Context {
	return context.WithValue(ctx, attributionKey{}, a)
}

// AttributionFrom returns the context's attribution.
func AttributionFrom(ctx context.Context) Attribution {
	a, _ := ctx.Value(attributionKey{}).(Attribution)
	return a
}

// Record tags m with the context's attribution and hands it to the
// context's recorder. Without a recorder it does nothing.
func Record(ctx context.Context, m Metric) {
	r := RecorderFrom(ctx)
	if r == nil {
		return
	}
	a := AttributionFrom(ctx)
	if m.RunID == "" {
		m.RunID = a.RunID
	}
	if m.Source == "" {
		m.Source = a.Source
	}
	r.Record(m)
}
