// Package observability records stage timings and result sizes of an
// analysis run as Prometheus metrics, optionally mirrors each stage as a
// JSON trace line, and exports the registry to a node-exporter textfile.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orthoset"

// Recorder owns a private registry so repeated runs in one process (tests,
// the CLI) never collide on global collector registration. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	reg       *prometheus.Registry
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
	sizes     *prometheus.GaugeVec

	mu      sync.Mutex
	entries []TraceEntry
	enc     *json.Encoder
}

// NewRecorder builds a recorder. When trace is non-nil every finished span
// is written to it as one JSON line.
func NewRecorder(trace io.Writer) *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of analysis stages.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Finished analysis stages by outcome.",
		}, []string{"stage", "status"}),
		sizes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_size",
			Help:      "Row or set cardinality produced by the last run.",
		}, []string{"name"}),
	}
	r.reg.MustRegister(r.durations, r.results, r.sizes)
	if trace != nil {
		r.enc = json.NewEncoder(trace)
	}
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Observe records one stage outcome.
func (r *Recorder) Observe(_ context.Context, stage string, success bool, d time.Duration) {
	if r == nil || stage == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(stage).Observe(d.Seconds())
	r.results.WithLabelValues(stage, status).Inc()
}

// SetSize publishes the cardinality of a named result.
func (r *Recorder) SetSize(name string, n int) {
	if r == nil {
		return
	}
	r.sizes.WithLabelValues(name).Set(float64(n))
}

// WriteTextfile writes the registry in the Prometheus text format,
// atomically replacing path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// TraceEntry is one finished stage span.
type TraceEntry struct {
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// Entries returns a copy of every finished span.
func (r *Recorder) Entries() []TraceEntry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Span times one stage. End must be called exactly once.
type Span struct {
	rec     *Recorder
	ctx     context.Context
	stage   string
	started time.Time
}

// Start opens a span for stage.
func (r *Recorder) Start(ctx context.Context, stage string) *Span {
	return &Span{rec: r, ctx: ctx, stage: stage, started: time.Now().UTC()}
}

// End closes the span, recording err as the stage outcome.
func (s *Span) End(err error) {
	if s == nil || s.rec == nil {
		return
	}
	ended := time.Now().UTC()
	elapsed := ended.Sub(s.started)
	s.rec.Observe(s.ctx, s.stage, err == nil, elapsed)

	entry := TraceEntry{
		Stage:      s.stage,
		Status:     "success",
		DurationMS: float64(elapsed) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.rec.mu.Lock()
	s.rec.entries = append(s.rec.entries, entry)
	if s.rec.enc != nil {
		_ = s.rec.enc.Encode(entry)
	}
	s.rec.mu.Unlock()
}
