package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const namespace = "bbsite"

// Metrics holds the span collectors.
type Metrics struct {
	SpanDuration *prometheus.HistogramVec
	SpansTotal   *prometheus.CounterVec
}

// NewMetrics creates the span collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SpanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "span_duration_seconds",
				Help:      "Duration of instrumented operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source", "component", "action", "status"},
		),
		SpansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spans_total",
				Help:      "Total number of finished spans.",
			},
			[]string{"source", "component", "action", "status"},
		),
	}
	reg.MustRegister(m.SpanDuration, m.SpansTotal)
	return m
}

// PromInstrumenter records every finished span in Prometheus and logs it at
// trace level.
type PromInstrumenter struct {
	metrics *Metrics
	log     zerolog.Logger
}

func NewPromInstrumenter(metrics *Metrics, log zerolog.Logger) *PromInstrumenter {
	return &PromInstrumenter{metrics: metrics, log: log}
}

// StartSpan creates a new span and returns the updated context.
func (i *PromInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	span := &PromSpan{
		traceID:      GetTraceID(ctx),
		spanID:       newUUID(),
		parentSpanID: getParentSpanID(ctx),
		source:       source,
		component:    component,
		action:       action,
		status:       "ok",
		startTime:    time.Now(),
		metadata:     make(map[string]any),
		inst:         i,
	}

	// Child spans reference this span as parent.
	ctx = WithParentSpanID(ctx, span.spanID)
	return ctx, span
}

// PromSpan implements Span with timing and metadata.
type PromSpan struct {
	traceID      string
	spanID       string
	parentSpanID string
	source       string
	component    string
	action       string
	model        string
	recordID     string
	status       string
	startTime    time.Time
	metadata     map[string]any
	inst         *PromInstrumenter
	mu           sync.Mutex
	ended        bool
}

func (s *PromSpan) TraceID() string { return s.traceID }
func (s *PromSpan) SpanID() string  { return s.spanID }

func (s *PromSpan) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *PromSpan) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

func (s *PromSpan) SetModel(model, recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.recordID = recordID
}

func (s *PromSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	elapsed := time.Since(s.startTime)
	labels := prometheus.Labels{
		"source":    s.source,
		"component": s.component,
		"action":    s.action,
		"status":    s.status,
	}
	s.inst.metrics.SpanDuration.With(labels).Observe(elapsed.Seconds())
	s.inst.metrics.SpansTotal.With(labels).Inc()

	ev := s.inst.log.Trace().
		Str("trace_id", s.traceID).
		Str("span_id", s.spanID).
		Str("action", s.action).
		Str("status", s.status).
		Dur("duration", elapsed)
	if s.parentSpanID != "" {
		ev = ev.Str("parent_span_id", s.parentSpanID)
	}
	if s.model != "" {
		ev = ev.Str("model", s.model).Str("record_id", s.recordID)
	}
	ev.Fields(s.metadata).Msg("span")
}
