// Package reporter implements the fire-and-forget HTTP sink the core uses
// to report execution and reconciliation events to an external results
// service. Emission never blocks the caller and never retries: a slow or
// down reporter must not stall the execution coordinator or settlement
// watchers.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the event kinds the core is responsible for emitting.
// login_success, login_failed, and scan_result belong to the external
// session/scanner collaborator and are never emitted here.
type Kind string

const (
	KindBetExecuted    Kind = "bet_executed"
	KindBetFailed      Kind = "bet_failed"
	KindArbBlocked     Kind = "arb_blocked"
	KindArbFailed      Kind = "arb_failed"
	KindArbEmergency   Kind = "arb_emergency"
	KindArbSuccess     Kind = "arb_success"
	KindPairReconciled Kind = "pair_reconciled"
	KindExposureAlert  Kind = "exposure_alert"
)

// Event is the wire payload POSTed to the reporter sink. EventID is a
// per-emission correlation id assigned on Emit; the receiving service uses
// it to dedupe, not the core.
type Event struct {
	EventID   string         `json:"event_id"`
	Kind      Kind           `json:"kind"`
	ArbID     string         `json:"arb_id"`
	Tenant    string         `json:"tenant,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Sink accepts events for asynchronous delivery.
type Sink interface {
	Emit(e Event)
}

// HTTPSink buffers events on a channel and delivers them to
// POST <api_base>/api/worker/result from a small pool of background
// workers, so a slow results service never blocks a producer.
type HTTPSink struct {
	url    string
	client *http.Client
	events chan Event
	logger *slog.Logger
}

// NewHTTPSink constructs a sink posting to apiBase+"/api/worker/result".
// Call Start to launch its worker pool before using Emit.
func NewHTTPSink(apiBase string, timeout time.Duration, queueDepth int, logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{
		url:    apiBase + "/api/worker/result",
		client: &http.Client{Timeout: timeout},
		events: make(chan Event, queueDepth),
		logger: logger,
	}
}

// Start launches n worker goroutines draining the event channel. It
// returns immediately; workers run until ctx is cancelled.
func (s *HTTPSink) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		go s.worker(ctx)
	}
}

// Emit enqueues e for delivery. If the buffer is full the event is dropped
// and logged rather than blocking the caller — reporting must never stall
// the execution or settlement path.
func (s *HTTPSink) Emit(e Event) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case s.events <- e:
	default:
		s.logger.Warn("reporter: event dropped, queue full", "kind", e.Kind, "arb_id", e.ArbID)
	}
}

func (s *HTTPSink) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.events:
			s.deliver(ctx, e)
		}
	}
}

// resultEnvelope is the wire shape the results service expects:
// {"type": <event_kind>, "data": <event payload>}.
type resultEnvelope struct {
	Type Kind  `json:"type"`
	Data Event `json:"data"`
}

func (s *HTTPSink) deliver(ctx context.Context, e Event) {
	body, err := json.Marshal(resultEnvelope{Type: e.Kind, Data: e})
	if err != nil {
		s.logger.Error("reporter: marshal failed", "kind", e.Kind, "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("reporter: build request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("reporter: delivery failed", "kind", e.Kind, "arb_id", e.ArbID, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("reporter: non-2xx response", "kind", e.Kind, "arb_id", e.ArbID, "status", resp.StatusCode)
	}
}

var _ Sink = (*HTTPSink)(nil)

// NoopSink discards every event. Useful in tests that don't care about
// reporting.
type NoopSink struct{}

func (NoopSink) Emit(Event) {}

var _ Sink = NoopSink{}
