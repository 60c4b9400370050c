// Package exposure implements the exposure recorder: whenever a reconciled
// pair's joint settlement deviates from the arbitrage invariant, it is
// persisted, appended to a bounded in-memory list for the admin surface,
// and announced on the reporter sink. Recording an exposure never touches
// the cooldown registry — cooldown and exposure are orthogonal.
package exposure

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/evetabi/arbengine/internal/domain"
	"github.com/evetabi/arbengine/internal/kvstore"
	"github.com/evetabi/arbengine/internal/reporter"
)

const ttl = 24 * time.Hour

// Recorder holds the bounded in-memory backlog of exposure records and
// persists each new one through the durable store. A failed durable write
// never unwinds the in-memory append or the alert emission — losing the
// archived copy is better than losing the alert.
type Recorder struct {
	store kvstore.Store
	sink  reporter.Sink
	cap   int

	mu      sync.Mutex
	records []domain.ExposureRecord

	logger *slog.Logger
}

// New constructs a Recorder with the given bounded capacity; production
// wiring takes it from config.EngineConfig.
func New(store kvstore.Store, sink reporter.Sink, capSize int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if capSize <= 0 {
		capSize = 10000
	}
	return &Recorder{store: store, sink: sink, cap: capSize, logger: logger}
}

// Record persists and announces the exposure found on pair, which must
// already carry a non-empty ExposureReason and both legs' terminal
// outcomes.
func (r *Recorder) Record(ctx context.Context, pair domain.PairRecord, now time.Time) domain.ExposureRecord {
	rec := domain.NewExposureRecord(pair, now)

	if body, err := json.Marshal(rec); err != nil {
		r.logger.Error("exposure: marshal failed", "arb_id", rec.ArbID, "err", err)
	} else if err := r.store.SetWithTTL(ctx, rec.Key(), string(body), ttl); err != nil {
		r.logger.Warn("exposure: durable persist failed", "key", rec.Key(), "err", err)
	}

	r.append(rec)

	r.sink.Emit(reporter.Event{
		Kind:   reporter.KindExposureAlert,
		ArbID:  rec.ArbID,
		Tenant: rec.Tenant,
		Data: map[string]any{
			"severity":               "high",
			"betPairId":              rec.BetPairID,
			"exposureKey":            rec.Key(),
			"exposureReason":         rec.ExposureReason,
			"positiveProvider":       rec.PositiveProvider,
			"hedgeProvider":          rec.HedgeProvider,
			"positiveTicketId":       rec.PositiveTicketID,
			"hedgeTicketId":          rec.HedgeTicketID,
			"positiveStatus":         rec.PositiveStatus,
			"hedgeStatus":            rec.HedgeStatus,
			"requiresManualReview":   rec.RequiresManualReview,
			"autoRebetDisabled":      rec.AutoRebetDisabled,
		},
	})

	return rec
}

// append adds rec to the in-memory backlog, evicting the oldest entry once
// the configured cap is exceeded.
func (r *Recorder) append(rec domain.ExposureRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if over := len(r.records) - r.cap; over > 0 {
		r.records = r.records[over:]
	}
}

// List returns a snapshot of the current in-memory exposure backlog, most
// recent last. Used by the read-only admin surface.
func (r *Recorder) List() []domain.ExposureRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ExposureRecord, len(r.records))
	copy(out, r.records)
	return out
}
