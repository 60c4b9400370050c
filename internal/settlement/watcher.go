// Package settlement implements the settlement watcher: once a pair's two
// legs are both accepted, this watcher polls each leg's provider
// independently and in parallel until both reach a terminal status or the
// poll budget is exhausted, then hands the pair to the reconciliation
// classifier.
package settlement

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evetabi/arbengine/internal/domain"
	"github.com/evetabi/arbengine/internal/exposure"
	"github.com/evetabi/arbengine/internal/gateway"
	"github.com/evetabi/arbengine/internal/reconcile"
	"github.com/evetabi/arbengine/internal/reporter"
)

// Watcher polls both legs of an accepted pair to settlement and reconciles
// the result.
type Watcher struct {
	gateway  gateway.Gateway
	exposure *exposure.Recorder
	sink     reporter.Sink

	pollInterval time.Duration
	maxPolls     int

	logger *slog.Logger
}

// New constructs a Watcher. In production wiring pollInterval and maxPolls
// come from config.EngineConfig (5s, 120 — roughly ten minutes of watching
// per leg).
func New(gw gateway.Gateway, rec *exposure.Recorder, sink reporter.Sink, pollInterval time.Duration, maxPolls int, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		gateway:      gw,
		exposure:     rec,
		sink:         sink,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		logger:       logger,
	}
}

// Watch polls pair's two legs to a terminal outcome and reconciles. It is
// meant to be launched in its own goroutine by the execution coordinator
// once a pair's both legs are accepted; ctx should be the process's
// long-lived shutdown context, not a single request's. A cancelled watch
// does not emit reconciliation — the partial state is lost.
func (w *Watcher) Watch(ctx context.Context, pair domain.PairRecord) {
	group, gctx := errgroup.WithContext(ctx)

	var posOutcome, hedgeOutcome domain.BetOutcome
	group.Go(func() error {
		posOutcome = w.pollLeg(gctx, pair.Positive)
		return nil
	})
	group.Go(func() error {
		hedgeOutcome = w.pollLeg(gctx, pair.Hedge)
		return nil
	})

	// errgroup.Group.Wait only ever returns the first non-nil error from a
	// Go func; pollLeg never returns one (a cancelled ctx yields
	// OutcomeTimeout rather than an error), so the return value carries no
	// information here.
	_ = group.Wait()

	if ctx.Err() != nil {
		w.logger.Info("settlement: watch cancelled before both legs settled", "arb_id", pair.ArbID)
		return
	}

	pair.PositiveOutcome = posOutcome
	pair.HedgeOutcome = hedgeOutcome
	pair.Status = domain.PairStatusReconciled
	now := time.Now()
	pair.CompletedAt = &now

	result := reconcile.Classify(posOutcome, hedgeOutcome)
	if result.Expected() {
		w.sink.Emit(reporter.Event{
			Kind:   reporter.KindPairReconciled,
			ArbID:  pair.ArbID,
			Tenant: pair.Tenant,
			Data: map[string]any{
				"outcome":        "expected",
				"betPairId":      pair.BetPairID(),
				"positiveStatus": posOutcome,
				"hedgeStatus":    hedgeOutcome,
			},
		})
		return
	}

	pair.ExposureReason = result.Reason
	w.exposure.Record(ctx, pair, now)
}

// pollLeg polls a single leg's ticket to a terminal status, sleeping
// pollInterval between attempts and counting every attempt — including
// errored ones — against maxPolls. It never returns an error: an exhausted
// budget or a cancelled context both yield OutcomeTimeout, the domain's
// outcome for "stopped watching, never learned the real outcome."
func (w *Watcher) pollLeg(ctx context.Context, leg domain.BetLeg) domain.BetOutcome {
	for attempt := 1; attempt <= w.maxPolls; attempt++ {
		if ctx.Err() != nil {
			return domain.OutcomeTimeout
		}

		status, err := w.gateway.PollStatus(ctx, leg.Provider, leg.TicketID, leg.Account)
		if err != nil {
			w.logger.Warn("settlement: poll_status failed", "provider", leg.Provider, "ticket_id", leg.TicketID, "attempt", attempt, "err", err)
		} else if status.Outcome.IsTerminal() {
			return status.Outcome
		}

		if attempt == w.maxPolls {
			break
		}
		if !sleep(ctx, w.pollInterval) {
			return domain.OutcomeTimeout
		}
	}
	return domain.OutcomeTimeout
}

// sleep blocks for d or until ctx is cancelled, whichever comes first. It
// returns false if ctx was cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
