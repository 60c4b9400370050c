// Package execution implements the pair execution coordinator: the ordered
// two-phase bet placement state machine. Three preconditions gate execution
// (idempotency claim, cooldown, session readiness), then the positive leg
// is placed, and only on its acceptance is the hedge leg placed. The
// idempotency claim is a conditional durable write — losing it means some
// other worker already owns this opportunity.
package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/arbengine/internal/cooldown"
	"github.com/evetabi/arbengine/internal/domain"
	"github.com/evetabi/arbengine/internal/gateway"
	"github.com/evetabi/arbengine/internal/kvstore"
	"github.com/evetabi/arbengine/internal/reporter"
	"github.com/evetabi/arbengine/internal/settlement"
)

const idempotencyTTL = time.Hour

// Coordinator drives a single PairRequest through placement to a watchable
// (or terminal-failure) state. One Coordinator instance is shared by every
// inbound request; it holds no per-request state itself.
type Coordinator struct {
	store    kvstore.Store
	gateway  gateway.Gateway
	cooldown *cooldown.Registry
	watcher  *settlement.Watcher
	sink     reporter.Sink

	logger *slog.Logger
}

// New constructs a Coordinator.
func New(store kvstore.Store, gw gateway.Gateway, cd *cooldown.Registry, w *settlement.Watcher, sink reporter.Sink, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, gateway: gw, cooldown: cd, watcher: w, sink: sink, logger: logger}
}

// Execute runs one PairRequest through the full state machine. It never
// returns an error to its caller (the queue consumer): every outcome,
// including every precondition failure, is reported through the sink and
// logged. Preconditions are checked in order; each failure emits its own
// event and stops.
func (c *Coordinator) Execute(ctx context.Context, req domain.PairRequest) {
	now := time.Now()

	if !c.claimIdempotency(ctx, req) {
		c.emit(reporter.KindArbBlocked, req.ArbID, req.Tenant, map[string]any{"reason": "already_executed"})
		return
	}

	if active, remaining := c.cooldown.Check(req.Tenant, req.Positive.Provider, req.Positive.Account, now); active {
		c.emit(reporter.KindArbBlocked, req.ArbID, req.Tenant, map[string]any{
			"reason":           "cooldown",
			"remainingSeconds": remaining.Seconds(),
		})
		return
	}

	ready, err := c.gateway.SessionReady(ctx, req.Tenant, req.Positive.Provider, req.Positive.Account)
	if err != nil {
		c.logger.Warn("execution: session readiness check failed", "arb_id", req.ArbID, "err", err)
	}
	if err != nil || !ready {
		c.emit(reporter.KindArbFailed, req.ArbID, req.Tenant, map[string]any{
			"reason":    "not_logged_in",
			"failedBet": "positive",
		})
		return
	}

	positive := req.Positive
	result, err := c.gateway.Place(ctx, positive)
	if err != nil {
		c.logger.Info("execution: positive leg rejected", "arb_id", req.ArbID, "provider", positive.Provider, "err", err)
		c.emit(reporter.KindBetFailed, req.ArbID, req.Tenant, map[string]any{"leg": "positive", "err": err.Error()})
		c.emit(reporter.KindArbFailed, req.ArbID, req.Tenant, map[string]any{
			"reason":         "positive_bet_rejected",
			"hedgeBetStatus": "cancelled",
		})
		return
	}
	positive.TicketID = result.TicketID
	c.emit(reporter.KindBetExecuted, req.ArbID, req.Tenant, map[string]any{"leg": "positive", "ticketId": positive.TicketID})

	hedge := req.Hedge
	hedgeResult, err := c.gateway.Place(ctx, hedge)
	if err != nil {
		c.logger.Error("execution: hedge leg rejected after positive accepted", "arb_id", req.ArbID, "provider", hedge.Provider, "err", err)
		c.emit(reporter.KindBetFailed, req.ArbID, req.Tenant, map[string]any{"leg": "hedge", "err": err.Error()})
		c.emit(reporter.KindArbEmergency, req.ArbID, req.Tenant, map[string]any{
			"severity":          "critical",
			"actionRequired":    "manual_hedge",
			"positiveBetResult": positive.TicketID,
			"hedgeBetResult":    err.Error(),
		})
		// Cooldown is still acquired: a failed hedge must not be retried
		// immediately against the same account, even though the pair itself
		// is now in manual-review territory.
		c.cooldown.Acquire(ctx, req.Tenant, positive.Provider, positive.Account, now)
		return
	}
	hedge.TicketID = hedgeResult.TicketID
	c.emit(reporter.KindBetExecuted, req.ArbID, req.Tenant, map[string]any{"leg": "hedge", "ticketId": hedge.TicketID})

	pair := domain.PairRecord{
		ArbID:       req.ArbID,
		Tenant:      req.Tenant,
		Status:      domain.PairStatusWatching,
		Positive:    positive,
		Hedge:       hedge,
		HedgePlaced: true,
		CreatedAt:   now,
	}

	// The cooldown write happens before the arb_success emission that
	// advertises cooldownUntil, and the settlement watch is spawned after
	// both.
	c.cooldown.Acquire(ctx, req.Tenant, positive.Provider, positive.Account, now)
	c.emit(reporter.KindArbSuccess, req.ArbID, req.Tenant, map[string]any{
		"cooldownKey":   positive.CooldownKey(),
		"cooldownUntil": now.Add(cooldown.Window),
	})

	go c.watcher.Watch(ctx, pair)
}

// claimIdempotency attempts the at-most-once execution claim. A transport
// error is treated the same as a lost claim: without confirmation the claim
// succeeded, re-execution cannot be ruled out safe, so the coordinator
// fails closed.
func (c *Coordinator) claimIdempotency(ctx context.Context, req domain.PairRequest) bool {
	ok, err := c.store.SetIfAbsent(ctx, req.IdempotencyKey(), "claimed", idempotencyTTL)
	if err != nil {
		c.logger.Warn("execution: idempotency claim transport error, treating as already claimed", "arb_id", req.ArbID, "err", err)
		return false
	}
	return ok
}

func (c *Coordinator) emit(kind reporter.Kind, arbID, tenant string, data map[string]any) {
	c.sink.Emit(reporter.Event{Kind: kind, ArbID: arbID, Tenant: tenant, Data: data})
}
