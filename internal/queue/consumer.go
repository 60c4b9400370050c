// Package queue implements the inbound work-queue consumer: a blocking-pop
// loop over the "arb-execute" Redis list, decoding each payload into a
// domain.PairRequest and dispatching it to the execution coordinator.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evetabi/arbengine/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// wireLeg is the inbound JSON shape for a single leg
// (betId/accountId/matchName/marketType/odds/stake), kept as an unexported
// decode target so optional fields default explicitly instead of leaking
// wire concerns into domain.BetLeg.
type wireLeg struct {
	BetID      string          `json:"betId"`
	AccountID  string          `json:"accountId"`
	MatchName  string          `json:"matchName"`
	MarketType string          `json:"marketType"`
	Odds       decimal.Decimal `json:"odds"`
	Stake      decimal.Decimal `json:"stake"`
}

// wirePairRequest is the inbound JSON document shape: arbId, whitelabel,
// provider, positiveBet, hedgeBet. The top-level "provider" names the
// positive leg's provider — the same provider the cooldown key is keyed on.
// An optional "hedgeProvider" names the hedge leg's provider and falls back
// to "provider" when absent, so single-provider producers need not send it.
type wirePairRequest struct {
	ArbID         string  `json:"arbId"`
	Whitelabel    string  `json:"whitelabel"`
	Provider      string  `json:"provider"`
	HedgeProvider string  `json:"hedgeProvider"`
	PositiveBet   wireLeg `json:"positiveBet"`
	HedgeBet      wireLeg `json:"hedgeBet"`
}

// Decode converts a single raw JSON payload from the arb-execute queue into
// a domain.PairRequest.
func Decode(raw []byte) (domain.PairRequest, error) {
	var wire wirePairRequest
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.PairRequest{}, fmt.Errorf("queue: decode payload: %w", err)
	}
	if wire.ArbID == "" {
		return domain.PairRequest{}, errors.New("queue: payload missing arbId")
	}
	if wire.Provider == "" {
		return domain.PairRequest{}, errors.New("queue: payload missing provider")
	}

	hedgeProvider := wire.HedgeProvider
	if hedgeProvider == "" {
		hedgeProvider = wire.Provider
	}

	positive := decodeLeg(wire.PositiveBet, domain.LegPositive, wire.Whitelabel, wire.Provider)
	hedge := decodeLeg(wire.HedgeBet, domain.LegHedge, wire.Whitelabel, hedgeProvider)

	if positive.BetID != "" && positive.BetID == hedge.BetID {
		return domain.PairRequest{}, fmt.Errorf("queue: positive and hedge legs share bet_id %q", positive.BetID)
	}

	return domain.PairRequest{
		ArbID:     wire.ArbID,
		Tenant:    wire.Whitelabel,
		Positive:  positive,
		Hedge:     hedge,
		CreatedAt: time.Now(),
	}, nil
}

func decodeLeg(w wireLeg, role domain.LegRole, tenant, provider string) domain.BetLeg {
	return domain.BetLeg{
		Role:       role,
		BetID:      w.BetID,
		Tenant:     tenant,
		Provider:   provider,
		Account:    w.AccountID,
		MatchName:  w.MatchName,
		MarketType: w.MarketType,
		Odds:       w.Odds,
		Stake:      w.Stake,
	}
}

// Handler processes one dequeued PairRequest. Implemented by the execution
// coordinator; declared here to avoid an import cycle.
type Handler interface {
	Execute(ctx context.Context, req domain.PairRequest)
}

// Consumer performs a blocking BLPOP against a single Redis list with a ~1s
// timeout and loops, re-checking the shutdown context between pops.
type Consumer struct {
	client  *redis.Client
	queue   string
	timeout time.Duration
	handler Handler
	logger  *slog.Logger
}

// New constructs a Consumer reading from queueName on client.
func New(client *redis.Client, queueName string, timeout time.Duration, handler Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{client: client, queue: queueName, timeout: timeout, handler: handler, logger: logger}
}

// Run blocks, consuming PairRequests until ctx is cancelled. Each decoded
// request is dispatched to the handler on its own goroutine — a placement
// call can take the full provider timeout, and one slow pair must not stall
// the queue. Safety across concurrent pairs rests on the handler's
// idempotency claim and the gateway's per-account serialization, not on
// this loop being serial.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("queue: consumer started", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("queue: consumer shutting down")
			return
		default:
		}

		result, err := c.client.BLPop(ctx, c.timeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // timeout elapsed, nothing queued — loop and check ctx again
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("queue: blpop failed", "err", err)
			continue
		}

		// BLPop returns [key, value]; we only ever ask for one key.
		if len(result) != 2 {
			c.logger.Warn("queue: unexpected blpop result shape", "len", len(result))
			continue
		}

		req, err := Decode([]byte(result[1]))
		if err != nil {
			c.logger.Warn("queue: dropping undecodable payload", "err", err)
			continue
		}

		go c.handler.Execute(ctx, req)
	}
}
