package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegRole distinguishes the first (positive-EV) leg of a pair from the
// second (hedge) leg placed only once the first is accepted.
type LegRole string

const (
	LegPositive LegRole = "positive"
	LegHedge    LegRole = "hedge"
)

// IsValid reports whether r is one of the known leg roles.
func (r LegRole) IsValid() bool {
	return r == LegPositive || r == LegHedge
}

// BetLeg describes one side of an arbitrage pair: a single wager to be
// placed with a single provider account.
type BetLeg struct {
	Role       LegRole         `json:"role"`
	BetID      string          `json:"bet_id"`
	Tenant     string          `json:"tenant"`
	Provider   string          `json:"provider"`
	Account    string          `json:"account"`
	MatchName  string          `json:"match_name"`
	MarketType string          `json:"market_type"`
	Stake      decimal.Decimal `json:"stake"`
	Odds       decimal.Decimal `json:"odds"`
	TicketID   string          `json:"ticket_id,omitempty"`
}

// CooldownKey returns the (tenant, provider, account) composite this leg's
// placement is subject to, formatted exactly as the durable store's key.
func (l BetLeg) CooldownKey() string {
	return "cooldown:" + l.Tenant + ":" + l.Provider + ":" + l.Account
}

// PairRequest is the inbound unit of work consumed from the execute queue:
// a positive leg that must be placed, and a hedge leg to place only if the
// positive leg is accepted.
type PairRequest struct {
	ArbID     string    `json:"arb_id"`
	Tenant    string    `json:"tenant"`
	Positive  BetLeg    `json:"positive"`
	Hedge     BetLeg    `json:"hedge"`
	CreatedAt time.Time `json:"created_at"`
}

// IdempotencyKey returns the durable store key guarding at-most-one
// execution of this request.
func (p PairRequest) IdempotencyKey() string {
	return "executed:" + p.ArbID
}
