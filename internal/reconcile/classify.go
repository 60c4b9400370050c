// Package reconcile implements the reconciliation classifier: a pure
// function mapping a pair's two terminal settlement statuses onto either
// the expected arbitrage outcome or a named exposure reason. It holds no
// state and makes no external calls.
package reconcile

import (
	"fmt"

	"github.com/evetabi/arbengine/internal/domain"
)

// Exposure reason strings. The partial-settlement reasons are formatted
// with the two outcomes that triggered them, e.g.
// "partial_settlement_half_won_lost".
const (
	ReasonPositiveVoidHedgeActive = "positive_void_hedge_active"
	ReasonHedgeVoidPositiveActive = "hedge_void_positive_active"
	ReasonBothLostUnexpected      = "both_lost_unexpected"
	ReasonBothWonUnexpected       = "both_won_unexpected"
	reasonPartialSettlementFmt    = "partial_settlement_%s_%s"
)

// Result is the outcome of classifying one pair's joint settlement status.
type Result struct {
	// Reason is empty when the pair reconciled to the expected arbitrage
	// outcome (one leg won and the other lost, or both legs voided).
	Reason string
}

// Expected reports whether the pair reconciled cleanly, with no exposure.
func (r Result) Expected() bool {
	return r.Reason == ""
}

// Classify applies the decision table below to a pair's two terminal
// settlement outcomes, top-to-bottom, first match wins. Both outcomes must
// already be terminal (domain.BetOutcome.IsTerminal()) — Classify does not
// itself poll or wait.
func Classify(pos, hedge domain.BetOutcome) Result {
	switch {
	// 1. positive void, hedge not void → exposure
	case pos == domain.OutcomeVoid && hedge != domain.OutcomeVoid:
		return Result{Reason: ReasonPositiveVoidHedgeActive}

	// 2. hedge void, positive not void → exposure
	case hedge == domain.OutcomeVoid && pos != domain.OutcomeVoid:
		return Result{Reason: ReasonHedgeVoidPositiveActive}

	// 3. both void → expected
	case pos == domain.OutcomeVoid && hedge == domain.OutcomeVoid:
		return Result{}

	// 4. either leg half-settled → exposure
	case pos.IsHalf() || hedge.IsHalf():
		return Result{Reason: partialSettlementReason(pos, hedge)}

	// 5. both lost → exposure
	case pos == domain.OutcomeLost && hedge == domain.OutcomeLost:
		return Result{Reason: ReasonBothLostUnexpected}

	// 6. both won → exposure
	case pos == domain.OutcomeWon && hedge == domain.OutcomeWon:
		return Result{Reason: ReasonBothWonUnexpected}

	// 7. one won, one lost → expected
	case (pos == domain.OutcomeWon && hedge == domain.OutcomeLost) ||
		(pos == domain.OutcomeLost && hedge == domain.OutcomeWon):
		return Result{}

	// 8. anything involving Timeout or Error (or any combination not
	// covered above) → exposure
	default:
		return Result{Reason: partialSettlementReason(pos, hedge)}
	}
}

func partialSettlementReason(pos, hedge domain.BetOutcome) string {
	return fmt.Sprintf(reasonPartialSettlementFmt, pos, hedge)
}
