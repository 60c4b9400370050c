package reconcile_test

import (
	"testing"

	"github.com/evetabi/arbengine/internal/domain"
	"github.com/evetabi/arbengine/internal/reconcile"
)

func TestClassify_DecisionTable(t *testing.T) {
	tests := []struct {
		name       string
		pos, hedge domain.BetOutcome
		wantReason string
	}{
		{"both_void_is_expected", domain.OutcomeVoid, domain.OutcomeVoid, ""},
		{"positive_void_hedge_won", domain.OutcomeVoid, domain.OutcomeWon, reconcile.ReasonPositiveVoidHedgeActive},
		{"positive_void_hedge_lost", domain.OutcomeVoid, domain.OutcomeLost, reconcile.ReasonPositiveVoidHedgeActive},
		{"hedge_void_positive_won", domain.OutcomeWon, domain.OutcomeVoid, reconcile.ReasonHedgeVoidPositiveActive},
		{"hedge_void_positive_lost", domain.OutcomeLost, domain.OutcomeVoid, reconcile.ReasonHedgeVoidPositiveActive},
		{"won_then_lost_is_expected", domain.OutcomeWon, domain.OutcomeLost, ""},
		{"lost_then_won_is_expected", domain.OutcomeLost, domain.OutcomeWon, ""},
		{"both_won_is_exposure", domain.OutcomeWon, domain.OutcomeWon, reconcile.ReasonBothWonUnexpected},
		{"both_lost_is_exposure", domain.OutcomeLost, domain.OutcomeLost, reconcile.ReasonBothLostUnexpected},
		{"half_won_vs_lost_is_exposure", domain.OutcomeHalfWon, domain.OutcomeLost, "partial_settlement_half_won_lost"},
		{"won_vs_half_lost_is_exposure", domain.OutcomeWon, domain.OutcomeHalfLost, "partial_settlement_won_half_lost"},
		{"timeout_vs_won_is_exposure", domain.OutcomeTimeout, domain.OutcomeWon, "partial_settlement_timeout_won"},
		{"error_vs_lost_is_exposure", domain.OutcomeError, domain.OutcomeLost, "partial_settlement_error_lost"},
		{"timeout_vs_timeout_is_exposure", domain.OutcomeTimeout, domain.OutcomeTimeout, "partial_settlement_timeout_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.Classify(tt.pos, tt.hedge)
			if got.Reason != tt.wantReason {
				t.Errorf("Classify(%s, %s) reason = %q, want %q", tt.pos, tt.hedge, got.Reason, tt.wantReason)
			}
			if got.Expected() != (tt.wantReason == "") {
				t.Errorf("Classify(%s, %s).Expected() = %v, want %v", tt.pos, tt.hedge, got.Expected(), tt.wantReason == "")
			}
		})
	}
}

// TestClassify_Total asserts the decision table is total and deterministic:
// every (pos, hedge) pair drawn from the terminal-outcome enum yields
// exactly one result, and repeated calls agree.
func TestClassify_Total(t *testing.T) {
	outcomes := []domain.BetOutcome{
		domain.OutcomeWon, domain.OutcomeLost, domain.OutcomeVoid,
		domain.OutcomeHalfWon, domain.OutcomeHalfLost,
		domain.OutcomeTimeout, domain.OutcomeError,
	}

	for _, pos := range outcomes {
		for _, hedge := range outcomes {
			first := reconcile.Classify(pos, hedge)
			second := reconcile.Classify(pos, hedge)
			if first != second {
				t.Fatalf("Classify(%s, %s) is not deterministic: %+v != %+v", pos, hedge, first, second)
			}
		}
	}
}
