package queue_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/evetabi/arbengine/internal/domain"
	"github.com/evetabi/arbengine/internal/queue"
)

const trialPayload = `{
	"arbId": "ARB_TRIAL_1_1",
	"whitelabel": "test_wl",
	"provider": "test_provider",
	"positiveBet": {
		"betId": "BET_POS_1", "accountId": "ACC_001",
		"matchName": "Team A vs Team B", "marketType": "FT_HDP",
		"odds": 2.10, "stake": 100
	},
	"hedgeBet": {
		"betId": "BET_HEDGE_1", "accountId": "ACC_002",
		"matchName": "Team A vs Team B", "marketType": "FT_HDP",
		"odds": 1.95, "stake": 105
	}
}`

func TestDecode_SingleProviderFixtureDefaultsHedgeProvider(t *testing.T) {
	req, err := queue.Decode([]byte(trialPayload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if req.ArbID != "ARB_TRIAL_1_1" || req.Tenant != "test_wl" {
		t.Errorf("req = %+v", req)
	}
	if req.Positive.Provider != "test_provider" {
		t.Errorf("Positive.Provider = %q, want test_provider", req.Positive.Provider)
	}
	if req.Hedge.Provider != "test_provider" {
		t.Errorf("Hedge.Provider = %q, want the top-level provider as fallback", req.Hedge.Provider)
	}
	if req.Positive.Account != "ACC_001" || req.Hedge.Account != "ACC_002" {
		t.Errorf("accounts = %q / %q", req.Positive.Account, req.Hedge.Account)
	}
	if !req.Positive.Odds.Equal(decimal.NewFromFloat(2.10)) {
		t.Errorf("Positive.Odds = %s, want 2.10", req.Positive.Odds)
	}
	if req.Positive.Role != domain.LegPositive || req.Hedge.Role != domain.LegHedge {
		t.Errorf("roles = %q / %q", req.Positive.Role, req.Hedge.Role)
	}
}

func TestDecode_ExplicitHedgeProviderOverridesFallback(t *testing.T) {
	payload := `{
		"arbId": "ARB_TWO_PROVIDER",
		"whitelabel": "wl",
		"provider": "P1",
		"hedgeProvider": "P2",
		"positiveBet": {"betId": "B1", "accountId": "A1", "matchName": "M", "marketType": "FT", "odds": 2.0, "stake": 10},
		"hedgeBet": {"betId": "B2", "accountId": "A2", "matchName": "M", "marketType": "FT", "odds": 1.9, "stake": 11}
	}`

	req, err := queue.Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req.Positive.Provider != "P1" || req.Hedge.Provider != "P2" {
		t.Errorf("providers = %q / %q, want P1 / P2", req.Positive.Provider, req.Hedge.Provider)
	}
}

func TestDecode_MissingArbIDIsRejected(t *testing.T) {
	_, err := queue.Decode([]byte(`{"whitelabel":"wl","provider":"P1","positiveBet":{},"hedgeBet":{}}`))
	if err == nil {
		t.Fatal("expected an error for a payload missing arbId")
	}
}

func TestDecode_DuplicateBetIDAcrossLegsIsRejected(t *testing.T) {
	payload := `{
		"arbId": "ARB_DUP",
		"whitelabel": "wl",
		"provider": "P1",
		"positiveBet": {"betId": "SAME", "accountId": "A1", "odds": 2.0, "stake": 10},
		"hedgeBet": {"betId": "SAME", "accountId": "A2", "odds": 1.9, "stake": 11}
	}`
	_, err := queue.Decode([]byte(payload))
	if err == nil {
		t.Fatal("expected an error when both legs share a bet_id")
	}
}
