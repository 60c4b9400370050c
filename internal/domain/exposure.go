package domain

import "time"

// ExposureRecord is persisted whenever a reconciled pair's joint outcome
// deviates from the arbitrage invariant. Both flags are always true and are
// reported to downstream consumers; the engine itself does not block later
// placements on the affected tenant/provider/account because of an
// exposure. Recording an exposure never calls back into the execution
// coordinator.
type ExposureRecord struct {
	ArbID     string `json:"arb_id"`
	Tenant    string `json:"tenant"`
	BetPairID string `json:"bet_pair_id"`

	PositiveProvider string `json:"positive_provider"`
	HedgeProvider    string `json:"hedge_provider"`
	PositiveTicketID string `json:"positive_ticket_id"`
	HedgeTicketID    string `json:"hedge_ticket_id"`

	PositiveStatus BetOutcome `json:"positive_status"`
	HedgeStatus    BetOutcome `json:"hedge_status"`

	ExposureReason string `json:"exposure_reason"`

	ExpectedOutcome string `json:"expected_outcome"`
	ActualOutcome   string `json:"actual_outcome"`

	RequiresManualReview bool `json:"requires_manual_review"`
	AutoRebetDisabled    bool `json:"auto_rebet_disabled"`

	DetectedAt time.Time `json:"detected_at"`
}

// Key returns the durable store key this record is persisted under:
// exposure:<tenant>:<positive_provider>:<bet_pair_id>.
func (e ExposureRecord) Key() string {
	return "exposure:" + e.Tenant + ":" + e.PositiveProvider + ":" + e.BetPairID
}

// NewExposureRecord builds an ExposureRecord from a reconciled pair carrying
// a non-empty ExposureReason, always setting both severity flags true.
func NewExposureRecord(p PairRecord, now time.Time) ExposureRecord {
	return ExposureRecord{
		ArbID:                p.ArbID,
		Tenant:               p.Tenant,
		BetPairID:            p.BetPairID(),
		PositiveProvider:     p.Positive.Provider,
		HedgeProvider:        p.Hedge.Provider,
		PositiveTicketID:     p.Positive.TicketID,
		HedgeTicketID:        p.Hedge.TicketID,
		PositiveStatus:       p.PositiveOutcome,
		HedgeStatus:          p.HedgeOutcome,
		ExposureReason:       p.ExposureReason,
		ExpectedOutcome:      "arb_profit",
		ActualOutcome:        string(p.PositiveOutcome) + "_" + string(p.HedgeOutcome),
		RequiresManualReview: true,
		AutoRebetDisabled:    true,
		DetectedAt:           now,
	}
}
