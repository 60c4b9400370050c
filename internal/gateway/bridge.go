package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evetabi/arbengine/internal/domain"
)

// BridgeClient is the production Gateway implementation: an HTTP client for
// the external browser-automation bridge that actually drives the provider
// sites. The bridge owns sessions, login, and page interaction; this client
// only translates its HTTP surface into the Gateway contract and its failure
// modes into the core's error taxonomy.
type BridgeClient struct {
	baseURL     string
	client      *http.Client
	callTimeout time.Duration
}

// NewBridgeClient constructs a BridgeClient against baseURL. callTimeout is
// the per-call soft timeout applied on top of the caller's context.
func NewBridgeClient(baseURL string, callTimeout time.Duration) *BridgeClient {
	return &BridgeClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: callTimeout},
		callTimeout: callTimeout,
	}
}

// placeRequest is the bridge's wire shape for a placement call.
type placeRequest struct {
	BetID      string `json:"betId"`
	Tenant     string `json:"whitelabel"`
	Provider   string `json:"provider"`
	Account    string `json:"accountId"`
	MatchName  string `json:"matchName"`
	MarketType string `json:"marketType"`
	Odds       string `json:"odds"`
	Stake      string `json:"stake"`
}

type placeResponse struct {
	Accepted bool   `json:"accepted"`
	TicketID string `json:"ticketId"`
	Reason   string `json:"reason"`
}

// Place submits a single leg to the bridge. A 2xx response with
// accepted=false, or a 4xx status, means the provider declined the bet
// (domain.ErrProviderRejected); anything else that stops the call from
// completing is a transport failure (domain.ErrProviderTransport).
func (b *BridgeClient) Place(ctx context.Context, leg domain.BetLeg) (PlaceResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	body := placeRequest{
		BetID:      leg.BetID,
		Tenant:     leg.Tenant,
		Provider:   leg.Provider,
		Account:    leg.Account,
		MatchName:  leg.MatchName,
		MarketType: leg.MarketType,
		Odds:       leg.Odds.String(),
		Stake:      leg.Stake.String(),
	}

	var resp placeResponse
	status, err := b.postJSON(ctx, "/api/bridge/place", body, &resp)
	if err != nil {
		return PlaceResult{}, fmt.Errorf("%w: place %s/%s: %v", domain.ErrProviderTransport, leg.Provider, leg.BetID, err)
	}
	if status >= 400 && status < 500 {
		return PlaceResult{}, fmt.Errorf("%w: place %s/%s: http %d", domain.ErrProviderRejected, leg.Provider, leg.BetID, status)
	}
	if status >= 500 {
		return PlaceResult{}, fmt.Errorf("%w: place %s/%s: http %d", domain.ErrProviderTransport, leg.Provider, leg.BetID, status)
	}
	if !resp.Accepted || resp.TicketID == "" {
		return PlaceResult{}, fmt.Errorf("%w: place %s/%s: %s", domain.ErrProviderRejected, leg.Provider, leg.BetID, resp.Reason)
	}
	return PlaceResult{TicketID: resp.TicketID}, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// PollStatus asks the bridge for a ticket's current settlement status. The
// bridge reports provider-native status strings matching the BetOutcome
// enum; anything it doesn't recognise comes back as "pending" so the watcher
// keeps polling instead of mis-classifying.
func (b *BridgeClient) PollStatus(ctx context.Context, provider, ticketID, account string) (domain.SettlementStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("provider", provider)
	q.Set("ticketId", ticketID)
	q.Set("accountId", account)

	var resp statusResponse
	status, err := b.getJSON(ctx, "/api/bridge/status?"+q.Encode(), &resp)
	if err != nil {
		return domain.SettlementStatus{}, fmt.Errorf("%w: poll %s/%s: %v", domain.ErrProviderTransport, provider, ticketID, err)
	}
	if status >= 300 {
		return domain.SettlementStatus{}, fmt.Errorf("%w: poll %s/%s: http %d", domain.ErrProviderTransport, provider, ticketID, status)
	}

	outcome := domain.BetOutcome(resp.Status)
	switch outcome {
	case domain.OutcomePending, domain.OutcomeWon, domain.OutcomeLost, domain.OutcomeVoid,
		domain.OutcomeHalfWon, domain.OutcomeHalfLost:
	default:
		outcome = domain.OutcomePending
	}

	return domain.SettlementStatus{
		Provider: provider,
		TicketID: ticketID,
		Outcome:  outcome,
		PolledAt: time.Now(),
	}, nil
}

type sessionResponse struct {
	Ready bool `json:"ready"`
}

// SessionReady asks the bridge's session registry whether the account has a
// usable authenticated session.
func (b *BridgeClient) SessionReady(ctx context.Context, tenant, provider, account string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("whitelabel", tenant)
	q.Set("provider", provider)
	q.Set("accountId", account)

	var resp sessionResponse
	status, err := b.getJSON(ctx, "/api/bridge/session?"+q.Encode(), &resp)
	if err != nil {
		return false, fmt.Errorf("%w: session %s/%s: %v", domain.ErrProviderTransport, provider, account, err)
	}
	if status >= 300 {
		return false, nil
	}
	return resp.Ready, nil
}

func (b *BridgeClient) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func (b *BridgeClient) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	return b.do(req, out)
}

func (b *BridgeClient) do(req *http.Request, out any) (int, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 300 && out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

var _ Gateway = (*BridgeClient)(nil)
