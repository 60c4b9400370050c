package execution_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evetabi/arbengine/internal/cooldown"
	"github.com/evetabi/arbengine/internal/domain"
	"github.com/evetabi/arbengine/internal/execution"
	"github.com/evetabi/arbengine/internal/exposure"
	"github.com/evetabi/arbengine/internal/gateway"
	"github.com/evetabi/arbengine/internal/kvstore"
	"github.com/evetabi/arbengine/internal/reporter"
	"github.com/evetabi/arbengine/internal/settlement"
)

// scriptedGateway is a minimal gateway.Gateway fake whose behavior per leg
// role is set up by the test, and which counts every Place call to support
// the concurrent-idempotency test.
type scriptedGateway struct {
	rejectPositive bool
	rejectHedge    bool
	sessionReady   bool

	placeCount int32
}

func (g *scriptedGateway) Place(ctx context.Context, leg domain.BetLeg) (gateway.PlaceResult, error) {
	atomic.AddInt32(&g.placeCount, 1)
	if leg.Role == domain.LegPositive && g.rejectPositive {
		return gateway.PlaceResult{}, domain.ErrProviderRejected
	}
	if leg.Role == domain.LegHedge && g.rejectHedge {
		return gateway.PlaceResult{}, domain.ErrProviderRejected
	}
	return gateway.PlaceResult{TicketID: "T_" + string(leg.Role)}, nil
}

func (g *scriptedGateway) PollStatus(ctx context.Context, provider, ticketID, account string) (domain.SettlementStatus, error) {
	// Resolve immediately so tests don't block on the background watcher.
	outcome := domain.OutcomeWon
	if ticketID == "T_hedge" {
		outcome = domain.OutcomeLost
	}
	return domain.SettlementStatus{Provider: provider, TicketID: ticketID, Outcome: outcome}, nil
}

func (g *scriptedGateway) SessionReady(ctx context.Context, tenant, provider, account string) (bool, error) {
	return g.sessionReady, nil
}

// captureSink records every emitted event for sequence assertions. Guarded
// because concurrent Execute calls on one coordinator emit into the same
// sink.
type captureSink struct {
	mu     sync.Mutex
	events []reporter.Event
}

func (s *captureSink) Emit(e reporter.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) kinds() []reporter.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reporter.Kind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func (s *captureSink) at(i int) reporter.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[i]
}

func newCoordinator(gw gateway.Gateway) (*execution.Coordinator, *kvstore.MemoryStore, *exposure.Recorder) {
	c, store, rec, _ := newCoordinatorWithSink(gw)
	return c, store, rec
}

func newCoordinatorWithSink(gw gateway.Gateway) (*execution.Coordinator, *kvstore.MemoryStore, *exposure.Recorder, *captureSink) {
	store := kvstore.NewMemoryStore()
	sink := &captureSink{}
	cd := cooldown.New(store, nil)
	rec := exposure.New(store, reporter.NoopSink{}, 10, nil)
	w := settlement.New(gw, rec, reporter.NoopSink{}, time.Millisecond, 5, nil)
	c := execution.New(store, gw, cd, w, sink, nil)
	return c, store, rec, sink
}

func sampleRequest(arbID string) domain.PairRequest {
	return domain.PairRequest{
		ArbID:  arbID,
		Tenant: "wl",
		Positive: domain.BetLeg{
			Role: domain.LegPositive, BetID: "B1", Tenant: "wl", Provider: "P1", Account: "A1",
		},
		Hedge: domain.BetLeg{
			Role: domain.LegHedge, BetID: "B2", Tenant: "wl", Provider: "P2", Account: "A2",
		},
		CreatedAt: time.Now(),
	}
}

func TestCoordinator_SuccessPathPlacesBothLegsAndAcquiresCooldown(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true}
	c, store, _ := newCoordinator(gw)

	req := sampleRequest("ARB_SUCCESS")
	c.Execute(context.Background(), req)

	reloaded := cooldown.New(store, nil)
	if err := reloaded.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	active, _ := reloaded.Check("wl", "P1", "A1", time.Now())
	if !active {
		t.Error("expected cooldown acquired on the positive leg's account after success")
	}
	if atomic.LoadInt32(&gw.placeCount) != 2 {
		t.Errorf("placeCount = %d, want 2 (both legs placed)", gw.placeCount)
	}
}

func TestCoordinator_PositiveRejectedNeverPlacesHedge(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true, rejectPositive: true}
	c, store, _ := newCoordinator(gw)

	req := sampleRequest("ARB_POS_REJECTED")
	c.Execute(context.Background(), req)

	if atomic.LoadInt32(&gw.placeCount) != 1 {
		t.Fatalf("placeCount = %d, want exactly 1 (hedge must never be placed)", gw.placeCount)
	}
	reloaded := cooldown.New(store, nil)
	if err := reloaded.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if active, _ := reloaded.Check("wl", "P1", "A1", time.Now()); active {
		t.Error("a rejected positive leg must not acquire a cooldown")
	}
}

func TestCoordinator_HedgeRejectedStillAcquiresCooldown(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true, rejectHedge: true}
	c, store, _ := newCoordinator(gw)

	req := sampleRequest("ARB_HEDGE_REJECTED")
	c.Execute(context.Background(), req)

	if atomic.LoadInt32(&gw.placeCount) != 2 {
		t.Fatalf("placeCount = %d, want 2 (both attempted)", gw.placeCount)
	}
	reloaded := cooldown.New(store, nil)
	if err := reloaded.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if active, _ := reloaded.Check("wl", "P1", "A1", time.Now()); !active {
		t.Error("a rejected hedge must still acquire the positive account's cooldown")
	}
}

func TestCoordinator_SessionNotReadyBlocksBeforeAnyPlace(t *testing.T) {
	gw := &scriptedGateway{sessionReady: false}
	c, _, _ := newCoordinator(gw)

	c.Execute(context.Background(), sampleRequest("ARB_NOT_READY"))

	if atomic.LoadInt32(&gw.placeCount) != 0 {
		t.Errorf("placeCount = %d, want 0 (session not ready must block before placement)", gw.placeCount)
	}
}

func TestCoordinator_CooldownBlocksExecution(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true}
	c, _, _ := newCoordinator(gw)

	first := sampleRequest("ARB_FIRST")
	c.Execute(context.Background(), first)
	if n := atomic.LoadInt32(&gw.placeCount); n != 2 {
		t.Fatalf("first request placeCount = %d, want 2", n)
	}

	second := sampleRequest("ARB_SECOND")
	c.Execute(context.Background(), second)
	if n := atomic.LoadInt32(&gw.placeCount); n != 2 {
		t.Errorf("second request on a cooling-down account placeCount = %d, want still 2 (blocked)", n)
	}
}

func TestCoordinator_SuccessEventSequence(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true}
	c, _, _, sink := newCoordinatorWithSink(gw)

	c.Execute(context.Background(), sampleRequest("ARB_EVENTS"))

	kinds := sink.kinds()
	want := []reporter.Kind{reporter.KindBetExecuted, reporter.KindBetExecuted, reporter.KindArbSuccess}
	if len(kinds) < len(want) {
		t.Fatalf("kinds = %v, want prefix %v", kinds, want)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("kinds = %v, want prefix %v", kinds, want)
		}
	}

	success := sink.at(2)
	if success.Data["cooldownKey"] != "cooldown:wl:P1:A1" {
		t.Errorf("arb_success cooldownKey = %v", success.Data["cooldownKey"])
	}
	if _, ok := success.Data["cooldownUntil"]; !ok {
		t.Error("arb_success must carry cooldownUntil")
	}
}

func TestCoordinator_PositiveRejectedEventSequence(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true, rejectPositive: true}
	c, _, _, sink := newCoordinatorWithSink(gw)

	c.Execute(context.Background(), sampleRequest("ARB_POS_EVENTS"))

	kinds := sink.kinds()
	want := []reporter.Kind{reporter.KindBetFailed, reporter.KindArbFailed}
	if len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}

	failed := sink.at(1)
	if failed.Data["reason"] != "positive_bet_rejected" {
		t.Errorf("reason = %v", failed.Data["reason"])
	}
	if failed.Data["hedgeBetStatus"] != "cancelled" {
		t.Errorf("hedgeBetStatus = %v", failed.Data["hedgeBetStatus"])
	}
}

func TestCoordinator_HedgeRejectedEmitsEmergency(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true, rejectHedge: true}
	c, _, _, sink := newCoordinatorWithSink(gw)

	c.Execute(context.Background(), sampleRequest("ARB_HEDGE_EVENTS"))

	kinds := sink.kinds()
	want := []reporter.Kind{reporter.KindBetExecuted, reporter.KindBetFailed, reporter.KindArbEmergency}
	if len(kinds) != 3 || kinds[0] != want[0] || kinds[1] != want[1] || kinds[2] != want[2] {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}

	emergency := sink.at(2)
	if emergency.Data["severity"] != "critical" {
		t.Errorf("severity = %v", emergency.Data["severity"])
	}
	if emergency.Data["actionRequired"] != "manual_hedge" {
		t.Errorf("actionRequired = %v", emergency.Data["actionRequired"])
	}
}

func TestCoordinator_CooldownBlockReportsRemainingSeconds(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true}
	store := kvstore.NewMemoryStore()
	sink := &captureSink{}
	cd := cooldown.New(store, nil)
	rec := exposure.New(store, reporter.NoopSink{}, 10, nil)
	w := settlement.New(gw, rec, reporter.NoopSink{}, time.Millisecond, 5, nil)
	c := execution.New(store, gw, cd, w, sink, nil)

	// Pre-seed a cooldown acquired 10s ago, leaving ~50s on the clock.
	cd.Acquire(context.Background(), "wl", "P1", "A1", time.Now().Add(-10*time.Second))

	c.Execute(context.Background(), sampleRequest("ARB_COOLED"))

	if n := atomic.LoadInt32(&gw.placeCount); n != 0 {
		t.Fatalf("placeCount = %d, want 0 (no placement during cooldown)", n)
	}

	kinds := sink.kinds()
	if len(kinds) != 1 || kinds[0] != reporter.KindArbBlocked {
		t.Fatalf("kinds = %v, want [arb_blocked]", kinds)
	}
	blocked := sink.at(0)
	if blocked.Data["reason"] != "cooldown" {
		t.Errorf("reason = %v", blocked.Data["reason"])
	}
	remaining, ok := blocked.Data["remainingSeconds"].(float64)
	if !ok || remaining < 45 || remaining > 55 {
		t.Errorf("remainingSeconds = %v, want ~50", blocked.Data["remainingSeconds"])
	}
}

// TestCoordinator_ConcurrentSameArbIDExecutesAtMostOnce exercises the
// idempotency claim under a goroutine race: many workers submit the same
// arb_id, exactly one may place.
func TestCoordinator_ConcurrentSameArbIDExecutesAtMostOnce(t *testing.T) {
	gw := &scriptedGateway{sessionReady: true}
	c, _, _ := newCoordinator(gw)

	const races = 20
	var wg sync.WaitGroup
	wg.Add(races)
	for i := 0; i < races; i++ {
		go func() {
			defer wg.Done()
			c.Execute(context.Background(), sampleRequest("ARB_RACE"))
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&gw.placeCount); n != 2 {
		t.Errorf("placeCount across %d concurrent Executes on the same arb_id = %d, want exactly 2 (one winner places both legs)", races, n)
	}
}
