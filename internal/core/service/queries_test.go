package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

func postOrderAt(t *testing.T, te *testEngine, dispatcherID, address, cargo string, scheduledAt time.Time) *domain.Order {
	t.Helper()
	result, err := te.CreateOrder(context.Background(), ports.CreateOrderInput{
		DispatcherID:   dispatcherID,
		Address:        address,
		ScheduledAt:    scheduledAt,
		Cargo:          cargo,
		PricePerHour:   decimal.NewFromInt(100),
		EstimatedHours: 2,
	})
	if err != nil {
		t.Fatalf("posting order: %v", err)
	}
	return result.Order
}

func TestAvailableOrders_SortedBySchedule(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)

	base := time.Now().Add(time.Hour)
	late := postOrderAt(t, te, dispatcher.ID, "far pier", "bricks", base.Add(4*time.Hour))
	early := postOrderAt(t, te, dispatcher.ID, "near pier", "sand", base)
	mid := postOrderAt(t, te, dispatcher.ID, "mid pier", "gravel", base.Add(2*time.Hour))

	orders, err := te.AvailableOrders(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	want := []string{early.Number, mid.Number, late.Number}
	for i, o := range orders {
		if o.Number != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], o.Number)
		}
	}
}

func TestAvailableOrders_SearchMatchesAddressAndCargo(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)

	when := time.Now().Add(time.Hour)
	postOrderAt(t, te, dispatcher.ID, "12 Dock Street", "pallets of tiles", when)
	postOrderAt(t, te, dispatcher.ID, "7 Harbour Road", "bags of cement", when)

	byAddress, err := te.AvailableOrders(context.Background(), "dock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byAddress) != 1 || byAddress[0].Address != "12 Dock Street" {
		t.Errorf("address search failed: %+v", byAddress)
	}

	byCargo, err := te.AvailableOrders(context.Background(), "CEMENT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byCargo) != 1 || byCargo[0].Cargo != "bags of cement" {
		t.Errorf("cargo search should be case-insensitive: %+v", byCargo)
	}

	none, err := te.AvailableOrders(context.Background(), "piano")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %d", len(none))
	}
}

func TestAvailableOrders_ExcludesClaimed(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)
	loader := te.user(t, "lev", domain.RoleLoader)

	when := time.Now().Add(time.Hour)
	claimed := postOrderAt(t, te, dispatcher.ID, "a", "x", when)
	open := postOrderAt(t, te, dispatcher.ID, "b", "y", when)

	if _, err := te.Take(context.Background(), claimed.Number, loader.ID); err != nil {
		t.Fatalf("take: %v", err)
	}

	orders, err := te.AvailableOrders(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].Number != open.Number {
		t.Errorf("expected only the open order, got %+v", orders)
	}
}

func TestMyOrders_OnlyOwnClaims(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)
	lev := te.user(t, "lev", domain.RoleLoader)
	mira := te.user(t, "mira", domain.RoleLoader)

	when := time.Now().Add(time.Hour)
	mine := postOrderAt(t, te, dispatcher.ID, "a", "x", when)
	theirs := postOrderAt(t, te, dispatcher.ID, "b", "y", when)

	if _, err := te.Take(context.Background(), mine.Number, lev.ID); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := te.Take(context.Background(), theirs.Number, mira.ID); err != nil {
		t.Fatalf("take: %v", err)
	}

	orders, err := te.MyOrders(context.Background(), lev.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].Number != mine.Number {
		t.Errorf("expected only lev's claim, got %+v", orders)
	}
}

func TestMyOrders_DispatcherForbidden(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)

	if _, err := te.MyOrders(context.Background(), dispatcher.ID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got: %v", err)
	}
}

func TestDispatcherOrders_PartitionsBoard(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)
	other := te.user(t, "omar", domain.RoleDispatcher)
	loader := te.user(t, "lev", domain.RoleLoader)

	when := time.Now().Add(time.Hour)
	open := postOrderAt(t, te, dispatcher.ID, "a", "x", when)
	claimed := postOrderAt(t, te, dispatcher.ID, "b", "y", when)
	postOrderAt(t, te, other.ID, "c", "z", when) // someone else's posting

	if _, err := te.Take(context.Background(), claimed.Number, loader.ID); err != nil {
		t.Fatalf("take: %v", err)
	}

	board, err := te.DispatcherOrders(context.Background(), dispatcher.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(board.Available) != 1 || board.Available[0].Number != open.Number {
		t.Errorf("unexpected available pool: %+v", board.Available)
	}
	if len(board.InProgress) != 1 || board.InProgress[0].Number != claimed.Number {
		t.Errorf("unexpected in-progress pool: %+v", board.InProgress)
	}
}

func TestHistory_TerminalOrdersOnly(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)
	loader := te.user(t, "lev", domain.RoleLoader)

	when := time.Now().Add(time.Hour)
	completed := postOrderAt(t, te, dispatcher.ID, "a", "x", when)
	cancelled := postOrderAt(t, te, dispatcher.ID, "b", "y", when)
	postOrderAt(t, te, dispatcher.ID, "c", "z", when) // still available

	if _, err := te.Take(context.Background(), completed.Number, loader.ID); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := te.Complete(context.Background(), completed.Number, loader.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := te.Cancel(context.Background(), cancelled.Number, dispatcher.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	history, err := te.History(context.Background(), dispatcher.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 terminal orders, got %d", len(history))
	}
	for _, o := range history {
		if !o.Status.Terminal() {
			t.Errorf("non-terminal order %s (%s) in history", o.Number, o.Status)
		}
	}

	// The worker's view holds only the claim they completed; the
	// cancelled posting never belonged to them.
	workerHistory, err := te.History(context.Background(), loader.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workerHistory) != 1 || workerHistory[0].Number != completed.Number {
		t.Errorf("unexpected worker history: %+v", workerHistory)
	}
}

func TestHistory_WorkerKeepsCancelledClaims(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)
	loader := te.user(t, "lev", domain.RoleLoader)

	when := time.Now().Add(time.Hour)
	abandoned := postOrderAt(t, te, dispatcher.ID, "a", "x", when)
	withdrawn := postOrderAt(t, te, dispatcher.ID, "b", "y", when)

	// One claim cancelled by the worker, one by the dispatcher; the
	// worker was detached from both but the claims remain theirs.
	if _, err := te.Take(context.Background(), abandoned.Number, loader.ID); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := te.Cancel(context.Background(), abandoned.Number, loader.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := te.Take(context.Background(), withdrawn.Number, loader.ID); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := te.Cancel(context.Background(), withdrawn.Number, dispatcher.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	history, err := te.History(context.Background(), loader.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected both cancelled claims, got %d", len(history))
	}
	seen := map[string]bool{}
	for _, o := range history {
		seen[o.Number] = true
		if o.Status != domain.StatusCancelled {
			t.Errorf("order %s: expected cancelled, got %s", o.Number, o.Status)
		}
		if o.FormerWorkerID != loader.ID {
			t.Errorf("order %s: expected former worker %s, got %q", o.Number, loader.ID, o.FormerWorkerID)
		}
	}
	if !seen[abandoned.Number] || !seen[withdrawn.Number] {
		t.Errorf("history missing a cancelled claim: %+v", seen)
	}
}
