package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
	"github.com/loaderhub/order-engine/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Harness: an engine on the in-memory backend with a running hub.
// ---------------------------------------------------------------------------

type testEngine struct {
	*Engine
	hub    *Hub
	audit  *memory.EventRepository
	orders *memory.OrderRepository
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	audit := memory.NewEventRepository()
	orders := memory.NewOrderRepository()
	engine := NewEngine(orders, memory.NewUserRepository(), hub, Options{
		Idempotency: memory.NewIdempotencyStore(),
		Audit:       audit,
	}, zerolog.Nop())

	return &testEngine{Engine: engine, hub: hub, audit: audit, orders: orders}
}

func (te *testEngine) user(t *testing.T, name, role string) *domain.User {
	t.Helper()
	u, err := te.CreateUser(context.Background(), name, role)
	if err != nil {
		t.Fatalf("creating %s %s: %v", role, name, err)
	}
	return u
}

func orderInput(dispatcherID string) ports.CreateOrderInput {
	return ports.CreateOrderInput{
		DispatcherID:   dispatcherID,
		Address:        "12 Dock Street, Warehouse 4",
		ScheduledAt:    time.Now().Add(2 * time.Hour),
		Cargo:          "pallets of tiles, 800kg",
		PricePerHour:   decimal.RequireFromString("150.00"),
		EstimatedHours: 3,
		Comment:        "use the rear entrance",
	}
}

// ---------------------------------------------------------------------------
// CreateUser
// ---------------------------------------------------------------------------

func TestCreateUser_BlankName(t *testing.T) {
	te := newTestEngine(t)
	if _, err := te.CreateUser(context.Background(), "   ", domain.RoleLoader); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}

func TestCreateUser_UnknownRole(t *testing.T) {
	te := newTestEngine(t)
	if _, err := te.CreateUser(context.Background(), "bob", "admin"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}

func TestCreateUser_RoundTrip(t *testing.T) {
	te := newTestEngine(t)
	created := te.user(t, "bob", domain.RoleLoader)

	got, err := te.GetUser(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "bob" || got.Role != domain.RoleLoader {
		t.Errorf("unexpected user: %+v", got)
	}
}

// ---------------------------------------------------------------------------
// CreateOrder
// ---------------------------------------------------------------------------

func TestCreateOrder_HappyPath(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)

	result, err := te.CreateOrder(context.Background(), orderInput(dispatcher.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := result.Order
	if !strings.HasPrefix(o.Number, "ORD-") {
		t.Errorf("unexpected order number: %s", o.Number)
	}
	if o.Status != domain.StatusAvailable {
		t.Errorf("expected available, got %s", o.Status)
	}
	if o.DispatcherName != "dana" {
		t.Errorf("dispatcher name not denormalized: %q", o.DispatcherName)
	}
	if len(o.StatusHistory) != 1 || o.StatusHistory[0].Status != domain.StatusAvailable {
		t.Errorf("expected one available history entry, got %+v", o.StatusHistory)
	}
	if !o.TotalPrice().Equal(decimal.RequireFromString("450")) {
		t.Errorf("expected total 450, got %s", o.TotalPrice())
	}
	if len(te.audit.ByOrder(o.Number)) != 1 {
		t.Error("expected one audit event for creation")
	}
}

func TestCreateOrder_LoaderForbidden(t *testing.T) {
	te := newTestEngine(t)
	loader := te.user(t, "lev", domain.RoleLoader)

	if _, err := te.CreateOrder(context.Background(), orderInput(loader.ID)); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got: %v", err)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)

	cases := []struct {
		name   string
		mutate func(*ports.CreateOrderInput)
	}{
		{"blank address", func(in *ports.CreateOrderInput) { in.Address = "  " }},
		{"blank cargo", func(in *ports.CreateOrderInput) { in.Cargo = "" }},
		{"zero price", func(in *ports.CreateOrderInput) { in.PricePerHour = decimal.Zero }},
		{"negative price", func(in *ports.CreateOrderInput) { in.PricePerHour = decimal.NewFromInt(-10) }},
		{"zero hours", func(in *ports.CreateOrderInput) { in.EstimatedHours = 0 }},
		{"no schedule", func(in *ports.CreateOrderInput) { in.ScheduledAt = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := orderInput(dispatcher.ID)
			tc.mutate(&in)
			if _, err := te.CreateOrder(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)

	in := orderInput(dispatcher.ID)
	in.IdempotencyKey = "retry-abc-123"

	first, err := te.CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.AlreadyExisted {
		t.Error("first create should not be a replay")
	}

	second, err := te.CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !second.AlreadyExisted {
		t.Error("second create should be a replay")
	}
	if second.Order.Number != first.Order.Number {
		t.Errorf("replay returned a different order: %s vs %s", second.Order.Number, first.Order.Number)
	}

	// A different key creates a fresh order.
	in.IdempotencyKey = "retry-def-456"
	third, err := te.CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("third create: %v", err)
	}
	if third.Order.Number == first.Order.Number {
		t.Error("distinct keys must create distinct orders")
	}
}

func TestCreateOrder_TrimsFields(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)

	in := orderInput(dispatcher.ID)
	in.Address = "  12 Dock Street  "
	in.Cargo = " pallets "

	result, err := te.CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.Address != "12 Dock Street" || result.Order.Cargo != "pallets" {
		t.Errorf("fields not trimmed: %q / %q", result.Order.Address, result.Order.Cargo)
	}
}

func TestCreateOrder_PostingEventPrecedesRacingClaim(t *testing.T) {
	te := newTestEngine(t)
	dispatcher := te.user(t, "dana", domain.RoleDispatcher)
	loader := te.user(t, "lev", domain.RoleLoader)

	sub := te.hub.Subscribe()
	defer te.hub.Unsubscribe(sub)

	// Claim the posting the instant it becomes visible.
	claimed := make(chan struct{})
	go func() {
		defer close(claimed)
		for {
			available, err := te.AvailableOrders(context.Background(), "")
			if err != nil || len(available) == 0 {
				continue
			}
			if _, err := te.Take(context.Background(), available[0].Number, loader.ID); err == nil {
				return
			}
		}
	}()

	if _, err := te.CreateOrder(context.Background(), orderInput(dispatcher.ID)); err != nil {
		t.Fatalf("create: %v", err)
	}
	<-claimed

	first := receiveEvent(t, sub)
	second := receiveEvent(t, sub)
	if first.Action != domain.ActionCreated || second.Action != domain.ActionTaken {
		t.Fatalf("expected created then taken, got %s then %s", first.Action, second.Action)
	}
	if first.Seq >= second.Seq {
		t.Errorf("posting event must carry the lower sequence: %d vs %d", first.Seq, second.Seq)
	}
}
