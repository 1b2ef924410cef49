package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

func runningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receiveEvent(t *testing.T, sub *Subscription) domain.OrderEvent {
	t.Helper()
	select {
	case event := <-sub.C:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.OrderEvent{}
	}
}

func TestHub_DeliversInPublishOrder(t *testing.T) {
	hub := runningHub(t)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	order := &domain.Order{Number: "ORD-00000001"}
	hub.Publish(domain.ActionCreated, order, "d1")
	hub.Publish(domain.ActionTaken, order, "w1")
	hub.Publish(domain.ActionCompleted, order, "w1")

	var lastSeq uint64
	for _, want := range []string{domain.ActionCreated, domain.ActionTaken, domain.ActionCompleted} {
		event := receiveEvent(t, sub)
		if event.Action != want {
			t.Errorf("expected %s, got %s", want, event.Action)
		}
		if event.Seq <= lastSeq {
			t.Errorf("sequence must be strictly increasing: %d after %d", event.Seq, lastSeq)
		}
		lastSeq = event.Seq
	}
}

func TestHub_FansOutToAllSubscribers(t *testing.T) {
	hub := runningHub(t)
	first := hub.Subscribe()
	defer hub.Unsubscribe(first)
	second := hub.Subscribe()
	defer hub.Unsubscribe(second)

	hub.Publish(domain.ActionCreated, &domain.Order{Number: "ORD-00000002"}, "d1")

	for _, sub := range []*Subscription{first, second} {
		event := receiveEvent(t, sub)
		if event.Order.Number != "ORD-00000002" {
			t.Errorf("unexpected order in event: %s", event.Order.Number)
		}
	}
}

func TestHub_PublishSnapshotsOrder(t *testing.T) {
	hub := runningHub(t)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	order := &domain.Order{Number: "ORD-00000003", Status: domain.StatusAvailable}
	hub.Publish(domain.ActionCreated, order, "d1")
	order.Status = domain.StatusCancelled // mutate after publish

	event := receiveEvent(t, sub)
	if event.Order.Status != domain.StatusAvailable {
		t.Errorf("event must carry a detached snapshot, got status %s", event.Order.Status)
	}
}

func TestHub_UnsubscribeSignalsDone(t *testing.T) {
	hub := runningHub(t)
	sub := hub.Subscribe()

	hub.Unsubscribe(sub)
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not signalled after unsubscribe")
	}

	// Unsubscribing twice is harmless.
	hub.Unsubscribe(sub)

	// A detached subscriber no longer blocks delivery, even with a full buffer.
	active := hub.Subscribe()
	defer hub.Unsubscribe(active)
	for i := 0; i < subscriberBuffer+8; i++ {
		hub.Publish(domain.ActionCreated, &domain.Order{Number: "ORD-00000004"}, "d1")
	}
	receiveEvent(t, active)
}
