package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/service"
)

// feedKeepAlive bounds how long a proxy sees an idle connection.
const feedKeepAlive = 25 * time.Second

// feedEvent is the SSE payload: the acting user's view of one transition.
type feedEvent struct {
	Seq     uint64        `json:"seq"`
	Action  string        `json:"action"`
	ActorID string        `json:"actor_id"`
	Order   orderResponse `json:"order"`
}

// FeedHandler streams order transitions to connected clients over
// server-sent events.
type FeedHandler struct {
	hub *service.Hub
}

// NewFeedHandler creates a FeedHandler fed by the given hub.
func NewFeedHandler(hub *service.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Stream handles GET /v1/feed — a live SSE stream of order transitions
// relevant to the acting user. Dispatchers see their own postings; loaders
// see new available orders plus transitions on their claimed orders.
//
// @Summary      Live order event stream (SSE)
// @Tags         feed
// @Produce      text/event-stream
// @Success      200
// @Failure      401  {object}  errorResponse
// @Router       /v1/feed [get]
func (h *FeedHandler) Stream(c echo.Context) error {
	a := actorFrom(c)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	keepAlive := time.NewTicker(feedKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case <-keepAlive.C:
			if _, err := fmt.Fprint(resp, ": keep-alive\n\n"); err != nil {
				return nil
			}
			resp.Flush()
		case event := <-sub.C:
			if !relevantTo(a, event) {
				continue
			}
			if err := writeSSE(resp, event); err != nil {
				return nil
			}
		}
	}
}

// relevantTo decides whether the actor should see the event. Dispatchers
// follow their own postings. Loaders follow their claimed orders, including
// a claim cancelled from under them (the worker is already detached on the
// event, so the former assignment is checked too), plus everything that
// changes the claimable pool: fresh postings and departures, so the
// available view stays consistent without polling.
func relevantTo(a actor, event domain.OrderEvent) bool {
	switch a.Role {
	case domain.RoleDispatcher:
		return event.Order.DispatcherID == a.ID
	case domain.RoleLoader:
		if event.Order.WorkerID == a.ID || event.Order.FormerWorkerID == a.ID {
			return true
		}
		if event.Order.Status == domain.StatusAvailable {
			return true
		}
		// Pool departures: an order claimed by someone else or withdrawn
		// must leave every loader's available view.
		return event.Action == domain.ActionTaken || event.Action == domain.ActionCancelled
	}
	return false
}

func writeSSE(resp *echo.Response, event domain.OrderEvent) error {
	payload, err := json.Marshal(feedEvent{
		Seq:     event.Seq,
		Action:  event.Action,
		ActorID: event.ActorID,
		Order:   toOrderResponse(&event.Order),
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "id: %d\nevent: %s\ndata: %s\n\n",
		event.Seq, event.Action, payload); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
