package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loaderhub/order-engine/internal/core/ports"
)

// HeaderIdempotencyKey makes order creation safe to retry: posting twice with
// the same key returns the first order instead of creating a duplicate.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler handles the order lifecycle: posting, claiming, completion,
// cancellation, rating and the read views.
type OrderHandler struct {
	engine ports.Engine
}

// NewOrderHandler creates an OrderHandler backed by the given engine.
func NewOrderHandler(engine ports.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

// Create handles POST /v1/orders — posts a new order (dispatcher only).
//
// @Summary      Post a new order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string              false  "Retry-safe creation key"
// @Param        body             body      createOrderRequest  true   "Order to post"
// @Success      201   {object}  createOrderResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/orders [post]
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.engine.CreateOrder(c.Request().Context(), ports.CreateOrderInput{
		DispatcherID:   actorFrom(c).ID,
		Address:        req.Address,
		ScheduledAt:    req.ScheduledAt,
		Cargo:          req.Cargo,
		PricePerHour:   req.PricePerHour,
		EstimatedHours: req.EstimatedHours,
		Comment:        req.Comment,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, createOrderResponse{
		orderResponse:  toOrderDetailResponse(result.Order),
		AlreadyExisted: result.AlreadyExisted,
	})
}

// Get handles GET /v1/orders/:number — returns one order with its history.
//
// @Summary      Get an order by number
// @Tags         orders
// @Produce      json
// @Param        number  path      string  true  "Order number"
// @Success      200     {object}  orderResponse
// @Failure      404     {object}  errorResponse
// @Router       /v1/orders/{number} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	order, err := h.engine.GetOrder(c.Request().Context(), c.Param("number"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderDetailResponse(order))
}

// Available handles GET /v1/orders/available — the loader's pickup feed,
// soonest work first. Supports ?q= substring search over address and cargo.
//
// @Summary      List claimable orders
// @Tags         orders
// @Produce      json
// @Param        q    query     string  false  "Search over address and cargo"
// @Success      200  {object}  orderListResponse
// @Router       /v1/orders/available [get]
func (h *OrderHandler) Available(c echo.Context) error {
	orders, err := h.engine.AvailableOrders(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderListResponse(orders))
}

// Mine handles GET /v1/orders/mine — the loader's claimed orders.
//
// @Summary      List the acting loader's orders
// @Tags         orders
// @Produce      json
// @Param        q    query     string  false  "Search over address and cargo"
// @Success      200  {object}  orderListResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/orders/mine [get]
func (h *OrderHandler) Mine(c echo.Context) error {
	orders, err := h.engine.MyOrders(c.Request().Context(), actorFrom(c).ID, c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderListResponse(orders))
}

// Posted handles GET /v1/orders/posted — the dispatcher's board, split into
// still-available postings and claimed work.
//
// @Summary      List the acting dispatcher's postings
// @Tags         orders
// @Produce      json
// @Success      200  {object}  dispatcherBoardResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/orders/posted [get]
func (h *OrderHandler) Posted(c echo.Context) error {
	board, err := h.engine.DispatcherOrders(c.Request().Context(), actorFrom(c).ID)
	if err != nil {
		return err
	}
	resp := dispatcherBoardResponse{
		Available:  toOrderListResponse(board.Available).Data,
		InProgress: toOrderListResponse(board.InProgress).Data,
	}
	return c.JSON(http.StatusOK, resp)
}

// Take handles POST /v1/orders/:number/take — claims an available order for
// the acting loader. Exactly one of any set of racing claims wins.
//
// @Summary      Claim an order
// @Tags         orders
// @Produce      json
// @Param        number  path      string  true  "Order number"
// @Success      200     {object}  orderResponse
// @Failure      404     {object}  errorResponse
// @Failure      409     {object}  errorResponse
// @Router       /v1/orders/{number}/take [post]
func (h *OrderHandler) Take(c echo.Context) error {
	order, err := h.engine.Take(c.Request().Context(), c.Param("number"), actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderDetailResponse(order))
}

// Start handles POST /v1/orders/:number/start — marks claimed work as begun.
//
// @Summary      Start a claimed order
// @Tags         orders
// @Produce      json
// @Param        number  path      string  true  "Order number"
// @Success      200     {object}  orderResponse
// @Failure      403     {object}  errorResponse
// @Failure      409     {object}  errorResponse
// @Router       /v1/orders/{number}/start [post]
func (h *OrderHandler) Start(c echo.Context) error {
	order, err := h.engine.Start(c.Request().Context(), c.Param("number"), actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderDetailResponse(order))
}

// Complete handles POST /v1/orders/:number/complete — the assigned loader
// marks the work done.
//
// @Summary      Complete an order
// @Tags         orders
// @Produce      json
// @Param        number  path      string  true  "Order number"
// @Success      200     {object}  orderResponse
// @Failure      403     {object}  errorResponse
// @Failure      409     {object}  errorResponse
// @Router       /v1/orders/{number}/complete [post]
func (h *OrderHandler) Complete(c echo.Context) error {
	order, err := h.engine.Complete(c.Request().Context(), c.Param("number"), actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderDetailResponse(order))
}

// Cancel handles POST /v1/orders/:number/cancel — the posting dispatcher or
// the claiming loader withdraws the order.
//
// @Summary      Cancel an order
// @Tags         orders
// @Produce      json
// @Param        number  path      string  true  "Order number"
// @Success      200     {object}  orderResponse
// @Failure      403     {object}  errorResponse
// @Failure      409     {object}  errorResponse
// @Router       /v1/orders/{number}/cancel [post]
func (h *OrderHandler) Cancel(c echo.Context) error {
	order, err := h.engine.Cancel(c.Request().Context(), c.Param("number"), actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderDetailResponse(order))
}

// Rate handles POST /v1/orders/:number/rate — the posting dispatcher scores
// the loader's completed work, once.
//
// @Summary      Rate a completed order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        number  path      string           true  "Order number"
// @Param        body    body      rateOrderRequest true  "Score 1-5"
// @Success      200     {object}  orderResponse
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      409     {object}  errorResponse
// @Router       /v1/orders/{number}/rate [post]
func (h *OrderHandler) Rate(c echo.Context) error {
	var req rateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := h.engine.Rate(c.Request().Context(), c.Param("number"), actorFrom(c).ID, req.Score)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderDetailResponse(order))
}

// History handles GET /v1/history — the actor's finished orders, newest first.
//
// @Summary      List the acting user's completed and cancelled orders
// @Tags         orders
// @Produce      json
// @Success      200  {object}  orderListResponse
// @Router       /v1/history [get]
func (h *OrderHandler) History(c echo.Context) error {
	orders, err := h.engine.History(c.Request().Context(), actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderListResponse(orders))
}

// Stats handles GET /v1/stats — earnings, counts and average rating for the
// acting user.
//
// @Summary      Aggregate stats for the acting user
// @Tags         orders
// @Produce      json
// @Success      200  {object}  statsResponse
// @Router       /v1/stats [get]
func (h *OrderHandler) Stats(c echo.Context) error {
	stats, err := h.engine.Stats(c.Request().Context(), actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatsResponse(stats))
}
