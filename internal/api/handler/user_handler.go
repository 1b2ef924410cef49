package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loaderhub/order-engine/internal/core/ports"
)

// UserHandler handles user registration and lookup.
type UserHandler struct {
	engine ports.Engine
}

// NewUserHandler creates a UserHandler backed by the given engine.
func NewUserHandler(engine ports.Engine) *UserHandler {
	return &UserHandler{engine: engine}
}

// Create handles POST /v1/users — registers a dispatcher or loader.
//
// @Summary      Register a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "User to register"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.engine.CreateUser(c.Request().Context(), req.Name, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Get handles GET /v1/users/:id — looks up a user by id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.engine.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Me handles GET /v1/users/me — returns the acting user's own record.
//
// @Summary      Get the acting user
// @Tags         users
// @Produce      json
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.engine.GetUser(c.Request().Context(), actorFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}
