package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

func TestUserHandler_Create_Success(t *testing.T) {
	stub := &stubEngine{
		createUserFn: func(_ context.Context, name, role string) (*domain.User, error) {
			if name != "lev" || role != "loader" {
				t.Fatalf("unexpected args: %s %s", name, role)
			}
			return &domain.User{ID: "u1", Name: name, Role: role, CreatedAt: time.Now().UTC()}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(t, http.MethodPost, "/v1/users", `{"name":"lev","role":"loader"}`)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "u1" || resp["role"] != "loader" {
		t.Errorf("unexpected payload: %+v", resp)
	}
}

func TestUserHandler_Create_BadRole(t *testing.T) {
	h := NewUserHandler(&stubEngine{})

	c, _ := newContext(t, http.MethodPost, "/v1/users", `{"name":"lev","role":"admin"}`)

	err := h.Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got: %v", err)
	}
}

func TestUserHandler_Me(t *testing.T) {
	stub := &stubEngine{
		getUserFn: func(_ context.Context, id string) (*domain.User, error) {
			if id != "d1" {
				t.Fatalf("expected acting user d1, got %s", id)
			}
			return &domain.User{ID: id, Name: "dana", Role: "dispatcher"}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(t, http.MethodGet, "/v1/users/me", "")

	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
