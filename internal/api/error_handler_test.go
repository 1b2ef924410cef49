package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

func TestHTTPErrorHandler_DomainErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("address: %w", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrOrderNotFound, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrOrderNotAvailable, http.StatusConflict},
		{fmt.Errorf("take ORD-1: %w", domain.ErrOrderNotAvailable), http.StatusConflict},
		{domain.ErrAlreadyRated, http.StatusConflict},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrConflict, http.StatusConflict},
		{echo.NewHTTPError(http.StatusUnauthorized, "missing header"), http.StatusUnauthorized},
		{errors.New("database on fire"), http.StatusInternalServerError},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())

	for _, tc := range cases {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler(tc.err, c)

		if rec.Code != tc.code {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%v: invalid json body: %v", tc.err, err)
		}
		if resp["error"] == "" {
			t.Errorf("%v: empty error message", tc.err)
		}
	}
}

func TestHTTPErrorHandler_InternalErrorsAreOpaque(t *testing.T) {
	handler := NewHTTPErrorHandler(zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler(errors.New("dsn=mongodb://secret@host"), c)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if resp["error"] != "internal server error" {
		t.Errorf("internal details leaked to the client: %q", resp["error"])
	}
}
