package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/market"
)

// StatusFor maps simulator errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, broker.ErrInvalidAmount),
		errors.Is(err, broker.ErrInvalidSide),
		errors.Is(err, market.ErrUnknownHorizon):
		return http.StatusBadRequest
	case errors.Is(err, broker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, broker.ErrInsufficientBalance),
		errors.Is(err, broker.ErrSessionInactive):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
