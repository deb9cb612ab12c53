package common

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnscoped     = errors.New("no school resolved for request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUpstream     = errors.New("upstream service failed")

	ErrCreditsExhausted = errors.New("ai credits exhausted")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// StatusFor maps an error to its HTTP status and response code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnscoped):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, ErrCreditsExhausted):
		return http.StatusPaymentRequired, "CREDITS_EXHAUSTED"
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR"
	}
}

// NewHTTPErrorHandler renders errors as {"error": ...}. Internal failures are
// logged and their details withheld from the client.
func NewHTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			resp   ErrorResponse
		)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			resp.Error = http.StatusText(status)
			if msg, ok := he.Message.(string); ok {
				resp.Error = msg
			}
		} else {
			status, resp.Code = StatusFor(err)
			resp.Error = err.Error()
		}

		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("request error")
			if status == http.StatusInternalServerError {
				resp.Error = "internal server error"
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			log.WithError(err).Error("failed to write error response")
		}
	}
}
