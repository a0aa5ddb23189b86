package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/gateway/middleware"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	resp := ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.CorrelationCtx(r.Context()),
	}
	JSON(w, r, resp, status)
}

func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	Error(w, r, short+": "+err.Error(), StatusOf(err))
}

// HTTPError carries an explicit HTTP status with a wrapped error.
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e HTTPError) Unwrap() error {
	return e.Wrapped
}

// StatusOf maps domain errors onto HTTP status codes. Client faults map to
// 4xx; an unreachable identity service maps to 502, an unreachable validation
// provider to 503.
func StatusOf(err error) int {
	var httpError HTTPError
	if errors.As(err, &httpError) {
		return httpError.StatusCode
	}
	switch {
	case errors.Is(err, core.ErrMalformedRequest),
		errors.Is(err, core.ErrUnsupportedRequestType):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, core.ErrNoNonce),
		errors.Is(err, core.ErrInvalidSignature),
		errors.Is(err, core.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotBound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrIdentityServiceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrValidationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
