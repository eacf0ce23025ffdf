package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/server/plantid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg, Detail: detail})
}

// statusFor maps a service error to a status code and public message.
// Unknown errors are 500 with no detail.
func statusFor(err error) (int, string, string) {
	var (
		pe       *api.ParseError
		upstream *plantid.UpstreamError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "request body too large", ""
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "identification provider failed", upstream.Error()
	case errors.As(err, &pe), errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "invalid request", err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found", ""
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "forbidden", ""
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "unauthorized", ""
	case errors.Is(err, common.ErrorUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable", ""
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", ""
	}
	return http.StatusInternalServerError, "internal server error", ""
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, msg, detail)
}
