package http

import (
	"errors"
	"net/http"

	"github.com/nyaypaksh/memberportal/internal/portal/oracle"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/pkg/httpx"
)

// writeFlowError maps service-layer failures onto HTTP responses. Field
// validation and OTP entry failures are client errors the UI renders inline;
// stage violations are conflicts; oracle outages are the only 5xx.
func writeFlowError(w http.ResponseWriter, err error) {
	var fieldErr *service.FieldError
	if errors.As(err, &fieldErr) {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "validation_error",
			"error_description": fieldErr.Message,
			"field":             fieldErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrOtpExpired):
		httpx.WriteError(w, http.StatusBadRequest, "otp_expired", err.Error())
	case errors.Is(err, service.ErrOtpInvalidLength),
		errors.Is(err, service.ErrOtpInvalidFormat):
		httpx.WriteError(w, http.StatusBadRequest, "otp_invalid", err.Error())
	case errors.Is(err, service.ErrIdentityMismatch):
		httpx.WriteError(w, http.StatusForbidden, "identity_mismatch", err.Error())
	case errors.Is(err, service.ErrSubmitNotReady):
		httpx.WriteError(w, http.StatusConflict, "submit_not_ready", err.Error())
	case errors.Is(err, service.ErrFlowStage):
		httpx.WriteError(w, http.StatusConflict, "invalid_stage", err.Error())
	case errors.Is(err, oracle.ErrBadCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, oracle.ErrUnavailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, "upstream_unavailable", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}

func writeFlowNotStarted(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusNotFound, "flow_not_started", "no active login flow")
}

func writeBadRequestBody(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
}
