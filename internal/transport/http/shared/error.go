package shared

import (
	"errors"
	"net/http"
	"time"

	"atrium/internal/platform/middleware"
	"atrium/internal/transport/http/json"
	dErrors "atrium/pkg/domain-errors"
)

// WriteError centralizes domain error translation to HTTP responses.
// It translates transport-agnostic domain errors into HTTP status codes and
// error responses, echoing the request id so clients can correlate logs.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	response := map[string]string{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if id := middleware.GetRequestID(r.Context()); id != "" {
		response["request_id"] = id
	}

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response["error"] = DomainCodeToHTTPCode(domainErr.Code)
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		json.WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
		return
	}

	// Fallback for unexpected errors. The internal detail stays in the logs.
	response["error"] = DomainCodeToHTTPCode(dErrors.CodeInternal)
	json.WriteJSON(w, http.StatusInternalServerError, response)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeTenantNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeTenantInactive:
		return http.StatusForbidden
	case dErrors.CodeStoreUnreachable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeMissingTenantContext, dErrors.CodeConfiguration, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the wire error field.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeTenantNotFound:
		return "tenant_not_found"
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodeTenantInactive:
		return "access_denied"
	case dErrors.CodeStoreUnreachable:
		return "store_unreachable"
	case dErrors.CodeTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}
