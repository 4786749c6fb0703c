package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harborcms/admingate"
	"github.com/harborcms/admingate/csrf"
)

// Error codes returned in the response envelope.
const (
	CodeAuthFailed         = "AUTH_FAILED"
	CodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeSessionInvalid     = "SESSION_INVALID"
	CodeCSRFRejected       = "CSRF_REJECTED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenMalformed     = "TOKEN_MALFORMED"
	CodeForbidden          = "FORBIDDEN"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInternal           = "INTERNAL"
)

type errorBody struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError maps engine errors to an HTTP status and the JSON envelope.
// Credential and session failures deliberately share terse messages.
func writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if body.RetryAfterSeconds > 0 {
		c.Header("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: body})
}

func classify(err error) (int, errorBody) {
	switch {
	case errors.Is(err, admingate.ErrRateLimited):
		body := errorBody{Code: CodeRateLimited, Message: "too many attempts"}
		if d, ok := admingate.RetryAfter(err); ok {
			secs := int(d.Seconds())
			if secs < 1 {
				secs = 1
			}
			body.RetryAfterSeconds = secs
		}
		return http.StatusTooManyRequests, body
	case errors.Is(err, admingate.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Code: CodeAuthFailed, Message: "invalid credentials"}
	case errors.Is(err, admingate.ErrAccountDeactivated):
		return http.StatusForbidden, errorBody{Code: CodeAccountDeactivated, Message: "account deactivated"}
	case errors.Is(err, admingate.ErrSessionInvalid):
		return http.StatusUnauthorized, errorBody{Code: CodeSessionInvalid, Message: "session invalid or expired"}
	case errors.Is(err, admingate.ErrTokenExpired):
		return http.StatusUnauthorized, errorBody{Code: CodeTokenExpired, Message: "token expired"}
	case errors.Is(err, admingate.ErrTokenMalformed):
		return http.StatusUnauthorized, errorBody{Code: CodeTokenMalformed, Message: "token invalid"}
	case errors.Is(err, admingate.ErrForbidden):
		return http.StatusForbidden, errorBody{Code: CodeForbidden, Message: "insufficient privileges"}
	case errors.Is(err, admingate.ErrPasswordPolicy):
		return http.StatusUnprocessableEntity, errorBody{Code: CodeBadRequest, Message: "new password violates policy"}
	case errors.Is(err, admingate.ErrPasswordReuse):
		return http.StatusUnprocessableEntity, errorBody{Code: CodeBadRequest, Message: "new password must differ from current"}
	case errors.Is(err, csrf.ErrMissing), errors.Is(err, csrf.ErrInvalid), errors.Is(err, csrf.ErrMismatch):
		return http.StatusForbidden, errorBody{Code: CodeCSRFRejected, Message: "csrf check failed"}
	default:
		return http.StatusInternalServerError, errorBody{Code: CodeInternal, Message: "internal error"}
	}
}
