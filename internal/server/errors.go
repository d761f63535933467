package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/internal/authorization"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = apperr.New(apperr.KindUnauthenticated, "unauthorized", nil)
	ErrForbidden      = apperr.New(apperr.KindPermissionDenied, "forbidden", nil)
	ErrNotFound       = apperr.New(apperr.KindNotFound, "not found", nil)
	ErrInvalidRequest = apperr.New(apperr.KindInvalidRequest, "invalid request", nil)
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		switch status {
		case http.StatusUnauthorized:
			c.Header("WWW-Authenticate", `Bearer realm="accreditation"`)
		case http.StatusTooManyRequests:
			if wait := apperr.RetryAfter(lastErr.Err); wait > 0 {
				c.Header("Retry-After", retryAfterSeconds(wait))
			}
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// retryAfterSeconds rounds up so a client never retries before the refresh.
func retryAfterSeconds(wait time.Duration) string {
	return strconv.FormatInt(int64(math.Ceil(wait.Seconds())), 10)
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError(message string, cause error) error {
	return apperr.New(apperr.KindInvalidRequest, message, cause)
}

// mapError renders typed errors with their own message. Internal causes are
// never exposed.
func mapError(err error) (int, errorPayload) {
	if errors.Is(err, authorization.ErrForbidden) {
		err = ErrForbidden
	}

	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if kind == apperr.KindInternal {
		return status, errorPayload{
			Type:    string(apperr.KindInternal),
			Message: "internal server error",
		}
	}

	message := string(kind)
	var typed *apperr.Error
	if errors.As(err, &typed) && typed.Message != "" {
		message = typed.Message
	}
	return status, errorPayload{
		Type:    string(kind),
		Message: message,
	}
}

// classifyErrorForLog feeds the request logger the error type and a safe
// message.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Message
}
