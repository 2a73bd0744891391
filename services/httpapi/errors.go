package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"vtop-backend/services/vtop"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// statusOf maps service errors to a response status, anything unknown is
// an internal error.
func statusOf(err error) int {
	switch {
	case errors.Is(err, vtop.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, vtop.ErrCsrfExtractionFailed),
		errors.Is(err, vtop.ErrCaptchaUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail logs err and answers with status and a generic detail, the detail
// of the error itself is only logged.
func fail(ctx context.Context, c *gin.Context, status int, detail string, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, detail)

	level := slog.LevelError
	if status < 500 {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, detail, "path", c.Request.URL.Path, "status", status, "err", err)
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func sessionMissing(ctx context.Context, c *gin.Context, err error) {
	fail(ctx, c, http.StatusUnauthorized, "session does not exist", err)
}

func invalidInput(ctx context.Context, c *gin.Context, err error) {
	fail(ctx, c, http.StatusBadRequest, "invalid input data", err)
}
