package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"vtop-backend/services/vtop"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// envelope wraps every read, data is null whenever success is false.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// writeData answers a read, a missing record or any failure to read it is
// reported as {success: false, data: null} with status 200.
func writeData(ctx context.Context, c *gin.Context, field vtop.Field, doc json.RawMessage, err error) {
	if err != nil {
		if !errors.Is(err, vtop.ErrRecordNotFound) {
			slog.ErrorContext(ctx, "failed to read stored field", "field", field, "err", err)
		}
		c.JSON(http.StatusOK, envelope{Success: false, Data: nil})
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: doc})
}

func (s *Server) wholeField(field vtop.Field) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "GetField")
		defer span.End()

		userId, ok := regNo(c)
		if !ok {
			return
		}
		span.SetAttributes(
			attribute.String("user_id", userId),
			attribute.String("field", string(field)),
		)

		doc, err := s.vtop.GetField(ctx, userId, field)
		writeData(ctx, c, field, doc, err)
	}
}

func (s *Server) semesterField(field vtop.Field) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "GetSemesterField")
		defer span.End()

		userId, ok := regNo(c)
		if !ok {
			return
		}
		semester := c.Query("sem_id")
		span.SetAttributes(
			attribute.String("user_id", userId),
			attribute.String("field", string(field)),
			attribute.String("semester", semester),
		)

		doc, err := s.vtop.GetSemesterField(ctx, userId, field, semester)
		writeData(ctx, c, field, doc, err)
	}
}

// Courses handles GET /llm/courses?reg_no=
func (s *Server) Courses(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Courses")
	defer span.End()

	userId, ok := regNo(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", userId))

	courses, err := s.vtop.Courses(ctx, userId)
	if errors.Is(err, vtop.ErrRecordNotFound) {
		c.JSON(http.StatusOK, envelope{
			Success: false,
			Data:    gin.H{"msg": "timetable does not exist. load data again."},
		})
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to list courses", "user_id", userId, "err", err)
		c.JSON(http.StatusOK, envelope{Success: false, Data: nil})
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: courses})
}
