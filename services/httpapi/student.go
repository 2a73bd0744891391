package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"vtop-backend/services/llmproxy"
	"vtop-backend/services/vtop"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type loginRequest struct {
	RegNo           string `json:"reg_no" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ResponseCaptcha string `json:"response_captcha" binding:"required"`
}

type loginResponse struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
}

type scrapeResponse struct {
	Success bool    `json:"success"`
	Name    *string `json:"name"`
}

// regNo reads the reg_no query parameter, answering 400 when it is empty.
func regNo(c *gin.Context) (string, bool) {
	value := c.Query("reg_no")
	if value == "" {
		invalidInput(c.Request.Context(), c, errors.New("missing reg_no"))
		return "", false
	}
	return value, true
}

// CreateSession handles GET /student/create_session?reg_no=
func (s *Server) CreateSession(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "CreateSession")
	defer span.End()

	userId, ok := regNo(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", userId))

	err := s.vtop.CreateSession(userId)
	if err != nil {
		fail(ctx, c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session created",
	})
}

// PrepareLogin handles POST /student/prepare_login?reg_no=
func (s *Server) PrepareLogin(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "PrepareLogin")
	defer span.End()

	userId, ok := regNo(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", userId))

	image, err := s.vtop.PrepareLogin(ctx, userId)
	if err != nil {
		status := statusOf(err)
		switch status {
		case http.StatusUnauthorized:
			sessionMissing(ctx, c, err)
		case http.StatusBadRequest:
			fail(ctx, c, status, "failed to retrieve image captcha", err)
		default:
			fail(ctx, c, status, "error in preparing login", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"image_code": image,
	})
}

// Login handles POST /student/login
func (s *Server) Login(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Login")
	defer span.End()

	var req loginRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		invalidInput(ctx, c, err)
		return
	}
	span.SetAttributes(attribute.String("user_id", req.RegNo))

	result, err := s.vtop.Login(ctx, req.RegNo, vtop.Credentials{
		Password: req.Password,
		Captcha:  req.ResponseCaptcha,
	})
	if errors.Is(err, vtop.ErrSessionNotFound) {
		sessionMissing(ctx, c, err)
		return
	}
	if err != nil {
		fail(ctx, c, http.StatusInternalServerError, "error in requests", err)
		return
	}

	res := loginResponse{Success: result.Outcome == vtop.LoginSucceeded}
	if result.Message != "" {
		res.Message = &result.Message
	}
	c.JSON(http.StatusOK, res)
}

// StartScraping handles GET /student/start-scraping?reg_no=&force_scrape=
func (s *Server) StartScraping(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "StartScraping")
	defer span.End()

	userId, ok := regNo(c)
	if !ok {
		return
	}
	force := true
	if raw := c.Query("force_scrape"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			invalidInput(ctx, c, err)
			return
		}
		force = parsed
	}
	span.SetAttributes(
		attribute.String("user_id", userId),
		attribute.Bool("force", force),
	)

	result, err := s.vtop.Scrape(ctx, userId, force)
	if errors.Is(err, vtop.ErrSessionNotFound) {
		sessionMissing(ctx, c, err)
		return
	}
	if err != nil {
		fail(ctx, c, http.StatusInternalServerError, "Error in scraping", err)
		return
	}
	c.JSON(http.StatusOK, scrapeResponse{
		Success: true,
		Name:    result.Name,
	})
}

// Logout handles GET /student/logout?reg_no=
func (s *Server) Logout(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Logout")
	defer span.End()

	userId, ok := regNo(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", userId))

	err := s.vtop.Logout(ctx, userId)
	if err != nil {
		fail(ctx, c, http.StatusInternalServerError, "Error in logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Ask handles POST /student/ask, the answer of the llm server is streamed
// back line by line.
func (s *Server) Ask(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Ask")
	defer span.End()

	var question llmproxy.Question
	err := c.ShouldBindJSON(&question)
	if err != nil {
		invalidInput(ctx, c, err)
		return
	}
	err = question.Validate()
	if err != nil {
		invalidInput(ctx, c, err)
		return
	}
	span.SetAttributes(attribute.String("user_id", question.RegNo))

	target, err := s.llm.Target()
	if err != nil {
		fail(ctx, c, http.StatusInternalServerError, "LLM server not configured", err)
		return
	}

	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	// the error line is already part of the stream when relaying fails
	_ = s.llm.Relay(ctx, target, question, c.Writer)
}
