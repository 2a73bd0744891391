// Package httpapi serves the student and llm routes over http.
package httpapi

import (
	"net/http"
	"vtop-backend/lib/telemetry"
	"vtop-backend/services/llmproxy"
	"vtop-backend/services/vtop"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var tracer = telemetry.Tracer("vtop.services.httpapi")

type Options struct {
	Vtop *vtop.Service
	Llm  llmproxy.Proxy
	// ServiceName names the server in request spans.
	ServiceName string
}

type Server struct {
	vtop        *vtop.Service
	llm         llmproxy.Proxy
	serviceName string
}

func NewServer(opts Options) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "vtop-server"
	}
	return &Server{
		vtop:        opts.Vtop,
		llm:         opts.Llm,
		serviceName: opts.ServiceName,
	}
}

// Handler builds the router with every route and middleware.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.serviceName))
	r.Use(LoggingMiddleware())
	r.Use(PrometheusMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.registerStudentRoutes(r.Group("/student"))
	s.registerLlmRoutes(r.Group("/llm"))
	return r
}

func (s *Server) registerStudentRoutes(rg *gin.RouterGroup) {
	rg.GET("/create_session", s.CreateSession)
	rg.POST("/prepare_login", s.PrepareLogin)
	rg.POST("/login", s.Login)
	rg.GET("/start-scraping", s.StartScraping)
	rg.GET("/logout", s.Logout)
	rg.POST("/ask", s.Ask)
}

func (s *Server) registerLlmRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", s.wholeField(vtop.FieldProfile))
	rg.GET("/semesters", s.wholeField(vtop.FieldSemester))
	rg.GET("/grade_history", s.wholeField(vtop.FieldGradeHistory))
	rg.GET("/credits_info", s.wholeField(vtop.FieldCreditsInfo))
	rg.GET("/grades_count", s.wholeField(vtop.FieldGradesCount))

	rg.GET("/marks", s.semesterField(vtop.FieldMarks))
	rg.GET("/cgpa_details", s.semesterField(vtop.FieldCgpaDetails))
	rg.GET("/timetable", s.semesterField(vtop.FieldTimetable))
	rg.GET("/attendance", s.semesterField(vtop.FieldAttendance))

	rg.GET("/courses", s.Courses)
}
