// Package api wires the gin router: CORS, request-id and access-log
// middleware, the student-facing evaluation surface, and a JWT-gated
// admin API for course administration and pipeline orchestration.
// Grounded on the teacher's routes.go shape (one *gin.Engine built by
// a single setup function) with the route table replaced end to end.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"peereval/internal/api/handlers"
	"peereval/internal/api/middleware"
)

// SetupRouter builds the full route table against h.
func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(h.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     h.Config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	router.GET("/health", h.Health)
	router.GET("/api/status", h.Status)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Student-facing evaluation surface (token-bearing, no session).
	router.GET("/evaluate", h.EvaluateForm)
	router.POST("/api/submit", h.Submit)

	// Admin authentication (public).
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	// Admin API (JWT-gated).
	admin := router.Group("/api/admin")
	admin.Use(middleware.Auth(h.Auth))
	{
		admin.POST("/courses", h.CreateCourse)
		admin.GET("/courses", h.GetCourses)

		admin.POST("/pipeline/assign", h.AssignAndMint)
		admin.POST("/pipeline/consensus", h.Consensus)

		admin.GET("/evaluator-progress", h.EvaluatorProgress)
		admin.GET("/target-stats", h.TargetStats)
	}

	return router
}
