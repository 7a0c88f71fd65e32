package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"peereval/internal/api/middleware"
	"peereval/internal/models"
)

type createCourseRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateCourse creates a course owned by the authenticated admin.
// POST /api/admin/courses
func (h *Handlers) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course := models.Course{
		ID:        uuid.New().String(),
		Name:      req.Name,
		CreatedBy: middleware.AdminID(c),
		CreatedAt: time.Now(),
	}
	if err := h.Store.CreateCourse(c.Request.Context(), course); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create course"})
		return
	}

	c.JSON(http.StatusCreated, course)
}

// GetCourses lists the courses owned by the authenticated admin.
// GET /api/admin/courses
func (h *Handlers) GetCourses(c *gin.Context) {
	courses, err := h.Store.CoursesByAdmin(c.Request.Context(), middleware.AdminID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list courses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}
