package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peereval/internal/apperr"
	"peereval/internal/models"
)

// EvaluateForm implements the view protocol from specification §4.4.
// GET /evaluate?token={t}
func (h *Handlers) EvaluateForm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	view, already, err := h.Eval.ViewToken(c.Request.Context(), token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		c.JSON(statusForKind(apperr.KindOf(err)), gin.H{"error": err.Error()})
		return
	}
	if already != nil {
		c.JSON(http.StatusOK, gin.H{"status": "already_submitted", "used_at": already.UsedAt})
		return
	}
	c.JSON(http.StatusOK, view)
}

type submitRequest struct {
	Token       string                   `json:"token" binding:"required"`
	Submissions []models.SubmissionInput `json:"submissions" binding:"required"`
}

// Submit implements the submission-acceptance protocol from
// specification §4.4.
// POST /api/submit
func (h *Handlers) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, already, err := h.Eval.Submit(c.Request.Context(), req.Token, req.Submissions, c.ClientIP(), c.Request.UserAgent())
	if h.Metrics != nil {
		if err != nil {
			h.Metrics.SubmissionsRejected.WithLabelValues(string(apperr.KindOf(err))).Inc()
		} else if already == nil {
			h.Metrics.SubmissionsAccepted.Inc()
		}
	}
	if err != nil {
		c.JSON(statusForKind(apperr.KindOf(err)), gin.H{"error": err.Error()})
		return
	}
	if already != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "already_submitted", "used_at": already.UsedAt})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "submission_ids": result.SubmissionIDs})
}

// statusForKind maps a typed apperr.Kind to the HTTP status taxonomy
// from specification §4.4: 400 malformed/validation, 403
// invalid/expired/already-used, 404 not found, 500 internal.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindExpired, apperr.KindAlreadyUsed, apperr.KindInvalidState, apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidConfiguration, apperr.KindCollisionDetected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
