package reports

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/fountainscan/internal/pagination"
)

// Handler provides HTTP endpoints for site reports.
type Handler struct {
	service *Service
}

// NewHandler creates a new reports handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up report routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/reports", h.SubmitReport)
	r.GET("/reports", h.ListReports)
}

// SubmitReportRequest is the body of POST /v1/reports.
type SubmitReportRequest struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// SubmitReport handles POST /v1/reports
func (h *Handler) SubmitReport(c *gin.Context) {
	var req SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	report, err := h.service.Submit(c.Request.Context(), req.URL, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingURL), errors.Is(err, ErrMissingReason):
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_field", "message": err.Error()})
		case errors.Is(err, ErrInvalidURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_url", "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to store report"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// ListReports handles GET /v1/reports
func (h *Handler) ListReports(c *gin.Context) {
	limit := pagination.Limit(c.Query("limit"), 50, 200)

	items, next, err := h.service.List(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	resp := gin.H{"reports": items, "count": len(items)}
	if next != "" {
		resp["nextCursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}
