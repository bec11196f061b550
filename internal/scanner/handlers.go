package scanner

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/inspect"
	"github.com/mbd888/fountainscan/internal/lists"
	"github.com/mbd888/fountainscan/internal/risk"
	"github.com/mbd888/fountainscan/internal/signals"
	"github.com/mbd888/fountainscan/internal/validation"
)

// Handler provides HTTP endpoints for scanning, lists and settings.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new scanner handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up public scanner routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/scan", h.Scan)
	r.GET("/lists", h.GetLists)
	r.GET("/settings", h.GetSettings)
	r.GET("/catalog", h.GetCatalog)
	r.GET("/verdicts", h.ListVerdicts)
}

// RegisterAdminRoutes sets up routes that need the admin secret. List edits
// are here because an allow entry overrides every signal for every client.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/lists/:tag", h.AddListEntry)
	r.DELETE("/lists/:tag/:pattern", h.RemoveListEntry)
	r.PUT("/lists/deny/feed", h.ReplaceDenyFeed)
	r.PUT("/settings", h.UpdateSettings)
	r.PUT("/catalog", h.UpdateCatalog)
}

// ScanRequest is the body of POST /v1/scan. HTML, when given, is inspected
// into a snapshot; an explicit snapshot wins over HTML.
type ScanRequest struct {
	URL      string            `json:"url"`
	Snapshot *signals.Snapshot `json:"snapshot,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Source   string            `json:"source,omitempty"`
}

// Scan handles POST /v1/scan
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}
	if errs := validation.Validate(
		validation.Required("url", req.URL),
		validation.MaxLength("url", req.URL, validation.MaxURLLength),
	); len(errs) > 0 {
		validation.Abort(c, errs)
		return
	}

	if err := h.engine.ShouldScan(req.URL, req.Source); err != nil {
		switch {
		case errors.Is(err, ErrUnscannable):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unscannable_target", "message": err.Error()})
		case errors.Is(err, ErrRealTimeDisabled):
			c.JSON(http.StatusOK, gin.H{"skipped": true, "reason": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		}
		return
	}

	snap := req.Snapshot
	if snap == nil && req.HTML != "" {
		s, err := inspect.Inspect(strings.NewReader(req.HTML), req.URL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_html", "message": err.Error()})
			return
		}
		snap = s
	}

	res := h.engine.ScanDetailed(c.Request.Context(), req.URL, snap)
	c.JSON(http.StatusOK, gin.H{
		"verdict":  res.Verdict,
		"decision": res.Decision,
		"cached":   res.Cached,
	})
}

// GetLists handles GET /v1/lists
func (h *Handler) GetLists(c *gin.Context) {
	allow, deny := h.engine.Lists()
	c.JSON(http.StatusOK, gin.H{"allow": allow, "deny": deny})
}

// ListEntryRequest is the body of POST /v1/lists/:tag.
type ListEntryRequest struct {
	Pattern string `json:"pattern"`
}

// AddListEntry handles POST /v1/lists/:tag
func (h *Handler) AddListEntry(c *gin.Context) {
	tag, ok := parseTag(c)
	if !ok {
		return
	}

	var req ListEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	if err := h.engine.AddEntry(c.Request.Context(), tag, req.Pattern); err != nil {
		var ide *lists.InvalidDomainError
		if errors.As(err, &ide) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_domain", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	canon, _ := lists.Canonical(req.Pattern)
	c.JSON(http.StatusCreated, gin.H{"tag": tag, "pattern": canon})
}

// RemoveListEntry handles DELETE /v1/lists/:tag/:pattern
func (h *Handler) RemoveListEntry(c *gin.Context) {
	tag, ok := parseTag(c)
	if !ok {
		return
	}

	if err := h.engine.RemoveEntry(c.Request.Context(), tag, c.Param("pattern")); err != nil {
		var nf *lists.NotFoundError
		if errors.As(err, &nf) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry_not_found", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// FeedRequest is the body of PUT /v1/lists/deny/feed.
type FeedRequest struct {
	Patterns []string `json:"patterns"`
}

// ReplaceDenyFeed handles PUT /v1/lists/deny/feed
func (h *Handler) ReplaceDenyFeed(c *gin.Context) {
	var req FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	res, err := h.engine.ReplaceList(c.Request.Context(), lists.TagDeny, req.Patterns)
	if err != nil {
		if errors.Is(err, ErrAutoUpdateDisabled) {
			c.JSON(http.StatusConflict, gin.H{"error": "auto_update_disabled", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

// SettingsDTO is the wire form of Settings. Durations are Go duration
// strings ("5m", "3s"). On update, absent fields keep their current value.
type SettingsDTO struct {
	Thresholds       *risk.Thresholds `json:"thresholds,omitempty"`
	Freshness        *string          `json:"freshness,omitempty"`
	Expiry           *string          `json:"expiry,omitempty"`
	ProbeTimeout     *string          `json:"probeTimeout,omitempty"`
	AlertsEnabled    *bool            `json:"alertsEnabled,omitempty"`
	BlockingEnabled  *bool            `json:"blockingEnabled,omitempty"`
	RealTimeScanning *bool            `json:"realTimeScanning,omitempty"`
	AutoUpdate       *bool            `json:"autoUpdate,omitempty"`
}

func toDTO(s Settings) SettingsDTO {
	fresh, expiry, probe := s.Freshness.String(), s.Expiry.String(), s.ProbeTimeout.String()
	return SettingsDTO{
		Thresholds:       &s.Thresholds,
		Freshness:        &fresh,
		Expiry:           &expiry,
		ProbeTimeout:     &probe,
		AlertsEnabled:    &s.AlertsEnabled,
		BlockingEnabled:  &s.BlockingEnabled,
		RealTimeScanning: &s.RealTimeScanning,
		AutoUpdate:       &s.AutoUpdate,
	}
}

// apply overlays the fields present in d onto s.
func (d SettingsDTO) apply(s Settings) (Settings, error) {
	if d.Thresholds != nil {
		s.Thresholds = *d.Thresholds
	}
	for _, f := range []struct {
		name string
		raw  *string
		dst  *time.Duration
	}{
		{"freshness", d.Freshness, &s.Freshness},
		{"expiry", d.Expiry, &s.Expiry},
		{"probeTimeout", d.ProbeTimeout, &s.ProbeTimeout},
	} {
		if f.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*f.raw)
		if err != nil {
			return s, errors.New(f.name + ": " + err.Error())
		}
		*f.dst = v
	}
	if d.AlertsEnabled != nil {
		s.AlertsEnabled = *d.AlertsEnabled
	}
	if d.BlockingEnabled != nil {
		s.BlockingEnabled = *d.BlockingEnabled
	}
	if d.RealTimeScanning != nil {
		s.RealTimeScanning = *d.RealTimeScanning
	}
	if d.AutoUpdate != nil {
		s.AutoUpdate = *d.AutoUpdate
	}
	return s, nil
}

// GetSettings handles GET /v1/settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":       toDTO(h.engine.Settings()),
		"catalogVersion": h.engine.Catalog().Version,
	})
}

// UpdateSettings handles PUT /v1/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req SettingsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	next, err := req.apply(h.engine.Settings())
	if err == nil {
		err = h.engine.UpdateSettings(next)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_settings", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": toDTO(h.engine.Settings())})
}

// GetCatalog handles GET /v1/catalog
func (h *Handler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Catalog().Definition())
}

// UpdateCatalog handles PUT /v1/catalog
func (h *Handler) UpdateCatalog(c *gin.Context) {
	var def catalog.Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	cat, err := catalog.Compile(def)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_catalog", "message": err.Error()})
		return
	}
	h.engine.SwapCatalog(cat)

	c.JSON(http.StatusOK, gin.H{"version": cat.Version, "categories": len(def.Categories)})
}

// ListVerdicts handles GET /v1/verdicts?host=
func (h *Handler) ListVerdicts(c *gin.Context) {
	host := strings.TrimSpace(c.Query("host"))
	if host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_field", "message": "host is required"})
		return
	}
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	verdicts, err := h.engine.History(c.Request.Context(), host, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	if verdicts == nil {
		verdicts = []*risk.Verdict{}
	}

	c.JSON(http.StatusOK, gin.H{"verdicts": verdicts, "count": len(verdicts)})
}

func parseTag(c *gin.Context) (lists.Tag, bool) {
	tag, err := lists.ParseTag(c.Param("tag"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tag", "message": err.Error()})
		return "", false
	}
	return tag, true
}
