package scanner

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fountainscan/internal/catalog"
	"github.com/mbd888/fountainscan/internal/risk"
)

func setupRouter(t *testing.T) (*gin.Engine, *Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e, err := New(context.Background(), DefaultSettings(), slog.Default())
	require.NoError(t, err)

	h := NewHandler(e)
	r := gin.New()
	v1 := r.Group("/v1")
	h.RegisterRoutes(v1)
	h.RegisterAdminRoutes(v1)
	return r, e
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type scanResponse struct {
	Verdict  risk.Verdict  `json:"verdict"`
	Decision risk.Decision `json:"decision"`
	Cached   bool          `json:"cached"`
	Skipped  bool          `json:"skipped"`
	Error    string        `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) scanResponse {
	t.Helper()
	var resp scanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_Scan(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/v1/scan", `{"url":"http://free-scholarship-nigeria.com/apply"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, risk.LevelHigh, resp.Verdict.RiskLevel)
	assert.Equal(t, risk.DecisionWarn, resp.Decision)
	assert.False(t, resp.Cached)

	resp = decode(t, do(r, http.MethodPost, "/v1/scan", `{"url":"http://free-scholarship-nigeria.com/apply"}`))
	assert.True(t, resp.Cached)
}

func TestHandler_ScanWithHTML(t *testing.T) {
	r, _ := setupRouter(t)

	body, _ := json.Marshal(ScanRequest{
		URL:  "https://portal.example.org/verify",
		HTML: `<form><input name="bank_account"><input name="ssn"><input name="card_number"></form>`,
	})
	w := do(r, http.MethodPost, "/v1/scan", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.GreaterOrEqual(t, len(resp.Verdict.Issues), 3)
}

func TestHandler_ScanRejections(t *testing.T) {
	r, e := setupRouter(t)

	w := do(r, http.MethodPost, "/v1/scan", `{"url":"chrome://settings"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "unscannable_target", decode(t, w).Error)

	w = do(r, http.MethodPost, "/v1/scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/v1/scan", `{"url":"not a url"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, risk.LevelError, decode(t, w).Verdict.RiskLevel)

	s := e.Settings()
	s.RealTimeScanning = false
	require.NoError(t, e.UpdateSettings(s))
	w = do(r, http.MethodPost, "/v1/scan", `{"url":"https://example.com","source":"navigation"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Skipped)
}

func TestHandler_Lists(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/v1/lists/deny", `{"pattern":"*.Scam.NG"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"*.scam.ng"`)

	w = do(r, http.MethodPost, "/v1/lists/deny", `{"pattern":"bad_domain"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_domain")

	w = do(r, http.MethodPost, "/v1/lists/grey", `{"pattern":"x.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/v1/lists", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Allow []string `json:"allow"`
		Deny  []string `json:"deny"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Allow)
	assert.Equal(t, []string{"*.scam.ng"}, got.Deny)

	resp := decode(t, do(r, http.MethodPost, "/v1/scan", `{"url":"https://pay.scam.ng/"}`))
	assert.Equal(t, risk.LevelOverrideBlocked, resp.Verdict.RiskLevel)
	assert.Equal(t, risk.DecisionBlock, resp.Decision)

	w = do(r, http.MethodDelete, "/v1/lists/allow/nope.org", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "entry_not_found")

	w = do(r, http.MethodDelete, "/v1/lists/deny/*.scam.ng", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_DenyFeed(t *testing.T) {
	r, e := setupRouter(t)

	w := do(r, http.MethodPut, "/v1/lists/deny/feed", `{"patterns":["a.tk","b.tk","??"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res ReplaceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, []string{"??"}, res.Rejected)

	s := e.Settings()
	s.AutoUpdate = false
	require.NoError(t, e.UpdateSettings(s))
	w = do(r, http.MethodPut, "/v1/lists/deny/feed", `{"patterns":["c.tk"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "auto_update_disabled")
}

func TestHandler_Settings(t *testing.T) {
	r, e := setupRouter(t)

	w := do(r, http.MethodGet, "/v1/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"freshness":"5m0s"`)

	w = do(r, http.MethodPut, "/v1/settings", `{"blockingEnabled":true,"freshness":"2m"}`)
	require.Equal(t, http.StatusOK, w.Code)
	s := e.Settings()
	assert.True(t, s.BlockingEnabled)
	assert.True(t, s.AlertsEnabled, "absent fields are kept")
	assert.Equal(t, "2m0s", s.Freshness.String())

	w = do(r, http.MethodPut, "/v1/settings", `{"thresholds":{"lowMin":5,"mediumMin":4,"highMin":8}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, risk.DefaultThresholds(), e.Settings().Thresholds)

	w = do(r, http.MethodPut, "/v1/settings", `{"probeTimeout":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetCatalog(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/v1/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)

	var def catalog.Definition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &def))
	assert.Equal(t, catalog.DefaultVersion, def.Version)

	var hosts []string
	for _, cd := range def.Categories {
		if cd.Name == catalog.KnownScamHost {
			hosts = cd.Keywords
		}
	}
	assert.NotEmpty(t, hosts, "known scam hosts are exposed")
}

func TestHandler_Catalog(t *testing.T) {
	r, e := setupRouter(t)

	body := `{"version":"ops-7","weights":{"excessiveSubdomains":1,"nonStandardPort":1,"punycode":2,"suspiciousLinks":2,"obfuscation":2,"recentlyRegistered":2,"sensitiveForm":2},
	"categories":[{"name":"lottery","weight":9,"phrase":true,"keywords":["you have won"]}]}`
	w := do(r, http.MethodPut, "/v1/catalog", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ops-7", e.Catalog().Version)

	w = do(r, http.MethodGet, "/v1/catalog", "")
	assert.Contains(t, w.Body.String(), `"you have won"`)

	w = do(r, http.MethodPut, "/v1/catalog", `{"version":"bad","categories":[{"name":"x","weight":0}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ops-7", e.Catalog().Version)
}

func TestHandler_Verdicts(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/v1/verdicts", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/v1/verdicts?host=example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}
