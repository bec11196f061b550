package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(name string) Checker {
	return func(_ context.Context) Status { return Status{Name: name, Healthy: true} }
}

func failing(detail string) Checker {
	return func(_ context.Context) Status { return Status{Healthy: false, Detail: detail} }
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestRegistryEmpty(t *testing.T) {
	healthy, statuses := NewRegistry().CheckAll(context.Background())
	assert.True(t, healthy)
	assert.Empty(t, statuses)
}

func TestRegistryAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("db", ok("db"))
	r.Register("cache", ok("cache"))

	healthy, statuses := r.CheckAll(context.Background())
	assert.True(t, healthy)
	assert.Len(t, statuses, 2)
}

func TestRegistryOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("db", ok("db"))
	r.Register("cache", failing("connection refused"))

	healthy, statuses := r.CheckAll(context.Background())
	assert.False(t, healthy)
	require.Len(t, statuses, 2)
	assert.Equal(t, "cache", statuses[1].Name, "name filled from registration")
	assert.Equal(t, "connection refused", statuses[1].Detail)
}

func TestRegistryOptionalFailureOnlyDegrades(t *testing.T) {
	r := NewRegistry()
	r.Register("db", ok("db"))
	r.RegisterOptional("probe", failing("rdap unreachable"))

	healthy, degraded, statuses := r.check(context.Background())
	assert.True(t, healthy)
	assert.True(t, degraded)
	assert.True(t, statuses[1].Optional)
}

func TestRegistryCheckerTimeout(t *testing.T) {
	r := NewRegistry()
	r.timeout = 20 * time.Millisecond
	r.Register("slow", PingChecker("slow", pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))

	start := time.Now()
	healthy, statuses := r.CheckAll(context.Background())
	assert.False(t, healthy)
	assert.Contains(t, statuses[0].Detail, "deadline")
	assert.Less(t, time.Since(start), time.Second)
}

func TestPingChecker(t *testing.T) {
	st := PingChecker("db", pingFunc(func(context.Context) error { return errors.New("down") }))(context.Background())
	assert.Equal(t, Status{Name: "db", Healthy: false, Detail: "down"}, st)

	st = PingChecker("db", pingFunc(func(context.Context) error { return nil }))(context.Background())
	assert.True(t, st.Healthy)
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("checker", ok("checker"))
		}()
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}
	wg.Wait()
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		setup      func(r *Registry)
		wantCode   int
		wantStatus string
	}{
		{"healthy", func(r *Registry) { r.Register("db", ok("db")) }, http.StatusOK, "healthy"},
		{"degraded", func(r *Registry) { r.RegisterOptional("probe", failing("x")) }, http.StatusOK, "degraded"},
		{"unhealthy", func(r *Registry) { r.Register("db", failing("x")) }, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg := NewRegistry()
			tc.setup(reg)
			router := gin.New()
			router.GET("/health", reg.Handler("1.2.3"))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.wantCode, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
		})
	}
}
