package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveSystem(h *SystemHandler, path string) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.GET("/health", h.Health)
	engine.GET("/system/info", h.GetSystemInfo)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSystemHandler_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("all dependencies healthy", func(t *testing.T) {
		h := NewSystemHandler("feedsync", "1.2.0", map[string]HealthCheck{
			"database": ok,
			"redis":    ok,
		})

		w := serveSystem(h, "/health")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[HealthResponse](t, w).Data
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Dependencies)
	})

	t.Run("failing dependency", func(t *testing.T) {
		h := NewSystemHandler("feedsync", "1.2.0", map[string]HealthCheck{
			"database": ok,
			"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
		})

		w := serveSystem(h, "/health")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		env := decode[HealthResponse](t, w)
		assert.False(t, env.Success)
		assert.Equal(t, dto.ErrCodeUnavailable, env.Error.Code)
		assert.Equal(t, "unhealthy", env.Data.Status)
		assert.Equal(t, "error", env.Data.Dependencies["redis"])
		assert.Equal(t, "ok", env.Data.Dependencies["database"])
	})

	t.Run("no checks", func(t *testing.T) {
		w := serveSystem(NewSystemHandler("feedsync", "dev", nil), "/health")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("check receives a deadline", func(t *testing.T) {
		var hasDeadline bool
		h := NewSystemHandler("feedsync", "dev", map[string]HealthCheck{
			"database": func(ctx context.Context) error {
				_, hasDeadline = ctx.Deadline()
				return nil
			},
		})
		serveSystem(h, "/health")
		assert.True(t, hasDeadline)
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	w := serveSystem(NewSystemHandler("feedsync", "1.2.0", nil), "/system/info")
	require.Equal(t, http.StatusOK, w.Code)

	info := decode[SystemInfoResponse](t, w).Data
	assert.Equal(t, "feedsync", info.Name)
	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}
