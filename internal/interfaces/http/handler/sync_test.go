package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	syncapp "github.com/feedsync/backend/internal/application/feedsync"
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncHandler_TriggerSync(t *testing.T) {
	app := newTestApp(t)
	created := app.createCatalog(t, "Spring")
	path := "/api/v1/catalogs/" + created.ID.String() + "/sync"

	t.Run("empty body uses the catalog platform", func(t *testing.T) {
		w := app.do(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		resp := decode[syncapp.TriggerSyncResponse](t, w).Data
		assert.Equal(t, "GOOGLE_MERCHANT_CENTER", resp.Platform)
		assert.Equal(t, "MANUAL_SYNC", resp.TriggerType)

		triggers := app.enqueued(t)
		require.Len(t, triggers, 1)
		assert.Equal(t, created.ID, triggers[0].CatalogID)
		assert.Equal(t, app.merchantID, triggers[0].MerchantID)
		assert.Equal(t, catalog.AdPlatformGoogleMerchantCenter, triggers[0].AdPlatform)
		assert.Equal(t, feedsync.TriggerManualSync, triggers[0].TriggerType)
	})

	t.Run("explicit platform", func(t *testing.T) {
		w := app.do(t, http.MethodPost, path, map[string]any{"platform": "META_CATALOG"})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

		triggers := app.enqueued(t)
		require.Len(t, triggers, 1)
		assert.Equal(t, catalog.AdPlatformMetaCatalog, triggers[0].AdPlatform)
	})

	t.Run("unknown platform is rejected before enqueue", func(t *testing.T) {
		w := app.do(t, http.MethodPost, path, map[string]any{"platform": "FRIENDSTER"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, app.enqueued(t))
	})

	t.Run("unknown catalog is rejected before enqueue", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/catalogs/"+uuid.NewString()+"/sync", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, shared.CodeNotFound, decode[any](t, w).Error.Code)
		assert.Empty(t, app.enqueued(t))
	})
}

func TestSyncHandler_TriggerSync_NoPlatform(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{"name": "Unassigned"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w).Data["id"].(string)

	w = app.do(t, http.MethodPost, "/api/v1/catalogs/"+id+"/sync", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, app.enqueued(t))
}

func TestSyncHandler_StatusAndHistory(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	created := app.createCatalog(t, "Spring")
	base := "/api/v1/catalogs/" + created.ID.String() + "/sync"

	t.Run("no attempts yet", func(t *testing.T) {
		w := app.do(t, http.MethodGet, base+"/status", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[[]syncapp.PlatformSyncStatusResponse](t, w).Data)
	})

	older := feedsync.NewSyncHistory(created.ID, catalog.AdPlatformGoogleMerchantCenter, feedsync.TriggerScheduledEnqueued)
	older.SyncStartedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, app.history.Create(ctx, older))
	require.NoError(t, older.Start())
	require.NoError(t, older.Fail(3, "TIMEOUT", "platform timed out", nil))
	require.NoError(t, app.history.Save(ctx, older))

	newer := feedsync.NewSyncHistory(created.ID, catalog.AdPlatformGoogleMerchantCenter, feedsync.TriggerManualSync)
	require.NoError(t, app.history.Create(ctx, newer))
	require.NoError(t, newer.Start())
	require.NoError(t, newer.Succeed(0, &feedsync.SyncDetails{ItemCount: 12}))
	require.NoError(t, app.history.Save(ctx, newer))

	meta := feedsync.NewSyncHistory(created.ID, catalog.AdPlatformMetaCatalog, feedsync.TriggerManualSync)
	require.NoError(t, app.history.Create(ctx, meta))

	t.Run("latest attempt per platform", func(t *testing.T) {
		w := app.do(t, http.MethodGet, base+"/status", nil)
		require.Equal(t, http.StatusOK, w.Code)
		statuses := decode[[]syncapp.PlatformSyncStatusResponse](t, w).Data
		require.Len(t, statuses, 2)

		byPlatform := make(map[string]syncapp.PlatformSyncStatusResponse, len(statuses))
		for _, s := range statuses {
			byPlatform[s.Platform] = s
		}
		assert.Equal(t, "SUCCESS", byPlatform["GOOGLE_MERCHANT_CENTER"].Status)
		assert.Equal(t, newer.ID, byPlatform["GOOGLE_MERCHANT_CENTER"].HistoryID)
		assert.Equal(t, "PENDING", byPlatform["META_CATALOG"].Status)
	})

	t.Run("history newest first", func(t *testing.T) {
		w := app.do(t, http.MethodGet, base+"/history?platform=GOOGLE_MERCHANT_CENTER", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[[]syncapp.SyncHistoryResponse](t, w)
		require.Len(t, env.Data, 2)
		assert.Equal(t, newer.ID, env.Data[0].ID)
		assert.Equal(t, "FAILED", env.Data[1].Status)
		assert.Equal(t, "TIMEOUT", env.Data[1].ErrorCode)
		assert.Equal(t, 3, env.Data[1].Retries)
		assert.Equal(t, int64(2), env.Meta.Total)
	})

	t.Run("history across platforms", func(t *testing.T) {
		w := app.do(t, http.MethodGet, base+"/history?page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[[]syncapp.SyncHistoryResponse](t, w)
		assert.Len(t, env.Data, 2)
		assert.Equal(t, int64(3), env.Meta.Total)
		assert.Equal(t, 2, env.Meta.TotalPages)
	})

	t.Run("history platform filter is validated", func(t *testing.T) {
		w := app.do(t, http.MethodGet, base+"/history?platform=ORKUT", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown catalog", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/catalogs/"+uuid.NewString()+"/sync/status", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
