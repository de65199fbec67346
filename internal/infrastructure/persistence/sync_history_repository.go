package persistence

import (
	"context"
	"errors"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var terminalStatuses = []string{
	string(feedsync.SyncStatusSuccess),
	string(feedsync.SyncStatusPartialSuccess),
	string(feedsync.SyncStatusFailed),
	string(feedsync.SyncStatusQuarantined),
}

// ErrSyncHistoryNotFound is returned when saving a row that does not exist
var ErrSyncHistoryNotFound = shared.NewDomainError(shared.CodeNotFound, "sync history not found")

// GormSyncHistoryRepository implements SyncHistoryRepository using GORM
type GormSyncHistoryRepository struct {
	db *gorm.DB
}

// NewGormSyncHistoryRepository creates a new GormSyncHistoryRepository
func NewGormSyncHistoryRepository(db *gorm.DB) *GormSyncHistoryRepository {
	return &GormSyncHistoryRepository{db: db}
}

// Create inserts a new attempt row
func (r *GormSyncHistoryRepository) Create(ctx context.Context, h *feedsync.SyncHistory) error {
	model, err := models.SyncHistoryModelFromDomain(h)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// Save persists the status, outcome and details of an existing row
func (r *GormSyncHistoryRepository) Save(ctx context.Context, h *feedsync.SyncHistory) error {
	model, err := models.SyncHistoryModelFromDomain(h)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&models.SyncHistoryModel{}).
		Where("id = ?", h.ID).
		Updates(map[string]any{
			"status":        model.Status,
			"sync_ended_at": model.SyncEndedAt,
			"error_message": model.ErrorMessage,
			"error_code":    model.ErrorCode,
			"details":       model.Details,
			"retries":       model.Retries,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSyncHistoryNotFound
	}
	return nil
}

// FindByCatalog lists attempts for a catalog newest first
func (r *GormSyncHistoryRepository) FindByCatalog(ctx context.Context, catalogID uuid.UUID, platform catalog.AdPlatform, filter shared.Filter) ([]feedsync.SyncHistory, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.SyncHistoryModel{}).Where("catalog_id = ?", catalogID)
	if platform.IsSet() {
		query = query.Where("ad_platform = ?", string(platform))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SyncHistoryModel
	if err := query.
		Order("sync_started_at DESC, id DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainHistories(rows), total, nil
}

// FindLatestPerPlatform returns the newest attempt for each platform a catalog was synced to
func (r *GormSyncHistoryRepository) FindLatestPerPlatform(ctx context.Context, catalogID uuid.UUID) ([]feedsync.SyncHistory, error) {
	var platforms []string
	if err := r.db.WithContext(ctx).
		Model(&models.SyncHistoryModel{}).
		Where("catalog_id = ?", catalogID).
		Distinct().
		Order("ad_platform ASC").
		Pluck("ad_platform", &platforms).Error; err != nil {
		return nil, err
	}

	latest := make([]feedsync.SyncHistory, 0, len(platforms))
	for _, platform := range platforms {
		var row models.SyncHistoryModel
		if err := r.db.WithContext(ctx).
			Where("catalog_id = ? AND ad_platform = ?", catalogID, platform).
			Order("sync_started_at DESC, id DESC").
			First(&row).Error; err != nil {
			return nil, err
		}
		latest = append(latest, *row.ToDomain())
	}
	return latest, nil
}

// FindRecentTerminal returns the newest finalized attempts, skipping the excluded statuses
func (r *GormSyncHistoryRepository) FindRecentTerminal(ctx context.Context, catalogID uuid.UUID, platform catalog.AdPlatform, limit int, exclude ...feedsync.SyncStatus) ([]feedsync.SyncHistory, error) {
	query := r.db.WithContext(ctx).
		Where("catalog_id = ? AND ad_platform = ?", catalogID, string(platform)).
		Where("status IN ?", terminalStatuses)
	if len(exclude) > 0 {
		excluded := make([]string, len(exclude))
		for i, s := range exclude {
			excluded[i] = string(s)
		}
		query = query.Where("status NOT IN ?", excluded)
	}

	var rows []models.SyncHistoryModel
	if err := query.
		Order("sync_started_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainHistories(rows), nil
}

// FindLatest returns the newest attempt, or nil when there is none
func (r *GormSyncHistoryRepository) FindLatest(ctx context.Context, catalogID uuid.UUID, platform catalog.AdPlatform) (*feedsync.SyncHistory, error) {
	var row models.SyncHistoryModel
	err := r.db.WithContext(ctx).
		Where("catalog_id = ? AND ad_platform = ?", catalogID, string(platform)).
		Order("sync_started_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

func toDomainHistories(rows []models.SyncHistoryModel) []feedsync.SyncHistory {
	histories := make([]feedsync.SyncHistory, len(rows))
	for i := range rows {
		histories[i] = *rows[i].ToDomain()
	}
	return histories
}

// Ensure GormSyncHistoryRepository implements SyncHistoryRepository
var _ feedsync.SyncHistoryRepository = (*GormSyncHistoryRepository)(nil)
