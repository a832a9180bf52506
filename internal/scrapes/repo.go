package scrapes

import (
	"context"
	"time"

	"github.com/angelmondragon/wbdash/pkg/db/models"
	"github.com/angelmondragon/wbdash/pkg/enums"
	"github.com/angelmondragon/wbdash/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists scrape runs.
type Repository interface {
	Create(ctx context.Context, run *models.ScrapeRun) error
	Finish(ctx context.Context, id uuid.UUID, update finishUpdate) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error)
	List(ctx context.Context, params listParams) ([]models.ScrapeRun, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a scrape history repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type finishUpdate struct {
	Status     enums.ScrapeStatus
	SavedCount int
	Error      *string
	FinishedAt time.Time
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.ScrapeStatus
}

func (r *repositoryImpl) Create(ctx context.Context, run *models.ScrapeRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish only transitions runs that are still running.
func (r *repositoryImpl) Finish(ctx context.Context, id uuid.UUID, update finishUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ScrapeRun{}).
		Where("id = ? AND status = ?", id, enums.ScrapeStatusRunning).
		Updates(map[string]any{
			"status":        update.Status,
			"saved_count":   update.SavedCount,
			"error_message": update.Error,
			"finished_at":   update.FinishedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error) {
	var run models.ScrapeRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.ScrapeRun, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.ScrapeRun{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(started_at < ?) OR (started_at = ? AND id < ?)", params.Cursor.At, params.Cursor.At, params.Cursor.ID)
	}

	var runs []models.ScrapeRun
	if err := query.Order("started_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&runs).Error; err != nil {
		return nil, nil, err
	}
	if len(runs) > normalized {
		// The cursor marks the last row served; the next page starts strictly after it.
		last := runs[normalized-1]
		return runs[:normalized], &pagination.Cursor{At: last.StartedAt, ID: last.ID}, nil
	}
	return runs, nil, nil
}
