package scrapes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/wbdash/pkg/db/models"
	"github.com/angelmondragon/wbdash/pkg/enums"
	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
	"github.com/angelmondragon/wbdash/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records and lists scrape runs.
type Service interface {
	Start(ctx context.Context, query string, limit int) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, saved int, scrapeErr error) error
	Get(ctx context.Context, id uuid.UUID) (*RunDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// RunDTO is the public shape of a scrape run.
type RunDTO struct {
	ID         uuid.UUID          `json:"id"`
	Query      string             `json:"query"`
	Limit      int                `json:"limit"`
	Status     enums.ScrapeStatus `json:"status"`
	SavedCount int                `json:"saved_count"`
	Error      *string            `json:"error,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// ListParams configures history pagination.
type ListParams struct {
	Limit  int
	Cursor string
	Status string
}

// ListResult wraps a page of runs and the cursor for the next page.
type ListResult struct {
	Items  []RunDTO `json:"items"`
	Cursor string   `json:"cursor"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the history service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scrape repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Start(ctx context.Context, query string, limit int) (uuid.UUID, error) {
	run := &models.ScrapeRun{
		ID:        uuid.New(),
		Query:     strings.TrimSpace(query),
		Limit:     limit,
		Status:    enums.ScrapeStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record scrape start")
	}
	return run.ID, nil
}

func (s *service) Finish(ctx context.Context, id uuid.UUID, saved int, scrapeErr error) error {
	update := finishUpdate{
		Status:     enums.ScrapeStatusSucceeded,
		SavedCount: saved,
		FinishedAt: s.now(),
	}
	if scrapeErr != nil {
		msg := scrapeErr.Error()
		update.Status = enums.ScrapeStatusFailed
		update.SavedCount = 0
		update.Error = &msg
	}
	updated, err := s.repo.Finish(ctx, id, update)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record scrape finish")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeConflict, "scrape run not found or already finished")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*RunDTO, error) {
	run, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scrape run not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load scrape run")
	}
	dto := toDTO(*run)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParseScrapeStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		query.Status = &status
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list scrape runs")
	}
	items := make([]RunDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row))
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}

func toDTO(run models.ScrapeRun) RunDTO {
	return RunDTO{
		ID:         run.ID,
		Query:      run.Query,
		Limit:      run.Limit,
		Status:     run.Status,
		SavedCount: run.SavedCount,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}
