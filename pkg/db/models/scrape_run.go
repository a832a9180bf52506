package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/wbdash/pkg/enums"
)

// ScrapeRun records one scrape submission made from the dashboard.
type ScrapeRun struct {
	ID         uuid.UUID          `gorm:"type:varchar(36);primaryKey"`
	Query      string             `gorm:"type:text;not null"`
	Limit      int                `gorm:"column:limit_requested;not null"`
	Status     enums.ScrapeStatus `gorm:"type:varchar(16);not null"`
	SavedCount int                `gorm:"not null;default:0"`
	Error      *string            `gorm:"column:error_message;type:text"`
	StartedAt  time.Time          `gorm:"not null"`
	FinishedAt *time.Time
}

func (ScrapeRun) TableName() string {
	return "scrape_runs"
}
