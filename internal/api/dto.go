package api

import (
	"github.com/starford/worklog/internal/models"
)

// PublishNoteRequest is the request body for publishing one note.
type PublishNoteRequest struct {
	Content      string `json:"content" example:"## 今日\n- 修复登录" validate:"required"`
	Title        string `json:"title,omitempty" example:"工作日志 2026-01-28"`
	Date         string `json:"date,omitempty" example:"2026-01-28"`
	Headless     *bool  `json:"headless,omitempty"`
	SilentNotify bool   `json:"silent_notify,omitempty"`
}

// PublishMissingRequest is the request body for publishing every missing log.
type PublishMissingRequest struct {
	Headless *bool `json:"headless,omitempty"`
}

// PublishMissingResponse summarises a batch publish.
type PublishMissingResponse struct {
	Results   []models.SyncResult `json:"results" validate:"required"`
	Succeeded int                 `json:"succeeded" example:"2"`
	Total     int                 `json:"total" example:"3"`
}

// GenerateDraftRequest is the request body for draft generation.
type GenerateDraftRequest struct {
	Kind      models.DraftKind `json:"kind" example:"daily" enums:"daily,weekly"`
	Date      string           `json:"date,omitempty" example:"2026-01-28"`
	Overwrite bool             `json:"overwrite,omitempty"`
}

// DraftListResponse wraps draft listings.
type DraftListResponse struct {
	Drafts []models.DraftMetadata `json:"drafts" validate:"required"`
}

// SyncListResponse wraps paginated publish history.
type SyncListResponse struct {
	Syncs []models.SyncResult `json:"syncs" validate:"required"`
	Total int                 `json:"total" example:"42"`
}

// SettingRequest is the request body for PUT /settings/{key}.
type SettingRequest struct {
	Value string `json:"value" example:"13800000000"`
}
