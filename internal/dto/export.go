package dto

import "github.com/trainova/classtrack-api/internal/models"

// ExportRequest captures the POST /exports/generate payload.
type ExportRequest struct {
	Type      models.ExportType   `json:"type"`
	Format    models.ExportFormat `json:"format"`
	ClassID   *int64              `json:"class_id,omitempty"`
	ClientID  *int64              `json:"client_id,omitempty"`
	ClassType string              `json:"class_type,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
