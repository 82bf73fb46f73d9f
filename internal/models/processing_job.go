package models

import "time"

type WatermarkJobRequest struct {
	ImageURL string           `json:"image_url" binding:"required,url"`
	Options  WatermarkOptions `json:"options"`
}

type ProcessingJob struct {
	ID        string           `json:"id"`
	ImageURL  string           `json:"image_url"`
	Options   WatermarkOptions `json:"options"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	Result    *ProcessedImage  `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
