package models

import "time"

// PipelineState represents the status of report generation.
type PipelineState string

const (
	PipelineIdle       PipelineState = "idle"
	PipelineProcessing PipelineState = "processing"
	PipelineComplete   PipelineState = "complete"
)

// Pipeline is the report generation state of a session.
type Pipeline struct {
	State    PipelineState `json:"state" msgpack:"state"`
	Progress int           `json:"progress" msgpack:"progress"` // 0-100, meaningful while processing
}

// Artifact references a generated report available for download.
type Artifact struct {
	ID        string    `json:"id" msgpack:"id"`
	FileName  string    `json:"fileName" msgpack:"fileName"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
}

// ResetRequest is a pending destructive reset awaiting confirmation.
type ResetRequest struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
