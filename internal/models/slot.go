// Package models contains domain types for the comparable report intake service.
package models

import "time"

// SlotID identifies one of the fixed document upload targets.
type SlotID string

const (
	SlotChecklist   SlotID = "checklist"
	SlotComparable1 SlotID = "comparable1"
	SlotComparable2 SlotID = "comparable2"
	SlotComparable3 SlotID = "comparable3"
)

// SlotIDs returns the fixed slot order.
func SlotIDs() []SlotID {
	return []SlotID{SlotChecklist, SlotComparable1, SlotComparable2, SlotComparable3}
}

// AttachmentStatus represents where an attachment is in its lifecycle.
type AttachmentStatus string

const (
	AttachmentUploading AttachmentStatus = "uploading"
	AttachmentComplete  AttachmentStatus = "complete"
	AttachmentError     AttachmentStatus = "error"
)

// SlotDefinition holds the constraints a slot is created with.
type SlotDefinition struct {
	ID                 SlotID   `json:"id" yaml:"id" msgpack:"id"`
	Title              string   `json:"title" yaml:"title" msgpack:"title"`
	AcceptedExtensions []string `json:"acceptedExtensions" yaml:"accepted_extensions" msgpack:"acceptedExtensions"`
	MaxSizeBytes       int64    `json:"maxSizeBytes" yaml:"max_size_bytes" msgpack:"maxSizeBytes"`
}

// Attachment is the file currently occupying a slot.
type Attachment struct {
	ID            string           `json:"id" msgpack:"id"`
	File          FileInfo         `json:"file" msgpack:"file"`
	PreviewHandle string           `json:"previewHandle,omitempty" msgpack:"previewHandle,omitempty"`
	Progress      int              `json:"progress" msgpack:"progress"` // 0-100
	Status        AttachmentStatus `json:"status" msgpack:"status"`
	ErrorReason   string           `json:"errorReason,omitempty" msgpack:"errorReason,omitempty"`
	CreatedAt     time.Time        `json:"createdAt" msgpack:"createdAt"`
}

// Slot is a document upload target and its current attachment, if any.
type Slot struct {
	SlotDefinition
	Attachment *Attachment `json:"attachment,omitempty" msgpack:"attachment,omitempty"`
	DragActive bool        `json:"isDragActive" msgpack:"isDragActive"`
}

// Clone returns a copy that shares no mutable state with s.
func (s Slot) Clone() Slot {
	out := s
	out.AcceptedExtensions = append([]string(nil), s.AcceptedExtensions...)
	if s.Attachment != nil {
		att := *s.Attachment
		out.Attachment = &att
	}
	return out
}
