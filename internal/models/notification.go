package models

import "time"

// NotificationKind names a user-facing notice.
type NotificationKind string

const (
	NotifyUploadComplete  NotificationKind = "upload_complete"
	NotifyEmptySubmission NotificationKind = "empty_submission"
	NotifyReportReady     NotificationKind = "report_ready"
	NotifyDownloadStarted NotificationKind = "download_started"
	NotifyResetConfirmed  NotificationKind = "reset_confirmed"
)

// Notification is a short transient title/description pair for the user.
type Notification struct {
	Kind        NotificationKind `json:"kind" msgpack:"kind"`
	Title       string           `json:"title" msgpack:"title"`
	Description string           `json:"description" msgpack:"description"`
	SlotID      SlotID           `json:"slotId,omitempty" msgpack:"slotId,omitempty"`
	At          time.Time        `json:"at" msgpack:"at"`
}
