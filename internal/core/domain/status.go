package domain

import "time"

type UploadOutcome string

const (
	UploadOutcomeSuccess UploadOutcome = "success"
	UploadOutcomeError   UploadOutcome = "error"
)

// UploadStatus is the single-slot result of the latest upload attempt.
type UploadStatus struct {
	Outcome  UploadOutcome
	Message  string
	Document *Document
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationInfo    NotificationKind = "info"
)

type Notification struct {
	Kind    NotificationKind
	Message string
	ShownAt time.Time
}

type HealthState string

const (
	HealthChecking  HealthState = "checking"
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
)

const (
	MessageBackendUnavailable = "Backend API is not available. Please make sure the server is running."
	MessageLoadFailed         = "Failed to load documents"
	MessageUploaded           = "Document uploaded successfully!"
	MessageDeleted            = "Document deleted successfully!"
	MessageDeleteFailed       = "Delete failed"
	MessageUploadFailed       = "Upload failed"
	MessageChatFailed         = "Failed to get response. Please try again."
	PromptConfirmDelete       = "Are you sure you want to delete this document?"
)
