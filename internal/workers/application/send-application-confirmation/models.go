// internal/workers/application/send-application-confirmation/models.go
package sendapplicationconfirmation

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
