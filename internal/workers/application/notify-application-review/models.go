// internal/workers/application/notify-application-review/models.go
package notifyapplicationreview

import "time"

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	MessageID   string `json:"messageId"`
	Status      string `json:"status"`      // "published", "disabled"
	PublishedAt string `json:"publishedAt"` // ISO 8601
}

// ReviewEvent is the message body published for the admin team.
type ReviewEvent struct {
	EventType     string    `json:"eventType"`
	ApplicationID string    `json:"applicationId"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Experience    string    `json:"experience"`
	AudienceSize  string    `json:"audienceSize"`
	Channels      []string  `json:"channels"`
	Products      []string  `json:"products"`
	Motivation    string    `json:"motivation"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

const EventApplicationSubmitted = "affiliate_application_submitted"

// Statuses
const (
	StatusPublished = "published"
	StatusDisabled  = "disabled"
)
