package model

import "time"

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypePullRequest WebhookEventType = "pull_request"
	EventTypePing        WebhookEventType = "ping"
	EventTypeUnknown     WebhookEventType = "unknown"
)

// WebhookEvent represents a webhook event received from GitHub
type WebhookEvent struct {
	ID         string           // Retrieved from X-GitHub-Delivery header
	Type       WebhookEventType // Retrieved from X-GitHub-Event header
	Action     string           // Event action (e.g., opened, synchronize)
	Repository string           // Repository full name
	Sender     string           // Sender username
	ReceivedAt time.Time
	RawPayload []byte
}

// IsSupportedEvent reports whether the event should trigger a breaking change check.
// Only pull request events that change the head revision qualify.
func (e *WebhookEvent) IsSupportedEvent() bool {
	if e.Type != EventTypePullRequest {
		return false
	}

	switch e.Action {
	case "opened", "synchronize", "reopened":
		return true
	default:
		return false
	}
}
