package bus

import (
	"time"
)

// ReportGenerated is published after a report is persisted to a tenant's
// archive area.
type ReportGenerated struct {
	TenantID    string    `json:"tenant_id"`
	ReportID    string    `json:"report_id"`
	Kind        string    `json:"kind"`
	Path        string    `json:"path"`
	GeneratedAt time.Time `json:"generated_at"`
	Channels    []string  `json:"channels"` // tenant notification channels
}

// Notification is one delivery request fanned out to a single channel
// subscriber (push, email, ...).
type Notification struct {
	Channel  string `json:"channel"`
	TenantID string `json:"tenant_id"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}
