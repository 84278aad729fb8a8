package audit

import "time"

// Event is emitted from domain logic to capture key verification actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    string
	Action    string
	Outcome   string
	Reason    string
	Provider  string
}

type AuditEvent string

const (
	EventVerificationStarted  AuditEvent = "verification_started"
	EventVerificationApproved AuditEvent = "verification_approved"
	EventVerificationRejected AuditEvent = "verification_rejected"
	EventVerificationErrored  AuditEvent = "verification_errored"
	EventStatusAccessed       AuditEvent = "status_accessed"
	EventProvidersProbed      AuditEvent = "providers_probed"
)
