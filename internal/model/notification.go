package model

import (
	"encoding/json"
	"time"
)

// Severity orders notifications for presentation only; it never affects
// merge ordering.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight returns the presentation weight: critical > high > medium > low.
// Unknown severities weigh zero.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Weight() > 0
}

// Known notification types. The enum is open ended: unknown types are
// stored and delivered, they just get no click routing.
const (
	TypeComplianceIssue = "compliance_issue"
	TypeDocumentUpdate  = "document_update"
	TypeSecurityAlert   = "security_alert"
)

// Notification is one entry of a recipient's feed. ID and the
// (RecipientID, ID) pair are immutable for the record's lifetime; Read
// transitions false to true exactly once.
type Notification struct {
	ID          string          `json:"id"`
	RecipientID string          `json:"recipient_id"`
	Type        string          `json:"type"`
	Severity    Severity        `json:"severity"`
	Message     string          `json:"message"`
	Details     json.RawMessage `json:"details,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Read        bool            `json:"read"`
}
