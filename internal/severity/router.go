// Package severity classifies notifications for presentation and click
// routing. Classification is pure and best effort: unrecognized input yields
// a zero-value route, never an error.
package severity

import (
	"encoding/json"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
)

// Route is the presentation outcome for one notification. Weight and Color
// drive styling only; they never influence merge ordering. An empty Target
// means the notification navigates nowhere on click.
type Route struct {
	Color  string
	Weight int
	Target string
}

var severityColors = map[model.Severity]string{
	model.SeverityCritical: "#d32f2f",
	model.SeverityHigh:     "#f44336",
	model.SeverityMedium:   "#ff9800",
	model.SeverityLow:      "#4caf50",
}

// Classify maps a notification to its route.
func Classify(n model.Notification) Route {
	return Route{
		Color:  severityColors[n.Severity],
		Weight: n.Severity.Weight(),
		Target: navigationTarget(n),
	}
}

func navigationTarget(n model.Notification) string {
	switch n.Type {
	case model.TypeComplianceIssue, model.TypeDocumentUpdate:
		if id := documentID(n.Details); id != "" {
			return "/documents/" + id
		}
	}
	return ""
}

// documentID digs the document reference out of the opaque details payload.
// Malformed or missing details are not an error: routing degrades to none.
func documentID(details json.RawMessage) string {
	if len(details) == 0 {
		return ""
	}

	var payload struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(details, &payload); err != nil {
		return ""
	}
	return payload.DocumentID
}
