package severity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/severity"
)

func TestClassifyColorsAndWeights(t *testing.T) {
	cases := []struct {
		severity model.Severity
		color    string
		weight   int
	}{
		{model.SeverityCritical, "#d32f2f", 4},
		{model.SeverityHigh, "#f44336", 3},
		{model.SeverityMedium, "#ff9800", 2},
		{model.SeverityLow, "#4caf50", 1},
	}

	for _, tc := range cases {
		route := severity.Classify(model.Notification{Severity: tc.severity})
		assert.Equal(t, tc.color, route.Color, "color for %s", tc.severity)
		assert.Equal(t, tc.weight, route.Weight, "weight for %s", tc.severity)
	}
}

func TestClassifyUnknownSeverity(t *testing.T) {
	route := severity.Classify(model.Notification{Severity: "urgent"})
	assert.Empty(t, route.Color)
	assert.Zero(t, route.Weight)
}

func TestNavigationTargetForDocumentTypes(t *testing.T) {
	details := json.RawMessage(`{"document_id": "doc-42"}`)

	for _, typ := range []string{model.TypeComplianceIssue, model.TypeDocumentUpdate} {
		route := severity.Classify(model.Notification{Type: typ, Details: details})
		assert.Equal(t, "/documents/doc-42", route.Target, "target for %s", typ)
	}
}

func TestNavigationTargetAbsentForOtherTypes(t *testing.T) {
	details := json.RawMessage(`{"document_id": "doc-42"}`)

	route := severity.Classify(model.Notification{
		Type:    model.TypeSecurityAlert,
		Details: details,
	})
	assert.Empty(t, route.Target)
}

func TestNavigationDegradesOnBadDetails(t *testing.T) {
	cases := []json.RawMessage{
		nil,
		json.RawMessage(`{}`),
		json.RawMessage(`not json`),
		json.RawMessage(`{"document_id": ""}`),
	}

	for _, details := range cases {
		route := severity.Classify(model.Notification{
			Type:    model.TypeComplianceIssue,
			Details: details,
		})
		assert.Empty(t, route.Target, "details %q", string(details))
	}
}
