package detector

import (
	"testing"

	"github.com/reliabot/agent/internal/model"
)

func TestDetect_Scenario1(t *testing.T) {
	events := []model.LogEvent{
		{Timestamp: "1700000000000000000", Message: `{"msg":"Synthetic error burst","type":"error_burst","route":"/api/orders"}`},
		{Timestamp: "1700000000000000001", Message: `{"msg":"Slow response","route":"/slow"}`},
	}
	incidents := Detect(events)
	if len(incidents) != 2 {
		t.Fatalf("len(incidents) = %d, want 2", len(incidents))
	}
	if incidents[0].Severity != model.SeverityHigh {
		t.Errorf("incidents[0].Severity = %q, want high", incidents[0].Severity)
	}
	if incidents[1].Severity != model.SeverityMedium {
		t.Errorf("incidents[1].Severity = %q, want medium", incidents[1].Severity)
	}
}

func TestDetect_Empty(t *testing.T) {
	if incidents := Detect(nil); len(incidents) != 0 {
		t.Fatalf("len(incidents) = %d, want 0", len(incidents))
	}
}

func TestDetect_MalformedJSONNotFatal(t *testing.T) {
	events := []model.LogEvent{
		{Timestamp: "1", Message: "{not json, Simulated error"},
	}
	incidents := Detect(events)
	if len(incidents) != 1 {
		t.Fatalf("len(incidents) = %d, want 1", len(incidents))
	}
	if incidents[0].Severity != model.SeverityHigh {
		t.Errorf("Severity = %q, want high", incidents[0].Severity)
	}
}

func TestDetect_MissingRouteDefaultsUnknown(t *testing.T) {
	events := []model.LogEvent{{Timestamp: "1", Message: "Failed login attempt"}}
	incidents := Detect(events)
	if incidents[0].Title != "Incident: auth (auth:unknown)" {
		t.Errorf("Title = %q", incidents[0].Title)
	}
}

func TestDetect_EvidenceCapped(t *testing.T) {
	var events []model.LogEvent
	for i := 0; i < 9; i++ {
		events = append(events, model.LogEvent{Timestamp: "1", Message: "Simulated error"})
	}
	incidents := Detect(events)
	if len(incidents[0].Evidence) != model.MaxEvidence {
		t.Errorf("len(Evidence) = %d, want %d", len(incidents[0].Evidence), model.MaxEvidence)
	}
	if incidents[0].Count != 9 {
		t.Errorf("Count = %d, want 9", incidents[0].Count)
	}
}

func TestDetect_TimestampsNumericNotLexicographic(t *testing.T) {
	// "9" > "10" lexicographically but not numerically.
	events := []model.LogEvent{
		{Timestamp: "9", Message: "Simulated error"},
		{Timestamp: "10", Message: "Simulated error"},
	}
	incidents := Detect(events)
	if incidents[0].FirstSeen != "9" {
		t.Errorf("FirstSeen = %q, want 9", incidents[0].FirstSeen)
	}
	if incidents[0].LastSeen != "10" {
		t.Errorf("LastSeen = %q, want 10", incidents[0].LastSeen)
	}
}

func TestDetect_DeterministicOrdering(t *testing.T) {
	events := []model.LogEvent{
		{Timestamp: "1", Message: "Failed login attempt", Labels: nil},
		{Timestamp: "2", Message: "Simulated error"},
		{Timestamp: "3", Message: "Slow response"},
	}
	a := Detect(events)
	b := Detect(append([]model.LogEvent(nil), events...))
	if len(a) != len(b) {
		t.Fatalf("len mismatch")
	}
	for i := range a {
		if a[i].Severity != b[i].Severity || a[i].Title != b[i].Title {
			t.Errorf("ordering not stable at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
	// high (error) first, then medium (slow), then low (auth).
	if a[0].Severity != model.SeverityHigh || a[1].Severity != model.SeverityMedium || a[2].Severity != model.SeverityLow {
		t.Errorf("severities not descending: %v %v %v", a[0].Severity, a[1].Severity, a[2].Severity)
	}
}

func TestDetect_PureIDDiffersOnly(t *testing.T) {
	events := []model.LogEvent{{Timestamp: "1", Message: "Slow response", Labels: map[string]string{"route": "/x"}}}
	a := Detect(events)[0]
	b := Detect(events)[0]
	if a.ID == b.ID {
		t.Errorf("expected distinct random IDs across runs")
	}
	if a.Severity != b.Severity || a.Title != b.Title || a.Count != b.Count {
		t.Errorf("non-ID fields diverged: %+v vs %+v", a, b)
	}
}
