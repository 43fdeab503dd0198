// Package detector classifies log events into severity-tagged clusters
// and produces one Incident per signal bucket.
package detector

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/reliabot/agent/internal/model"
)

// signal is the classification a single log event maps to.
type signal struct {
	key      string
	severity model.Severity
	label    string
}

// bestEffortParse extracts the optional "msg", "type", and "route"
// fields from a best-effort JSON parse of the raw message. Malformed
// JSON is never fatal — the caller falls back to the raw message.
func bestEffortParse(raw string) (msg, typ, route string, ok bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", "", "", false
	}
	if m, ok := obj["msg"].(string); ok {
		msg = m
	}
	if t, ok := obj["type"].(string); ok {
		typ = t
	}
	if r, ok := obj["route"].(string); ok {
		route = r
	}
	return msg, typ, route, true
}

// classify assigns a signal to one event per the literal pattern table
// in spec.md §4.1.
func classify(ev model.LogEvent) signal {
	displayMsg := ev.Message
	var typ, route string

	if msg, t, r, ok := bestEffortParse(ev.Message); ok {
		if msg != "" {
			displayMsg = msg
		}
		typ = t
		route = r
	}
	if route == "" {
		route = "unknown"
	}

	switch {
	case typ == "error_burst" || strings.Contains(displayMsg, "Synthetic error burst"):
		return signal{key: "error_burst:" + route, severity: model.SeverityHigh, label: "error_burst"}
	case strings.Contains(displayMsg, "Simulated error"):
		return signal{key: "error:" + route, severity: model.SeverityHigh, label: "error"}
	case strings.Contains(displayMsg, "Slow response"):
		return signal{key: "slow:" + route, severity: model.SeverityMedium, label: "latency"}
	case strings.Contains(displayMsg, "Failed login attempt"):
		return signal{key: "auth:" + route, severity: model.SeverityLow, label: "auth"}
	default:
		return signal{key: "other:" + route, severity: model.SeverityLow, label: "unknown"}
	}
}

type bucket struct {
	sig      signal
	events   []model.LogEvent
}

// Detect classifies an ordered list of log events from a single range
// query into one Incident per signal bucket. Detection is pure: equal
// input sequences yield incidents with equal (key, severity, evidence,
// count, firstSeen, lastSeen) tuples — only the generated ID differs.
func Detect(events []model.LogEvent) []model.Incident {
	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, ev := range events {
		sig := classify(ev)
		b, ok := buckets[sig.key]
		if !ok {
			b = &bucket{sig: sig}
			buckets[sig.key] = b
			order = append(order, sig.key)
		}
		b.events = append(b.events, ev)
	}

	incidents := make([]model.Incident, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		incidents = append(incidents, buildIncident(b))
	}

	// Deterministic ordering: severity descending, then key ascending.
	// Title embeds the bucket key verbatim, so it doubles as the sort
	// key (spec.md §5, §9 — map iteration order must not leak through).
	sort.SliceStable(incidents, func(i, j int) bool {
		si, sj := severityRank(incidents[i].Severity), severityRank(incidents[j].Severity)
		if si != sj {
			return si > sj
		}
		return incidents[i].Title < incidents[j].Title
	})

	return incidents
}

func severityRank(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 3
	case model.SeverityHigh:
		return 2
	case model.SeverityMedium:
		return 1
	default:
		return 0
	}
}

func buildIncident(b *bucket) model.Incident {
	evidence := make([]string, 0, model.MaxEvidence)
	for i, ev := range b.events {
		if i >= model.MaxEvidence {
			break
		}
		evidence = append(evidence, ev.Message)
	}

	first, last := b.events[0].Timestamp, b.events[0].Timestamp
	for _, ev := range b.events[1:] {
		if lessNumeric(ev.Timestamp, first) {
			first = ev.Timestamp
		}
		if lessNumeric(last, ev.Timestamp) {
			last = ev.Timestamp
		}
	}

	return model.Incident{
		ID:        uuid.NewString(),
		Title:     fmt.Sprintf("Incident: %s (%s)", b.sig.label, b.sig.key),
		Severity:  b.sig.severity,
		Evidence:  evidence,
		FirstSeen: first,
		LastSeen:  last,
		Count:     len(b.events),
	}
}

// lessNumeric compares two nanosecond-timestamp decimal strings
// numerically, not lexicographically, per spec.md §4.1's mandate that
// the implementer sort numerically even when string widths differ.
func lessNumeric(a, b string) bool {
	an, aerr := strconv.ParseInt(a, 10, 64)
	bn, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return an < bn
	}
	// Fall back to comparing by length then lexicographically if either
	// timestamp fails to parse as an integer (defensive; the log
	// backend's contract guarantees numeric strings).
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
