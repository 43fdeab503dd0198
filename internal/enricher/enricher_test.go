package enricher

import (
	"context"
	"testing"

	"github.com/reliabot/agent/internal/model"
)

type fakeClient struct {
	reply string
	err   error
}

func (f fakeClient) Complete(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

func TestSummarize_NilClientReturnsNil(t *testing.T) {
	e := &Enricher{}
	s, err := e.Summarize(context.Background(), model.Incident{Title: "x"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s != nil {
		t.Errorf("s = %+v, want nil", s)
	}
}

func TestSummarize_ValidReply(t *testing.T) {
	reply := `here you go: {"summary":"s","rootCause":"rc","recommendedActions":["a"],"suggestedSeverity":"high","suggestedLabels":["x"],"confidence":0.8}`
	e := &Enricher{Client: fakeClient{reply: reply}}
	s, err := e.Summarize(context.Background(), model.Incident{Title: "x", Severity: model.SeverityHigh})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s == nil {
		t.Fatal("s = nil, want non-nil")
	}
	if s.Summary != "s" || s.SuggestedSeverity != model.SeverityHigh || s.Confidence != 0.8 {
		t.Errorf("s = %+v", s)
	}
}

func TestSummarize_InvalidSchemaReturnsNil(t *testing.T) {
	// missing required rootCause and recommendedActions.
	reply := `{"summary":"s","suggestedSeverity":"high","confidence":0.5}`
	e := &Enricher{Client: fakeClient{reply: reply}}
	s, err := e.Summarize(context.Background(), model.Incident{Title: "x"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s != nil {
		t.Errorf("s = %+v, want nil", s)
	}
}

func TestSummarize_NoJSONReturnsNil(t *testing.T) {
	e := &Enricher{Client: fakeClient{reply: "no braces here"}}
	s, err := e.Summarize(context.Background(), model.Incident{Title: "x"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s != nil {
		t.Errorf("s = %+v, want nil", s)
	}
}
