package fixsynth

import (
	"context"
	"testing"

	"github.com/reliabot/agent/internal/model"
)

type fakeClient struct {
	reply string
}

func (f fakeClient) Complete(context.Context, string, string) (string, error) {
	return f.reply, nil
}

func TestProposeDiff_ValidReply(t *testing.T) {
	reply := `{"summary":"s","reason":"r","testPlan":["run tests"],"diff":"diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1 +1 @@\n-a\n+b\n"}`
	s := &Synthesizer{Client: fakeClient{reply: reply}}
	p, err := s.ProposeDiff(context.Background(), model.Incident{Title: "t"}, nil, nil)
	if err != nil {
		t.Fatalf("ProposeDiff: %v", err)
	}
	if p == nil {
		t.Fatal("p = nil, want non-nil")
	}
	if p.Kind != model.FixKindDiff || p.Diff == "" {
		t.Errorf("p = %+v", p)
	}
}

func TestProposeRewrite_ValidReply(t *testing.T) {
	reply := `{"summary":"s","reason":"r","testPlan":["run tests"],"files":[{"path":"a.go","content":"package a"}]}`
	s := &Synthesizer{Client: fakeClient{reply: reply}}
	p, err := s.ProposeRewrite(context.Background(), model.Incident{Title: "t"}, nil, nil)
	if err != nil {
		t.Fatalf("ProposeRewrite: %v", err)
	}
	if p == nil {
		t.Fatal("p = nil, want non-nil")
	}
	if p.Kind != model.FixKindRewrite || len(p.Files) != 1 {
		t.Errorf("p = %+v", p)
	}
}

func TestPropose_MissingRequiredFieldReturnsNil(t *testing.T) {
	reply := `{"summary":"s","diff":"whatever"}`
	s := &Synthesizer{Client: fakeClient{reply: reply}}
	p, err := s.ProposeDiff(context.Background(), model.Incident{Title: "t"}, nil, nil)
	if err != nil {
		t.Fatalf("ProposeDiff: %v", err)
	}
	if p != nil {
		t.Errorf("p = %+v, want nil", p)
	}
}

func TestProposeRewrite_EmptyFilesReturnsNil(t *testing.T) {
	reply := `{"summary":"s","reason":"r","testPlan":["run tests"],"files":[]}`
	s := &Synthesizer{Client: fakeClient{reply: reply}}
	p, err := s.ProposeRewrite(context.Background(), model.Incident{Title: "t"}, nil, nil)
	if err != nil {
		t.Fatalf("ProposeRewrite: %v", err)
	}
	if p != nil {
		t.Errorf("p = %+v, want nil for an empty files rewrite", p)
	}
}

func TestPropose_NilClientReturnsNil(t *testing.T) {
	s := &Synthesizer{}
	p, err := s.ProposeDiff(context.Background(), model.Incident{Title: "t"}, nil, nil)
	if err != nil {
		t.Fatalf("ProposeDiff: %v", err)
	}
	if p != nil {
		t.Errorf("p = %+v, want nil", p)
	}
}
