package sandbox

import (
	"context"
	"testing"
)

func TestRun_RejectsNonPositiveTimeout(t *testing.T) {
	e := New()
	_, err := e.Run(context.Background(), Request{Image: "alpine", Command: []string{"true"}})
	if err == nil {
		t.Fatal("Run: want error for zero TimeoutMs, got nil")
	}
}
