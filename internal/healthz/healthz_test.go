package healthz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRun_AllPass(t *testing.T) {
	c := &Checker{LogReady: func(context.Context) error { return nil }}
	results, ok := c.Run(context.Background())
	if !ok {
		t.Fatalf("ok = false, results = %+v", results)
	}
	if len(results) != 1 || results[0].Name != "log_backend" {
		t.Errorf("results = %+v", results)
	}
}

func TestRun_FailurePropagates(t *testing.T) {
	c := &Checker{LogReady: func(context.Context) error { return errors.New("down") }}
	_, ok := c.Run(context.Background())
	if ok {
		t.Fatalf("ok = true, want false")
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	c := &Checker{RetryAttempts: 3, RetryDelay: time.Millisecond}
	err := c.retry(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_GivesUpAfterAttemptsExhausted(t *testing.T) {
	attempts := 0
	c := &Checker{RetryAttempts: 2, RetryDelay: time.Millisecond}
	err := c.retry(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("retry: want error, got nil")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDemoURLCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Checker{DemoURL: srv.URL}
	results, ok := c.Run(context.Background())
	if !ok || len(results) != 1 || results[0].Name != "demo" {
		t.Errorf("results = %+v, ok = %v", results, ok)
	}
}

func TestDemoURLCheck_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Checker{DemoURL: srv.URL}
	_, ok := c.Run(context.Background())
	if ok {
		t.Errorf("ok = true, want false for 500 response")
	}
}
