package services_test

import (
	"errors"
	"strings"
	"testing"

	"duendefinder/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "publication", "create post", "wordpress rejected post", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"publication", "create post", "wordpress rejected post"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "enrichment", "prepare", "missing date", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "publication", "", "no credentials", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "distribution", "", "", nil), false},
		{"transient", services.Wrap(services.ErrTransient, "enrichment", "llm", "", errors.New("io")), true},
		{"external", services.Wrap(services.ErrExternalTool, "publication", "media", "", nil), true},
		{"plain", errors.New("plain"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
