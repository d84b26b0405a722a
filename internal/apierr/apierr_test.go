package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindAuth, "Invalid API key")
	if got := KindOf(err); got != KindAuth {
		t.Errorf("KindOf = %q, want %q", got, KindAuth)
	}

	wrapped := fmt.Errorf("calling provider: %w", err)
	if got := KindOf(wrapped); got != KindAuth {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindAuth)
	}

	if got := KindOf(errors.New("plain")); got != KindUnexpected {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindUnexpected)
	}
}

func TestMessageOf(t *testing.T) {
	err := New(KindTransport, "No internet connection or API unavailable")
	if got := MessageOf(err); got != "No internet connection or API unavailable" {
		t.Errorf("MessageOf = %q", got)
	}
	if got := MessageOf(errors.New("plain failure")); got != "plain failure" {
		t.Errorf("MessageOf(plain) = %q", got)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(KindProvider, "API error 500").WithDetails("body text")
	if got := DetailsOf(err); got != "body text" {
		t.Errorf("DetailsOf = %q", got)
	}
	if got := DetailsOf(errors.New("plain")); got != "" {
		t.Errorf("DetailsOf(plain) = %q, want empty", got)
	}
}

func TestErrorString(t *testing.T) {
	err := Newf(KindArgument, "project_id must be an integer, got %q", "abc")
	want := `argument: project_id must be an integer, got "abc"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	withDetails := New(KindProvider, "API error 500").WithDetails("body")
	if want := "provider: API error 500 (body)"; withDetails.Error() != want {
		t.Errorf("Error() = %q, want %q", withDetails.Error(), want)
	}
}
