package envelope

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/AraikT/mcp-seo/internal/apierr"
)

func TestSuccessEnvelopeShape(t *testing.T) {
	e := Success(map[string]any{
		"projects":    []string{"a", "b"},
		"total_count": 2,
	})

	var decoded map[string]any
	if err := json.Unmarshal([]byte(e.JSON()), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["status"] != "success" {
		t.Errorf("status = %v", decoded["status"])
	}
	for _, key := range []string{"message", "error_kind", "details"} {
		if _, present := decoded[key]; present {
			t.Errorf("success envelope must not carry %q", key)
		}
	}
	if decoded["total_count"] != float64(2) {
		t.Errorf("total_count = %v", decoded["total_count"])
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	err := apierr.New(apierr.KindAuth, "Invalid API key").WithDetails("401 body")
	e := Failure(err)

	var decoded map[string]any
	if unmarshalErr := json.Unmarshal([]byte(e.JSON()), &decoded); unmarshalErr != nil {
		t.Fatalf("unmarshal: %v", unmarshalErr)
	}
	if decoded["status"] != "error" {
		t.Errorf("status = %v", decoded["status"])
	}
	if decoded["message"] != "Invalid API key" {
		t.Errorf("message = %v", decoded["message"])
	}
	if decoded["error_kind"] != "authentication" {
		t.Errorf("error_kind = %v", decoded["error_kind"])
	}
	if decoded["details"] != "401 body" {
		t.Errorf("details = %v", decoded["details"])
	}
}

func TestParseIsIdempotent(t *testing.T) {
	original := Success(map[string]any{"total_count": 3, "keywords": []any{"a", "b", "c"}})
	text := original.JSON()

	parsed, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.JSON() != text {
		t.Errorf("re-serialized envelope differs:\n%s\nvs\n%s", parsed.JSON(), text)
	}

	again, err := Parse([]byte(parsed.JSON()))
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if again.JSON() != text {
		t.Errorf("double round-trip changed the envelope")
	}
}

func TestParseRejectsUnknownStatus(t *testing.T) {
	if _, err := Parse([]byte(`{"status":"partial"}`)); err == nil {
		t.Error("expected an error for unknown status")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestWarningCarriesFields(t *testing.T) {
	e := Warning("API key is set but the connection check failed", map[string]any{
		"checks": map[string]any{"api_key_set": true},
	})
	if e.Status() != StatusWarning {
		t.Errorf("status = %v", e.Status())
	}
	text := e.JSON()
	if !strings.Contains(text, `"checks"`) || !strings.Contains(text, `"message"`) {
		t.Errorf("warning envelope missing fields: %s", text)
	}
}

func TestWithHelp(t *testing.T) {
	e := Errorf(apierr.KindConfig, "Topvisor API key not found").
		WithHelp("Set TOPVISOR_API_KEY in the environment.")
	if !strings.Contains(e.JSON(), `"help"`) {
		t.Errorf("help line missing: %s", e.JSON())
	}
}

func TestCountDistinct(t *testing.T) {
	items := []string{"a", "b", "a", "c", "b"}
	if got := CountDistinct(items, func(s string) string { return s }); got != 3 {
		t.Errorf("CountDistinct = %d, want 3", got)
	}
	if got := CountDistinct(nil, func(s string) string { return s }); got != 0 {
		t.Errorf("CountDistinct(nil) = %d, want 0", got)
	}
}

func TestIsEnvelope(t *testing.T) {
	if !IsEnvelope([]byte(`{"status":"success","total_count":0}`)) {
		t.Error("valid envelope not recognized")
	}
	if IsEnvelope([]byte(`{"result":[]}`)) {
		t.Error("provider payload misrecognized as envelope")
	}
}
