package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/voicecap/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("id", "abc")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("id", "   ")
	if !v2.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorOneOf(t *testing.T) {
	days := []string{"SENIN", "SELASA"}
	if New().OneOf("hari", "SENIN", days).HasErrors() {
		t.Error("expected SENIN to be allowed")
	}
	v := New().OneOf("hari", "MONDAY", days)
	if !v.HasErrors() || !strings.Contains(v.Errors()[0].Message, "SENIN, SELASA") {
		t.Errorf("unexpected errors: %v", v.Errors())
	}
}

func TestValidatorErr(t *testing.T) {
	if err := New().Required("id", "x").Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	err := New().
		Required("id", "").
		Custom(false, "waktu_selesai", "must be after waktu_mulai").
		Err()
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT AppError, got %v", err)
	}
	if !strings.Contains(appErr.Message, "id: is required") || !strings.Contains(appErr.Message, "waktu_selesai") {
		t.Errorf("message = %q", appErr.Message)
	}
	if fields, _ := appErr.Details["fields"].([]FieldError); len(fields) != 2 {
		t.Errorf("details = %v", appErr.Details)
	}
}

func TestStructValidate(t *testing.T) {
	type schedule struct {
		PollInterval time.Duration `mapstructure:"poll_interval" validate:"gte=1s,lte=60s"`
		Ledger       string        `mapstructure:"ledger" validate:"oneof=memory redis"`
	}
	type root struct {
		BaseURL  string   `mapstructure:"base_url" validate:"required,url"`
		Schedule schedule `mapstructure:"schedule"`
	}

	if err := Validate(root{BaseURL: "http://localhost:8080/api/v1", Schedule: schedule{PollInterval: 30 * time.Second, Ledger: "memory"}}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	err := Validate(root{BaseURL: "", Schedule: schedule{PollInterval: 2 * time.Minute, Ledger: "disk"}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"base_url: is required", "schedule.poll_interval: must be at most", "schedule.ledger: must be one of"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("PollInterval"); got != "poll_interval" {
		t.Errorf("toSnakeCase = %q", got)
	}
}
