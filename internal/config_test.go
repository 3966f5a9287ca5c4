package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestRetryConfig_Bounds(t *testing.T) {
	cases := map[string]RetryConfig{
		"zero attempts": {MaxAttempts: 0, BaseDelay: time.Second},
		"too many":      {MaxAttempts: 11, BaseDelay: time.Second},
		"zero delay":    {MaxAttempts: 3},
		"sub-ms delay":  {MaxAttempts: 3, BaseDelay: time.Microsecond},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}

	cfg := RetryConfig{MaxAttempts: 4, BaseDelay: 250 * time.Millisecond}
	p := cfg.Policy(nil)
	if p.MaxAttempts != 4 || p.BaseDelay != 250*time.Millisecond {
		t.Errorf("policy = %+v", p)
	}
}

func TestEventsAndIdempotency_Required(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Events.Throttle = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero throttle should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Idempotency.TTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero idempotency ttl should fail")
	}
}

func TestRemoteConfig_URL(t *testing.T) {
	cfg := RemoteConfig{URL: "not a url"}
	if err := cfg.Validate(); err == nil {
		t.Error("invalid url should fail")
	}
	cfg.URL = "http://127.0.0.1:9000/api"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid url: %v", err)
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 9090}
	if got := cfg.Address(); got != ":9090" {
		t.Errorf("address = %q", got)
	}
	if err := (&HTTPConfig{Port: 70000}).Validate(); err == nil {
		t.Error("out-of-range port should fail")
	}
}
