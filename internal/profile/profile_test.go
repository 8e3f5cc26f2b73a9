package profile

import (
	"strings"
	"testing"
)

func validProfile(t *testing.T) *Profile {
	t.Helper()
	return &Profile{
		Mode:       "dev",
		Data:       t.TempDir(),
		APIBaseURL: "https://chat.example.com/api",
		PageSize:   50,
		PaceMillis: 500,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{"valid", func(p *Profile) {}, ""},
		{"bad mode", func(p *Profile) { p.Mode = "staging" }, "invalid mode"},
		{"missing api url", func(p *Profile) { p.APIBaseURL = "" }, "api base url is required"},
		{"relative api url", func(p *Profile) { p.APIBaseURL = "/conversations" }, "invalid api base url"},
		{"page size zero", func(p *Profile) { p.PageSize = 0 }, "page size"},
		{"page size too big", func(p *Profile) { p.PageSize = 500 }, "page size"},
		{"negative pace", func(p *Profile) { p.PaceMillis = -1 }, "pace millis"},
		{"missing data dir", func(p *Profile) { p.Data = "/nonexistent/chatporter-data" }, "does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile(t)
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate(): unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate(): expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateDefaultsTimeout(t *testing.T) {
	p := validProfile(t)
	p.TimeoutSeconds = 0
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate(): unexpected error %v", err)
	}
	if p.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds: expected default 30, got %d", p.TimeoutSeconds)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CHATPORTER_API_BASE_URL", "https://env.example.com")
	t.Setenv("CHATPORTER_CLIENT_ID", "env-client")
	t.Setenv("CHATPORTER_PAGE_SIZE", "25")

	p := &Profile{APIBaseURL: "https://flag.example.com", Scope: "chat.read", PageSize: 50}
	p.FromEnv()

	if p.APIBaseURL != "https://env.example.com" {
		t.Errorf("APIBaseURL: expected env value, got %q", p.APIBaseURL)
	}
	if p.ClientID != "env-client" {
		t.Errorf("ClientID: expected env value, got %q", p.ClientID)
	}
	if p.PageSize != 25 {
		t.Errorf("PageSize: expected 25, got %d", p.PageSize)
	}
	// Unset variables keep the value already present.
	if p.Scope != "chat.read" {
		t.Errorf("Scope: expected flag value preserved, got %q", p.Scope)
	}
}

func TestIsDev(t *testing.T) {
	if !(&Profile{Mode: "dev"}).IsDev() {
		t.Error("dev mode should report IsDev")
	}
	if (&Profile{Mode: "prod"}).IsDev() {
		t.Error("prod mode should not report IsDev")
	}
}
