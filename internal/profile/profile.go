package profile

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to run chatporter.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address of the control server.
	Addr string
	// Port is the binding port of the control server.
	Port int
	// Data is the directory where artifacts (exports, capture logs) are written.
	Data string

	// APIBaseURL is the base URL of the remote conversation service.
	APIBaseURL string
	// SessionPath is the path to the exported browser-session artifact
	// (cookies + storage entries) the credential resolver reads.
	SessionPath string
	// ClientID is the vendor client identifier. It is both a segment of the
	// token storage key and the HKDF context string.
	ClientID string
	// Scope is the token scope segment of the storage key.
	Scope string

	// PageSize is the number of conversations requested per list page.
	PageSize int
	// PaceMillis is the fixed delay between outbound requests in milliseconds.
	PaceMillis int
	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int

	// Version is the current binary version.
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Values already set (e.g. from flags) are only overridden when the
// corresponding variable is present.
func (p *Profile) FromEnv() {
	p.APIBaseURL = getEnvOrDefault("CHATPORTER_API_BASE_URL", p.APIBaseURL)
	p.SessionPath = getEnvOrDefault("CHATPORTER_SESSION_PATH", p.SessionPath)
	p.ClientID = getEnvOrDefault("CHATPORTER_CLIENT_ID", p.ClientID)
	p.Scope = getEnvOrDefault("CHATPORTER_SCOPE", p.Scope)
	p.PageSize = getEnvOrDefaultInt("CHATPORTER_PAGE_SIZE", p.PageSize)
	p.PaceMillis = getEnvOrDefaultInt("CHATPORTER_PACE_MILLIS", p.PaceMillis)
	p.TimeoutSeconds = getEnvOrDefaultInt("CHATPORTER_TIMEOUT_SECONDS", p.TimeoutSeconds)
}

// Validate normalizes and checks the profile.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		return errors.Errorf("invalid mode %q, expect prod or dev", p.Mode)
	}
	if p.APIBaseURL == "" {
		return errors.New("api base url is required")
	}
	parsed, err := url.Parse(p.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.Errorf("invalid api base url %q", p.APIBaseURL)
	}
	if p.PageSize <= 0 || p.PageSize > 200 {
		return errors.Errorf("page size %d out of range (1..200)", p.PageSize)
	}
	if p.PaceMillis < 0 {
		return errors.Errorf("pace millis must be non-negative, got %d", p.PaceMillis)
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = 30
	}

	if p.Data == "" {
		p.Data = "."
	}
	absData, err := filepath.Abs(p.Data)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve data directory %q", p.Data)
	}
	p.Data = absData
	if fi, err := os.Stat(p.Data); err != nil || !fi.IsDir() {
		return errors.Errorf("data directory %q does not exist", p.Data)
	}
	return nil
}

func (p *Profile) String() string {
	return fmt.Sprintf("mode=%s addr=%s port=%d data=%s api=%s", p.Mode, p.Addr, p.Port, p.Data, p.APIBaseURL)
}
