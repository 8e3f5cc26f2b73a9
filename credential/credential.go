// Package credential derives a usable bearer token from the encrypted
// session artifact left behind by the vendor's web client. The token store
// encrypts each entry with a key derived from a per-session base key, so
// resolving a credential means: read the encryption descriptor, derive the
// per-entry key, decrypt the stored token blob.
package credential

import "fmt"

// Failure reasons surfaced through Error. These are session-level failures:
// none of them is retryable, the user has to re-authenticate in the browser
// and export a fresh session artifact.
const (
	ReasonNoContext = "no encryption context"
	ReasonNoToken   = "no stored token"
	ReasonDecrypt   = "decrypt failed"
)

// Credential is a resolved identity: the bearer token plus the account and
// tenant identifiers the remote API expects as request headers.
type Credential struct {
	Token     string
	AccountID string
	TenantID  string
}

// Error is a fatal credential resolution failure.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential: %s: %v", e.Reason, e.Err)
	}
	return "credential: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason string, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

// SessionSource is the capability interface over the browser session
// artifact. Production reads an exported session dump from disk; tests use
// an in-memory fake.
type SessionSource interface {
	// Cookie returns the named cookie value.
	Cookie(name string) (string, bool)
	// StorageEntry returns the storage value for the given key.
	StorageEntry(key string) (string, bool)
}

// Resolver resolves credentials against a session source.
type Resolver interface {
	Resolve() (*Credential, error)
}
