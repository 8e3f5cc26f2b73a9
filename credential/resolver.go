package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	// encryptionCookie holds the token-store encryption descriptor.
	encryptionCookie = "cache.encryption"
	// activeAccountKey is the storage entry naming the signed-in account.
	activeAccountKey = "active-account"
	// derivedKeyLen is the AES-256 key size produced by HKDF.
	derivedKeyLen = 32
	// gcmNonceSize matches the store format: every entry is sealed with the
	// fixed all-zero IV, uniqueness comes from the per-entry HKDF salt.
	gcmNonceSize = 12
)

// encryptionContext is the JSON payload of the encryption descriptor cookie.
type encryptionContext struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// tokenEntry is the JSON shape of an encrypted token storage entry.
type tokenEntry struct {
	Nonce string `json:"nonce"`
	Data  string `json:"data"`
}

// tokenPlaintext is the decrypted token payload. Only the secret matters;
// the rest is vendor bookkeeping.
type tokenPlaintext struct {
	Secret    string `json:"secret"`
	ClientID  string `json:"client_id"`
	ExpiresOn int64  `json:"expires_on"`
}

// activeAccount is the JSON payload of the active-account storage entry.
type activeAccount struct {
	AccountID string `json:"accountId"`
	TenantID  string `json:"tenantId"`
}

// SessionResolver derives a bearer token from an exported browser session.
type SessionResolver struct {
	source   SessionSource
	clientID string
	scope    string
}

var _ Resolver = (*SessionResolver)(nil)

// NewSessionResolver creates a resolver bound to one session source.
// clientID doubles as the HKDF context string; scope selects which stored
// token to decrypt.
func NewSessionResolver(source SessionSource, clientID, scope string) *SessionResolver {
	return &SessionResolver{
		source:   source,
		clientID: clientID,
		scope:    scope,
	}
}

// Resolve performs the single-use decryption of the stored token.
// Every failure is fatal: a missing descriptor or an undecryptable entry
// means the session is invalid or expired and only re-authentication helps.
func (r *SessionResolver) Resolve() (*Credential, error) {
	baseKey, err := r.readBaseKey()
	if err != nil {
		return nil, err
	}

	account, ok := r.readActiveAccount()
	if !ok {
		return nil, newError(ReasonNoToken, fmt.Errorf("no active account entry"))
	}

	entryKey := storageKey(account.AccountID, account.TenantID, r.clientID, r.scope)
	raw, ok := r.source.StorageEntry(entryKey)
	if !ok {
		return nil, newError(ReasonNoToken, fmt.Errorf("no entry for key %s", entryKey))
	}

	secret, err := r.decryptEntry(baseKey, raw)
	if err != nil {
		return nil, newError(ReasonDecrypt, err)
	}

	cred := &Credential{
		Token:     secret,
		AccountID: account.AccountID,
		TenantID:  account.TenantID,
	}
	// The account entry may be partial; the bearer token itself names the
	// account and tenant in its claims. Verification is the remote
	// service's job, we only read.
	if cred.AccountID == "" || cred.TenantID == "" {
		fillFromClaims(cred)
	}
	return cred, nil
}

// readBaseKey parses the encryption descriptor cookie and decodes the base key.
func (r *SessionResolver) readBaseKey() ([]byte, error) {
	raw, ok := r.source.Cookie(encryptionCookie)
	if !ok || raw == "" {
		return nil, newError(ReasonNoContext, nil)
	}
	var ctx encryptionContext
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return nil, newError(ReasonNoContext, err)
	}
	if ctx.ID == "" || ctx.Key == "" {
		return nil, newError(ReasonNoContext, fmt.Errorf("descriptor missing id or key"))
	}
	key, err := base64.RawURLEncoding.DecodeString(ctx.Key)
	if err != nil {
		return nil, newError(ReasonNoContext, err)
	}
	return key, nil
}

func (r *SessionResolver) readActiveAccount() (activeAccount, bool) {
	raw, ok := r.source.StorageEntry(activeAccountKey)
	if !ok {
		return activeAccount{}, false
	}
	var account activeAccount
	if err := json.Unmarshal([]byte(raw), &account); err != nil {
		return activeAccount{}, false
	}
	return account, true
}

// decryptEntry derives the per-entry AES key via HKDF-SHA256 and opens the
// AES-256-GCM blob. The store format seals every entry with the fixed
// all-zero IV; the per-entry HKDF salt is what keeps derived keys unique.
func (r *SessionResolver) decryptEntry(baseKey []byte, raw string) (string, error) {
	var entry tokenEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return "", fmt.Errorf("malformed token entry: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(entry.Nonce)
	if err != nil {
		return "", fmt.Errorf("malformed entry nonce: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(entry.Data)
	if err != nil {
		return "", fmt.Errorf("malformed entry data: %w", err)
	}

	derived := make([]byte, derivedKeyLen)
	kdf := hkdf.New(sha256.New, baseKey, nonce, []byte(r.clientID))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return "", fmt.Errorf("key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, make([]byte, gcmNonceSize), data, nil)
	if err != nil {
		return "", fmt.Errorf("gcm open failed: %w", err)
	}

	var payload tokenPlaintext
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return "", fmt.Errorf("malformed token plaintext: %w", err)
	}
	if payload.Secret == "" {
		return "", fmt.Errorf("token plaintext has no secret")
	}
	return payload.Secret, nil
}

// storageKey builds the deterministic lookup key for a stored token.
func storageKey(accountID, tenantID, clientID, scope string) string {
	return strings.ToLower(fmt.Sprintf("%s-%s-%s-%s", accountID, tenantID, clientID, scope))
}

// fillFromClaims backfills account and tenant from the bearer token's JWT
// claims without verifying the signature.
func fillFromClaims(cred *Credential) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(cred.Token, claims); err != nil {
		return
	}
	if cred.AccountID == "" {
		if oid, ok := claims["oid"].(string); ok {
			cred.AccountID = oid
		}
	}
	if cred.TenantID == "" {
		if tid, ok := claims["tid"].(string); ok {
			cred.TenantID = tid
		}
	}
}
