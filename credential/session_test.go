package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	content := `{"cookies":{"cache.encryption":"v"},"storage":{"active-account":"{}"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	source, err := LoadSessionFile(path)
	require.NoError(t, err)

	v, ok := source.Cookie("cache.encryption")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = source.Cookie("missing")
	assert.False(t, ok)

	_, ok = source.StorageEntry("active-account")
	assert.True(t, ok)
}

func TestLoadSessionFileErrors(t *testing.T) {
	_, err := LoadSessionFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadSessionFile(path)
	assert.Error(t, err)
}
