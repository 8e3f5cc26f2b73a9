package credential

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// sessionDump is the on-disk shape of an exported browser session.
type sessionDump struct {
	Cookies map[string]string `json:"cookies"`
	Storage map[string]string `json:"storage"`
}

// StaticSource is a SessionSource backed by plain maps.
type StaticSource struct {
	cookies map[string]string
	storage map[string]string
}

var _ SessionSource = (*StaticSource)(nil)

// NewStaticSource creates a session source from cookie and storage maps.
func NewStaticSource(cookies, storage map[string]string) *StaticSource {
	if cookies == nil {
		cookies = map[string]string{}
	}
	if storage == nil {
		storage = map[string]string{}
	}
	return &StaticSource{cookies: cookies, storage: storage}
}

// LoadSessionFile reads an exported session artifact from disk.
func LoadSessionFile(path string) (*StaticSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read session artifact %s", path)
	}
	var dump sessionDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, errors.Wrapf(err, "failed to parse session artifact %s", path)
	}
	return NewStaticSource(dump.Cookies, dump.Storage), nil
}

func (s *StaticSource) Cookie(name string) (string, bool) {
	v, ok := s.cookies[name]
	return v, ok
}

func (s *StaticSource) StorageEntry(key string) (string, bool) {
	v, ok := s.storage[key]
	return v, ok
}
