// Package capture is the passive ingestion path: it observes API exchanges
// as they happen, keeps a raw log of them, and opportunistically merges any
// conversation data it recognizes into the store. Observation is best
// effort, not a contract: anything malformed is skipped silently.
package capture

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/hrygo/chatporter/api"
	"github.com/hrygo/chatporter/store"
)

// Log accumulates observed exchanges for the raw-capture artifact.
type Log struct {
	mu        sync.Mutex
	exchanges []api.Exchange
}

// NewLog creates an empty capture log.
func NewLog() *Log {
	return &Log{}
}

// Append records one exchange.
func (l *Log) Append(ex api.Exchange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exchanges = append(l.exchanges, ex)
}

// Len returns the number of recorded exchanges.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.exchanges)
}

// Snapshot returns a copy of all recorded exchanges in observation order.
func (l *Log) Snapshot() []api.Exchange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]api.Exchange(nil), l.exchanges...)
}

// WriteFile writes the raw-capture artifact: a JSON array of exchanges.
func (l *Log) WriteFile(path string) error {
	data, err := json.MarshalIndent(l.Snapshot(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal capture log")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write capture log to %s", path)
	}
	return nil
}

// ReadFile loads a previously written raw-capture artifact.
func ReadFile(path string) ([]api.Exchange, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read capture artifact %s", path)
	}
	var exchanges []api.Exchange
	if err := json.Unmarshal(raw, &exchanges); err != nil {
		return nil, errors.Wrapf(err, "failed to parse capture artifact %s", path)
	}
	return exchanges, nil
}

// Recorder implements api.Observer: every exchange goes into the log, and
// recognizable conversation traffic is merged into the store.
type Recorder struct {
	store  *store.Store
	log    *Log
	logger *slog.Logger
}

var _ api.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder. log may be nil to skip raw logging.
func NewRecorder(st *store.Store, log *Log, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: st, log: log, logger: logger}
}

// Observe ingests one exchange.
func (r *Recorder) Observe(ex api.Exchange) {
	if r.log != nil {
		r.log.Append(ex)
	}
	r.ingest(ex)
}

// Replay feeds previously captured exchanges through the recorder, e.g.
// when importing a capture artifact. Returns the number of exchanges that
// contributed conversation data.
func (r *Recorder) Replay(exchanges []api.Exchange) int {
	merged := 0
	for _, ex := range exchanges {
		if r.ingest(ex) {
			merged++
		}
	}
	return merged
}

func (r *Recorder) ingest(ex api.Exchange) bool {
	if ex.Status < 200 || ex.Status > 299 || len(ex.Data) == 0 {
		return false
	}
	kind, id := api.ClassifyURL(ex.URL)
	switch kind {
	case api.KindList:
		page, err := api.ParseListBody(ex.Data)
		if err != nil {
			r.logger.Debug("skipping malformed list observation", "url", ex.URL, "error", err)
			return false
		}
		for _, item := range page.Items {
			r.store.UpsertStub(item.ID, item.Meta)
		}
		return len(page.Items) > 0
	case api.KindDetail:
		record, err := api.ParseConversationBody(ex.Data)
		if err != nil || record == nil {
			r.logger.Debug("skipping malformed detail observation", "url", ex.URL, "id", id)
			return false
		}
		meta := store.MetaOf(record)
		if len(record.Messages) == 0 {
			// No retained content; the record stays a stub.
			r.store.UpsertStub(record.ID, meta)
			return true
		}
		r.store.UpsertComplete(record.ID, meta, record.Messages)
		return true
	default:
		return false
	}
}
