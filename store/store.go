// Package store holds the in-session conversation collection. Two producers
// write into it: the passive capture path observing traffic, and the active
// pagination orchestrator. Writes are single-key upserts that commute under
// a "stub < complete" ordering, so ingestion order never changes the result.
package store

import "sync"

// Store is the deduplicated, memory-resident conversation collection.
// It does not persist across process restarts.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Conversation
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]*Conversation),
	}
}

// UpsertStub records that a conversation exists. It never downgrades a
// complete record: applying a stub upsert after a complete one is a meta
// refresh at most.
func (s *Store) UpsertStub(id string, meta Meta) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[id]
	if !ok {
		s.records[id] = &Conversation{
			ID:         id,
			Title:      meta.Title,
			Tone:       meta.Tone,
			Legacy:     meta.Legacy,
			CreateTime: meta.CreateTime,
			UpdateTime: meta.UpdateTime,
		}
		return
	}
	if !existing.IsStub() {
		// Complete wins; a later list page cannot revert fetched content.
		return
	}
	applyMeta(existing, meta)
}

// UpsertComplete stores fetched content, replacing messages and metadata.
// Creates the record if absent. Re-applying identical content is harmless.
func (s *Store) UpsertComplete(id string, meta Meta, messages []Message) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[id]
	if !ok {
		existing = &Conversation{ID: id}
		s.records[id] = existing
	}
	applyMeta(existing, meta)
	existing.Messages = append([]Message(nil), messages...)
}

// Get returns a copy of the record, or nil when unknown.
func (s *Store) Get(id string) *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	return copyConversation(record)
}

// Values returns a snapshot copy of all records, in no particular order.
func (s *Store) Values() []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]*Conversation, 0, len(s.records))
	for _, record := range s.records {
		values = append(values, copyConversation(record))
	}
	return values
}

// Len returns the number of known conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func applyMeta(c *Conversation, meta Meta) {
	if meta.Title != "" {
		c.Title = meta.Title
	}
	if meta.Tone != "" {
		c.Tone = meta.Tone
	}
	if meta.Legacy {
		c.Legacy = true
	}
	if meta.CreateTime != nil {
		c.CreateTime = meta.CreateTime
	}
	if meta.UpdateTime != nil {
		c.UpdateTime = meta.UpdateTime
	}
}

func copyConversation(c *Conversation) *Conversation {
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	return &out
}
