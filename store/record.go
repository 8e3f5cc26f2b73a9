package store

import (
	"encoding/json"
	"time"
)

// Author indicates who produced a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
	AuthorSystem    Author = "system"
)

// internalCategories are message categories the remote service uses for its
// own bookkeeping. They never reach the store.
var internalCategories = map[string]struct{}{
	"memory":          {},
	"instrumentation": {},
	"telemetry":       {},
	"invoked-skill":   {},
}

// Conversation is one remote conversation as merged from the two ingestion
// paths. A conversation with no messages is a stub: known to exist, content
// not yet fetched.
type Conversation struct {
	ID         string
	Title      string
	Tone       string
	Legacy     bool
	CreateTime *time.Time
	UpdateTime *time.Time
	Messages   []Message
}

// IsStub reports whether the conversation content has not been fetched yet.
func (c *Conversation) IsStub() bool {
	return len(c.Messages) == 0
}

// Meta carries conversation attributes shared by both upsert paths.
type Meta struct {
	Title      string
	Tone       string
	Legacy     bool
	CreateTime *time.Time
	UpdateTime *time.Time
}

// MetaOf extracts the meta attributes of a record, e.g. when re-upserting
// a fetched record into a store.
func MetaOf(c *Conversation) Meta {
	return Meta{
		Title:      c.Title,
		Tone:       c.Tone,
		Legacy:     c.Legacy,
		CreateTime: c.CreateTime,
		UpdateTime: c.UpdateTime,
	}
}

// Message is one retained conversation turn.
type Message struct {
	ID        string
	Author    Author
	Text      string
	Card      json.RawMessage
	CreatedAt *time.Time
	OriginTag string
	RequestID string
}

// RawMessage is a message as observed on the wire, before ingestion
// filtering.
type RawMessage struct {
	ID        string
	Author    string
	Text      string
	Category  string
	Card      json.RawMessage
	CreatedAt *time.Time
	OriginTag string
	RequestID string
}

// FilterMessages applies the ingestion filter: internal-only categories,
// system-authored turns, unrecognized authors and contentless turns are
// dropped permanently. Order is preserved.
func FilterMessages(raw []RawMessage) []Message {
	var kept []Message
	for _, m := range raw {
		if _, internal := internalCategories[m.Category]; internal {
			continue
		}
		author := Author(m.Author)
		if author != AuthorUser && author != AuthorAssistant {
			continue
		}
		if m.Text == "" && len(m.Card) == 0 {
			continue
		}
		kept = append(kept, Message{
			ID:        m.ID,
			Author:    author,
			Text:      m.Text,
			Card:      m.Card,
			CreatedAt: m.CreatedAt,
			OriginTag: m.OriginTag,
			RequestID: m.RequestID,
		})
	}
	return kept
}
