package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertStubCreates(t *testing.T) {
	s := New()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.UpsertStub("c1", Meta{Title: "Trip planning", CreateTime: &created})

	got := s.Get("c1")
	require.NotNil(t, got)
	assert.True(t, got.IsStub())
	assert.Equal(t, "Trip planning", got.Title)
	assert.Equal(t, 1, s.Len())
}

func TestUpsertStubNeverRevertsComplete(t *testing.T) {
	s := New()
	messages := []Message{{ID: "m1", Author: AuthorUser, Text: "hi"}}
	s.UpsertComplete("c1", Meta{Title: "full"}, messages)

	s.UpsertStub("c1", Meta{Title: "stale list title"})

	got := s.Get("c1")
	require.NotNil(t, got)
	assert.False(t, got.IsStub())
	assert.Len(t, got.Messages, 1)
}

func TestUpsertCompleteIsIdempotent(t *testing.T) {
	s := New()
	created := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	meta := Meta{Title: "t", Tone: "balanced", CreateTime: &created}
	messages := []Message{
		{ID: "m1", Author: AuthorUser, Text: "question"},
		{ID: "m2", Author: AuthorAssistant, Text: "answer"},
	}

	s.UpsertComplete("c1", meta, messages)
	first := s.Get("c1")
	s.UpsertComplete("c1", meta, messages)
	second := s.Get("c1")

	assert.Equal(t, first, second)
}

func TestUpsertCompleteCreatesWhenAbsent(t *testing.T) {
	s := New()
	s.UpsertComplete("fresh", Meta{}, []Message{{ID: "m", Author: AuthorUser, Text: "x"}})

	got := s.Get("fresh")
	require.NotNil(t, got)
	assert.False(t, got.IsStub())
}

func TestMergeIsOrderIndependent(t *testing.T) {
	messages := []Message{{ID: "m1", Author: AuthorUser, Text: "hello"}}
	meta := Meta{Title: "observed"}

	// Passive detail observation before the orchestrator's list stub.
	a := New()
	a.UpsertComplete("c1", meta, messages)
	a.UpsertStub("c1", Meta{Title: "from list"})

	// List stub before passive detail observation.
	b := New()
	b.UpsertStub("c1", Meta{Title: "from list"})
	b.UpsertComplete("c1", meta, messages)

	assert.Equal(t, a.Get("c1").Messages, b.Get("c1").Messages)
	assert.False(t, a.Get("c1").IsStub())
	assert.False(t, b.Get("c1").IsStub())
}

func TestStubMetaRefresh(t *testing.T) {
	s := New()
	s.UpsertStub("c1", Meta{Title: ""})
	s.UpsertStub("c1", Meta{Title: "late title", Tone: "precise"})

	got := s.Get("c1")
	assert.Equal(t, "late title", got.Title)
	assert.Equal(t, "precise", got.Tone)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.UpsertComplete("c1", Meta{Title: "orig"}, []Message{{ID: "m1", Author: AuthorUser, Text: "a"}})

	got := s.Get("c1")
	got.Title = "mutated"
	got.Messages[0].Text = "mutated"

	again := s.Get("c1")
	assert.Equal(t, "orig", again.Title)
	assert.Equal(t, "a", again.Messages[0].Text)
}

func TestValuesSnapshot(t *testing.T) {
	s := New()
	s.UpsertStub("a", Meta{})
	s.UpsertStub("b", Meta{})
	s.UpsertComplete("c", Meta{}, []Message{{ID: "m", Author: AuthorUser, Text: "x"}})

	values := s.Values()
	assert.Len(t, values, 3)

	ids := map[string]bool{}
	for _, v := range values {
		ids[v.ID] = true
	}
	assert.True(t, ids["a"] && ids["b"] && ids["c"])
}

func TestEmptyIDIgnored(t *testing.T) {
	s := New()
	s.UpsertStub("", Meta{})
	s.UpsertComplete("", Meta{}, nil)
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentUpserts(t *testing.T) {
	s := New()
	messages := []Message{{ID: "m", Author: AuthorUser, Text: "x"}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.UpsertStub("c1", Meta{Title: "stub"})
		}()
		go func() {
			defer wg.Done()
			s.UpsertComplete("c1", Meta{Title: "complete"}, messages)
		}()
	}
	wg.Wait()

	got := s.Get("c1")
	require.NotNil(t, got)
	assert.False(t, got.IsStub(), "complete must win regardless of interleaving")
}

func TestFilterMessages(t *testing.T) {
	now := time.Now()
	raw := []RawMessage{
		{ID: "1", Author: "user", Text: "keep me", CreatedAt: &now},
		{ID: "2", Author: "system", Text: "dropped: system author"},
		{ID: "3", Author: "assistant", Text: "", Category: "memory"},
		{ID: "4", Author: "assistant", Text: ""},
		{ID: "5", Author: "assistant", Text: "", Card: []byte(`{"type":"weather"}`)},
		{ID: "6", Author: "moderator", Text: "dropped: unrecognized author"},
		{ID: "7", Author: "assistant", Text: "kept answer", Category: "message"},
	}

	kept := FilterMessages(raw)
	require.Len(t, kept, 3)
	assert.Equal(t, "1", kept[0].ID)
	assert.Equal(t, "5", kept[1].ID)
	assert.Equal(t, "7", kept[2].ID)
	assert.Equal(t, AuthorUser, kept[0].Author)
	assert.Equal(t, AuthorAssistant, kept[2].Author)
}
