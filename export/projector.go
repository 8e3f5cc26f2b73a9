// Package export projects merged conversation records into the target
// product's interchange schema: a mapping of tree nodes with a synthetic
// root, a synthetic system placeholder, and one node per retained message
// chained in original order.
package export

import (
	"sort"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/chatporter/daterange"
	"github.com/hrygo/chatporter/internal/strutil"
	"github.com/hrygo/chatporter/store"
)

// ErrNothingToExport is returned when filtering leaves no complete record.
// The caller surfaces it instead of writing an empty artifact.
var ErrNothingToExport = errors.New("nothing to export")

const (
	// maxTitleRunes bounds titles inferred from the first user message.
	maxTitleRunes = 50
	// fallbackTitle is used when neither a stored title nor a user message exists.
	fallbackTitle = "Untitled conversation"
)

// Project builds the export document from a store snapshot. Stub records
// and records outside the interval are excluded; the result is sorted by
// conversation creation time, newest first, undated records last.
func Project(records []*store.Conversation, interval daterange.Interval) (*Document, error) {
	doc := &Document{}
	for _, record := range records {
		if record.IsStub() {
			continue
		}
		if !interval.Contains(record.CreateTime) {
			continue
		}
		doc.Conversations = append(doc.Conversations, projectConversation(record))
	}
	if len(doc.Conversations) == 0 {
		return nil, ErrNothingToExport
	}

	sort.SliceStable(doc.Conversations, func(i, j int) bool {
		return sortKey(doc.Conversations[i].CreateTime) > sortKey(doc.Conversations[j].CreateTime)
	})
	return doc, nil
}

func projectConversation(record *store.Conversation) Conversation {
	mapping := make(map[string]Node, len(record.Messages)+2)
	seen := make(map[string]struct{}, len(record.Messages)+2)

	rootID := newNodeID(seen)
	systemID := newNodeID(seen)

	mapping[rootID] = Node{
		ID:       rootID,
		Children: []string{systemID},
	}
	mapping[systemID] = Node{
		ID:     systemID,
		Parent: &rootID,
		Message: &Message{
			ID:     systemID,
			Author: Author{Role: "system", Metadata: map[string]any{}},
			Content: Content{
				ContentType: "text",
				Parts:       []string{""},
			},
			Status: "finished_successfully",
			Weight: 1,
			Metadata: map[string]any{
				"is_visually_hidden_from_conversation": true,
			},
			Recipient: "all",
		},
	}

	current := systemID
	for _, msg := range record.Messages {
		id := msg.ID
		if id == "" {
			id = newNodeID(seen)
		} else if _, dup := seen[id]; dup {
			// Source ids must stay unique within the conversation.
			id = newNodeID(seen)
		}
		seen[id] = struct{}{}

		node := Node{
			ID:      id,
			Parent:  strPtr(current),
			Message: projectMessage(id, msg),
		}
		mapping[id] = node

		parent := mapping[current]
		parent.Children = append(parent.Children, id)
		mapping[current] = parent

		current = id
	}

	return Conversation{
		Title:             inferTitle(record),
		CreateTime:        epochSeconds(record.CreateTime),
		UpdateTime:        epochSeconds(record.UpdateTime),
		Mapping:           mapping,
		CurrentNode:       current,
		ConversationID:    record.ID,
		ID:                record.ID,
		ModerationResults: []any{},
		SafeURLs:          []string{},
	}
}

func projectMessage(id string, msg store.Message) *Message {
	metadata := map[string]any{}
	if msg.RequestID != "" {
		metadata["request_id"] = msg.RequestID
	}
	if msg.OriginTag != "" {
		metadata["origin"] = msg.OriginTag
	}
	return &Message{
		ID:         id,
		Author:     Author{Role: string(msg.Author), Metadata: map[string]any{}},
		CreateTime: epochSeconds(msg.CreatedAt),
		Content: Content{
			ContentType: "text",
			Parts:       []string{strutil.StripControl(msg.Text)},
		},
		Status: "finished_successfully",
		// Assistant turns terminate an exchange; user turns await a reply.
		EndTurn:   msg.Author == store.AuthorAssistant,
		Weight:    1,
		Metadata:  metadata,
		Recipient: "all",
	}
}

// inferTitle picks the stored title, else the first user message truncated,
// else a constant placeholder.
func inferTitle(record *store.Conversation) string {
	if record.Title != "" {
		return strutil.StripControl(record.Title)
	}
	for _, msg := range record.Messages {
		if msg.Author == store.AuthorUser && msg.Text != "" {
			return strutil.Truncate(strutil.StripControl(msg.Text), maxTitleRunes)
		}
	}
	return fallbackTitle
}

func newNodeID(seen map[string]struct{}) string {
	for {
		id := shortuuid.New()
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			return id
		}
	}
}

func epochSeconds(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	v := float64(t.UnixNano()) / float64(time.Second)
	return &v
}

func sortKey(v *float64) float64 {
	if v == nil {
		// Missing creation time sorts last under descending order.
		return -1 << 62
	}
	return *v
}

func strPtr(s string) *string {
	return &s
}
