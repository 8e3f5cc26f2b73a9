package api

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/hrygo/chatporter/store"
)

// wireTime accepts the service's two timestamp encodings: RFC3339 strings
// and numeric epochs. Millisecond epochs are detected by magnitude and
// divided down to seconds.
type wireTime struct {
	t *time.Time
}

func (w *wireTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return err
		}
		parsed = parsed.UTC()
		w.t = &parsed
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f == 0 {
		return nil
	}
	if f > 1e12 {
		f /= 1000
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	t := time.Unix(sec, nsec).UTC()
	w.t = &t
	return nil
}

func (w wireTime) ptr() *time.Time {
	return w.t
}

// conversationDTO is the wire shape shared by list items and detail bodies.
type conversationDTO struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	CreateTimeUTC wireTime     `json:"createTimeUtc"`
	UpdateTimeUTC wireTime     `json:"updateTimeUtc"`
	Tone          string       `json:"tone"`
	IsLegacy      bool         `json:"isLegacy"`
	Messages      []messageDTO `json:"messages"`
}

type messageDTO struct {
	ID        string          `json:"id"`
	Author    string          `json:"author"`
	Text      string          `json:"text"`
	Category  string          `json:"messageCategory"`
	Card      json.RawMessage `json:"card"`
	CreatedAt wireTime        `json:"createdAt"`
	Origin    string          `json:"origin"`
	RequestID string          `json:"requestId"`
}

type listResponse struct {
	Items      []conversationDTO `json:"items"`
	NextCursor string            `json:"nextCursor"`
}

// ListItem is one discovered conversation from a list page.
type ListItem struct {
	ID   string
	Meta store.Meta
}

// ListPage is the result of one list call. An empty page with no cursor
// signals end-of-list.
type ListPage struct {
	Items      []ListItem
	NextCursor string
}

func (d conversationDTO) meta() store.Meta {
	return store.Meta{
		Title:      d.Title,
		Tone:       d.Tone,
		Legacy:     d.IsLegacy,
		CreateTime: d.CreateTimeUTC.ptr(),
		UpdateTime: d.UpdateTimeUTC.ptr(),
	}
}

func (d conversationDTO) messages() []store.Message {
	raw := make([]store.RawMessage, 0, len(d.Messages))
	for _, m := range d.Messages {
		raw = append(raw, store.RawMessage{
			ID:        m.ID,
			Author:    m.Author,
			Text:      m.Text,
			Category:  m.Category,
			Card:      m.Card,
			CreatedAt: m.CreatedAt.ptr(),
			OriginTag: m.Origin,
			RequestID: m.RequestID,
		})
	}
	return store.FilterMessages(raw)
}

// ParseListBody decodes a list response body.
func ParseListBody(body []byte) (*ListPage, error) {
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	page := &ListPage{NextCursor: resp.NextCursor}
	for _, item := range resp.Items {
		if item.ID == "" {
			continue
		}
		page.Items = append(page.Items, ListItem{ID: item.ID, Meta: item.meta()})
	}
	return page, nil
}

// ParseConversationBody decodes a conversation detail body into a record.
// Returns nil for a JSON null body.
func ParseConversationBody(body []byte) (*store.Conversation, error) {
	var dto *conversationDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, err
	}
	if dto == nil || dto.ID == "" {
		return nil, nil
	}
	meta := dto.meta()
	return &store.Conversation{
		ID:         dto.ID,
		Title:      meta.Title,
		Tone:       meta.Tone,
		Legacy:     meta.Legacy,
		CreateTime: meta.CreateTime,
		UpdateTime: meta.UpdateTime,
		Messages:   dto.messages(),
	}, nil
}

// URLKind classifies an observed request URL.
type URLKind int

const (
	KindOther URLKind = iota
	KindList
	KindDetail
)

// ClassifyURL recognizes the two conversation endpoints in an observed URL.
func ClassifyURL(rawURL string) (URLKind, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return KindOther, ""
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	idx := strings.LastIndex(path, "/conversations")
	if idx < 0 {
		return KindOther, ""
	}
	rest := strings.TrimPrefix(path[idx+len("/conversations"):], "/")
	if rest == "" {
		return KindList, ""
	}
	if strings.Contains(rest, "/") {
		return KindOther, ""
	}
	return KindDetail, rest
}
