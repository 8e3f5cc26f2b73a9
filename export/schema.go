package export

// Document is the export artifact root: {"conversations": [...]}.
type Document struct {
	Conversations []Conversation `json:"conversations"`
}

// Conversation is one exported conversation in the target product's
// interchange schema. The nullable fields at the bottom carry no data from
// this system; the importer requires their presence.
type Conversation struct {
	Title          string          `json:"title"`
	CreateTime     *float64        `json:"create_time"`
	UpdateTime     *float64        `json:"update_time"`
	Mapping        map[string]Node `json:"mapping"`
	CurrentNode    string          `json:"current_node"`
	ConversationID string          `json:"conversation_id"`
	ID             string          `json:"id"`

	ModerationResults      []any    `json:"moderation_results"`
	PluginIDs              any      `json:"plugin_ids"`
	ConversationTemplateID any      `json:"conversation_template_id"`
	GizmoID                any      `json:"gizmo_id"`
	IsArchived             bool     `json:"is_archived"`
	SafeURLs               []string `json:"safe_urls"`
	DefaultModelSlug       any      `json:"default_model_slug"`
}

// Node is one tree node of the mapping. The schema allows branching; this
// exporter always emits a strict chain.
type Node struct {
	ID       string   `json:"id"`
	Message  *Message `json:"message"`
	Parent   *string  `json:"parent"`
	Children []string `json:"children"`
}

// Message is the payload of a non-root node.
type Message struct {
	ID         string         `json:"id"`
	Author     Author         `json:"author"`
	CreateTime *float64       `json:"create_time"`
	UpdateTime *float64       `json:"update_time"`
	Content    Content        `json:"content"`
	Status     string         `json:"status"`
	EndTurn    bool           `json:"end_turn"`
	Weight     float64        `json:"weight"`
	Metadata   map[string]any `json:"metadata"`
	Recipient  string         `json:"recipient"`
}

// Author identifies the message author in the target schema.
type Author struct {
	Role     string         `json:"role"`
	Name     any            `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// Content is the message body.
type Content struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts"`
}
