package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid returns true if the role is a recognized value
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is the payload of a conversation node. Content is either a plain
// string or a list of content blocks, so it is kept raw and decoded on demand.
type Message struct {
	Content json.RawMessage `json:"content"`
	Role    Role            `json:"role"`
}

// NewTextMessage builds a message with plain string content.
func NewTextMessage(role Role, text string) Message {
	raw, _ := json.Marshal(text)
	return Message{Content: raw, Role: role}
}

// contentBlock covers the block shapes the store emits (text, tool_use,
// tool_result, image). Unknown fields are ignored.
type contentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Name    string          `json:"name,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Text flattens the message content into display text.
func (m Message) Text() string {
	return flattenContent(m.Content)
}

func flattenContent(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return string(raw)
	}

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		var block contentBlock
		if err := json.Unmarshal(b, &block); err != nil {
			continue
		}
		switch block.Type {
		case "text":
			parts = append(parts, block.Text)
		case "tool_use":
			parts = append(parts, fmt.Sprintf("[tool: %s]", block.Name))
		case "tool_result":
			parts = append(parts, flattenContent(block.Content))
		case "image":
			parts = append(parts, "[image]")
		default:
			if block.Text != "" {
				parts = append(parts, block.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// ConversationNode is one message in the canvas tree
type ConversationNode struct {
	ID       string         `json:"id"`
	Message  Message        `json:"message"`
	ParentID *string        `json:"parent_id"`
	ChildIDs []string       `json:"child_ids"`
	Meta     map[string]any `json:"meta"`
}

// HasParent reports whether the node records a parent
func (n ConversationNode) HasParent() bool {
	return n.ParentID != nil && *n.ParentID != ""
}

// HasChildren reports whether the node lists any children
func (n ConversationNode) HasChildren() bool {
	return len(n.ChildIDs) > 0
}

// Parent returns the parent id or "" for roots
func (n ConversationNode) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Clone creates a deep copy of the node
func (n ConversationNode) Clone() ConversationNode {
	clone := n

	if n.ParentID != nil {
		v := *n.ParentID
		clone.ParentID = &v
	}
	if n.ChildIDs != nil {
		clone.ChildIDs = make([]string, len(n.ChildIDs))
		copy(clone.ChildIDs, n.ChildIDs)
	}
	if n.Message.Content != nil {
		clone.Message.Content = append(json.RawMessage(nil), n.Message.Content...)
	}
	if n.Meta != nil {
		clone.Meta = make(map[string]any, len(n.Meta))
		for k, v := range n.Meta {
			clone.Meta[k] = v
		}
	}

	return clone
}

// Validate checks if the node data is logically valid
func (n *ConversationNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if n.Message.Role != "" && !n.Message.Role.IsValid() {
		return fmt.Errorf("invalid role: %s", n.Message.Role)
	}
	if n.HasParent() && n.Parent() == n.ID {
		return fmt.Errorf("node %s cannot be its own parent", n.ID)
	}
	return nil
}

// CanvasData is the full canvas as returned by the store
type CanvasData struct {
	CanvasID    string                      `json:"canvas_id"`
	Title       *string                     `json:"title"`
	Description *string                     `json:"description"`
	CreatedAt   float64                     `json:"created_at"`
	LastUpdated *float64                    `json:"last_updated"`
	Nodes       map[string]ConversationNode `json:"nodes"`
}

// DisplayTitle returns the title or a fallback
func (c *CanvasData) DisplayTitle() string {
	if c == nil {
		return "Canvas"
	}
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}
	return "Canvas"
}

// SortedIDs returns all node ids in lexical order
func (c *CanvasData) SortedIDs() []string {
	ids := make([]string, 0, len(c.Nodes))
	for id := range c.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RootIDs returns ids of nodes without a parent, in lexical order
func (c *CanvasData) RootIDs() []string {
	var roots []string
	for _, id := range c.SortedIDs() {
		if !c.Nodes[id].HasParent() {
			roots = append(roots, id)
		}
	}
	return roots
}

// Validate checks the canvas envelope and every node. A node keyed under a
// different id than its own is rejected; dangling references are not.
func (c *CanvasData) Validate() error {
	if c.CanvasID == "" {
		return fmt.Errorf("canvas ID cannot be empty")
	}
	for key, node := range c.Nodes {
		if node.ID != key {
			return fmt.Errorf("node keyed %q carries id %q", key, node.ID)
		}
		if err := node.Validate(); err != nil {
			return fmt.Errorf("node %s: %w", key, err)
		}
	}
	return nil
}

// Clone creates a deep copy of the canvas
func (c *CanvasData) Clone() *CanvasData {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Title != nil {
		v := *c.Title
		clone.Title = &v
	}
	if c.Description != nil {
		v := *c.Description
		clone.Description = &v
	}
	if c.LastUpdated != nil {
		v := *c.LastUpdated
		clone.LastUpdated = &v
	}
	if c.Nodes != nil {
		clone.Nodes = make(map[string]ConversationNode, len(c.Nodes))
		for id, n := range c.Nodes {
			clone.Nodes[id] = n.Clone()
		}
	}
	return &clone
}

// CanvasSummary is a row of the canvas list endpoint
type CanvasSummary struct {
	CanvasID    string         `json:"canvas_id"`
	CreatedAt   float64        `json:"created_at"`
	RootIDs     []string       `json:"root_ids"`
	NodeCount   int            `json:"node_count"`
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Meta        map[string]any `json:"meta"`
}

// CanvasListResponse is the body of GET /api/v1/canvas/list
type CanvasListResponse struct {
	Canvases []CanvasSummary `json:"canvases"`
}

// HealthCheckResponse is the body of GET /api/v1/health
type HealthCheckResponse struct {
	Status     string   `json:"status"`
	ServerType string   `json:"server_type"`
	Timestamp  *float64 `json:"timestamp"`
}

// ErrorResponse is the standard error body of the store
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
