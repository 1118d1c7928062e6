package model

import (
	"encoding/json"
	"testing"
)

func TestMessageText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain string", `"hello"`, "hello"},
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"text blocks", `[{"type":"text","text":"a"},{"type":"text","text":"b"}]`, "a\nb"},
		{"tool use", `[{"type":"tool_use","name":"search","input":{}}]`, "[tool: search]"},
		{"tool result", `[{"type":"tool_result","content":"done"}]`, "done"},
		{"image", `[{"type":"image","source":{}}]`, "[image]"},
		{"unknown shape", `{"weird":true}`, `{"weird":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{Content: json.RawMessage(tt.content), Role: RoleUser}
			if got := m.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodeValidate(t *testing.T) {
	self := "a"
	tests := []struct {
		name    string
		node    ConversationNode
		wantErr bool
	}{
		{"ok", ConversationNode{ID: "a", Message: NewTextMessage(RoleUser, "x")}, false},
		{"empty id", ConversationNode{}, true},
		{"bad role", ConversationNode{ID: "a", Message: Message{Role: "robot"}}, true},
		{"own parent", ConversationNode{ID: "a", ParentID: &self}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanvasRootsAndValidate(t *testing.T) {
	a := "a"
	missing := "ghost"
	c := &CanvasData{
		CanvasID: "c1",
		Nodes: map[string]ConversationNode{
			"b": {ID: "b", ParentID: &a},
			"a": {ID: "a", ChildIDs: []string{"b"}},
			"z": {ID: "z"},
			"d": {ID: "d", ParentID: &missing},
		},
	}
	roots := c.RootIDs()
	if len(roots) != 2 || roots[0] != "a" || roots[1] != "z" {
		t.Errorf("RootIDs() = %v, want [a z]", roots)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("dangling parent should not fail validation: %v", err)
	}

	c.Nodes["x"] = ConversationNode{ID: "y"}
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for node keyed under another id")
	}
}

func TestCanvasClone(t *testing.T) {
	title := "T"
	c := &CanvasData{CanvasID: "c1", Title: &title, Nodes: map[string]ConversationNode{
		"a": {ID: "a", ChildIDs: []string{"b"}, Meta: map[string]any{"k": 1}},
	}}
	clone := c.Clone()
	*clone.Title = "changed"
	clone.Nodes["a"].ChildIDs[0] = "z"
	clone.Nodes["a"].Meta["k"] = 2

	if c.DisplayTitle() != "T" {
		t.Errorf("title leaked into original")
	}
	if c.Nodes["a"].ChildIDs[0] != "b" || c.Nodes["a"].Meta["k"] != 1 {
		t.Errorf("node fields leaked into original: %+v", c.Nodes["a"])
	}
	var nilCanvas *CanvasData
	if nilCanvas.Clone() != nil || nilCanvas.DisplayTitle() != "Canvas" {
		t.Errorf("nil canvas helpers misbehave")
	}
}

func TestMutationCanvasID(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		data    string
		want    string
		wantErr bool
	}{
		{"committed", "message_committed", `{"canvas_id":"c1","data":{"id":"n","message":{"content":"","role":"user"}}}`, "c1", false},
		{"deleted", "message_deleted", `{"canvas_id":"c2","data":{"message_id":"n"}}`, "c2", false},
		{"canvas updated", "canvas_updated", `{"canvas_id":"c3"}`, "c3", false},
		{"no canvas id", "canvas_updated", `{}`, "", true},
		{"bad json", "message_updated", `{`, "", true},
		{"invalid node", "message_committed", `{"canvas_id":"c1","data":{"id":""}}`, "", true},
		{"heartbeat", "heartbeat", `{}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MutationCanvasID(StreamEvent{Event: tt.event, Data: []byte(tt.data)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if !EventCanvasUpdated.IsMutation() || EventHeartbeat.IsMutation() || EventType("x").IsValid() {
		t.Errorf("event type classification is off")
	}
}
