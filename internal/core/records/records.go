// Package records maps heterogeneous JSONL messages from the external chat
// client into the flat column set the upsert engine writes. Normalization is
// pure and never touches the store.
package records

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message types we project type-specific columns for. Unknown tags fall
// through to the common columns only.
const (
	TypeSummary   = "summary"
	TypeUser      = "user"
	TypeAssistant = "assistant"
)

// ColumnsByType maps a discriminant tag to the type-specific columns it may
// populate. Tags absent from this map insert with common columns only.
var ColumnsByType = map[string][]string{
	TypeSummary:   {"projectName"},
	TypeUser:      {"userText", "userType", "userAttachments"},
	TypeAssistant: {"assistantRole", "assistantText", "assistantModel"},
}

// Record is one normalized message, ready for insertion
type Record struct {
	ID          string // from uuid, then leafUuid; empty means the engine synthesizes one
	SessionID   string
	Type        string
	Timestamp   string
	IsSidechain bool

	// Type-specific column values keyed by schema column name. Values may
	// be any JSON-decoded type; the engine coerces them to storable
	// primitives at insert time.
	Fields map[string]interface{}

	// Child rows created alongside the message in the same transaction
	ToolUses       []ToolUse
	ToolUseResults []ToolUseResult
}

// ToolUse is one tool_use content block from an assistant message
type ToolUse struct {
	ID         string
	Name       string
	Parameters json.RawMessage
}

// ToolUseResult is one tool_result content block from a user message
type ToolUseResult struct {
	ToolUseID string
	Output    interface{}
	Error     string
}

// rawMessage is the wire shape of one JSONL line
type rawMessage struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid,omitempty"`
	LeafUUID    string          `json:"leafUuid,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	IsSidechain bool            `json:"isSidechain,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	UserType    string          `json:"userType,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
}

// innerMessage is the nested message envelope for user/assistant entries
type innerMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

// contentBlock is one element of a content array
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// Normalize parses one JSONL line into a Record
func Normalize(line []byte) (*Record, error) {
	var raw rawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	rec := &Record{
		SessionID:   raw.SessionID,
		Type:        raw.Type,
		Timestamp:   raw.Timestamp,
		IsSidechain: raw.IsSidechain,
		Fields:      map[string]interface{}{},
	}

	if raw.UUID != "" {
		rec.ID = raw.UUID
	} else if raw.LeafUUID != "" {
		rec.ID = raw.LeafUUID
	}

	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	switch raw.Type {
	case TypeSummary:
		rec.Fields["projectName"] = raw.Summary

	case TypeUser:
		var inner innerMessage
		_ = json.Unmarshal(raw.Message, &inner)
		rec.Fields["userText"] = decodeContent(inner.Content)
		rec.Fields["userType"] = raw.UserType
		rec.Fields["userAttachments"] = nil
		rec.ToolUseResults = extractToolUseResults(inner.Content)

	case TypeAssistant:
		var inner innerMessage
		_ = json.Unmarshal(raw.Message, &inner)
		rec.Fields["assistantRole"] = inner.Role
		rec.Fields["assistantText"] = FlattenText(inner.Content)
		rec.Fields["assistantModel"] = inner.Model
		rec.ToolUses = extractToolUses(inner.Content)
	}

	return rec, nil
}

func extractToolUses(content json.RawMessage) []ToolUse {
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}

	var uses []ToolUse
	for _, b := range blocks {
		if b.Type == "tool_use" {
			uses = append(uses, ToolUse{ID: b.ID, Name: b.Name, Parameters: b.Input})
		}
	}
	return uses
}

func extractToolUseResults(content json.RawMessage) []ToolUseResult {
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}

	var results []ToolUseResult
	for _, b := range blocks {
		if b.Type == "tool_result" {
			r := ToolUseResult{ToolUseID: b.ToolUseID, Output: decodeContent(b.Content)}
			if b.IsError {
				r.Error = FlattenText(b.Content)
			}
			results = append(results, r)
		}
	}
	return results
}

// FlattenText reduces assistant content to plain text: a string passes
// through, an array keeps only text-typed blocks joined with a single space,
// anything else becomes empty.
func FlattenText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}

	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}

	var parts []string
	for _, b := range blocks {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

// decodeContent returns a string as-is and any other JSON value decoded;
// the engine's coercion serializes non-primitives back to JSON text.
func decodeContent(content json.RawMessage) interface{} {
	if len(content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}

	var v interface{}
	if err := json.Unmarshal(content, &v); err != nil {
		return string(content)
	}
	return v
}
