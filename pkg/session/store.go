// Package session is the file-based store.SessionStore implementation:
// one JSON file per recorded session, one directory per agent. Raw
// session-file discovery is kept outside the policy engine's own
// interfaces — this package is the concrete adapter the rest of the
// engine only ever sees through store.SessionStore.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/policy"
)

// Store loads policy.Session values from JSON files laid out as
// <root>/<agentID>/<sessionID>.json.
type Store struct {
	root string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Get loads and parses one session file. A malformed file is a
// DataCorruption condition: it is logged and reported as "not found"
// rather than propagated.
func (s *Store) Get(_ context.Context, agentID, sessionID string) (*policy.Session, error) {
	path := filepath.Join(s.root, agentID, sessionID+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session file %q: %w", path, err)
	}

	sess, err := parseSessionFile(sessionID, raw)
	if err != nil {
		slog.Error("skipping malformed session file", "agent_id", agentID, "session_id", sessionID, "path", path, "error", err)
		return nil, nil
	}
	return sess, nil
}

// List returns every session id found under the agent's directory,
// sorted, skipping (and logging) any file that fails to read or parse
// (the listing excludes it; Get on that id also returns nil).
func (s *Store) List(_ context.Context, agentID string) ([]string, error) {
	dir := filepath.Join(s.root, agentID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sessions for agent %q: %w", agentID, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sessionID := strings.TrimSuffix(entry.Name(), ".json")

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Error("skipping unreadable session file", "agent_id", agentID, "session_id", sessionID, "error", err)
			continue
		}
		if _, err := parseSessionFile(sessionID, raw); err != nil {
			slog.Error("skipping malformed session file", "agent_id", agentID, "session_id", sessionID, "error", err)
			continue
		}
		ids = append(ids, sessionID)
	}
	sort.Strings(ids)
	return ids, nil
}

// rawSessionFile covers both accepted shapes: a bare list of messages,
// or an object with "messages" and optional "metadata". We detect which
// shape we got by peeking at the first non-whitespace byte.
type rawSessionFile struct {
	Messages []rawMessage   `json:"messages"`
	Metadata rawSessionMeta `json:"metadata"`
}

type rawSessionMeta struct {
	SessionID           string         `json:"session_id"`
	Timestamp           any            `json:"timestamp"` // ISO-8601 string or epoch seconds
	DurationSeconds     float64        `json:"duration_seconds"`
	UserID              string         `json:"user_id"`
	BusinessIdentifiers map[string]any `json:"business_identifiers"`
	Tags                []string       `json:"tags"`
	Custom              map[string]any `json:"custom"`
}

type rawMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content"`
	ToolCallID string          `json:"tool_call_id"`
}

type rawBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id"`
	Content   any            `json:"content"`
	IsError   bool           `json:"is_error"`
}

func parseSessionFile(sessionID string, raw []byte) (*policy.Session, error) {
	trimmed := strings.TrimSpace(string(raw))

	var file rawSessionFile
	if len(trimmed) > 0 && trimmed[0] == '[' {
		// bare list-of-messages form: no metadata envelope
		if err := json.Unmarshal(raw, &file.Messages); err != nil {
			return nil, fmt.Errorf("parsing message list: %w", err)
		}
	} else {
		if err := json.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parsing session object: %w", err)
		}
	}

	messages := make([]policy.Message, 0, len(file.Messages))
	for i, m := range file.Messages {
		msg, err := parseMessage(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		messages = append(messages, msg)
	}

	id := file.Metadata.SessionID
	if id == "" {
		id = sessionID
	}

	return &policy.Session{
		ID:       id,
		Messages: messages,
		Metadata: policy.SessionMetadata{
			SessionID:           id,
			Timestamp:           parseTimestamp(file.Metadata.Timestamp),
			DurationSeconds:     file.Metadata.DurationSeconds,
			UserID:              file.Metadata.UserID,
			BusinessIdentifiers: file.Metadata.BusinessIdentifiers,
			Tags:                file.Metadata.Tags,
			Custom:              file.Metadata.Custom,
		},
	}, nil
}

func parseMessage(m rawMessage) (policy.Message, error) {
	msg := policy.Message{Role: policy.Role(m.Role), ToolCallID: m.ToolCallID}

	if len(m.Content) == 0 {
		return msg, nil
	}

	trimmed := strings.TrimSpace(string(m.Content))
	switch {
	case len(trimmed) == 0:
		return msg, nil
	case trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(m.Content, &text); err != nil {
			return msg, fmt.Errorf("parsing text content: %w", err)
		}
		msg.Text = text
	case trimmed[0] == '[':
		var blocks []rawBlock
		if err := json.Unmarshal(m.Content, &blocks); err != nil {
			return msg, fmt.Errorf("parsing block content: %w", err)
		}
		msg.Blocks = make([]policy.ContentBlock, 0, len(blocks))
		for _, b := range blocks {
			msg.Blocks = append(msg.Blocks, policy.ContentBlock{
				Type:            policy.BlockType(b.Type),
				Text:            b.Text,
				ToolUseID:       b.ID,
				ToolName:        b.Name,
				Input:           b.Input,
				ToolUseResultID: b.ToolUseID,
				Content:         b.Content,
				IsError:         b.IsError,
			})
		}
	default:
		return msg, fmt.Errorf("unrecognized content shape")
	}
	return msg, nil
}

// parseTimestamp accepts either an ISO-8601 string or an epoch-seconds
// number. An unparseable or absent value yields the zero time rather
// than an error — timestamp is descriptive metadata, not load-bearing
// for evaluation.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		if t == "" {
			return time.Time{}
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse("2006-01-02T15:04:05", t); err == nil {
			return parsed
		}
		return time.Time{}
	case float64:
		return time.Unix(int64(t), 0).UTC()
	default:
		return time.Time{}
	}
}
