package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSessionFile(t *testing.T, dir, agentID, sessionID, content string) {
	t.Helper()
	agentDir := filepath.Join(dir, agentID)
	require.NoError(t, os.MkdirAll(agentDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(agentDir, sessionID+".json"), []byte(content), 0o644))
}

func TestGetParsesBareMessageListForm(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "agent-1", "s1", `[
		{"role": "user", "content": "please search for invoices"},
		{"role": "assistant", "content": [{"type": "tool_use", "id": "t1", "name": "search", "input": {"q": "invoices"}}]}
	]`)

	store := New(dir)
	sess, err := store.Get(context.Background(), "agent-1", "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "s1", sess.ID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "please search for invoices", sess.Messages[0].Text)
	require.Len(t, sess.Messages[1].Blocks, 1)
	assert.Equal(t, "search", sess.Messages[1].Blocks[0].ToolName)
}

func TestGetParsesObjectFormWithMetadata(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "agent-1", "s2", `{
		"messages": [{"role": "user", "content": "hi"}],
		"metadata": {
			"session_id": "s2",
			"timestamp": "2026-01-15T10:00:00Z",
			"duration_seconds": 12.5,
			"user_id": "u1",
			"tags": ["billing"],
			"business_identifiers": {"invoice_id": "INV-1"}
		}
	}`)

	store := New(dir)
	sess, err := store.Get(context.Background(), "agent-1", "s2")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u1", sess.Metadata.UserID)
	assert.Equal(t, []string{"billing"}, sess.Metadata.Tags)
	assert.Equal(t, 12.5, sess.Metadata.DurationSeconds)
	assert.False(t, sess.Metadata.Timestamp.IsZero())
}

func TestGetReturnsNilForMissingFile(t *testing.T) {
	store := New(t.TempDir())
	sess, err := store.Get(context.Background(), "agent-1", "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetSkipsMalformedFileAsNotFound(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "agent-1", "broken", `{not json`)

	store := New(dir)
	sess, err := store.Get(context.Background(), "agent-1", "broken")
	require.NoError(t, err, "a corrupt session file is a DataCorruption condition, not a propagated error")
	assert.Nil(t, sess)
}

func TestListExcludesMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "agent-1", "good", `[{"role": "user", "content": "hi"}]`)
	writeSessionFile(t, dir, "agent-1", "bad", `{not json`)

	store := New(dir)
	ids, err := store.List(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, ids)
}

func TestListReturnsEmptyForUnknownAgent(t *testing.T) {
	store := New(t.TempDir())
	ids, err := store.List(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSessionIDDerivedFromFileStemWhenMetadataOmitsIt(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "agent-1", "my-session-42", `[{"role": "user", "content": "hi"}]`)

	store := New(dir)
	sess, err := store.Get(context.Background(), "agent-1", "my-session-42")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "my-session-42", sess.ID)
}
