package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/core/domain"
)

func TestHistoryCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ts.conversations.turns["s-1"] = []domain.Turn{
		{Role: domain.RoleUser, Text: "What department is Alice in?", Timestamp: now},
		{
			Role:      domain.RoleAssistant,
			Text:      "Alice works in Engineering.",
			Timestamp: now.Add(time.Second),
			Citations: []domain.Citation{{Kind: domain.CitationDocument, File: "staff.csv", Location: "Row 1"}},
		},
	}

	out, _, err := execute(t, "", "history", "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "user:\nWhat department is Alice in?")
	assert.Contains(t, out, "assistant:\nAlice works in Engineering.")
	assert.Contains(t, out, "[1] staff.csv, Row 1")
}

func TestHistoryCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "", "history", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "No turns found.")
}

func TestHistoryCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.conversations.turns["s-1"] = []domain.Turn{{Role: domain.RoleUser, Text: "hi"}}

	out, _, err := execute(t, "", "history", "--json", "s-1")
	require.NoError(t, err)

	var turns []domain.Turn
	require.NoError(t, json.Unmarshal([]byte(out), &turns))
	require.Len(t, turns, 1)
	assert.Equal(t, "hi", turns[0].Text)
}

func TestHistoryCmd_Delete(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "", "history", "--delete", "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ts.conversations.deleted)
	assert.Contains(t, out, "Deleted session s-1")
}

func TestHistoryCmd_NotFound(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.conversations.err = domain.ErrNotFound

	_, _, err := execute(t, "", "history", "--delete", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionsCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.conversations.sessions = []domain.Session{
		{ID: "s-2", UpdatedAt: time.Now(), Turns: 4},
		{ID: "s-1", UpdatedAt: time.Now().Add(-time.Hour), Turns: 2},
	}

	out, _, err := execute(t, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "4 turn(s)")
	assert.Less(t, strings.Index(out, "s-2"), strings.Index(out, "s-1"))
}

func TestSessionsCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet.")
}
