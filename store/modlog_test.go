package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickclicks/board/models"
)

func TestLogThreadActionSnapshots(t *testing.T) {
	db := openTestDB(t)
	modlog := NewModLogStore(db)

	before := models.FlagSnapshot{Pinned: false, Locked: false, Deleted: false}
	after := models.FlagSnapshot{Pinned: false, Locked: true, Deleted: false}
	require.NoError(t, modlog.LogThreadAction(
		models.ActionThreadLocked, 7, before, after, 42, "flame war"))

	entries, err := modlog.ByTarget(models.TargetThread, "42")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, models.ActionThreadLocked, entry.Type)
	assert.Equal(t, uint(7), entry.ActorID)
	assert.Equal(t, "flame war", entry.Note)

	beforeMeta, ok := entry.Meta["before"].(map[string]any)
	require.True(t, ok)
	afterMeta, ok := entry.Meta["after"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, beforeMeta["locked"])
	assert.Equal(t, true, afterMeta["locked"])
}

func TestLogBulkSamplesIDs(t *testing.T) {
	db := openTestDB(t)
	modlog := NewModLogStore(db)

	ids := make([]uint, 25)
	for i := range ids {
		ids[i] = uint(i + 1)
	}
	require.NoError(t, modlog.LogBulk(models.ActionBulkThreadChange, models.TargetThread,
		3, ids, "cleanup", models.JSONMap{"action": "delete"}))

	entries, err := modlog.ByTarget(models.TargetThread, "bulk")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	meta := entries[0].Meta
	sample, ok := meta["idsSample"].([]any)
	require.True(t, ok)
	// Only a sample is stored, the true count rides alongside.
	assert.Len(t, sample, 10)
	assert.EqualValues(t, 25, meta["idsCount"])
	assert.Equal(t, "delete", meta["action"])
}

func TestModLogQueries(t *testing.T) {
	db := openTestDB(t)
	modlog := NewModLogStore(db)

	snap := models.FlagSnapshot{}
	require.NoError(t, modlog.LogThreadAction(models.ActionThreadPinned, 1, snap, snap, 10, ""))
	require.NoError(t, modlog.LogThreadAction(models.ActionThreadDeleted, 2, snap, snap, 10, ""))
	require.NoError(t, modlog.LogCommentAction(models.ActionCommentDeleted, 1, snap, snap, 99, ""))

	recent, err := modlog.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	byTarget, err := modlog.ByTarget(models.TargetThread, "10")
	require.NoError(t, err)
	assert.Len(t, byTarget, 2)

	byActor, err := modlog.ByActor(1, 10)
	require.NoError(t, err)
	assert.Len(t, byActor, 2)
}
