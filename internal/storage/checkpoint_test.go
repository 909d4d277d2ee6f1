package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/scribe/internal/model"
)

func setupCheckpoints(t *testing.T) (*SQLiteStorage, *CheckpointManager) {
	t.Helper()

	store := createTestStorage(t)
	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	clock := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	cm.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store, cm
}

func TestCheckpointManager_Create(t *testing.T) {
	store, cm := setupCheckpoints(t)
	ctx := context.Background()
	require.NoError(t, store.SaveState(ctx, sampleState()))

	info, err := cm.Create(ctx, "before-cleanup", "manual snapshot")
	require.NoError(t, err)

	assert.Equal(t, "before-cleanup", info.ID)
	assert.Equal(t, "manual snapshot", info.Description)
	assert.False(t, info.IsAuto)
	assert.Positive(t, info.FileSize)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Equal(t, RecordCounts{Contacts: 1, Schedule: 1, Expenses: 1, Diary: 1, History: 1, ChatSessions: 1}, info.Counts)

	_, err = os.Stat(cm.checkpointPath("before-cleanup"))
	assert.NoError(t, err)

	var stored int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM checkpoint_metadata WHERE id = ?`, "before-cleanup").Scan(&stored))
	assert.Equal(t, 1, stored)
}

func TestCheckpointManager_CreateErrors(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "dup", "")
	require.NoError(t, err)

	_, err = cm.Create(ctx, "dup", "")
	assert.ErrorIs(t, err, ErrCheckpointExists)

	_, err = cm.Create(ctx, "../escape", "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCheckpointManager_DefaultTag(t *testing.T) {
	_, cm := setupCheckpoints(t)

	info, err := cm.Create(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "checkpoint-2024-03-09-100001", info.ID)
}

func TestCheckpointManager_EmptyDatabaseCounts(t *testing.T) {
	_, cm := setupCheckpoints(t)

	info, err := cm.Create(context.Background(), "empty", "")
	require.NoError(t, err)
	assert.Equal(t, RecordCounts{}, info.Counts)
}

func TestCheckpointManager_ListAndGet(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	for _, tag := range []string{"first", "second", "third"} {
		_, err := cm.Create(ctx, tag, tag)
		require.NoError(t, err)
	}

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].ID)
	assert.Equal(t, "first", list[2].ID)

	info, err := cm.Get(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", info.Description)

	_, err = cm.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_Delete(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "gone", "")
	require.NoError(t, err)

	require.NoError(t, cm.Delete(ctx, "gone"))
	_, err = os.Stat(cm.metadataPath("gone"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, cm.Delete(ctx, "gone"), ErrCheckpointNotFound)
}

func TestCheckpointManager_Restore(t *testing.T) {
	store, cm := setupCheckpoints(t)
	ctx := context.Background()
	require.NoError(t, store.SaveState(ctx, sampleState()))

	_, err := cm.Create(ctx, "good", "")
	require.NoError(t, err)

	require.NoError(t, store.SaveState(ctx, model.AppState{}))
	require.NoError(t, cm.Restore(ctx, "good"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	st, err := reopened.LoadState(ctx)
	require.NoError(t, err)
	require.Len(t, st.Contacts, 1)
	assert.Equal(t, "Alice", st.Contacts[0].Name)
}

func TestCheckpointManager_RestoreMissing(t *testing.T) {
	_, cm := setupCheckpoints(t)
	assert.ErrorIs(t, cm.Restore(context.Background(), "nope"), ErrCheckpointNotFound)
}

func TestCheckpointManager_AutoCheckpointCleanup(t *testing.T) {
	_, cm := setupCheckpoints(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "manual", "")
	require.NoError(t, err)

	for i := range maxAutoCheckpoints + 2 {
		info, autoErr := cm.AutoCheckpoint(ctx, "import")
		require.NoError(t, autoErr, fmt.Sprintf("auto checkpoint %d", i))
		assert.True(t, info.IsAuto)
	}

	list, err := cm.List(ctx)
	require.NoError(t, err)

	auto := 0
	manual := 0
	for _, cp := range list {
		if cp.IsAuto {
			auto++
		} else {
			manual++
		}
	}
	assert.Equal(t, maxAutoCheckpoints, auto)
	assert.Equal(t, 1, manual)
}
