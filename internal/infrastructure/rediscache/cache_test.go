package rediscache

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/a3ro-dev/aAlem/internal/config"
	"github.com/a3ro-dev/aAlem/internal/domain/entity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore stands in for the persistent store during flushes.
type fakeStore struct {
	saved   map[int]*entity.Note
	failIDs map[int]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[int]*entity.Note{}, failIDs: map[int]bool{}}
}

func (f *fakeStore) Save(note *entity.Note) (int, error) {
	if f.failIDs[note.ID] {
		return 0, errors.New("disk full")
	}
	f.saved[note.ID] = note
	return note.ID, nil
}

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	m := New(config.Cache{
		Enabled:   true,
		Host:      mr.Host(),
		Port:      port,
		Namespace: "alem",
	})
	require.True(t, m.Enabled())
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, mr, client
}

func testNote(id int, title string) *entity.Note {
	return &entity.Note{
		ID:            id,
		Title:         title,
		Content:       "<p>" + title + "</p>",
		CreatedAt:     "2026-08-30T10:00:00.000000000Z",
		UpdatedAt:     "2026-08-30T10:00:00.000000000Z",
		Version:       1,
		ContentFormat: entity.FormatHTML,
	}
}

func TestManager_DisabledByConfig(t *testing.T) {
	m := New(config.Cache{Enabled: false})
	ctx := context.Background()

	assert.False(t, m.Enabled())
	assert.False(t, m.CacheNote(ctx, testNote(1, "x")))

	_, ok := m.GetNote(ctx, 1)
	assert.False(t, ok)
	assert.Zero(t, m.DirtyCount(ctx))

	flushed, failed := m.FlushToStore(ctx, newFakeStore())
	assert.Zero(t, flushed)
	assert.Zero(t, failed)
}

func TestManager_FailOpenOnDeadBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	m := New(config.Cache{Enabled: true, Host: addr, Port: port, Namespace: "alem"})
	assert.False(t, m.Enabled())
}

func TestCacheNote_GetNote(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	note := testNote(1, "Plan")
	require.True(t, m.CacheNote(ctx, note))

	got, ok := m.GetNote(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, note, got)
	assert.Equal(t, 1, m.DirtyCount(ctx))

	_, ok = m.GetNote(ctx, 2)
	assert.False(t, ok)
}

func TestCacheNote_SkipsUnsavedNotes(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	assert.False(t, m.CacheNote(ctx, testNote(0, "transient")))
	assert.Zero(t, m.DirtyCount(ctx))
}

func TestClose_DisablesOperations(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	require.True(t, m.CacheNote(ctx, testNote(1, "x")))
	m.Close()

	assert.False(t, m.Enabled())
	assert.False(t, m.CacheNote(ctx, testNote(2, "y")))
	_, ok := m.GetNote(ctx, 1)
	assert.False(t, ok)
}

func TestFlushToStore_DrainsDirtySet(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	store := newFakeStore()

	m.CacheNote(ctx, testNote(1, "a"))
	m.CacheNote(ctx, testNote(2, "b"))
	require.Equal(t, 2, m.DirtyCount(ctx))

	flushed, failed := m.FlushToStore(ctx, store)
	assert.Equal(t, 2, flushed)
	assert.Zero(t, failed)
	assert.Zero(t, m.DirtyCount(ctx))
	assert.Equal(t, "a", store.saved[1].Title)
	assert.Equal(t, "b", store.saved[2].Title)

	// Cached copies survive the flush for future reads.
	_, ok := m.GetNote(ctx, 1)
	assert.True(t, ok)
}

func TestFlushToStore_SaveFailureKeepsIDDirty(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	store := newFakeStore()
	store.failIDs[1] = true

	m.CacheNote(ctx, testNote(1, "stuck"))
	m.CacheNote(ctx, testNote(2, "fine"))

	flushed, failed := m.FlushToStore(ctx, store)
	assert.Equal(t, 1, flushed)
	assert.Equal(t, 1, failed)

	// The failed id stays dirty and succeeds on the next cycle.
	assert.Equal(t, 1, m.DirtyCount(ctx))
	store.failIDs = map[int]bool{}

	flushed, failed = m.FlushToStore(ctx, store)
	assert.Equal(t, 1, flushed)
	assert.Zero(t, failed)
	assert.Equal(t, "stuck", store.saved[1].Title)
}

func TestFlushToStore_VanishedRecordDropped(t *testing.T) {
	m, _, client := newTestManager(t)
	ctx := context.Background()

	m.CacheNote(ctx, testNote(1, "ghost"))
	require.NoError(t, client.Del(ctx, "alem:note:1").Err())

	flushed, failed := m.FlushToStore(ctx, newFakeStore())
	assert.Zero(t, flushed)
	assert.Zero(t, failed)
	assert.Zero(t, m.DirtyCount(ctx))
}

func TestFlushToStore_MalformedRecordEvicted(t *testing.T) {
	m, _, client := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "alem:note:9", "id", "9", "title", "broken").Err())
	require.NoError(t, client.SAdd(ctx, "alem:dirty", 9).Err())

	store := newFakeStore()
	flushed, failed := m.FlushToStore(ctx, store)
	assert.Zero(t, flushed)
	assert.Equal(t, 1, failed)
	assert.Zero(t, m.DirtyCount(ctx))
	assert.Empty(t, store.saved)

	_, ok := m.GetNote(ctx, 9)
	assert.False(t, ok)
}

func TestGetNote_MalformedRecordIsAMiss(t *testing.T) {
	m, _, client := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "alem:note:3", "id", "3").Err())

	_, ok := m.GetNote(ctx, 3)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	m.CacheNote(ctx, testNote(1, "bye"))
	m.Invalidate(ctx, 1)

	_, ok := m.GetNote(ctx, 1)
	assert.False(t, ok)
	assert.Zero(t, m.DirtyCount(ctx))
}

func TestManager_DisablesAfterMidSessionError(t *testing.T) {
	m, mr, _ := newTestManager(t)
	ctx := context.Background()

	require.True(t, m.CacheNote(ctx, testNote(1, "before")))
	require.True(t, m.Enabled())

	mr.Close()
	assert.False(t, m.CacheNote(ctx, testNote(2, "after")))
	assert.False(t, m.Enabled())

	// Everything degrades to misses and no-ops, never errors.
	_, ok := m.GetNote(ctx, 1)
	assert.False(t, ok)
	assert.Zero(t, m.DirtyCount(ctx))
	flushed, failed := m.FlushToStore(ctx, newFakeStore())
	assert.Zero(t, flushed)
	assert.Zero(t, failed)
}
