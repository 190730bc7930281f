// Package rediscache is the write-behind accelerator in front of the
// persistent store. Each note lives in one Redis hash and a companion set
// tracks the ids whose cached value is not yet durable. The cache is
// strictly optional: any backend failure disables it for the rest of the
// session and callers fall back to the store.
package rediscache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/a3ro-dev/aAlem/internal/config"
	"github.com/a3ro-dev/aAlem/internal/domain/entity"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

// NoteSaver is the slice of the persistent store a flush needs.
type NoteSaver interface {
	Save(note *entity.Note) (int, error)
}

type Manager struct {
	client    *redis.Client
	namespace string

	// mu is the single mutual-exclusion domain over the note hashes and
	// the dirty set, so a concurrent flush never reads a half-written
	// record.
	mu      sync.Mutex
	enabled bool
}

// New connects to Redis per the cache configuration. A disabled config or
// a failed initial ping yields a permanently disabled manager; the caller
// keeps working through the store alone.
func New(cfg config.Cache) *Manager {
	m := &Manager{namespace: cfg.Namespace}
	if !cfg.Enabled {
		return m
	}

	m.client = redis.NewClient(&redis.Options{
		Addr: cfg.Addr(),
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.client.Ping(ctx).Err(); err != nil {
		log.Warnf("cache disabled (connection failed): %v", err)
		return m
	}

	m.enabled = true
	log.Info("cache connected")
	return m
}

// Enabled reports whether the cache path is active for this session.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// CacheNote upserts the full note and marks it dirty. It never touches the
// persistent store. Notes without an id are never cached. The return value
// reports whether the record is now in the cache and marked dirty; callers
// that need durability must persist elsewhere when it is false.
func (m *Manager) CacheNote(ctx context.Context, note *entity.Note) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled || note == nil || note.ID == 0 {
		return false
	}

	if err := m.client.HSet(ctx, m.noteKey(note.ID), note.ToRecord()).Err(); err != nil {
		m.disable(err)
		return false
	}
	if err := m.client.SAdd(ctx, m.dirtyKey(), note.ID).Err(); err != nil {
		// The hash is written but nothing would ever flush it.
		m.disable(err)
		return false
	}
	return true
}

// GetNote returns the cached copy of a note, or a miss. Cached records that
// no longer deserialize are evicted and reported as misses.
func (m *Manager) GetNote(ctx context.Context, id int) (*entity.Note, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled || id == 0 {
		return nil, false
	}

	rec, err := m.client.HGetAll(ctx, m.noteKey(id)).Result()
	if err != nil {
		m.disable(err)
		return nil, false
	}
	if len(rec) == 0 {
		return nil, false
	}

	note, err := entity.NoteFromRecord(rec)
	if err != nil {
		log.Warnf("evicting malformed cache record for note %d: %v", id, err)
		m.client.Del(ctx, m.noteKey(id))
		m.client.SRem(ctx, m.dirtyKey(), id)
		return nil, false
	}
	return note, true
}

// DirtyCount returns the number of ids awaiting flush.
func (m *Manager) DirtyCount(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return 0
	}

	n, err := m.client.SCard(ctx, m.dirtyKey()).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// FlushToStore drains the dirty set into the persistent store. Each id is
// removed from the set only after its save succeeds; save failures are
// counted and the rest of the batch proceeds. A Redis error aborts the
// remaining ids (they stay dirty for the next cycle) and disables the
// cache for the session.
func (m *Manager) FlushToStore(ctx context.Context, store NoteSaver) (flushed, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return 0, 0
	}

	ids, err := m.client.SMembers(ctx, m.dirtyKey()).Result()
	if err != nil {
		m.disable(err)
		return 0, 1
	}

	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			m.client.SRem(ctx, m.dirtyKey(), raw)
			continue
		}

		rec, err := m.client.HGetAll(ctx, m.noteKey(id)).Result()
		if err != nil {
			m.disable(err)
			return flushed, failed + 1
		}
		if len(rec) == 0 {
			// Evicted since it was marked dirty; nothing left to persist.
			m.client.SRem(ctx, m.dirtyKey(), id)
			continue
		}

		note, err := entity.NoteFromRecord(rec)
		if err != nil {
			log.Errorf("dropping malformed dirty record for note %d: %v", id, err)
			m.client.Del(ctx, m.noteKey(id))
			m.client.SRem(ctx, m.dirtyKey(), id)
			failed++
			continue
		}

		if _, err := store.Save(note); err != nil {
			log.Errorf("flush: failed to persist note %d: %v", id, err)
			failed++
			continue
		}

		if err := m.client.SRem(ctx, m.dirtyKey(), id).Err(); err != nil {
			m.disable(err)
			return flushed + 1, failed + 1
		}
		flushed++
	}
	return flushed, failed
}

// Invalidate removes a note's cache entry and dirty membership, used after
// the note is deleted from the store.
func (m *Manager) Invalidate(ctx context.Context, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}

	m.client.Del(ctx, m.noteKey(id))
	m.client.SRem(ctx, m.dirtyKey(), id)
}

// Close disables the cache and releases the Redis client. Callers flush
// first. Operations arriving after Close are quiet no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	if m.client != nil {
		_ = m.client.Close()
	}
}

// disable turns the cache off for the remainder of the session. Dirty ids
// already in Redis stay there; they are picked up again on the next run.
func (m *Manager) disable(err error) {
	log.Warnf("cache disabled for this session: %v", err)
	m.enabled = false
}

func (m *Manager) noteKey(id int) string {
	return m.namespace + ":note:" + strconv.Itoa(id)
}

func (m *Manager) dirtyKey() string {
	return m.namespace + ":dirty"
}
