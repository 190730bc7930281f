package service

import (
	"context"
	"errors"

	"github.com/a3ro-dev/aAlem/internal/crypt"
	"github.com/a3ro-dev/aAlem/internal/domain/entity"
	"github.com/a3ro-dev/aAlem/internal/domain/sqlite/repository"
	"github.com/a3ro-dev/aAlem/internal/infrastructure/rediscache"
	"github.com/a3ro-dev/aAlem/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

var (
	// ErrNotFound is the normal outcome of loading or deleting an id
	// that does not exist.
	ErrNotFound = errors.New("note not found")

	// ErrPasswordRequired is returned when an operation on a locked
	// note is attempted without a password.
	ErrPasswordRequired = errors.New("password required for locked note")
)

// NoteRepository is the slice of the persistent store the service uses.
type NoteRepository interface {
	Headers() []*entity.Note
	FindByID(id int) (*entity.Note, error)
	Save(note *entity.Note) (int, error)
	Delete(id int) (bool, error)
	Search(query string) []*entity.Note
	Stats() repository.Stats
}

// DefaultNoteService is the only component callers interact with. It hides
// whether the cache path or the direct-store path is active and guarantees
// that locked notes are encrypted before crossing either boundary.
type DefaultNoteService struct {
	Repo          NoteRepository
	Cache         *rediscache.Manager
	Validate      *validator.Validate
	KDFIterations int
}

func NewNoteService(
	repo NoteRepository,
	cache *rediscache.Manager,
	validate *validator.Validate,
	kdfIterations int,
) *DefaultNoteService {
	return &DefaultNoteService{
		Repo:          repo,
		Cache:         cache,
		Validate:      validate,
		KDFIterations: kdfIterations,
	}
}

// Headers returns list-view projections of every note, newest first.
func (s *DefaultNoteService) Headers() []*entity.Note {
	return s.Repo.Headers()
}

// Search returns header projections matching the query.
func (s *DefaultNoteService) Search(query string) []*entity.Note {
	return s.Repo.Search(query)
}

// Load fetches a note, trying the cache first and repopulating it on a
// store hit. A locked note is returned as stored (envelope in content)
// unless a password is supplied, in which case a decrypted copy is
// returned. A failed decryption mutates nothing.
func (s *DefaultNoteService) Load(ctx context.Context, id int, password string) (*entity.Note, error) {
	note, ok := s.Cache.GetNote(ctx, id)
	if !ok {
		stored, err := s.Repo.FindByID(id)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, ErrNotFound
		}
		s.Cache.CacheNote(ctx, stored)
		note = stored
	}

	if note.Locked && password != "" {
		plaintext, err := crypt.Decrypt(note.Content, password)
		if err != nil {
			return nil, err
		}
		unlocked := note.Clone()
		unlocked.Content = plaintext
		return unlocked, nil
	}
	return note, nil
}

// Save persists the note through the write-behind cache when possible. A
// locked note requires a password and is encrypted on a copy; the caller's
// in-memory plaintext is never mutated. New notes always go straight to
// the store so they obtain an id before anything is cached, and a cache
// write that fails mid-session is persisted directly instead.
func (s *DefaultNoteService) Save(ctx context.Context, note *entity.Note, password string) (int, error) {
	if err := s.Validate.Struct(note); err != nil {
		return 0, err
	}

	toSave := note
	if note.Locked && !crypt.IsEnvelope(note.Content) {
		if password == "" {
			return 0, ErrPasswordRequired
		}
		enc, err := crypt.Encrypt(note.Content, password, s.KDFIterations)
		if err != nil {
			log.Errorf("failed to encrypt note content: %v", err)
			return 0, err
		}
		toSave = note.Clone()
		toSave.Content = enc
	}

	if note.ID != 0 && s.Cache.Enabled() {
		toSave.UpdatedAt = utils.NowISO()
		if s.Cache.CacheNote(ctx, toSave) {
			note.UpdatedAt = toSave.UpdatedAt
			return toSave.ID, nil
		}
		// The cache write failed and the cache disabled itself. Fall
		// through so the acknowledged edit still lands in the store.
	}

	id, err := s.Repo.Save(toSave)
	if err != nil {
		return 0, err
	}
	note.ID = id
	note.CreatedAt = toSave.CreatedAt
	note.UpdatedAt = toSave.UpdatedAt
	note.Version = toSave.Version
	s.Cache.CacheNote(ctx, toSave)
	return id, nil
}

// Delete removes the note from the store and invalidates its cache entry.
// Deleting a nonexistent id reports false without error.
func (s *DefaultNoteService) Delete(ctx context.Context, id int) (bool, error) {
	removed, err := s.Repo.Delete(id)
	if err != nil {
		return false, err
	}
	s.Cache.Invalidate(ctx, id)
	return removed, nil
}

// ToggleLock flips the lock state in memory only; the caller still has to
// save. Unlocking decrypts the content immediately, locking defers the
// encryption to the next save.
func (s *DefaultNoteService) ToggleLock(note *entity.Note, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	if note.Locked {
		plaintext, err := crypt.Decrypt(note.Content, password)
		if err != nil {
			return err
		}
		note.Content = plaintext
		note.Locked = false
		return nil
	}

	note.Locked = true
	return nil
}

// CacheEnabled reports whether the write-behind path is active.
func (s *DefaultNoteService) CacheEnabled() bool {
	return s.Cache.Enabled()
}

// DirtyCount reports how many cached notes await flushing.
func (s *DefaultNoteService) DirtyCount(ctx context.Context) int {
	return s.Cache.DirtyCount(ctx)
}

// Stats returns the store aggregate.
func (s *DefaultNoteService) Stats() repository.Stats {
	return s.Repo.Stats()
}

// PeriodicFlush drains the cache's dirty set into the store. Invoked by
// the flush job; a no-op when the cache is disabled.
func (s *DefaultNoteService) PeriodicFlush(ctx context.Context) (flushed, failed int) {
	if !s.Cache.Enabled() {
		return 0, 0
	}
	return s.Cache.FlushToStore(ctx, s.Repo)
}

// Shutdown performs one final flush and releases the cache, bounding the
// data-loss window at process exit.
func (s *DefaultNoteService) Shutdown(ctx context.Context) {
	flushed, failed := s.PeriodicFlush(ctx)
	if flushed > 0 || failed > 0 {
		log.Infof("final flush: %d note(s) persisted, %d failure(s)", flushed, failed)
	}
	s.Cache.Close()
}
