package repository

import (
	"errors"
	"os"

	"github.com/a3ro-dev/aAlem/internal/domain/entity"
	"github.com/a3ro-dev/aAlem/internal/utils"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

// headerColumns is every column except content, which list and search
// views never load.
var headerColumns = []string{"id", "title", "tags", "created_at", "updated_at", "version", "locked", "content_format"}

// Stats is the read-only aggregate over the whole store.
type Stats struct {
	TotalNotes       int64 `json:"total_notes"`
	UniqueTags       int64 `json:"unique_tags"`
	StorageSizeBytes int64 `json:"storage_size_bytes"`
}

type DefaultNoteRepository struct {
	db     *gorm.DB
	dbPath string
}

func NewNoteRepository(db *gorm.DB, dbPath string) *DefaultNoteRepository {
	return &DefaultNoteRepository{db: db, dbPath: dbPath}
}

// Headers returns all notes ordered by updated_at descending, content
// omitted. Read errors degrade to an empty slice.
func (d *DefaultNoteRepository) Headers() []*entity.Note {
	var notes []*entity.Note
	err := d.db.
		Select(headerColumns).
		Order("updated_at DESC").
		Find(&notes).Error
	if err != nil {
		log.Errorf("failed to fetch note headers: %v", err)
		return []*entity.Note{}
	}
	return notes
}

// FindByID returns the full record including content, or (nil, nil) when
// the id does not exist. Read errors are logged and degrade to the same
// (nil, nil) miss; they never propagate to the caller.
func (d *DefaultNoteRepository) FindByID(id int) (*entity.Note, error) {
	var note entity.Note
	err := d.db.First(&note, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		log.Errorf("failed to fetch note %d: %v", id, err)
		return nil, nil
	}
	return &note, nil
}

// Save inserts when the note has no id yet, assigning one, and otherwise
// updates the existing row. updated_at is always refreshed to now,
// overriding whatever the caller supplied. Each call is a single gorm
// statement, i.e. one SQLite transaction.
func (d *DefaultNoteRepository) Save(note *entity.Note) (int, error) {
	now := utils.NowISO()
	note.UpdatedAt = now
	if note.ID == 0 {
		if note.CreatedAt == "" {
			note.CreatedAt = now
		}
		if note.Version == 0 {
			note.Version = 1
		}
		if err := d.db.Create(note).Error; err != nil {
			log.Errorf("failed to insert note: %v", err)
			return 0, err
		}
		return note.ID, nil
	}

	if err := d.db.Save(note).Error; err != nil {
		log.Errorf("failed to update note %d: %v", note.ID, err)
		return 0, err
	}
	return note.ID, nil
}

// Delete removes the row and reports whether one was actually removed.
// Deleting a nonexistent id is not an error.
func (d *DefaultNoteRepository) Delete(id int) (bool, error) {
	tx := d.db.Delete(&entity.Note{}, id)
	if tx.Error != nil {
		log.Errorf("failed to delete note %d: %v", id, tx.Error)
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Search does a case-insensitive substring match across title, content and
// tags, returning headers only. Read errors degrade to an empty slice.
func (d *DefaultNoteRepository) Search(query string) []*entity.Note {
	pattern := "%" + query + "%"

	var notes []*entity.Note
	err := d.db.
		Select(headerColumns).
		Where("title LIKE ? OR content LIKE ? OR tags LIKE ?", pattern, pattern, pattern).
		Order("updated_at DESC").
		Find(&notes).Error
	if err != nil {
		log.Errorf("failed to search notes: %v", err)
		return []*entity.Note{}
	}
	return notes
}

// Stats returns store-wide aggregates. Errors degrade to zero values.
func (d *DefaultNoteRepository) Stats() Stats {
	var stats Stats

	if err := d.db.Model(&entity.Note{}).Count(&stats.TotalNotes).Error; err != nil {
		log.Errorf("failed to count notes: %v", err)
		return Stats{}
	}

	err := d.db.Model(&entity.Note{}).
		Where("tags <> ''").
		Distinct("tags").
		Count(&stats.UniqueTags).Error
	if err != nil {
		log.Errorf("failed to count tags: %v", err)
		return Stats{}
	}

	if info, err := os.Stat(d.dbPath); err == nil {
		stats.StorageSizeBytes = info.Size()
	}
	return stats
}
