package entity

import (
	"fmt"
	"strconv"
)

// Recognized content_format values. The format is a rendering hint for the
// editor; the core never interprets content.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Note is the single persisted entity. Content holds either plaintext or,
// when Locked is set, a serialized encryption envelope, never plaintext.
// Timestamps are RFC 3339 text so updated_at sorts lexicographically.
type Note struct {
	ID            int    `gorm:"primaryKey" json:"id"`
	Title         string `gorm:"not null" json:"title" validate:"required"`
	Content       string `gorm:"not null" json:"content"`
	Tags          string `gorm:"default:''" json:"tags"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	Version       int    `gorm:"default:1" json:"version"`
	Locked        bool   `json:"locked"`
	ContentFormat string `gorm:"default:html" json:"content_format" validate:"required,oneof=html markdown"`
}

func (Note) TableName() string {
	return "notes"
}

// Header returns the list-view projection: every field except Content,
// which is always empty and fetched on demand.
func (n *Note) Header() *Note {
	h := *n
	h.Content = ""
	return &h
}

// Clone returns an independent copy, used wherever the service must not
// mutate the caller's in-memory note (encryption before save, decryption
// on load).
func (n *Note) Clone() *Note {
	c := *n
	return &c
}

// ToRecord serializes the note as a flat string map for the cache hash.
func (n *Note) ToRecord() map[string]string {
	locked := "0"
	if n.Locked {
		locked = "1"
	}
	return map[string]string{
		"id":             strconv.Itoa(n.ID),
		"title":          n.Title,
		"content":        n.Content,
		"tags":           n.Tags,
		"created_at":     n.CreatedAt,
		"updated_at":     n.UpdatedAt,
		"version":        strconv.Itoa(n.Version),
		"locked":         locked,
		"content_format": n.ContentFormat,
	}
}

// NoteFromRecord rebuilds a Note from a cached record. Records missing a
// required field are rejected rather than defaulted; tags and version fall
// back to their schema defaults ('' and 1).
func NoteFromRecord(rec map[string]string) (*Note, error) {
	for _, field := range []string{"id", "title", "content", "created_at", "updated_at", "locked", "content_format"} {
		if _, ok := rec[field]; !ok {
			return nil, fmt.Errorf("cache record: missing field %q", field)
		}
	}

	id, err := strconv.Atoi(rec["id"])
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("cache record: invalid id %q", rec["id"])
	}

	locked, ok := parseBoolField(rec["locked"])
	if !ok {
		return nil, fmt.Errorf("cache record: invalid locked flag %q", rec["locked"])
	}

	format := rec["content_format"]
	if format != FormatHTML && format != FormatMarkdown {
		return nil, fmt.Errorf("cache record: invalid content_format %q", format)
	}

	version := 1
	if raw, ok := rec["version"]; ok && raw != "" {
		version, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("cache record: invalid version %q", raw)
		}
	}

	return &Note{
		ID:            id,
		Title:         rec["title"],
		Content:       rec["content"],
		Tags:          rec["tags"],
		CreatedAt:     rec["created_at"],
		UpdatedAt:     rec["updated_at"],
		Version:       version,
		Locked:        locked,
		ContentFormat: format,
	}, nil
}

func parseBoolField(s string) (value, ok bool) {
	switch s {
	case "1", "true", "True":
		return true, true
	case "0", "false", "False":
		return false, true
	default:
		return false, false
	}
}
