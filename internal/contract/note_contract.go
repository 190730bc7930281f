package contract

// MaxNoteContentBytes caps a single note's content, plaintext or envelope.
const MaxNoteContentBytes = 1000000

type NoteResponse struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content,omitempty"`
	Tags          string `json:"tags"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	Version       int    `json:"version"`
	Locked        bool   `json:"locked"`
	ContentFormat string `json:"content_format"`
}

type CreateNoteRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Content       string `json:"content" validate:"max=1000000"`
	Tags          string `json:"tags" validate:"max=500"`
	ContentFormat string `json:"content_format" validate:"omitempty,oneof=html markdown"`
}

type UpdateNoteRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content       *string `json:"content" validate:"omitempty,max=1000000"`
	Tags          *string `json:"tags" validate:"omitempty,max=500"`
	ContentFormat *string `json:"content_format" validate:"omitempty,oneof=html markdown"`
	Password      string  `json:"password"`
}

type LockRequest struct {
	Password string `json:"password" validate:"required"`
}

type StatsResponse struct {
	TotalNotes       int64 `json:"total_notes"`
	UniqueTags       int64 `json:"unique_tags"`
	StorageSizeBytes int64 `json:"storage_size_bytes"`
	DirtyNotes       int   `json:"dirty_notes"`
	CacheEnabled     bool  `json:"cache_enabled"`
}

type FlushResponse struct {
	Flushed int `json:"flushed"`
	Failed  int `json:"failed"`
}
