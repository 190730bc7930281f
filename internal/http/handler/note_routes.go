package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/a3ro-dev/aAlem/internal/contract"
	"github.com/a3ro-dev/aAlem/internal/crypt"
	"github.com/a3ro-dev/aAlem/internal/domain/entity"
	"github.com/a3ro-dev/aAlem/internal/domain/sqlite/repository"
	"github.com/a3ro-dev/aAlem/internal/service"
	"github.com/a3ro-dev/aAlem/internal/utils"
	"github.com/a3ro-dev/aAlem/internal/utils/apierror"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// HeaderNotePassword carries the password for reading a locked note.
const HeaderNotePassword = "X-Note-Password"

// NoteService is the orchestrator surface the routes consume.
type NoteService interface {
	Headers() []*entity.Note
	Search(query string) []*entity.Note
	Load(ctx context.Context, id int, password string) (*entity.Note, error)
	Save(ctx context.Context, note *entity.Note, password string) (int, error)
	Delete(ctx context.Context, id int) (bool, error)
	ToggleLock(note *entity.Note, password string) error
	DirtyCount(ctx context.Context) int
	Stats() repository.Stats
	PeriodicFlush(ctx context.Context) (flushed, failed int)
	CacheEnabled() bool
}

type DefaultNoteRoute struct {
	NoteService NoteService
}

func NewNoteDefault(noteService NoteService) *DefaultNoteRoute {
	return &DefaultNoteRoute{NoteService: noteService}
}

func (n *DefaultNoteRoute) GetNotes(c echo.Context) error {
	headers := n.NoteService.Headers()
	resp := echo.Map{"notes": toNoteResponses(headers)}
	return c.JSON(http.StatusOK, &resp)
}

func (n *DefaultNoteRoute) SearchNotes(c echo.Context) error {
	headers := n.NoteService.Search(c.QueryParam("q"))
	resp := echo.Map{"notes": toNoteResponses(headers)}
	return c.JSON(http.StatusOK, &resp)
}

func (n *DefaultNoteRoute) GetNote(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("id", "int"))
	}

	password := c.Request().Header.Get(HeaderNotePassword)
	note, err := n.NoteService.Load(c.Request().Context(), id, password)
	if err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, toNoteResponse(note))
}

func (n *DefaultNoteRoute) CreateNote(c echo.Context) error {
	req := new(contract.CreateNoteRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedJSONError)
	}

	utils.Sanitize(req)
	if req.ContentFormat == "" {
		req.ContentFormat = entity.FormatHTML
	}

	note := &entity.Note{
		Title:         req.Title,
		Content:       req.Content,
		Tags:          req.Tags,
		ContentFormat: req.ContentFormat,
	}

	if _, err := n.NoteService.Save(c.Request().Context(), note, ""); err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, toNoteResponse(note))
}

func (n *DefaultNoteRoute) UpdateNote(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("id", "int"))
	}

	req := new(contract.UpdateNoteRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedJSONError)
	}

	// Keep the password byte-for-byte; only the content fields get trimmed.
	password := req.Password
	utils.Sanitize(req)
	req.Password = password

	ctx := c.Request().Context()
	note, err := n.NoteService.Load(ctx, id, "")
	if err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	if req.ContentFormat != nil {
		note.ContentFormat = *req.ContentFormat
	}

	if _, err := n.NoteService.Save(ctx, note, req.Password); err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, toNoteResponse(note))
}

func (n *DefaultNoteRoute) DeleteNote(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("id", "int"))
	}

	deleted, err := n.NoteService.Delete(c.Request().Context(), id)
	if err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

func (n *DefaultNoteRoute) LockNote(c echo.Context) error {
	return n.toggleLock(c, true)
}

func (n *DefaultNoteRoute) UnlockNote(c echo.Context) error {
	return n.toggleLock(c, false)
}

func (n *DefaultNoteRoute) toggleLock(c echo.Context, lock bool) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("id", "int"))
	}

	req := new(contract.LockRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedJSONError)
	}

	ctx := c.Request().Context()
	note, err := n.NoteService.Load(ctx, id, "")
	if err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	if lock && note.Locked {
		lockedErr := apierror.NoteAlreadyLockedError
		return c.JSON(lockedErr.Code(), lockedErr)
	}
	if !lock && !note.Locked {
		unlockedErr := apierror.NoteAlreadyUnlockedError
		return c.JSON(unlockedErr.Code(), unlockedErr)
	}

	if err := n.NoteService.ToggleLock(note, req.Password); err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	// Locking encrypts on save; unlocking already decrypted into memory.
	password := ""
	if lock {
		password = req.Password
	}
	if _, err := n.NoteService.Save(ctx, note, password); err != nil {
		apierr := mapServiceError(err)
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, toNoteResponse(note))
}

func (n *DefaultNoteRoute) FlushCache(c echo.Context) error {
	flushed, failed := n.NoteService.PeriodicFlush(c.Request().Context())
	return c.JSON(http.StatusOK, &contract.FlushResponse{Flushed: flushed, Failed: failed})
}

func (n *DefaultNoteRoute) GetStats(c echo.Context) error {
	stats := n.NoteService.Stats()
	return c.JSON(http.StatusOK, &contract.StatsResponse{
		TotalNotes:       stats.TotalNotes,
		UniqueTags:       stats.UniqueTags,
		StorageSizeBytes: stats.StorageSizeBytes,
		DirtyNotes:       n.NoteService.DirtyCount(c.Request().Context()),
		CacheEnabled:     n.NoteService.CacheEnabled(),
	})
}

func mapServiceError(err error) apierror.ErrorResponse {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return apierror.NotFoundError
	case errors.Is(err, service.ErrPasswordRequired):
		return apierror.PasswordRequiredError
	case errors.Is(err, crypt.ErrDecryptionFailed):
		return apierror.DecryptionFailedError
	case errors.Is(err, crypt.ErrUnsupportedAlgorithm):
		return apierror.UnsupportedEnvelopeError
	}

	if valErr := apierror.FromValidationError(err); valErr != nil {
		return valErr
	}

	// Log the original underlying error for debugging purposes
	log.Errorf("unmapped service error: %v", err)
	return apierror.InternalServerError
}

func toNoteResponse(note *entity.Note) *contract.NoteResponse {
	return &contract.NoteResponse{
		ID:            note.ID,
		Title:         note.Title,
		Content:       note.Content,
		Tags:          note.Tags,
		CreatedAt:     note.CreatedAt,
		UpdatedAt:     note.UpdatedAt,
		Version:       note.Version,
		Locked:        note.Locked,
		ContentFormat: note.ContentFormat,
	}
}

func toNoteResponses(notes []*entity.Note) []*contract.NoteResponse {
	resp := make([]*contract.NoteResponse, len(notes))
	for i, note := range notes {
		resp[i] = toNoteResponse(note)
	}
	return resp
}
