package jobs

import (
	"context"
	"time"

	"github.com/a3ro-dev/aAlem/internal/service"
	"github.com/labstack/gommon/log"
)

// CacheFlusher periodically drains the write-behind cache into the store,
// bounding the data-loss window to one interval.
type CacheFlusher struct {
	noteService *service.DefaultNoteService
	interval    time.Duration
}

func NewCacheFlusher(noteService *service.DefaultNoteService, interval time.Duration) *CacheFlusher {
	return &CacheFlusher{noteService: noteService, interval: interval}
}

func (c *CacheFlusher) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Info("Cache flush cron started")

	for {
		select {
		case <-ctx.Done():
			// The service's Shutdown performs the final drain.
			log.Info("Stopping cache flusher...")
			return
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

func (c *CacheFlusher) flush(ctx context.Context) {
	flushed, failed := c.noteService.PeriodicFlush(ctx)
	if flushed > 0 {
		log.Infof("Flusher: persisted %d note(s) from cache", flushed)
	}
	if failed > 0 {
		log.Warnf("Flusher: %d note(s) failed to flush, retrying next cycle", failed)
	}
}
