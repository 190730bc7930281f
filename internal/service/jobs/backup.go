package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/gommon/log"
)

// DatabaseBackup periodically copies the SQLite file into the backup
// directory. Backups are plain file copies; the store keeps a single
// connection so the file is never mid-write for long.
type DatabaseBackup struct {
	dbPath    string
	backupDir string
	interval  time.Duration
}

func NewDatabaseBackup(dbPath, backupDir string, interval time.Duration) *DatabaseBackup {
	return &DatabaseBackup{dbPath: dbPath, backupDir: backupDir, interval: interval}
}

func (b *DatabaseBackup) Start(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	log.Info("Database backup cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping database backup...")
			return
		case <-ticker.C:
			if err := b.backup(); err != nil {
				log.Errorf("Backup: %v", err)
			}
		}
	}
}

func (b *DatabaseBackup) backup() error {
	if err := os.MkdirAll(b.backupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	src, err := os.Open(b.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("alem_notes-%s.db", time.Now().UTC().Format("20060102-150405"))
	dst, err := os.Create(filepath.Join(b.backupDir, name))
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy database: %w", err)
	}

	log.Infof("Backup: wrote %s", name)
	return nil
}
