package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/finofficer/autoreply/pkg/logging"
)

// DirWriter archives records as timestamped JSON files in a local
// directory. Used in development and single-host deployments where S3 is
// not available.
type DirWriter struct {
	dir    string
	logger *logging.Logger
}

// NewDirWriter creates a filesystem archive writer rooted at dir.
func NewDirWriter(dir string, logger *logging.Logger) *DirWriter {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirWriter{dir: dir, logger: logger}
}

// Write stores the record as <dir>/YYYY/MM/<timestamp>_<id>.json.
func (w *DirWriter) Write(_ context.Context, record Record) error {
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}
	at := record.ArchivedAt

	subdir := filepath.Join(w.dir, fmt.Sprintf("%d", at.Year()), fmt.Sprintf("%02d", at.Month()))
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return fmt.Errorf("archive: create dir: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", at.Format("20060102T150405"), record.MessageID)
	path := filepath.Join(subdir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}

	w.logger.Debug("archived email to disk", "message_id", record.MessageID, "path", path)
	return nil
}
