// Package audit persists decision records for the audit trail.
package audit

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/secgate-io/secgate/internal/models"
)

// Store appends immutable decision records to an audit trail.
//
// A Store failure is a SerializationError in the decision lifecycle: it is
// surfaced to the caller but the in-memory Decision remains valid and its
// verdict is unchanged.
type Store interface {
	Append(ctx context.Context, d *models.Decision) error
}

// NopStore discards all decisions. Used when no audit log is configured.
type NopStore struct{}

// Append implements Store.
func (NopStore) Append(context.Context, *models.Decision) error { return nil }

// FileStore appends one JSON-encoded decision per line to a log file.
// Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore appending to path. The file is created on
// first append; parent directories must already exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the audit log file path.
func (s *FileStore) Path() string { return s.path }

// Append implements Store. The file is opened per append so a long-lived
// process never holds the log open across rotations.
func (s *FileStore) Append(ctx context.Context, d *models.Decision) error {
	data, err := d.Storable()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log %q: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append decision %s to audit log: %w", d.ID, err)
	}
	return nil
}
