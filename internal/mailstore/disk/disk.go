// Package disk implements a Store that writes each accepted message to a
// file under a per-recipient directory.
package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shineum/smtp-mailsink/internal/mailstore"
)

// DefaultRoot is the storage root used when none is configured.
const DefaultRoot = "mail"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store writes messages to <root>/<sanitized recipient>/<unix seconds>.eml.
//
// Writes are best-effort: there is no fsync and no atomic rename, and a
// second delivery to the same recipient within the same second replaces
// the first.
type Store struct {
	root string
	now  func() time.Time
}

// New creates a disk Store rooted at root. An empty root selects DefaultRoot.
func New(root string) *Store {
	if root == "" {
		root = DefaultRoot
	}
	return &Store{root: root, now: time.Now}
}

// NewWithClock creates a disk Store that names entries using now.
// This is useful for testing.
func NewWithClock(root string, now func() time.Time) *Store {
	s := New(root)
	s.now = now
	return s
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding messages for recipient.
func (s *Store) Dir(recipient string) string {
	return filepath.Join(s.root, mailstore.Sanitize(recipient))
}

// Deliver creates the recipient directory if needed and writes body to a
// new entry named after the current second.
func (s *Store) Deliver(_ context.Context, recipient, body string) error {
	dir := s.Dir(recipient)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create mailbox directory: %w", err)
	}

	path := filepath.Join(dir, mailstore.EntryName(s.now()))
	if err := os.WriteFile(path, []byte(body), filePerm); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "disk"
}
