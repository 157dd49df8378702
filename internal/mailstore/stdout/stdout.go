// Package stdout implements a Store that prints accepted messages to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shineum/smtp-mailsink/internal/mailstore"
)

const separator = "========================================\n"

// Store prints accepted messages in a human-readable format.
type Store struct {
	// mu serializes writes so blocks from concurrent sessions do not interleave.
	mu sync.Mutex

	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
	now    func() time.Time
}

// New creates a new stdout Store that writes to os.Stdout.
func New() *Store {
	return &Store{writer: os.Stdout, now: time.Now}
}

// NewWithWriter creates a new stdout Store that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Store {
	return &Store{writer: w, now: time.Now}
}

// Deliver prints the message along with the location the disk store would
// have used for it. It always returns nil (success).
func (s *Store) Deliver(_ context.Context, recipient, body string) error {
	var b strings.Builder

	b.WriteString(separator)
	b.WriteString(fmt.Sprintf("To: %s\n", recipient))
	b.WriteString(fmt.Sprintf("Location: %s\n", mailstore.Location(recipient, s.now())))
	b.WriteString(fmt.Sprintf("Size: %s\n", formatSize(len(body))))
	b.WriteString("Body:\n")
	b.WriteString(body + "\n")
	b.WriteString(separator)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A failed print is not a failed delivery for a development sink.
	_, _ = fmt.Fprint(s.writer, b.String())

	return nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
