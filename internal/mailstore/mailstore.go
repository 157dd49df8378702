// Package mailstore defines the interface for accepted-message storage backends
// and the recipient-derived naming shared by all of them.
package mailstore

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// EntryExt is the file extension of a stored message entry.
const EntryExt = ".eml"

// Store is the interface that mail storage backends must implement.
// A Store is shared by every session of a server, so implementations
// must be safe for concurrent use.
type Store interface {
	// Deliver persists body on behalf of recipient.
	// It returns an error if the message could not be stored.
	Deliver(ctx context.Context, recipient, body string) error

	// Name returns the human-readable name of this store.
	Name() string
}

// sanitizer maps characters that are unsafe in a path segment.
// Path separators are folded as well so a recipient can never address a
// nested or absolute location.
var sanitizer = strings.NewReplacer(
	"@", "_at_",
	"<", "",
	">", "",
	".", "_",
	"/", "_",
	`\`, "_",
)

// Sanitize derives the per-recipient container name from a recipient
// string, e.g. "<c@d.com>" becomes "c_at_d_com".
func Sanitize(recipient string) string {
	return sanitizer.Replace(recipient)
}

// EntryName returns the name of the entry written at t. Names have
// whole-second granularity, so two entries written for the same recipient
// within one second share a name.
func EntryName(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10) + EntryExt
}

// Location returns the container-relative location of an entry, using
// forward slashes regardless of platform.
func Location(recipient string, t time.Time) string {
	return Sanitize(recipient) + "/" + EntryName(t)
}
