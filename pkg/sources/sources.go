package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polcheck/polcheck/pkg/parser"
)

// FetchError represents a failure to retrieve a document.
type FetchError struct {
	// Op is the operation that failed (e.g., "read", "connect", "open").
	Op string

	// Location is the document location that was requested.
	Location string

	// Err is the underlying error.
	Err error

	// IsTemporary indicates if the error is temporary and can be retried.
	IsTemporary bool
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Location, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Temporary() bool {
	return e.IsTemporary
}

// Resolver retrieves policy documents from local paths, standard input,
// or sftp:// locations.
type Resolver struct {
	logger zerolog.Logger

	// Stdin is the reader used for the "-" location.
	Stdin io.Reader

	// SFTP configures remote retrieval. Host and User from the URL
	// override the configured values.
	SFTP *SFTPConfig
}

// NewResolver creates a document resolver.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{
		logger: logger.With().Str("component", "sources").Logger(),
		Stdin:  os.Stdin,
	}
}

// Fetch retrieves the document at the given location. "-" reads from
// standard input, sftp:// URLs fetch from a remote host, and anything
// else is a local file path.
func (r *Resolver) Fetch(ctx context.Context, location string) (parser.Document, error) {
	switch {
	case location == "-":
		return r.fetchStdin()
	case strings.HasPrefix(location, "sftp://"):
		return r.fetchSFTP(ctx, location)
	default:
		return r.fetchLocal(location)
	}
}

// fetchLocal reads a document from the local filesystem.
func (r *Resolver) fetchLocal(path string) (parser.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return parser.Document{}, &FetchError{
			Op:       "read",
			Location: path,
			Err:      err,
		}
	}

	r.logger.Debug().Str("path", path).Int("bytes", len(content)).Msg("Document read")

	return parser.Document{
		Name:    path,
		Content: content,
	}, nil
}

// fetchStdin reads a document from standard input.
func (r *Resolver) fetchStdin() (parser.Document, error) {
	content, err := io.ReadAll(r.Stdin)
	if err != nil {
		return parser.Document{}, &FetchError{
			Op:       "read",
			Location: "stdin",
			Err:      err,
		}
	}

	return parser.Document{
		Name:    "<stdin>",
		Content: content,
	}, nil
}

// DocumentName returns a short display name for a location.
func DocumentName(location string) string {
	if location == "-" {
		return "<stdin>"
	}
	if strings.HasPrefix(location, "sftp://") {
		return location
	}
	return filepath.Base(location)
}
