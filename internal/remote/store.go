package remote

import (
	"context"
	"time"
)

// Store is a remote document store that can report a document's current
// revision without transferring its body.
type Store interface {
	// GetMetadata returns the current revision token for path.
	GetMetadata(ctx context.Context, path string) (string, error)
	// Download fetches the full document body together with its revision
	// token and server-side modification time.
	Download(ctx context.Context, path string) (data []byte, rev string, modified time.Time, err error)
}
