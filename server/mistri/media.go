package mistri

import (
	"context"
	"io"
)

// MediaStore stores proof-of-work media and returns a stable URL for it.
// The job record only ever holds the returned references, never the bytes.
type MediaStore interface {
	Put(ctx context.Context, jobID, name string, contents io.Reader) (string, error)
}
