package policies

import (
	"context"
	"io"
)

// PhotoStorage stores listing photos and returns their public URL.
type PhotoStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
}
