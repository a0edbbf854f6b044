// Package publish stores finished documents and hands back a link to them.
package publish

import (
	"context"
	"io"
	"time"
)

// DefaultLinkExpiry is how long a presigned link stays valid.
const DefaultLinkExpiry = 5000 * time.Second

const ContentType = "application/pdf"

type Publisher interface {
	// Publish stores size bytes from body under key and returns a link
	// that can be used to retrieve them.
	Publish(ctx context.Context, key string, body io.ReadSeeker, size int64) (string, error)
}
