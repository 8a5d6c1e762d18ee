// Package storage puts processed uploads somewhere reachable by URL.
package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Uploader stores data under name and returns the public URL of the stored
// object. Implementations must be safe for concurrent use.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// NewName returns a unique object name with the given prefix and extension,
// e.g. "posts/3f2c....jpg".
func NewName(prefix, ext string) string {
	name := uuid.NewString() + "." + strings.TrimPrefix(ext, ".")
	if prefix == "" {
		return name
	}
	return strings.Trim(prefix, "/") + "/" + name
}
