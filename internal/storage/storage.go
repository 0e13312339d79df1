// Package storage keeps complaint media and profile pictures outside the
// database. Locators returned by Store are opaque to callers and are what the
// complaint rows reference.
package storage

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidLocator is returned for locators a backend did not produce.
var ErrInvalidLocator = errors.New("invalid storage locator")

// FileStorage is the collaborator the workflow hands media to.
type FileStorage interface {
	Store(ctx context.Context, prefix string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, locator string) error
}

// objectKey builds "<prefix>/<uuid><ext>" with an extension guessed from the
// content type.
func objectKey(prefix, contentType string) string {
	ext := ""
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	if prefix == "" {
		prefix = "misc"
	}
	return prefix + "/" + uuid.NewString() + ext
}
