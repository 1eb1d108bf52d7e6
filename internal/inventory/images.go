package inventory

import (
	"context"
	"io"
)

// ImageStore persists uploaded product images.
// Names are the opaque filenames stored on Product.Image.
type ImageStore interface {
	// Save stores size bytes read from r under name and returns the stored name.
	// Saving an existing name overwrites it.
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)

	// Get writes the image stored under name to w. Returns ErrNotFound if absent.
	Get(ctx context.Context, name string, w io.Writer) error

	// Exists reports whether an image is stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the image. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// ValidateSetup verifies that the store is reachable and writable.
	ValidateSetup(ctx context.Context) error
}

// Upload is an image submitted with a product form.
type Upload struct {
	Filename string // as sent by the browser
	Size     int64
	Body     io.Reader
}
