package inventory

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// Service is the orchestration layer between the HTTP handlers and the
// catalog store and image store.
type Service struct {
	database Database
	images   ImageStore
	logger   Logger
	idgen    IDGenerator
}

// NewService creates a new Service with the provided dependencies.
func NewService(database Database, images ImageStore, logger Logger, idgen IDGenerator) *Service {
	return &Service{
		database: database,
		images:   images,
		logger:   logger,
		idgen:    idgen,
	}
}

// allowedImageExts lists the upload extensions accepted for product images.
var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// imageName turns a browser-supplied filename into a safe, unique store name:
// "My Photo (1).JPG" becomes "my-photo-1-1a2b3c4d.jpg".
func (s *Service) imageName(original string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	if !allowedImageExts[ext] {
		return "", NewValidationError("image", fmt.Sprintf("unsupported image type %q", ext))
	}

	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "image"
	}

	suffix := strings.ReplaceAll(s.idgen.New(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%s%s", stem, suffix, ext), nil
}

// storeImage saves an upload and returns its store name.
// A nil upload or one without a filename stores nothing and returns "".
func (s *Service) storeImage(ctx context.Context, up *Upload) (string, error) {
	if up == nil || up.Filename == "" {
		return "", nil
	}

	name, err := s.imageName(up.Filename)
	if err != nil {
		return "", err
	}

	stored, err := s.images.Save(ctx, name, up.Body, up.Size)
	if err != nil {
		return "", fmt.Errorf("saving image: %w", err)
	}

	s.logger.Debug("image stored", "name", stored, "size", up.Size)
	return stored, nil
}

// removeImage deletes a stored image if it is still present.
func (s *Service) removeImage(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}

	exists, err := s.images.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking image %s: %w", name, err)
	}
	if !exists {
		s.logger.Warn("image already missing", "name", name)
		return nil
	}

	if err := s.images.Delete(ctx, name); err != nil {
		return fmt.Errorf("deleting image %s: %w", name, err)
	}

	s.logger.Debug("image removed", "name", name)
	return nil
}

// discardImage is used to roll back an image saved for a write that failed.
func (s *Service) discardImage(ctx context.Context, name string) {
	if err := s.removeImage(ctx, name); err != nil {
		s.logger.Error("discarding orphaned image failed", "name", name, "error", err)
	}
}

// OpenImage writes the stored image called name to w.
func (s *Service) OpenImage(ctx context.Context, name string, w io.Writer) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("image %q: %w", name, ErrNotFound)
	}
	return s.images.Get(ctx, name, w)
}

// Health verifies the schema version and that the image store is usable.
func (s *Service) Health(ctx context.Context) error {
	if err := s.database.CheckMigrations(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.images.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("image store: %w", err)
	}
	return nil
}
