package images

import (
	"context"
	"fmt"

	"sari-go/internal/config"
	"sari-go/internal/inventory"
)

// NewImageStoreFromConfig creates an ImageStore implementation based on the images config type.
func NewImageStoreFromConfig(ctx context.Context, cfg config.ImagesConfig) (inventory.ImageStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem image store requires fs_root to be set")
		}
		store, err := NewFileSystemStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3StoreFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown image store type: %s", cfg.Type)
	}
}
