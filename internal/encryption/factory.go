package encryption

import (
	"fmt"

	"sari-go/internal/config"
	"sari-go/internal/inventory"
)

// NewEncryptorFromConfig creates an Encryptor based on the backup config type.
func NewEncryptorFromConfig(cfg config.BackupConfig) (inventory.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age backups require public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewStubEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown backup encryption type: %q", cfg.Type)
	}
}
