package encryption

import (
	"testing"

	"sari-go/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.BackupConfig
		wantType string
		wantErr  bool
	}{
		{"age by default", config.BackupConfig{PublicKeyPath: "/k/sari.pub", PrivateKeyPath: "/k/sari.key"}, "age", false},
		{"age without key paths", config.BackupConfig{Type: "age"}, "", true},
		{"test", config.BackupConfig{Type: "test"}, "test", false},
		{"unknown", config.BackupConfig{Type: "rot13"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEncryptorFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			switch got.(type) {
			case *AgeEncryptor:
				if tt.wantType != "age" {
					t.Errorf("got *AgeEncryptor, want %s", tt.wantType)
				}
			case *StubEncryptor:
				if tt.wantType != "test" {
					t.Errorf("got *StubEncryptor, want %s", tt.wantType)
				}
			default:
				t.Errorf("unexpected encryptor type %T", got)
			}
		})
	}
}
