package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/sari",
		LogDir:  "/home/user/.local/share/sari/log",
		Server: ServerConfig{
			Addr:        "0.0.0.0:8080",
			ReadTimeout: Duration{5 * time.Second},
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/sari/db"},
		Images: ImagesConfig{
			Type:       "s3",
			S3Bucket:   "store-images",
			S3Prefix:   "products",
			S3Endpoint: "http://localhost:9000",
		},
		Backup: BackupConfig{
			PublicKeyPath:  "/home/user/.local/share/sari/keys/sari.pub",
			PrivateKeyPath: "/home/user/.local/share/sari/keys/sari.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Server.Addr = %q, want %q", got.Server.Addr, "0.0.0.0:8080")
	}
	if got.Server.ReadTimeout.Duration != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", got.Server.ReadTimeout)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Images != original.Images {
		t.Errorf("Images = %+v, want %+v", got.Images, original.Images)
	}
	if got.Backup.PublicKeyPath != original.Backup.PublicKeyPath {
		t.Errorf("Backup.PublicKeyPath = %q, want %q", got.Backup.PublicKeyPath, original.Backup.PublicKeyPath)
	}
	if got.Backup.PrivateKeyPath != original.Backup.PrivateKeyPath {
		t.Errorf("Backup.PrivateKeyPath = %q, want %q", got.Backup.PrivateKeyPath, original.Backup.PrivateKeyPath)
	}
}

func TestManager_Read(t *testing.T) {
	t.Run("durations as strings", func(t *testing.T) {
		input := `
base_dir = "/srv/sari"

[server]
addr = ":5000"
write_timeout = "1m30s"

[images]
type = "filesystem"
fs_root = "/srv/sari/uploads"
`
		got, err := (&Manager{}).Read(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got.Server.WriteTimeout.Duration != 90*time.Second {
			t.Errorf("WriteTimeout = %v, want 1m30s", got.Server.WriteTimeout)
		}
		if got.Images.FSRoot != "/srv/sari/uploads" {
			t.Errorf("Images.FSRoot = %q, want /srv/sari/uploads", got.Images.FSRoot)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		input := "[server]\nread_timeout = \"soon\"\n"
		if _, err := (&Manager{}).Read(strings.NewReader(input)); err == nil {
			t.Error("Read() expected error for invalid duration")
		}
	})
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/sari")

	if cfg.BaseDir != "/data/sari" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/sari")
	}
	if cfg.LogDir != "/data/sari/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/sari/log")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/sari/db" {
		t.Errorf("Database = %+v, want sqlite in /data/sari/db", cfg.Database)
	}
	if cfg.Images.Type != "filesystem" || cfg.Images.FSRoot != "/data/sari/uploads" {
		t.Errorf("Images = %+v, want filesystem in /data/sari/uploads", cfg.Images)
	}
	if cfg.Backup.PublicKeyPath != "/data/sari/keys/sari.pub" {
		t.Errorf("Backup.PublicKeyPath = %q, want %q", cfg.Backup.PublicKeyPath, "/data/sari/keys/sari.pub")
	}
	if cfg.Backup.PrivateKeyPath != "/data/sari/keys/sari.key" {
		t.Errorf("Backup.PrivateKeyPath = %q, want %q", cfg.Backup.PrivateKeyPath, "/data/sari/keys/sari.key")
	}
	if cfg.Server.ReadTimeout.Duration <= 0 || cfg.Server.MaxUploadBytes <= 0 {
		t.Errorf("Server = %+v, want positive timeouts and upload limit", cfg.Server)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "conf", "sari.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("config file mode = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sari.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sari.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
		if got.Server.IdleTimeout != cfg.Server.IdleTimeout {
			t.Errorf("Server.IdleTimeout = %v, want %v", got.Server.IdleTimeout, cfg.Server.IdleTimeout)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/sari.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
