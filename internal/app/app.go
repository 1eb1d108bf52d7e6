package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"sari-go/internal/config"
	"sari-go/internal/database"
	"sari-go/internal/database/migrations"
	"sari-go/internal/encryption"
	"sari-go/internal/images"
	"sari-go/internal/inventory"
	"sari-go/internal/web"
)

// StoreApp is the application layer between the CLI and inventory.Service.
// It constructs all dependencies from config, owns their lifecycle, and
// exposes the long-running and maintenance operations the CLI needs.
type StoreApp struct {
	cfg     *config.Config
	op      *Operation
	db      *database.SQLiteDatabase
	images  inventory.ImageStore
	service *inventory.Service
	logger  *slog.Logger
	logFile *os.File
}

// NewStoreApp creates a fully wired StoreApp from the given config.
// operation names the CLI command being run (e.g. "serve", "backup create").
// The caller must call Close when done.
func NewStoreApp(ctx context.Context, cfg *config.Config, operation string) (*StoreApp, error) {
	op := NewOperation(operation, time.Now())

	logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, op.RunID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	store, err := images.NewImageStoreFromConfig(ctx, cfg.Images)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating image store: %w", err)
	}

	svc := inventory.NewService(db, store, &slogAdapter{l: logger}, inventory.UUIDGenerator{})
	logger.Info("operation started", "operation", op.Name, "database", cfg.Database.Type, "images", cfg.Images.Type)

	return &StoreApp{
		cfg:     cfg,
		op:      op,
		db:      db,
		images:  store,
		service: svc,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Config returns the configuration the app was built from.
func (a *StoreApp) Config() *config.Config {
	return a.cfg
}

// Service returns the wired inventory service.
func (a *StoreApp) Service() *inventory.Service {
	return a.service
}

// Logger returns the run's logger.
func (a *StoreApp) Logger() *slog.Logger {
	return a.logger
}

// Fail marks the current operation as failed; Close logs the outcome.
func (a *StoreApp) Fail() {
	a.op.Fail()
}

// Handler builds the HTTP handler for the store web UI.
func (a *StoreApp) Handler() (http.Handler, error) {
	return web.NewRouter(a.service, a.logger, web.Options{
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
	})
}

// Serve runs the web server on addr until ctx is cancelled, then shuts it
// down gracefully within the configured shutdown timeout.
func (a *StoreApp) Serve(ctx context.Context, addr string) error {
	if err := a.service.Health(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	handler, err := a.Handler()
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: a.cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  a.cfg.Server.IdleTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	timeout := a.cfg.Server.ShutdownTimeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.Info("shutting down", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// CreateBackup snapshots the database with VACUUM INTO and writes it,
// encrypted for the configured public key, to outPath. An existing file at
// outPath is never overwritten.
func (a *StoreApp) CreateBackup(ctx context.Context, outPath string) error {
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Backup)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if !enc.IsConfigured() {
		return fmt.Errorf("backup keys not found (run `sari backup init`)")
	}
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("backup file already exists at %s", outPath)
	}

	tmpDir, err := os.MkdirTemp("", "sari-snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, database.FileName)
	if err := a.db.BackupTo(ctx, snapshot); err != nil {
		return err
	}

	in, err := os.Open(snapshot)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	if err := writeAtomic(outPath, 0o600, func(f *os.File) error {
		return enc.Encrypt(in, f)
	}); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}

	a.logger.Info("backup created", "path", outPath)
	return nil
}

// Close logs the operation outcome and closes all resources.
func (a *StoreApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", time.Since(a.op.Started).Round(time.Millisecond))

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// Migrate applies pending schema migrations to the configured database.
func Migrate(cfg *config.Config) (migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return migrations.Status{}, err
	}
	return db.MigrationStatus()
}

// MigrationStatus reports the schema version of the configured database.
func MigrationStatus(cfg *config.Config) (migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	return db.MigrationStatus()
}

// InitBackupKeys generates the backup key pair, protecting the private key
// with passphrase.
func InitBackupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Backup)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	return enc.Setup(passphrase)
}

// RestoreBackup decrypts the backup at inPath into a SQLite file at
// outPath. The result is checked to be a migrated sari database before it
// is moved into place; outPath must not exist.
func RestoreBackup(cfg *config.Config, inPath, outPath, passphrase string) error {
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("refusing to overwrite %s", outPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", outPath, err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Backup)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	dc, err := enc.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking backup key: %w", err)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening backup: %w", err)
	}
	defer in.Close()

	return writeAtomic(outPath, 0o600, func(f *os.File) error {
		if err := dc.Decrypt(in, f); err != nil {
			return err
		}
		if err := f.Sync(); err != nil {
			return err
		}
		return verifySnapshot(f.Name())
	})
}

// verifySnapshot opens path as a database and checks its schema version.
func verifySnapshot(path string) error {
	db, err := database.NewSQLiteDatabase(path)
	if err != nil {
		return fmt.Errorf("restored file is not a database: %w", err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("restored database: %w", err)
	}
	return nil
}

// writeAtomic writes path through a temp file in the same directory that
// is renamed into place only if write succeeds.
func writeAtomic(path string, perm os.FileMode, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
