package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sari-go/internal/app"
	"sari-go/internal/config"
)

func main() {
	if err := app.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a StoreApp. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "serve", "backup create").
func newApp(ctx context.Context, operation string) (*app.StoreApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewStoreApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassphrase prompts on stderr and reads without echo when stdin is a
// terminal. Otherwise one line is read from stdin.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var rootCmd = &cobra.Command{
	Use:          "sari",
	Short:        "Inventory for a sari-sari store",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Next: sari db migrate")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s (%s)\n", cfg.LogDir, cfg.LogLevel)
		fmt.Printf("Listen:    %s\n", cfg.Server.Addr)
		fmt.Printf("Database:  %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		switch cfg.Images.Type {
		case "s3":
			fmt.Printf("Images:    s3://%s/%s\n", cfg.Images.S3Bucket, cfg.Images.S3Prefix)
		default:
			fmt.Printf("Images:    %s %s\n", cfg.Images.Type, cfg.Images.FSRoot)
		}
		fmt.Printf("Backup:    %s %s\n", cfg.Backup.Type, cfg.Backup.PublicKeyPath)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database schema",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		status, err := app.Migrate(cfg)
		if err != nil {
			return fmt.Errorf("migrating: %w", err)
		}

		fmt.Printf("Schema at version %d\n", status.Version)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		status, err := app.MigrationStatus(cfg)
		if err != nil {
			return err
		}

		state := "up to date"
		switch {
		case status.Dirty:
			state = "dirty"
		case !status.UpToDate():
			state = fmt.Sprintf("%d migration(s) pending", status.Latest-status.Version)
		}
		fmt.Printf("Version %d of %d: %s\n", status.Version, status.Latest, state)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the store web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gin.SetMode(gin.ReleaseMode)

		a, err := newApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer a.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = a.Config().Server.Addr
		}

		fmt.Printf("Serving on http://%s\n", addr)
		if err := a.Serve(ctx, addr); err != nil {
			a.Fail()
			return err
		}
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Encrypted database backups",
}

var backupInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the backup key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := app.InitBackupKeys(cfg, pass); err != nil {
			return fmt.Errorf("creating keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Backup.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Backup.PrivateKeyPath)
		return nil
	},
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write an encrypted snapshot of the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "backup create")
		if err != nil {
			return err
		}
		defer a.Close()

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			name := fmt.Sprintf("sari-%s.age", time.Now().UTC().Format("20060102T150405Z"))
			out = filepath.Join(a.Config().BaseDir, "backups", name)
		}

		if err := a.CreateBackup(cmd.Context(), out); err != nil {
			a.Fail()
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup written to %s\n", out)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Decrypt a backup into a new database file",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pass := ""
		if cfg.Backup.Type != "test" {
			if pass, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		if err := app.RestoreBackup(cfg, in, out, pass); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored database to %s\n", out)
		fmt.Println("Stop the server and move it over the configured database to use it.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)

	// backup subcommands
	backupCmd.AddCommand(backupInitCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCreateCmd.Flags().StringP("out", "o", "", "Backup file to write (default: <base_dir>/backups/sari-<time>.age)")
	backupCmd.AddCommand(backupRestoreCmd)
	backupRestoreCmd.Flags().StringP("in", "i", "", "Backup file to read")
	backupRestoreCmd.Flags().StringP("out", "o", "", "Database file to create")
	backupRestoreCmd.MarkFlagRequired("in")
	backupRestoreCmd.MarkFlagRequired("out")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(backupCmd)
}
