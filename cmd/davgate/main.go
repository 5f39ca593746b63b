package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"davgate/internal/app"
	"davgate/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the environment overrides
// shared with the FileCloud web application.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "davgate",
	Short:        "WebDAV gateway for FileCloud",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve WebDAV until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		return a.Serve(ctx)
	},
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
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Listen:    %s\n", cfg.ListenAddr)
		fmt.Printf("Prefix:    %s\n", cfg.Prefix)
		fmt.Printf("Realm:     %s\n", cfg.Realm)
		fmt.Printf("TLS:       %v\n", cfg.TLS.Enabled())
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s %s\n", cfg.Database.Type, cfg.Database.Path)
		switch cfg.Blobs.Type {
		case "s3":
			fmt.Printf("Blobs:     s3://%s/%s\n", cfg.Blobs.S3Bucket, cfg.Blobs.S3Prefix)
		default:
			fmt.Printf("Blobs:     %s %s\n", cfg.Blobs.Type, cfg.Blobs.Dir)
		}
		if len(cfg.Filesystem.Ignore) > 0 {
			fmt.Printf("Ignore:    %s\n", strings.Join(cfg.Filesystem.Ignore, ", "))
		}
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the database schema and blob store access",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		report, err := app.CheckSetup(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Schema:    version %d of %d\n", report.Schema.Version, report.Schema.Latest)
		printCheck("Database", report.SchemaErr)
		printCheck("Blobs", report.BlobsErr)
		if !report.OK() {
			return errors.New("setup check failed")
		}
		return nil
	},
}

func printCheck(name string, err error) {
	if err != nil {
		fmt.Printf("%-10s FAIL: %v\n", name+":", err)
		return
	}
	fmt.Printf("%-10s ok\n", name+":")
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		before, after, err := app.MigrateDatabase(cfg)
		if err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		if before.Version == after.Version {
			fmt.Printf("Database already at version %d\n", after.Version)
			return nil
		}
		fmt.Printf("Database migrated from version %d to %d\n", before.Version, after.Version)
		return nil
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")

		password, err := readPassword()
		if err != nil {
			return err
		}

		user, err := app.AddUser(cmd.Context(), cfg, args[0], name, password)
		if err != nil {
			return fmt.Errorf("adding user: %w", err)
		}
		fmt.Printf("Created user %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

// readPassword prompts twice without echo when stdin is a terminal, and
// reads a single line otherwise.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var line string
		if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return line, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Repeat:   ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)

	dbCmd.AddCommand(dbMigrateCmd)
	rootCmd.AddCommand(dbCmd)

	userAddCmd.Flags().StringP("name", "n", "", "Display name (defaults to the e-mail)")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
