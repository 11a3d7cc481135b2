package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/charlesng35/tooltable/internal/app"
	"github.com/charlesng35/tooltable/internal/database"
	"github.com/charlesng35/tooltable/internal/importer"
	"github.com/charlesng35/tooltable/internal/services"
	"github.com/charlesng35/tooltable/pkg/logger"
)

var (
	configPath string
	sourceDir  string
	resetData  bool
)

var rootCmd = &cobra.Command{
	Use:          "importer",
	Short:        "Load the YAML resource directory into the tool table database",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), cmd)
	},
}

var lastRunCmd = &cobra.Command{
	Use:   "last-run",
	Short: "Show when the last import committed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.Database.DatabaseOptions())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close(db)

		last, err := importer.LastRun(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("read last run: %w", err)
		}
		if last.IsZero() {
			fmt.Fprintln(cmd.OutOrStdout(), "no import recorded")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), last.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration directory or file")
	rootCmd.Flags().StringVar(&sourceDir, "source", "./resource", "Directory holding roots.yaml, <code>.yaml and AccessInternetAuth.yaml")
	rootCmd.Flags().BoolVar(&resetData, "reset", false, "Delete all nodes and auth links before importing")
	rootCmd.AddCommand(lastRunCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runImport(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := app.ConfigureLogging(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	info, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %q is not a directory", sourceDir)
	}

	dbCfg := cfg.Database.DatabaseOptions()
	if strings.EqualFold(dbCfg.Driver, "sqlite") && dbCfg.Path != "" && dbCfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbCfg.Path), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close(db)

	if err := database.Prepare(db); err != nil {
		return fmt.Errorf("prepare database: %w", err)
	}

	changes, err := services.NewChangeLogService(db)
	if err != nil {
		return err
	}
	im, err := importer.New(db, afero.NewBasePathFs(afero.NewOsFs(), sourceDir), changes)
	if err != nil {
		return err
	}

	result, err := im.Run(ctx, importer.Options{Reset: resetData})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Files:        %d\n", result.Files)
	fmt.Fprintf(out, "Folders:      %d\n", result.Folders)
	fmt.Fprintf(out, "Placeholders: %d\n", result.Placeholders)
	fmt.Fprintf(out, "Links:        %d\n", result.Links)
	fmt.Fprintf(out, "Auth links:   %d\n", result.AuthLinks)
	for _, skipped := range result.Skipped {
		fmt.Fprintf(out, "Skipped:      %s\n", skipped)
	}
	return nil
}

func loadConfig() (*app.Config, error) {
	_ = godotenv.Load()

	path := strings.TrimSpace(configPath)
	if path == "" {
		return app.LoadConfig()
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfig(filepath.Dir(path))
}
