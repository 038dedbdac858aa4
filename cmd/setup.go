package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = defaultConfigPath
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("%s %s\n", r.styles.OK("✓ Config written to"), path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set GEMINI_API_KEY in the environment or credentials.gemini.api_key in %s\n", path)
	r.writePlain("2. Run 'emotionquest setup youtube --curl-file <file>' to authenticate YouTube Music\n")
	return nil
}

// SetupDatabase initializes the archive database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Database
	if cfg.Path == "" {
		return fmt.Errorf("%w: database.path is empty", shared.ErrInvalidConfig)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	r.logger.Info("opening database", "path", cfg.Path)

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	switch {
	case cmd.Bool("status"):
	case cmd.Bool("rollback"):
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	default:
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	status, err := shared.GetMigrationStatus(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Database")
	r.writePlain("Path: %s\n", cfg.Path)
	r.writePlain("Current version: %d\n", status.Current)
	r.writePlain("Applied migrations: %d\n", status.Applied)
	if len(status.Pending) == 0 {
		r.writePlain("%s\n", r.styles.OK("✓ Schema is up to date"))
		return nil
	}
	r.writePlain("%s\n", r.styles.Warn(fmt.Sprintf("Pending migrations: %d", len(status.Pending))))
	for _, m := range status.Pending {
		r.writePlain("  %04d %s\n", m.Version, m.Name)
	}
	return nil
}

// SetupYouTube configures YouTube Music authentication from browser headers.
//
// Accepts a cURL command copied from DevTools and writes browser.json for the search proxy.
func (r *Runner) SetupYouTube(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	outputPath := cmd.String("output")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	r.logger.Info("parsing cURL command for YouTube Music headers")

	var headers *shared.BrowserHeaders
	var err error

	if curlFile != "" {
		headers, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		headers, err = shared.ParseCurlCommand(curlCmd)
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if outputPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		outputPath = filepath.Join(homeDir, ".emotionquest", "browser.json")
	}

	if err := headers.WriteBrowserJSON(outputPath); err != nil {
		return err
	}

	r.logger.Info("browser.json saved", "path", outputPath)

	r.writePlain("%s\n", r.styles.OK("✓ YouTube Music authentication configured successfully"))
	r.writePlain("Auth file saved to: %s\n", outputPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Update config.toml with: credentials.youtube.headers_path = \"%s\"\n", outputPath)
	r.writePlain("2. Run 'emotionquest search \"Clair de Lune\" \"Debussy\"' to test authentication\n")

	return nil
}
