package main

import (
	"context"
	"errors"
	"os"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	app := &cli.Command{
		Name:    "emotionquest",
		Usage:   "Turn a mood description into a classical music playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("EMOTIONQUEST_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
	}

	runner := NewRunner(RunnerOpts{Logger: logger})
	app.Commands = runner.register()
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Bool("verbose") {
			shared.SetLogLevel(logger, log.DebugLevel)
		}
		config, err := loadConfig(cmd.String("config"), logger)
		if err != nil {
			return ctx, err
		}
		runner.Configure(config, cmd.String("config"))
		return ctx, nil
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// loadConfig reads path when it exists, otherwise the embedded defaults, then applies the environment.
func loadConfig(path string, logger *log.Logger) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	} else {
		logger.Debug("config file not found, using defaults", "path", path)
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
