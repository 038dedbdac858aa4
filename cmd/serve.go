package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/server"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := r.playlistPipeline(ctx)
	if err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	opts := server.Options{
		Pipeline: pipeline,
		Config:   cfg,
		Logger:   r.logger,
	}

	if !cmd.Bool("no-archive") {
		repo, db, err := r.openArchive()
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Archive = repo
	}

	if yt := r.config.Credentials.YouTube; yt.Backend != "data_api" && yt.ProxyURL != "" {
		opts.Health = services.NewAPIService(yt.ProxyURL, r.httpClient)
	}

	r.logger.Info("starting server", "host", cfg.Host, "port", cfg.Port, "archive", opts.Archive != nil)
	return server.NewServer(opts).ListenAndServe(ctx)
}
