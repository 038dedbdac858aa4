// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/formatter"
	"github.com/urfave/cli/v3"
)

// generateCommand runs the pipeline once and prints the playlist.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate a classical playlist from a mood description",
		ArgsUsage: "<description>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "description"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "language",
				Aliases: []string{"l"},
				Usage:   "Language for the playlist title and description",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (" + strings.Join(formatter.Formats, ", ") + ")",
				Value:   formatter.FormatText,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the full result as JSON",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Archive the playlist in the local database",
			},
			&cli.StringFlag{
				Name:    "spotify-token",
				Usage:   "Spotify user access token",
				Sources: cli.EnvVars("SPOTIFY_ACCESS_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "create-spotify",
				Usage: "Also resolve on Spotify, creating a playlist with the saved login when available",
			},
		},
		Action: r.Generate,
	}
}

// searchCommand resolves a single title/artist pair.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Resolve one track against a provider",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "title"},
			&cli.StringArg{Name: "artist"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Provider to search (youtube or spotify)",
				Value:   "youtube",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// serveCommand starts the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playlist API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind (default from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-archive",
				Usage: "Do not archive generated playlists",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Generate playlists interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "language",
				Aliases: []string{"l"},
				Usage:   "Language for the playlist title and description",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File receiving logs while the TUI runs",
				Value: "emotionquest-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// archiveCommand manages archived playlists.
func archiveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Manage archived playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List archived playlists, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mood",
						Usage: "Only playlists with this mood tag",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to list",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ArchiveList,
			},
			{
				Name:  "show",
				Usage: "Print an archived playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (" + strings.Join(formatter.Formats, ", ") + ")",
						Value:   formatter.FormatText,
					},
				},
				Action: r.ArchiveShow,
			},
			{
				Name:  "export",
				Usage: "Export archived playlists to files",
				Arguments: []cli.Argument{
					&cli.StringArgs{Name: "ids", Min: 0, Max: -1},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (" + strings.Join(formatter.Formats, ", ") + ")",
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every archived playlist",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images for markdown exports",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 5,
					},
				},
				Action: r.ArchiveExport,
			},
			{
				Name:  "delete",
				Usage: "Remove a playlist from the archive",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.ArchiveDelete,
			},
		},
	}
}

// setupCommand handles setup operations for configuration, database and YouTube Music authentication.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml with the default settings",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the archive database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "status",
						Usage: "Show migration status without migrating",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt", "ytmusic"},
				Usage:   "Configure YouTube Music authentication from browser headers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output path for browser.json (default: ~/.emotionquest/browser.json)",
					},
				},
				Action: r.SetupYouTube,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Log in to Spotify and save the token to the config file",
				Action: r.SpotifyAuth,
			},
			{
				Name:   "status",
				Usage:  "Check the YouTube Music proxy and saved credentials",
				Action: r.AuthStatus,
			},
		},
	}
}
