package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/cache"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repositories"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/ui"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

var validate = shared.NewValidator()

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	styles     *ui.Palette

	pipeline tasks.PlaylistGenerator
	youtube  services.TrackSearcher
	connect  tasks.SpotifyConnector
	oauth    *oauth2.Config
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Pipeline, YouTube and Connect replace the collaborators built from Config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Styles     *ui.Palette
	Pipeline   tasks.PlaylistGenerator
	YouTube    services.TrackSearcher
	Connect    tasks.SpotifyConnector
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Styles == nil {
		opts.Styles = ui.Styles
	}
	if opts.Connect == nil {
		opts.Connect = tasks.ConnectSpotify
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		styles:     opts.Styles,
		pipeline:   opts.Pipeline,
		youtube:    opts.YouTube,
		connect:    opts.Connect,
		oauth:      services.SpotifyOAuthConfig(opts.Config.Credentials.Spotify),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		generateCommand, searchCommand, serveCommand, tuiCommand, archiveCommand, setupCommand, authCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure replaces the config loaded at startup along with the path token updates are saved to.
func (r *Runner) Configure(config *shared.Config, path string) {
	r.config = config
	r.configPath = path
	r.oauth = services.SpotifyOAuthConfig(config.Credentials.Spotify)
}

// SetLogger replaces the logger, used by the TUI to keep logs off the screen.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// youtubeSearcher returns the configured YouTube backend.
func (r *Runner) youtubeSearcher(ctx context.Context) (services.TrackSearcher, error) {
	if r.youtube != nil {
		return r.youtube, nil
	}

	yt := r.config.Credentials.YouTube
	switch yt.Backend {
	case "data_api":
		if yt.APIKey == "" {
			return nil, fmt.Errorf("%w: credentials.youtube.api_key is required for the data_api backend", shared.ErrMissingCredentials)
		}
		svc, err := services.NewYouTubeDataService(ctx, yt.APIKey)
		if err != nil {
			return nil, err
		}
		r.youtube = svc
	default:
		r.youtube = services.NewYouTubeMusicService(yt.ProxyURL, yt.HeadersPath, r.httpClient)
	}
	return r.youtube, nil
}

// newCaches creates both cache namespaces from config. Callers own the sweeps they start.
func (r *Runner) newCaches() (*cache.Cache[*models.GeneratedPlaylist], *cache.Cache[models.ResolvedTrack]) {
	c := r.config.Cache
	playlists := cache.New[*models.GeneratedPlaylist](cache.Options{
		Name: "playlists", TTL: c.PlaylistTTL, Capacity: c.PlaylistCapacity, SweepInterval: c.SweepInterval, Logger: r.logger,
	})
	searches := cache.New[models.ResolvedTrack](cache.Options{
		Name: "searches", TTL: c.SearchTTL, Capacity: c.SearchCapacity, SweepInterval: c.SweepInterval, Logger: r.logger,
	})
	return playlists, searches
}

// playlistPipeline builds the generation pipeline from config on first use.
func (r *Runner) playlistPipeline(ctx context.Context) (tasks.PlaylistGenerator, error) {
	if r.pipeline != nil {
		return r.pipeline, nil
	}

	gemini := r.config.Credentials.Gemini
	if gemini.APIKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or credentials.gemini.api_key", shared.ErrMissingCredentials)
	}

	youtube, err := r.youtubeSearcher(ctx)
	if err != nil {
		return nil, err
	}

	model := services.NewGeminiService(gemini.APIKey, gemini.Model, gemini.BaseURL, r.httpClient)
	playlists, searches := r.newCaches()
	resolverOpts := tasks.ResolverOptsFromConfig(r.config.Resolver)

	var refiner *tasks.Refiner
	if r.config.Refiner.Enabled {
		refiner = tasks.NewRefiner(model, r.logger)
	}

	playlists.Start(ctx)
	searches.Start(ctx)

	r.pipeline = tasks.NewPipeline(tasks.PipelineDeps{
		Generator:    tasks.NewGenerator(model, tasks.GeneratorOptsFromConfig(r.config.Generator), r.logger),
		YouTube:      tasks.NewResolver(youtube, searches, resolverOpts, r.logger),
		Playlists:    playlists,
		Searches:     searches,
		ResolverOpts: resolverOpts,
		Refiner:      refiner,
		SpotifyApp:   r.config.Credentials.Spotify,
		Connect:      r.connect,
		Logger:       r.logger,
	})
	return r.pipeline, nil
}

// openArchive opens the playlist archive, migrating it when needed.
func (r *Runner) openArchive() (*repositories.PlaylistRepository, *sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return repositories.NewPlaylistRepository(db), db, nil
}

// saveTokens stores tok in the config and writes it to the config file when one is set.
func (r *Runner) saveTokens(tok *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if err := r.config.Credentials.Spotify.Update(tok); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.styles.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
