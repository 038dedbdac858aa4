package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	tu "github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/testing"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/ui"
	"golang.org/x/oauth2"
)

func TestNewRunner(t *testing.T) {
	t.Run("keeps provided dependencies", func(t *testing.T) {
		config := shared.DefaultConfig()
		logger := shared.NewLogger(nil)
		output := &bytes.Buffer{}
		httpClient := &http.Client{}
		pipeline := &fakePipeline{}
		youtube := &fakeSearcher{}

		r := NewRunner(RunnerOpts{
			Config:     config,
			ConfigPath: "/etc/emotionquest.toml",
			Logger:     logger,
			Output:     output,
			HTTPClient: httpClient,
			Styles:     ui.Plain(),
			Pipeline:   pipeline,
			YouTube:    youtube,
		})

		switch {
		case r.config != config:
			t.Error("expected config to be set")
		case r.configPath != "/etc/emotionquest.toml":
			t.Errorf("expected configPath to be set, got %q", r.configPath)
		case r.logger != logger:
			t.Error("expected logger to be set")
		case r.output != output:
			t.Error("expected output to be set")
		case r.httpClient != httpClient:
			t.Error("expected httpClient to be set")
		case r.pipeline != pipeline:
			t.Error("expected pipeline to be set")
		case r.youtube != youtube:
			t.Error("expected youtube to be set")
		}
	})

	t.Run("fills defaults", func(t *testing.T) {
		r := NewRunner(RunnerOpts{})

		if r.config == nil {
			t.Error("expected default config")
		}
		if r.logger == nil {
			t.Error("expected default logger")
		}
		if r.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
		if r.httpClient != http.DefaultClient {
			t.Error("expected httpClient to default to http.DefaultClient")
		}
		if r.styles != ui.Styles {
			t.Error("expected the shared palette")
		}
		if r.connect == nil || r.oauth == nil {
			t.Error("expected spotify connector and oauth config")
		}
		if r.pipeline != nil || r.youtube != nil {
			t.Error("expected collaborators to be built lazily")
		}
	})
}

func TestRunnerOutput(t *testing.T) {
	t.Run("writeJSON", func(t *testing.T) {
		tt := []struct {
			name   string
			pretty bool
			want   string
		}{
			{name: "pretty", pretty: true, want: "{\n  \"key\": \"value\"\n}\n"},
			{name: "compact", pretty: false, want: `{"key":"value"}` + "\n"},
		}
		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				output := &bytes.Buffer{}
				r := NewRunner(RunnerOpts{Output: output})

				if err := r.writeJSON(map[string]string{"key": "value"}, tc.pretty); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if output.String() != tc.want {
					t.Errorf("expected %q, got %q", tc.want, output.String())
				}
			})
		}
	})

	t.Run("writeJSON errors", func(t *testing.T) {
		limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
		tt := []struct {
			name    string
			output  io.Writer
			data    any
			wantErr string
		}{
			{name: "unmarshalable", output: &bytes.Buffer{}, data: make(chan int), wantErr: "failed to marshal JSON"},
			{name: "failing writer", output: &tu.FWriter{}, data: "x", wantErr: "failed to write output"},
			{name: "failing newline", output: &limited, data: "x", wantErr: "failed to write newline"},
		}
		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				r := NewRunner(RunnerOpts{Output: tc.output})

				err := r.writeJSON(tc.data, false)
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Errorf("expected %q error, got %v", tc.wantErr, err)
				}
			})
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Output: output})

		if err := r.writePlain("hello %s", "world"); err != nil {
			t.Fatal(err)
		}
		if err := r.writePlainln("done"); err != nil {
			t.Fatal(err)
		}
		if got := output.String(); got != "hello world\ndone\n" {
			t.Errorf("unexpected output %q", got)
		}

		if err := NewRunner(RunnerOpts{Output: &tu.FWriter{}}).writePlain("x"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("writePlainHeader", func(t *testing.T) {
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Output: output, Styles: ui.Plain()})

		r.writePlainHeader("Rainy Morning")

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 3 || lines[1] != "Rainy Morning" {
			t.Errorf("expected title between rules, got %q", output.String())
		}
	})
}

func TestSaveTokens(t *testing.T) {
	token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}

	t.Run("writes the config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "test_id"
		config.Credentials.Spotify.ClientSecret = "test_secret"
		if err := shared.SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to create test config: %v", err)
		}

		r := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})
		if err := r.saveTokens(token); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		spotify := loaded.Credentials.Spotify
		if spotify.AccessToken != "new_access_token" || spotify.RefreshToken != "new_refresh_token" {
			t.Errorf("expected tokens to be saved, got %+v", spotify)
		}
		if spotify.ClientID != "test_id" {
			t.Errorf("expected other settings to survive, got %q", spotify.ClientID)
		}
	})

	t.Run("empty configPath only updates memory", func(t *testing.T) {
		config := shared.DefaultConfig()
		r := NewRunner(RunnerOpts{Config: config})

		if err := r.saveTokens(token); err != nil {
			t.Fatalf("expected no error with empty path, got %v", err)
		}
		if config.Credentials.Spotify.AccessToken != "new_access_token" {
			t.Error("expected config to be updated in memory")
		}
	})

	t.Run("nil config", func(t *testing.T) {
		r := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})
		r.config = nil

		if err := r.saveTokens(token); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		r := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "missing", "config.toml")})

		err := r.saveTokens(token)
		if err == nil || !strings.Contains(err.Error(), "failed to save config") {
			t.Errorf("expected save config error, got %v", err)
		}
	})

	t.Run("nil token", func(t *testing.T) {
		r := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "config.toml")})

		err := r.saveTokens(nil)
		if err == nil || !strings.Contains(err.Error(), "failed to update spotify configuration") {
			t.Fatalf("expected update error, got %v", err)
		}
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials in chain, got %v", err)
		}
	})
}
