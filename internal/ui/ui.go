package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// maxLogLines bounds the progress lines kept on screen.
const maxLogLines = 8

// Generator runs the playlist pipeline.
type Generator interface {
	Generate(ctx context.Context, req tasks.GenerateRequest, progress chan<- tasks.ProgressUpdate) (*tasks.GenerateResult, error)
}

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PromptView ViewState = iota
	GeneratingView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	generator    Generator
	template     tasks.GenerateRequest
	width        int
	height       int
	input        textinput.Model
	spinner      spinner.Model
	trackList    list.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan generateCompleteMsg
	progress     tasks.ProgressUpdate
	log          []string
	result       *tasks.GenerateResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model. template supplies the language and Spotify options of every request.
func NewModel(ctx context.Context, generator Generator, template tasks.GenerateRequest) *Model {
	input := textinput.New()
	input.Placeholder = "a rainy sunday morning, slow and hopeful"
	input.CharLimit = 1000
	input.Width = 60
	input.Focus()

	return &Model{
		ctx:       ctx,
		view:      PromptView,
		generator: generator,
		template:  template,
		input:     input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the cursor blink of the prompt.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.trackList.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PromptView:
			return m.handlePromptKeys(msg)
		case GeneratingView:
			return m.handleGeneratingKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != GeneratingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		if m.progress.Message != "" {
			m.log = append(m.log, m.progress.Message)
			if len(m.log) > maxLogLines {
				m.log = m.log[len(m.log)-maxLogLines:]
			}
		}
		return m, m.waitForProgress()

	case generateCompleteMsg:
		m.finish(msg)
		return m, nil
	}

	if m.view == PromptView {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PromptView:
		return m.renderPrompt()
	case GeneratingView:
		return m.renderGenerating()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		if strings.TrimSpace(m.input.Value()) == "" {
			return m, nil
		}
		m.view = GeneratingView
		return m, tea.Batch(m.spinner.Tick, m.startGeneration())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleGeneratingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
		return m, textinput.Blink
	}

	if m.result == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

// startGeneration runs the pipeline in the background. The progress channel is closed once Generate returns, and
// the outcome is delivered after the last progress message.
func (m *Model) startGeneration() tea.Cmd {
	req := m.template
	req.Description = m.input.Value()

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan generateCompleteMsg, 1)
	m.log = nil

	progress, done := m.progressChan, m.doneChan
	go func() {
		result, err := m.generator.Generate(ctx, req, progress)
		close(progress)
		done <- generateCompleteMsg{result: result, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) finish(msg generateCompleteMsg) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.result, m.err = msg.result, msg.err
	m.view = ResultView

	if m.result == nil {
		return
	}
	m.trackList = list.New(trackItems(m.result.Playlist.Songs), list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = m.result.Playlist.Title
	m.trackList.SetSize(m.width-4, m.height-10)
}

func (m *Model) reset() {
	m.view = PromptView
	m.result, m.err = nil, nil
	m.progress = tasks.ProgressUpdate{}
	m.log = nil
	m.input.Reset()
	m.input.Focus()
}

func (m *Model) renderPrompt() string {
	title := Styles.Title("How do you feel?")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderGenerating() string {
	title := Styles.Title("Composing your playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.ResolveTracks, tasks.SpotifyResolve:
		phase = fmt.Sprintf("Resolving tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.AddTracks:
		phase = fmt.Sprintf("Adding tracks to Spotify (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Working..."
	}

	lines := make([]string, len(m.log))
	for i, l := range m.log {
		lines[i] = Styles.Help("  " + l)
	}

	return fmt.Sprintf("%s\n\n%s %s\n\n%s\n\n%s", title, m.spinner.View(), phase, strings.Join(lines, "\n"),
		m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", Styles.Err(fmt.Sprintf("Generation failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", Styles.Err("No result available"), helpView)
	}

	summary := fmt.Sprintf("%s  %d/%d tracks  %s", Styles.Status(string(m.result.Status)),
		m.result.Playlist.TotalSongs, m.result.Playlist.OriginalSongsCount, m.result.Playlist.Description)
	if m.result.Spotify != nil {
		summary += "\n" + Styles.OK("Spotify: "+m.result.Spotify.URL)
	} else if m.result.SpotifyError != "" {
		summary += "\n" + Styles.Warn("Spotify: "+m.result.SpotifyError)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", summary, m.trackList.View(), helpView)
}
