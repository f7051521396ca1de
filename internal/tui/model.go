package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Memphis465/nova/internal/chat"
	"github.com/Memphis465/nova/internal/models"
	"github.com/Memphis465/nova/internal/render"
)

// EffectRunner executes chat effects; *chat.Executor satisfies it
type EffectRunner interface {
	Run(ctx context.Context, eff chat.Effect) chat.Event
}

// ThemeWatcher reports changes of a stored key; *localstore.Store satisfies it
type ThemeWatcher interface {
	Watch(ctx context.Context, key string, fn func(value string, ok bool)) error
}

// Message types for the TUI
type (
	// eventMsg carries an event produced by an effect back into the reducer
	eventMsg struct {
		event chat.Event
	}
	// themeStoredMsg reports a nova_theme change made outside this screen
	themeStoredMsg struct {
		theme string
	}
	animationTickMsg time.Time
)

// Model is the chat screen. All chat behavior lives in chat.Reduce; the
// model translates keys into events and effects into commands.
type Model struct {
	ctx    context.Context
	state  chat.State
	runner EffectRunner
	server string
	render render.Options

	viewport viewport.Model
	textarea textarea.Model
	pathIn   textinput.Model

	attaching      bool
	attachment     *chat.File
	err            error
	ready          bool
	animationFrame int

	width  int
	height int
}

// NewModel creates the chat screen
func NewModel(ctx context.Context, state chat.State, runner EffectRunner, server string, opts render.Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Message Nova..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	pi := textinput.New()
	pi.Placeholder = "path/to/file"
	pi.Prompt = "📎 "

	ApplyTheme(state.Theme)
	m := Model{
		ctx:      ctx,
		state:    state,
		runner:   runner,
		server:   server,
		render:   opts.WithTheme(state.Theme),
		textarea: ta,
		pathIn:   pi,
	}
	m.styleInputs()
	return m
}

func (m *Model) styleInputs() {
	m.textarea.FocusedStyle.CursorLine = lipgloss.NewStyle()
	m.textarea.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	m.textarea.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	m.textarea.BlurredStyle = m.textarea.FocusedStyle
	m.pathIn.TextStyle = lipgloss.NewStyle().Foreground(colorText)
	m.pathIn.PlaceholderStyle = lipgloss.NewStyle().Foreground(colorTextDim)
}

// State returns the chat state
func (m Model) State() chat.State {
	return m.state
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func animationTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if m.attaching {
			return m.updateAttach(msg)
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			input := strings.TrimSpace(m.textarea.Value())
			if input == "/exit" || input == "/quit" {
				return m, tea.Quit
			}
			file := m.attachment
			m.textarea.Reset()
			m.attachment = nil
			m.err = nil
			return m.dispatch(chat.SendRequested{Text: input, File: file})

		case "ctrl+t":
			return m.dispatch(chat.TTSToggled{})

		case "ctrl+r":
			// terminals have no key-up event, so the key toggles recording
			if m.state.Recording {
				return m.dispatch(chat.RecordReleased{})
			}
			return m.dispatch(chat.RecordPressed{})

		case "ctrl+l":
			return m.dispatch(chat.ThemeToggled{})

		case "ctrl+o":
			m.attaching = true
			m.pathIn.Reset()
			m.textarea.Blur()
			return m, m.pathIn.Focus()
		}

	case eventMsg:
		return m.dispatch(msg.event)

	case themeStoredMsg:
		return m.dispatch(chat.ThemeChanged{Theme: msg.theme})

	case animationTickMsg:
		if m.state.Pending > 0 {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// only key messages reach the textarea to prevent escape sequence leaks
	if _, ok := msg.(tea.KeyMsg); ok {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) updateAttach(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.attaching = false
		m.pathIn.Blur()
		return m, m.textarea.Focus()

	case "enter":
		path := strings.TrimSpace(m.pathIn.Value())
		m.attaching = false
		m.pathIn.Blur()
		if path == "" {
			m.attachment = nil
		} else if info, err := os.Stat(path); err != nil {
			m.err = err
		} else if info.IsDir() {
			m.err = fmt.Errorf("%s is a directory", path)
		} else {
			m.attachment = chat.FileFromPath(path)
			m.err = nil
		}
		return m, m.textarea.Focus()
	}

	var cmd tea.Cmd
	m.pathIn, cmd = m.pathIn.Update(msg)
	return m, cmd
}

// dispatch reduces ev and turns the resulting effects into commands
func (m Model) dispatch(ev chat.Event) (Model, tea.Cmd) {
	wasPending := m.state.Pending > 0
	prevTheme := m.state.Theme

	next, effects := chat.Reduce(m.state, ev)
	m.state = next

	if next.Theme != prevTheme {
		ApplyTheme(next.Theme)
		m.styleInputs()
		m.render = m.render.WithTheme(next.Theme)
	}
	m.updateViewport()

	cmds := m.effectCmds(effects)
	if !wasPending && next.Pending > 0 {
		m.animationFrame = 0
		cmds = append(cmds, animationTick())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) effectCmds(effects []chat.Effect) []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		eff := eff
		cmds = append(cmds, func() tea.Msg {
			if ev := m.runner.Run(m.ctx, eff); ev != nil {
				return eventMsg{event: ev}
			}
			return nil
		})
	}
	return cmds
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 4
	inputHeight := 7
	statusHeight := 1
	padding := 2

	vpHeight := height - headerHeight - inputHeight - statusHeight - padding
	if vpHeight < 5 {
		vpHeight = 5
	}
	contentWidth := width - 4

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.pathIn.Width = contentWidth - 8
	m.updateViewport()
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	opts := m.render.WithWidth(bubbleWidth - 4)

	for i, msg := range m.state.Log {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			label := userLabelStyle.Render("● You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(msg.Text)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ Nova")
			var body string
			if m.state.Awaiting(msg.ID) {
				body = placeholderStyle.Render(msg.Text)
			} else {
				body = render.Reply(msg.Text, opts)
			}
			content.WriteString(label + "\n" + assistantBubbleStyle.Width(bubbleWidth).Render(body))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return placeholderStyle.Render("  Initializing...")
	}

	contentWidth := m.width - 4
	var sections []string

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("✦ Nova"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.server),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(header))

	var messages string
	if len(m.state.Log) == 0 {
		messages = m.renderWelcome()
	} else {
		messages = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messages))

	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(m.renderInput()))
	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderInput() string {
	if m.attaching {
		return lipgloss.JoinVertical(lipgloss.Left,
			inputLabelStyle.Render("Attach file"),
			m.pathIn.View(),
		)
	}

	label := inputLabelStyle.Render("You")
	if m.attachment != nil {
		label += attachmentStyle.Render(models.AttachmentPrefix + m.attachment.Name)
	}
	if m.state.Pending > 0 {
		label += "  " + m.renderPending()
	}
	return lipgloss.JoinVertical(lipgloss.Left, label, m.textarea.View())
}

// renderPending renders an animated indicator while replies are outstanding
func (m Model) renderPending() string {
	dots := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	frame := m.animationFrame
	color := gradientColors[frame%len(gradientColors)]
	spin := lipgloss.NewStyle().Foreground(color).Bold(true).Render(dots[frame%len(dots)])

	text := "Nova is thinking"
	if m.state.Pending > 1 {
		text = fmt.Sprintf("%d replies pending", m.state.Pending)
	}
	return spin + " " + placeholderStyle.Render(text)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		welcomeIconStyle.Width(width).Render("✦"),
		welcomeTitleStyle.Width(width).Render("Welcome to Nova"),
		welcomeStyle.Width(width).Render("Type a message, attach a file with Ctrl+O or talk with Ctrl+R"),
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderStatusBar(width int) string {
	onOff := func(on bool) string {
		if on {
			return statusOnStyle.Render(" on")
		}
		return statusDescStyle.Render(" off")
	}

	record := statusDescStyle.Render(" Talk")
	if m.state.Recording {
		record = recordingStyle.Render(" ● REC")
	}

	items := []string{
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Send"),
		statusKeyStyle.Render("^O") + statusDescStyle.Render(" Attach"),
		statusKeyStyle.Render("^R") + record,
		statusKeyStyle.Render("^T") + statusDescStyle.Render(" Speech") + onOff(m.state.TTSEnabled),
		statusKeyStyle.Render("^L") + statusDescStyle.Render(" "+m.state.Theme),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Quit"),
	}

	bar := strings.Join(items, "  │  ")
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// Run starts the chat screen and blocks until it exits. When watcher is
// set, theme changes stored by other processes are followed live.
func Run(ctx context.Context, m Model, watcher ThemeWatcher) (chat.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if watcher != nil {
		go func() {
			_ = watcher.Watch(ctx, models.StorageKeyTheme, func(value string, ok bool) {
				if ok {
					p.Send(themeStoredMsg{theme: value})
				}
			})
		}()
	}

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		return fm.state, err
	}
	return m.state, err
}
