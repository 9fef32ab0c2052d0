// Package register provides the interactive registration form.
package register

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/regform/internal/keys"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/ui/styles"
)

// Field identifies one input of the form.
type Field int

const (
	FieldUsername Field = iota
	FieldPassword
	FieldPasswordAgain
	fieldCount
)

var fieldLabels = [fieldCount]string{
	FieldUsername:      "User name",
	FieldPassword:      "Password",
	FieldPasswordAgain: "Password again",
}

// ReadyHint is shown next to the submit button once the form is valid.
const ReadyHint = "Ready to submit"

// Options controls presentation details.
type Options struct {
	ShowLevel    bool
	MaskPassword bool

	// Logs, when set, feeds a footer with the most recent log lines.
	Logs *log.LogListener
}

// footerLines is how many log lines the debug footer keeps.
const footerLines = 3

// DefaultOptions shows the strength label and masks passwords.
func DefaultOptions() Options {
	return Options{ShowLevel: true, MaskPassword: true}
}

// Model is the Bubble Tea model for the registration form. It writes the
// session inputs on every edit and renders the outputs the session
// publishes.
type Model struct {
	session  *registration.Session
	listener *pubsub.ContinuousListener[registration.Change]

	inputs [fieldCount]textinput.Model
	focus  Field
	state  registration.FormState
	opts   Options
	help   help.Model

	logLines []string

	width     int
	height    int
	submitted bool
	closed    bool
}

// New creates the form for s. The change subscription lives until ctx is
// cancelled or the session is closed.
func New(ctx context.Context, s *registration.Session, opts Options) Model {
	initial := s.Fields()

	var inputs [fieldCount]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 128
		ti.Placeholder = strings.ToLower(fieldLabels[i])
		ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextPlaceholderColor)
		inputs[i] = ti
	}
	inputs[FieldUsername].SetValue(initial.Username)
	inputs[FieldPassword].SetValue(initial.Password)
	inputs[FieldPasswordAgain].SetValue(initial.PasswordAgain)

	m := Model{
		session:  s,
		listener: pubsub.NewContinuousListener(ctx, s.Broker()),
		inputs:   inputs,
		state:    s.State(),
		opts:     opts,
		help:     help.New(),
	}
	m.applyMask()
	m.inputs[FieldUsername].Focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.listener.Listen()}
	if m.opts.Logs != nil {
		cmds = append(cmds, m.opts.Logs.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case pubsub.Event[registration.Change]:
		if msg.Type == pubsub.ClosedEvent {
			m.closed = true
			return m, nil
		}
		m.state = msg.Payload.State
		return m, m.listener.Listen()

	case log.LogEvent:
		if m.opts.Logs == nil || msg.Type == pubsub.ClosedEvent {
			return m, nil
		}
		m.logLines = append(m.logLines, strings.TrimRight(msg.Payload, "\n"))
		if n := len(m.logLines); n > footerLines {
			m.logLines = append([]string(nil), m.logLines[n-footerLines:]...)
		}
		return m, m.opts.Logs.Listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Form.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Form.NextField):
		return m, m.setFocus((m.focus + 1) % fieldCount)

	case key.Matches(msg, keys.Form.PrevField):
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)

	case key.Matches(msg, keys.Form.ToggleMask):
		m.opts.MaskPassword = !m.opts.MaskPassword
		m.applyMask()
		return m, nil

	case key.Matches(msg, keys.Form.Submit):
		if m.focus < FieldPasswordAgain {
			return m, m.setFocus(m.focus + 1)
		}
		if !m.state.IsValid {
			return m, nil
		}
		m.submitted = true
		log.Info(log.CatUI, "form submitted", "id", m.session.ID())
		return m, tea.Quit
	}

	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		m.write(m.focus, after)
	}
	return m, cmd
}

func (m *Model) write(f Field, v string) {
	switch f {
	case FieldUsername:
		m.session.SetUsername(v)
	case FieldPassword:
		m.session.SetPassword(v)
	case FieldPasswordAgain:
		m.session.SetPasswordAgain(v)
	}
}

func (m *Model) setFocus(f Field) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = f
	return m.inputs[m.focus].Focus()
}

func (m *Model) applyMask() {
	mode := textinput.EchoNormal
	if m.opts.MaskPassword {
		mode = textinput.EchoPassword
	}
	m.inputs[FieldPassword].EchoMode = mode
	m.inputs[FieldPasswordAgain].EchoMode = mode
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Create account"))
	b.WriteString("\n")

	for i := range m.inputs {
		f := Field(i)
		label := styles.LabelStyle
		if f == m.focus {
			label = styles.FocusedLabelStyle
		}
		b.WriteString(label.Render(fieldLabels[f]))
		b.WriteString("\n")
		b.WriteString(m.inputs[f].View())
		b.WriteString("\n")

		if msg := m.messageFor(f); msg != "" {
			b.WriteString(styles.ErrorMessageStyle.Render(msg))
			b.WriteString("\n")
		}
		if f == FieldPassword && m.opts.ShowLevel && m.state.PasswordLevelMessage != "" {
			b.WriteString(styles.HelpStyle.Render("Strength: "))
			b.WriteString(styles.LevelStyle(m.state.PasswordLevelColor).Render(m.state.PasswordLevelMessage))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	button := styles.SubmitDisabledStyle
	if m.state.IsValid {
		button = styles.SubmitEnabledStyle
	}
	b.WriteString(button.Render("Sign up"))
	if m.state.IsValid {
		b.WriteString("  ")
		b.WriteString(styles.HelpStyle.Render(ReadyHint))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(keys.Form))

	if len(m.logLines) > 0 {
		b.WriteString("\n\n")
		for i, line := range m.logLines {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(styles.HelpStyle.Render(line))
		}
	}

	return styles.FormStyle.Render(b.String())
}

// messageFor returns the validation message shown under field f.
func (m Model) messageFor(f Field) string {
	switch f {
	case FieldUsername:
		return m.state.UsernameMessage
	case FieldPasswordAgain:
		return m.state.PasswordMessage
	}
	return ""
}

// Submitted reports whether the form was submitted in a valid state.
func (m Model) Submitted() bool {
	return m.submitted
}

// State returns the last form state received from the session.
func (m Model) State() registration.FormState {
	return m.state
}

// Focus returns the focused field.
func (m Model) Focus() Field {
	return m.focus
}

// SessionClosed reports whether the session's close event was received.
func (m Model) SessionClosed() bool {
	return m.closed
}
