package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"lexadoc/internal/domain"
	"lexadoc/internal/errx"
	"lexadoc/internal/inventory"
	"lexadoc/internal/service"
	"lexadoc/internal/session"
)

// AppPort is the TUI-facing subset of the application service.
type AppPort interface {
	Snapshot() service.Snapshot
	Start(ctx context.Context) (session.Status, inventory.LoadResult)
	Login(ctx context.Context, username, password string) (inventory.LoadResult, error)
	Register(ctx context.Context, username, email, password string) (session.RegisterResult, error)
	Logout(ctx context.Context) error
	Reload(ctx context.Context) (inventory.LoadResult, error)
	Stage(file *domain.File) error
	Upload(ctx context.Context, file *domain.File) (*domain.Document, error)
	Select(doc *domain.Document) error
	Remove(id int64) error
	Delete(ctx context.Context, id int64) error
	SetQueryText(text string)
	Ask(ctx context.Context, text string) error
	ClearQuery()
}

type screen int

const (
	screenChecking screen = iota
	screenLogin
	screenRegister
	screenMain
)

type focus int

const (
	focusDocuments focus = iota
	focusQuestion
	focusUpload
)

type (
	sessionCheckedMsg struct {
		status session.Status
		load   inventory.LoadResult
	}
	loginMsg struct {
		load inventory.LoadResult
		err  error
	}
	registerMsg struct {
		result session.RegisterResult
		err    error
	}
	logoutMsg struct{ err error }
	loadMsg   struct {
		load inventory.LoadResult
		err  error
	}
	uploadMsg struct {
		doc *domain.Document
		err error
	}
	deleteMsg struct{ err error }
	askMsg    struct{ err error }
)

// Model is the Bubble Tea model for the document QA client.
type Model struct {
	ctx context.Context
	app AppPort

	screen  screen
	focus   focus
	spinner spinner.Model

	username textinput.Model
	email    textinput.Model
	password textinput.Model
	// login uses username and password; register adds email.
	formFocus int

	question textinput.Model
	path     textinput.Model
	viewport viewport.Model

	cursor    int
	status    string
	ready     bool
	uploading bool
}

// New creates the model. Commands run with ctx.
func New(ctx context.Context, app AppPort) Model {
	newInput := func(prompt, placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Prompt = prompt
		ti.Placeholder = placeholder
		ti.CharLimit = 0
		return ti
	}
	pw := newInput("password > ", "")
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '*'

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		app:      app,
		screen:   screenChecking,
		spinner:  sp,
		username: newInput("username > ", ""),
		email:    newInput("email    > ", ""),
		password: pw,
		question: newInput("> ", "Ask a question about the selected document"),
		path:     newInput("file > ", "Path to a .pdf, .docx or .txt file"),
		viewport: viewport.New(0, 0),
	}
}

// Init starts the spinner and the one-time session probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.checkSession())
}

// Update handles key, window and command-result messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sessionCheckedMsg:
		if msg.status == session.Authenticated {
			m = m.enterMain()
			m.status = loadStatus(msg.load)
			return m, nil
		}
		return m.enterLogin(""), textinput.Blink
	case loginMsg:
		if msg.err != nil {
			m.status = errx.Message(msg.err, errx.LoginFailedMessage)
			return m, nil
		}
		m.password.Reset()
		m = m.enterMain()
		m.status = loadStatus(msg.load)
		return m, nil
	case registerMsg:
		if msg.err != nil || !msg.result.ShowLogin {
			m.status = msg.result.Message
			return m, nil
		}
		m.email.Reset()
		m.password.Reset()
		return m.enterLogin(msg.result.Message), textinput.Blink
	case logoutMsg:
		m = m.enterLogin("")
		if msg.err != nil {
			m.status = errx.Message(msg.err, errx.LogoutFailedMessage)
		}
		return m, textinput.Blink
	case loadMsg:
		m.status = loadStatus(msg.load)
		if msg.err != nil {
			m.status = errx.Message(msg.err, errx.LoadFailedMessage)
		}
		m.clampCursor()
		return m, nil
	case uploadMsg:
		m.uploading = false
		m.status = ""
		if msg.err != nil {
			if !errors.Is(msg.err, errx.ErrStale) {
				m.status = errx.Message(msg.err, errx.UploadFailedMessage)
			}
			return m, nil
		}
		m.path.Reset()
		m.status = "Uploaded " + msg.doc.FileName
		m.cursor = len(m.app.Snapshot().Inventory.Documents) - 1
		return m, nil
	case deleteMsg:
		m.status = ""
		if msg.err != nil && !errors.Is(msg.err, errx.ErrStale) {
			m.status = errx.Message(msg.err, errx.DeleteFailedMessage)
		}
		m.clampCursor()
		return m, nil
	case askMsg:
		// The query error is part of the query state and rendered from the snapshot.
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin, screenRegister:
			return m.updateForm(msg)
		case screenMain:
			return m.updateMain(msg)
		}
		return m, nil
	}
	return m.updateInputs(msg)
}

// updateInputs forwards cursor blinks and other widget messages to the visible inputs.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	switch m.screen {
	case screenLogin, screenRegister:
		for _, f := range m.formFields() {
			*f, cmd = f.Update(msg)
			cmds = append(cmds, cmd)
		}
	case screenMain:
		m.question, cmd = m.question.Update(msg)
		cmds = append(cmds, cmd)
		m.path, cmd = m.path.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return m.focusForm(m.formFocus + 1), nil
	case "shift+tab", "up":
		return m.focusForm(m.formFocus - 1), nil
	case "ctrl+r":
		if m.screen == screenLogin {
			m.screen = screenRegister
			m.status = ""
			return m.focusForm(0), textinput.Blink
		}
	case "esc":
		if m.screen == screenRegister {
			return m.enterLogin(""), textinput.Blink
		}
	case "enter":
		m.status = ""
		if m.screen == screenLogin {
			return m, m.login(m.username.Value(), m.password.Value())
		}
		return m, m.register(m.username.Value(), m.email.Value(), m.password.Value())
	}
	var cmd tea.Cmd
	fields := m.formFields()
	*fields[m.formFocus], cmd = fields[m.formFocus].Update(msg)
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		return m.setFocus((m.focus + 1) % 3), textinput.Blink
	case "shift+tab":
		return m.setFocus((m.focus + 2) % 3), textinput.Blink
	case "ctrl+o":
		return m, m.logout()
	case "ctrl+l":
		m.app.ClearQuery()
		m.question.Reset()
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch m.focus {
	case focusDocuments:
		return m.updateDocuments(msg)
	case focusQuestion:
		if msg.Type == tea.KeyEnter {
			text := m.question.Value()
			m.app.SetQueryText(text)
			return m, m.ask(text)
		}
		var cmd tea.Cmd
		m.question, cmd = m.question.Update(msg)
		m.app.SetQueryText(m.question.Value())
		return m, cmd
	case focusUpload:
		if msg.Type == tea.KeyEnter {
			if m.uploading || m.app.Snapshot().Inventory.Uploading {
				return m, nil
			}
			file, err := domain.OpenFile(strings.TrimSpace(m.path.Value()))
			if err != nil {
				m.status = errx.NoFileMessage
				return m, nil
			}
			if err := m.app.Stage(file); err != nil {
				m.status = errx.Message(err, errx.UploadFailedMessage)
				return m, nil
			}
			m.uploading = true
			m.status = "Uploading " + file.Name + "..."
			return m, m.upload(file)
		}
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateDocuments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	docs := m.app.Snapshot().Inventory.Documents
	switch msg.String() {
	case "up", "k":
		if len(docs) > 0 {
			m.cursor = (m.cursor - 1 + len(docs)) % len(docs)
		}
	case "down", "j":
		if len(docs) > 0 {
			m.cursor = (m.cursor + 1) % len(docs)
		}
	case "enter", " ":
		if m.cursor < len(docs) {
			doc := docs[m.cursor]
			if err := m.app.Select(&doc); err != nil {
				m.status = errx.Message(err, errx.NoDocumentMessage)
			}
		}
	case "x":
		if m.cursor < len(docs) {
			if err := m.app.Remove(docs[m.cursor].ID); err != nil {
				m.status = errx.Message(err, errx.DeleteFailedMessage)
			}
			m.clampCursor()
		}
	case "D":
		if m.cursor < len(docs) {
			return m, m.deleteDocument(docs[m.cursor].ID)
		}
	case "r":
		return m, m.reload()
	case "u":
		return m.setFocus(focusUpload), textinput.Blink
	case "?", "/":
		return m.setFocus(focusQuestion), textinput.Blink
	}
	return m, nil
}

func (m Model) checkSession() tea.Cmd {
	return func() tea.Msg {
		status, load := m.app.Start(m.ctx)
		return sessionCheckedMsg{status: status, load: load}
	}
}

func (m Model) login(username, password string) tea.Cmd {
	return func() tea.Msg {
		load, err := m.app.Login(m.ctx, username, password)
		return loginMsg{load: load, err: err}
	}
}

func (m Model) register(username, email, password string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.app.Register(m.ctx, username, email, password)
		return registerMsg{result: res, err: err}
	}
}

func (m Model) logout() tea.Cmd {
	return func() tea.Msg {
		return logoutMsg{err: m.app.Logout(m.ctx)}
	}
}

func (m Model) reload() tea.Cmd {
	return func() tea.Msg {
		load, err := m.app.Reload(m.ctx)
		return loadMsg{load: load, err: err}
	}
}

func (m Model) upload(file *domain.File) tea.Cmd {
	return func() tea.Msg {
		doc, err := m.app.Upload(m.ctx, file)
		return uploadMsg{doc: doc, err: err}
	}
}

func (m Model) deleteDocument(id int64) tea.Cmd {
	return func() tea.Msg {
		return deleteMsg{err: m.app.Delete(m.ctx, id)}
	}
}

func (m Model) ask(text string) tea.Cmd {
	return func() tea.Msg {
		return askMsg{err: m.app.Ask(m.ctx, text)}
	}
}

func (m Model) enterLogin(status string) Model {
	m.screen = screenLogin
	m.status = status
	m.cursor = 0
	m.question.Reset()
	m.path.Reset()
	m.viewport.SetContent("")
	return m.focusForm(0)
}

func (m Model) enterMain() Model {
	m.screen = screenMain
	m.cursor = 0
	m.username.Blur()
	m.email.Blur()
	m.password.Blur()
	m.viewport.SetContent(m.renderAnswer())
	return m.setFocus(focusDocuments)
}

func (m *Model) formFields() []*textinput.Model {
	if m.screen == screenRegister {
		return []*textinput.Model{&m.username, &m.email, &m.password}
	}
	return []*textinput.Model{&m.username, &m.password}
}

func (m Model) focusForm(i int) Model {
	fields := m.formFields()
	n := len(fields)
	m.formFocus = ((i % n) + n) % n
	for j, f := range fields {
		if j == m.formFocus {
			f.Focus()
		} else {
			f.Blur()
		}
	}
	if m.screen == screenLogin {
		m.email.Blur()
	}
	return m
}

func (m Model) setFocus(f focus) Model {
	m.focus = f
	m.question.Blur()
	m.path.Blur()
	switch f {
	case focusQuestion:
		m.question.Focus()
	case focusUpload:
		m.path.Focus()
	}
	return m
}

func (m *Model) clampCursor() {
	n := len(m.app.Snapshot().Inventory.Documents)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func loadStatus(res inventory.LoadResult) string {
	if res.State == inventory.LoadFailed {
		return errx.LoadFailedMessage
	}
	return ""
}
