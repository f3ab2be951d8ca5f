package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"dbt-setup/internal/app"
)

// Completion messages carry the context their request ran under. Update
// checks that context before mutating anything, so a request that was
// cancelled (teardown, or superseded on the same resource) can never
// write stale state no matter when its message lands.
type projectsMsg struct {
	ctx      context.Context
	projects []app.Project
	err      error
}

type contextMsg struct {
	ctx context.Context
	pc  *app.PlatformContext
	err error
}

type selectDoneMsg struct {
	ctx context.Context
	pc  *app.PlatformContext
	err error
}

type shutdownDoneMsg struct {
	ctx context.Context
	err error
}

type wizardKeyMap struct {
	Continue key.Binding
	Quit     key.Binding
}

func newWizardKeyMap() wizardKeyMap {
	return wizardKeyMap{
		Continue: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "continue"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Wizard sequences the setup workflow: read the handshake outcome once,
// fetch candidates and any saved context concurrently, persist the
// user's selection, and finally ask the backend to shut down. It is the
// single writer of session state; all effects run as commands and
// report back through the messages above.
type Wizard struct {
	client *app.SetupClient
	logger *app.Logger
	theme  Theme
	keys   wizardKeyMap

	handshake app.HandshakeOutcome

	width  int
	height int

	projects        []app.Project
	projectsErr     string
	projectsLoading bool
	selectedID      int
	platformCtx     *app.PlatformContext
	responseText    string
	continuing      bool
	shutdownDone    bool

	picker ProjectSelect
	spin   spinner.Model

	// One in-flight request per resource; starting a new one cancels
	// the previous. Teardown fans out to all of them.
	cancelProjects context.CancelFunc
	cancelContext  context.CancelFunc
	cancelSelect   context.CancelFunc
	cancelShutdown context.CancelFunc
}

func NewWizard(client *app.SetupClient, logger *app.Logger, fragment string, theme Theme) *Wizard {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return &Wizard{
		client:    client,
		logger:    logger,
		theme:     theme,
		keys:      newWizardKeyMap(),
		handshake: app.ParseHandshakeFragment(fragment),
		width:     80,
		height:    24,
		picker:    NewProjectSelect(theme),
		spin:      sp,
	}
}

func (w *Wizard) Init() tea.Cmd {
	if !w.handshake.Succeeded() {
		return nil
	}
	w.projectsLoading = true
	return tea.Batch(w.fetchProjects(), w.fetchSavedContext(), w.spin.Tick)
}

func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, w.keys.Quit):
			w.teardown()
			return w, tea.Quit
		case key.Matches(msg, w.keys.Continue):
			if !w.picker.IsOpen() {
				return w, w.startShutdown()
			}
		}
		if w.handshake.Succeeded() && !w.shutdownDone {
			var cmd tea.Cmd
			w.picker, cmd = w.picker.Update(msg)
			return w, cmd
		}
		return w, nil

	case tea.MouseMsg:
		if w.handshake.Succeeded() && !w.shutdownDone {
			var cmd tea.Cmd
			w.picker, cmd = w.picker.Update(msg)
			return w, cmd
		}
		return w, nil

	case spinner.TickMsg:
		if !w.projectsLoading {
			return w, nil
		}
		var cmd tea.Cmd
		w.spin, cmd = w.spin.Update(msg)
		return w, cmd

	case projectsMsg:
		if staleMsg(msg.ctx, msg.err) {
			return w, nil
		}
		w.projectsLoading = false
		w.cancelProjects = nil
		if msg.err != nil {
			w.projectsErr = msg.err.Error()
			appendWizardErrorLog("projects", w.logger.SessionID(), msg.err.Error())
			return w, nil
		}
		w.projects = msg.projects
		w.picker.SetOptions(msg.projects)
		// A selection that vanished from the fresh list is dropped.
		if w.selectedID != 0 && findProject(msg.projects, w.selectedID) == nil {
			w.selectedID = 0
			w.picker.SetSelected(0)
		}
		return w, nil

	case contextMsg:
		if staleMsg(msg.ctx, msg.err) {
			return w, nil
		}
		w.cancelContext = nil
		if msg.err != nil {
			// No saved context is an expected outcome, never an error.
			return w, nil
		}
		if msg.pc != nil {
			w.platformCtx = msg.pc
		}
		return w, nil

	case ProjectChosenMsg:
		if w.shutdownDone || w.continuing {
			return w, nil
		}
		// Clear the old context before the request resolves so a stale
		// context is never shown against the newly chosen project. The
		// saved-context fetch, if still in flight, would repopulate it,
		// so it is aborted too.
		if w.cancelContext != nil {
			w.cancelContext()
			w.cancelContext = nil
		}
		w.platformCtx = nil
		w.responseText = ""
		w.selectedID = msg.ID
		w.picker.SetSelected(msg.ID)
		p := findProject(w.projects, msg.ID)
		if p == nil {
			// Stale id; nothing to post.
			return w, nil
		}
		return w, w.postSelection(*p)

	case selectDoneMsg:
		if staleMsg(msg.ctx, msg.err) {
			return w, nil
		}
		w.cancelSelect = nil
		if msg.err != nil {
			w.responseText = msg.err.Error()
			appendWizardErrorLog("selected_project", w.logger.SessionID(), msg.err.Error())
			return w, nil
		}
		w.platformCtx = msg.pc
		return w, nil

	case shutdownDoneMsg:
		if staleMsg(msg.ctx, msg.err) {
			return w, nil
		}
		w.cancelShutdown = nil
		if msg.err != nil {
			// Continue stays retryable.
			w.continuing = false
			w.responseText = msg.err.Error()
			appendWizardErrorLog("shutdown", w.logger.SessionID(), msg.err.Error())
			return w, nil
		}
		w.shutdownDone = true
		w.teardown()
		return w, tea.Quit
	}

	return w, nil
}

// View renders through zone.Scan so the selection widget's marked
// regions stay hit-testable.
func (w *Wizard) View() string {
	return zone.Scan(w.view())
}

func (w *Wizard) view() string {
	title := w.theme.Title.Render("dbt setup")

	switch {
	case w.handshake.Failed():
		code := "unknown_error"
		if w.handshake.AuthError != nil {
			code = *w.handshake.AuthError
		}
		desc := ""
		if w.handshake.ErrorDescription != nil {
			desc = *w.handshake.ErrorDescription
		}
		panel := w.theme.ErrorPanel.Render(
			w.theme.ErrorText.Render("Sign-in failed: "+code) + "\n" + desc,
		)
		return lipgloss.JoinVertical(lipgloss.Left, title, "", panel,
			w.theme.Footer.Render("Restart sign-in from your terminal, or press q to quit."))

	case !w.handshake.Succeeded():
		return lipgloss.JoinVertical(lipgloss.Left, title, "",
			w.theme.Subtitle.Render("Waiting for sign-in to complete."),
			w.theme.Footer.Render("q quit"))
	}

	if w.shutdownDone {
		return lipgloss.JoinVertical(lipgloss.Left, title, "",
			w.theme.SuccessText.Render("Setup complete. You can close this window."))
	}

	var rows []string
	rows = append(rows, title, "")

	if w.projectsLoading {
		rows = append(rows, w.spin.View()+" "+w.theme.Subtitle.Render("Loading projects…"))
	} else {
		rows = append(rows, w.theme.Subtitle.Render("Choose the dbt project to use:"), w.picker.View())
		if w.projectsErr != "" {
			rows = append(rows, w.theme.ErrorText.Render(w.projectsErr))
		}
	}

	if summary := w.contextSummary(); summary != "" {
		rows = append(rows, "", summary)
	}
	if w.responseText != "" {
		rows = append(rows, "", w.theme.ErrorText.Render(w.responseText))
	}
	if w.continuing {
		rows = append(rows, "", w.theme.Subtitle.Render("Finishing up…"))
	}
	rows = append(rows, "", w.theme.Footer.Render("↑/↓ navigate  enter select  c continue  q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// ShutdownComplete reports whether the session reached its terminal state.
func (w *Wizard) ShutdownComplete() bool { return w.shutdownDone }

func (w *Wizard) fetchProjects() tea.Cmd {
	if w.cancelProjects != nil {
		w.cancelProjects()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancelProjects = cancel
	client := w.client
	return func() tea.Msg {
		projects, err := client.Projects(ctx)
		return projectsMsg{ctx: ctx, projects: projects, err: err}
	}
}

func (w *Wizard) fetchSavedContext() tea.Cmd {
	if w.cancelContext != nil {
		w.cancelContext()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancelContext = cancel
	client := w.client
	return func() tea.Msg {
		pc, err := client.SavedContext(ctx)
		return contextMsg{ctx: ctx, pc: pc, err: err}
	}
}

func (w *Wizard) postSelection(p app.Project) tea.Cmd {
	// Last writer wins: the previous selection's request is aborted so
	// only this one's outcome can ever be applied.
	if w.cancelSelect != nil {
		w.cancelSelect()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancelSelect = cancel
	client := w.client
	return func() tea.Msg {
		pc, err := client.SelectProject(ctx, p.AccountID, p.ID)
		return selectDoneMsg{ctx: ctx, pc: pc, err: err}
	}
}

func (w *Wizard) startShutdown() tea.Cmd {
	if w.continuing || w.shutdownDone {
		return nil
	}
	w.continuing = true
	w.responseText = ""
	ctx, cancel := context.WithCancel(context.Background())
	w.cancelShutdown = cancel
	client := w.client
	return func() tea.Msg {
		return shutdownDoneMsg{ctx: ctx, err: client.Shutdown(ctx)}
	}
}

// teardown aborts every outstanding request. Their late resolutions are
// then discarded by the staleMsg guard.
func (w *Wizard) teardown() {
	for _, cancel := range []context.CancelFunc{w.cancelProjects, w.cancelContext, w.cancelSelect, w.cancelShutdown} {
		if cancel != nil {
			cancel()
		}
	}
	w.cancelProjects = nil
	w.cancelContext = nil
	w.cancelSelect = nil
	w.cancelShutdown = nil
}

func (w *Wizard) contextSummary() string {
	pc := w.platformCtx
	if pc == nil {
		return ""
	}
	var parts []string
	if pc.DevEnvironment != nil {
		parts = append(parts, fmt.Sprintf("dev: %s", pc.DevEnvironment.Name))
	}
	if pc.ProdEnvironment != nil {
		parts = append(parts, fmt.Sprintf("prod: %s", pc.ProdEnvironment.Name))
	}
	if len(parts) == 0 {
		parts = append(parts, "no environments configured")
	}
	return w.theme.SuccessText.Render("Saved. ") + w.theme.Muted.Render(strings.Join(parts, "  "))
}

func staleMsg(ctx context.Context, err error) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return errors.Is(err, app.ErrAborted)
}

func findProject(projects []app.Project, id int) *app.Project {
	for i := range projects {
		if projects[i].ID == id {
			return &projects[i]
		}
	}
	return nil
}
