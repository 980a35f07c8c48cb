// Package tui is the terminal screen for raigen.
//
// It follows the bubbletea loop: key presses become commands that call the
// session orchestrator off the UI goroutine, and their results come back as
// messages handled in Update. The view always renders from the orchestrator's
// slots, so a failed operation keeps showing the last good plan and agenda.
package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/raigen/pkg/model"
	"github.com/harrisonrobin/raigen/pkg/planfile"
	"github.com/harrisonrobin/raigen/pkg/push"
	"github.com/harrisonrobin/raigen/pkg/session"
)

// PlanSource supplies the inputs of a generation request at the moment the user asks for one.
type PlanSource func() (planfile.File, error)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4a90e2"))
	sectionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d0021b"))
)

type pushDoneMsg struct {
	outcome push.Outcome
	ran     bool
}

type connectDoneMsg struct{ err error }

type planDoneMsg struct {
	generated bool
	err       error
}

type agendaDoneMsg struct{ err error }

// App is the bubbletea model.
type App struct {
	ctx      context.Context
	orch     *session.Orchestrator
	identity model.Identity
	days     int
	source   PlanSource

	spinner     spinner.Model
	submitting  bool
	status      string
	statusIsErr bool
	width       int
}

func NewApp(ctx context.Context, orch *session.Orchestrator, identity model.Identity, days int, source PlanSource) *App {
	if source == nil {
		source = func() (planfile.File, error) { return planfile.Default(), nil }
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return &App{
		ctx:      ctx,
		orch:     orch,
		identity: identity,
		days:     days,
		source:   source,
		spinner:  sp,
	}
}

// Init registers for push once for the current identity.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.observeIdentity())
}

func (a *App) observeIdentity() tea.Cmd {
	orch, ctx, id := a.orch, a.ctx, a.identity
	return func() tea.Msg {
		outcome, ran := orch.ObserveIdentity(ctx, id)
		return pushDoneMsg{outcome: outcome, ran: ran}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case pushDoneMsg:
		if msg.ran && msg.outcome == push.NotGranted {
			a.setStatus("Notifications are off", false)
		}
		return a, nil

	case connectDoneMsg:
		if msg.err != nil {
			a.setStatus(session.UserMessage(msg.err), true)
		} else {
			a.setStatus("Google connected!", false)
		}
		return a, nil

	case planDoneMsg:
		if msg.generated {
			a.submitting = false
		}
		if msg.err != nil {
			a.setStatus(session.UserMessage(msg.err), true)
		} else if msg.generated {
			a.setStatus("Plan generated", false)
		} else {
			a.setStatus("Plan updated", false)
		}
		return a, nil

	case agendaDoneMsg:
		if msg.err != nil {
			a.setStatus(session.UserMessage(msg.err), true)
		} else {
			a.setStatus("Calendar synced", false)
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "c":
		return a, tea.Exec(&connectCommand{ctx: a.ctx, orch: a.orch, id: a.identity}, func(err error) tea.Msg {
			return connectDoneMsg{err: err}
		})
	case "g":
		if a.generating() {
			return a, nil
		}
		a.submitting = true
		return a, a.generate()
	case "f":
		return a, a.fetch()
	case "s":
		return a, a.sync()
	}
	return a, nil
}

func (a *App) generating() bool {
	return a.submitting || a.orch.Generating()
}

func (a *App) generate() tea.Cmd {
	orch, ctx, id, source := a.orch, a.ctx, a.identity, a.source
	return func() tea.Msg {
		f, err := source()
		if err != nil {
			return planDoneMsg{generated: true, err: err}
		}
		_, err = orch.GeneratePlan(ctx, id, f.Tasks, f.FreeWindows, f.Preferences)
		return planDoneMsg{generated: true, err: err}
	}
}

func (a *App) fetch() tea.Cmd {
	orch, ctx, id := a.orch, a.ctx, a.identity
	return func() tea.Msg {
		_, err := orch.FetchPlan(ctx, id)
		return planDoneMsg{err: err}
	}
}

func (a *App) sync() tea.Cmd {
	orch, ctx, id, days := a.orch, a.ctx, a.identity, a.days
	return func() tea.Msg {
		_, err := orch.SyncCalendar(ctx, id, days)
		return agendaDoneMsg{err: err}
	}
}

func (a *App) setStatus(s string, isErr bool) {
	a.status = s
	a.statusIsErr = isErr
}

func (a *App) View() string {
	generateLabel := "[g] Generate Today's Plan"
	if a.generating() {
		generateLabel = a.spinner.View() + " Generating..."
	}

	plan, ok := a.orch.Plan()
	events, _ := a.orch.Agenda()

	box := boxStyle
	if a.width > 4 {
		box = box.Width(a.width - 4)
	}

	view := titleStyle.Render("Raigen") + "\n" +
		helpStyle.Render("[c] Connect Google Calendar") + "\n" +
		helpStyle.Render(generateLabel) + "\n" +
		helpStyle.Render("[f] Fetch Today's Plan") + "\n" +
		helpStyle.Render(fmt.Sprintf("[s] Sync Calendar (%d days)", a.days)) + "\n" +
		helpStyle.Render("[q] Quit") + "\n" +
		sectionStyle.Render("Today") + "\n" +
		box.Render(RenderPlan(plan, ok)) + "\n" +
		sectionStyle.Render(fmt.Sprintf("Agenda (%d days)", a.days)) + "\n" +
		box.Render(RenderAgenda(events)) + "\n"

	if a.status != "" {
		style := helpStyle
		if a.statusIsErr {
			style = errorStyle
		}
		view += "\n" + style.Render(a.status) + "\n"
	}
	return view
}

// connectCommand runs the consent flow with the terminal released, since the
// launcher prints the URL and may read the pasted redirect from stdin.
type connectCommand struct {
	ctx  context.Context
	orch *session.Orchestrator
	id   model.Identity
}

func (c *connectCommand) Run() error {
	return c.orch.ConnectCalendar(c.ctx, c.id)
}

func (c *connectCommand) SetStdin(io.Reader)  {}
func (c *connectCommand) SetStdout(io.Writer) {}
func (c *connectCommand) SetStderr(io.Writer) {}
