package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/store"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive review dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("GATOMIA_SKIP_DASHBOARD_RUN") == "true" {
			return nil
		}
		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer session.Close()

		p := tea.NewProgram(newDashboardModel(cmd.Context(), session.Store, session.View))
		unsubscribe := session.Store.Subscribe(func() {
			p.Send(storeChangedMsg{})
		})
		defer unsubscribe()

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("dashboard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(dashboardCmd)
}

// Styles
var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var statusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var statusBlocked = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
var statusErr = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// reviewActions is what the dashboard needs from the review view.
type reviewActions interface {
	Archive(ctx context.Context, specID string) (*bridge.Reply, error)
	Unarchive(ctx context.Context, specID string) (*bridge.Reply, error)
	Refresh(ctx context.Context) error
}

type storeChangedMsg struct{}

type actionDoneMsg struct {
	verb   string
	specID string
	err    error
}

type dashboardModel struct {
	ctx     context.Context
	store   *store.Store
	actions reviewActions

	lane   review.Lane
	specs  []*review.Specification
	table  table.Model
	notice string
	err    error
}

func newDashboardModel(ctx context.Context, st *store.Store, actions reviewActions) dashboardModel {
	columns := []table.Column{
		{Title: "ID", Width: 20},
		{Title: "Title", Width: 32},
		{Title: "Owner", Width: 12},
		{Title: "Tasks", Width: 6},
		{Title: "Checks", Width: 6},
		{Title: "Open CRs", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	m := dashboardModel{ctx: ctx, store: st, actions: actions, lane: review.LaneReview, table: t}
	m.reload()
	return m
}

// reload re-reads the store snapshot for the current lane.
func (m *dashboardModel) reload() {
	m.specs = m.store.Snapshot().Lane(m.lane)
	rows := make([]table.Row, 0, len(m.specs))
	for _, spec := range m.specs {
		rows = append(rows, table.Row{
			spec.ID,
			spec.Title,
			spec.Owner,
			strconv.Itoa(spec.PendingTasks),
			strconv.Itoa(spec.PendingChecklistItems),
			strconv.Itoa(spec.OpenChangeRequests()),
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m dashboardModel) selected() *review.Specification {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.specs) {
		return nil
	}
	return m.specs[c]
}

// archiveBlockers lists why the archive key is disabled for the selection.
func (m dashboardModel) archiveBlockers() []string {
	spec := m.selected()
	if spec == nil || m.lane != review.LaneReview {
		return nil
	}
	return review.ComputeArchivalBlockers(*spec)
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case storeChangedMsg:
		m.reload()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.err = MapError(msg.err)
			m.notice = ""
		} else {
			m.err = nil
			m.notice = fmt.Sprintf("%s %s", msg.verb, msg.specID)
		}
		m.reload()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.lane == review.LaneReview {
				m.lane = review.LaneArchived
			} else {
				m.lane = review.LaneReview
			}
			m.table.SetCursor(0)
			m.reload()
			return m, nil
		case "r":
			return m, m.refreshCmd()
		case "a":
			spec := m.selected()
			if spec == nil || m.lane != review.LaneReview || len(m.archiveBlockers()) > 0 {
				return m, nil
			}
			return m, m.actionCmd("Archived", spec.ID, m.actions.Archive)
		case "u":
			spec := m.selected()
			if spec == nil || m.lane != review.LaneArchived {
				return m, nil
			}
			return m, m.actionCmd("Unarchived", spec.ID, m.actions.Unarchive)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m dashboardModel) actionCmd(verb, specID string, fn func(context.Context, string) (*bridge.Reply, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		_, err := fn(ctx, specID)
		return actionDoneMsg{verb: verb, specID: specID, err: err}
	}
}

func (m dashboardModel) refreshCmd() tea.Cmd {
	ctx := m.ctx
	actions := m.actions
	return func() tea.Msg {
		if err := actions.Refresh(ctx); err != nil {
			return actionDoneMsg{verb: "Refresh", err: err}
		}
		return nil
	}
}

func (m dashboardModel) View() string {
	snap := m.store.Snapshot()
	header := headerStyle.Render(fmt.Sprintf("Review %d · Archived %d", len(snap.ReviewSpecs), len(snap.ArchivedSpecs)))

	var status []string
	if m.notice != "" {
		status = append(status, statusOK.Render(m.notice))
	}
	if m.err != nil {
		status = append(status, statusErr.Render(m.err.Error()))
	}
	if m.lane == review.LaneReview && m.selected() != nil {
		if blockers := m.archiveBlockers(); len(blockers) > 0 {
			status = append(status, statusBlocked.Render("Archive disabled: "+review.BlockerSummary(blockers)))
		} else {
			status = append(status, statusOK.Render("Ready to archive"))
		}
	}

	help := "tab: switch lane · r: refresh · q: quit"
	if m.lane == review.LaneReview {
		help = "a: archive · " + help
	} else {
		help = "u: unarchive · " + help
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			fmt.Sprintf("\n%s lane:", m.lane),
			m.table.View(),
			strings.Join(status, "\n"),
			helpStyle.Render(help),
		),
	) + "\n"
}
