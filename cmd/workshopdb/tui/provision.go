package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barnardcsc/workshopdb/pkg/dataset"
	"github.com/barnardcsc/workshopdb/pkg/provision"
)

// ProvisionMode represents the current mode of the provisioning UI
type ProvisionMode int

const (
	ModeList ProvisionMode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// stepEntry pairs a step with its dataset and current status.
type stepEntry struct {
	dataset string
	step    dataset.Step
	status  provision.Status
}

// ProvisionModel is the main Bubbletea model for interactive provisioning
type ProvisionModel struct {
	mode         ProvisionMode
	list         list.Model
	confirmation ConfirmationDialog
	progress     ProgressView
	logs         LogView
	err          error
	width        int
	height       int
	dbURL        string
	datasets     []dataset.Dataset
	entries      []stepEntry
	pending      []int // indices into entries, in apply order
	pool         *pgxpool.Pool
	prov         *provision.Provisioner
}

// NewProvisionModel creates a new provisioning UI model
func NewProvisionModel(dbURL string, datasets []dataset.Dataset) ProvisionModel {
	l := list.New([]list.Item{}, StepItemDelegate{}, 0, 0)
	l.Title = "Workshop Provisioning"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return ProvisionModel{
		mode:     ModeList,
		list:     l,
		logs:     NewLogView(10),
		dbURL:    dbURL,
		datasets: datasets,
	}
}

// Init initializes the model
func (m ProvisionModel) Init() tea.Cmd {
	return tea.Batch(
		loadStepsCmd(m.dbURL, m.datasets),
		tea.EnterAltScreen,
	)
}

// Messages
type stepsLoadedMsg struct {
	entries []stepEntry
	pool    *pgxpool.Pool
	prov    *provision.Provisioner
}

type stepExecutedMsg struct {
	name string
	err  error
}

type errorMsg struct {
	err error
}

// Commands
func loadStepsCmd(dbURL string, datasets []dataset.Dataset) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to connect to database: %w", err)}
		}

		prov := provision.NewProvisioner(pool)
		if err := prov.Initialize(ctx); err != nil {
			pool.Close()
			return errorMsg{err: fmt.Errorf("failed to initialize provisioning: %w", err)}
		}

		records, err := prov.Status(ctx, datasets)
		if err != nil {
			pool.Close()
			return errorMsg{err: fmt.Errorf("failed to get step status: %w", err)}
		}
		status := make(map[string]provision.Status, len(records))
		for _, r := range records {
			status[r.Name] = r.Status
		}

		var entries []stepEntry
		for _, d := range datasets {
			for _, step := range d.Steps() {
				entries = append(entries, stepEntry{
					dataset: d.Name,
					step:    step,
					status:  status[step.Name],
				})
			}
		}

		return stepsLoadedMsg{entries: entries, pool: pool, prov: prov}
	}
}

func executeStepCmd(prov *provision.Provisioner, entry stepEntry) tea.Cmd {
	return func() tea.Msg {
		err := prov.Apply(context.Background(), entry.dataset, entry.step, false)
		return stepExecutedMsg{name: entry.step.Name, err: err}
	}
}

func lockAndExecuteCmd(prov *provision.Provisioner, entry stepEntry) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := prov.Lock(ctx); err != nil {
			return errorMsg{err: fmt.Errorf("failed to acquire lock: %w", err)}
		}
		err := prov.Apply(ctx, entry.dataset, entry.step, false)
		return stepExecutedMsg{name: entry.step.Name, err: err}
	}
}

// Update handles messages
func (m ProvisionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case stepsLoadedMsg:
		m.entries = msg.entries
		m.pool = msg.pool
		m.prov = msg.prov
		m.pending = nil

		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = StepItem{Name: e.step.Name, Dataset: e.dataset, Status: string(e.status)}
			if e.status != provision.StatusApplied {
				m.pending = append(m.pending, i)
			}
		}
		m.list.SetItems(items)
		return m, nil

	case stepExecutedMsg:
		if msg.err != nil {
			m.mode = ModeError
			m.err = msg.err
			m.logs.AddLog(errorStyle.Render("Failed: " + msg.name + " - " + msg.err.Error()))
			return m, nil
		}

		m.logs.AddLog(successStyle.Render("✓ Applied: " + msg.name))
		m.progress.Current++

		if m.progress.Current >= m.progress.Total {
			m.mode = ModeComplete
			return m, nil
		}

		next := m.entries[m.pending[m.progress.Current]]
		m.progress.Message = "Applying: " + next.step.Name
		return m, executeStepCmd(m.prov, next)

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			switch msg.String() {
			case "ctrl+c", "q":
				if m.pool != nil {
					m.pool.Close()
				}
				return m, tea.Quit

			case "enter", " ":
				if len(m.pending) == 0 {
					return m, nil
				}

				m.confirmation = NewConfirmationDialog(
					"Confirm Provisioning",
					fmt.Sprintf("Apply %d pending step(s) in order?", len(m.pending)),
				)
				m.mode = ModeConfirm
				return m, nil
			}

		case ModeConfirm:
			// The transition has to happen on this model, not inside a
			// dialog callback: Update runs on a copy, so state changed
			// through a closure over an earlier copy never reaches the
			// model bubbletea keeps.
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				m.mode = ModeList
				return m, nil
			case "left", "h":
				m.confirmation.YesSelected = true
				return m, nil
			case "right", "l":
				m.confirmation.YesSelected = false
				return m, nil
			case "enter":
				if !m.confirmation.YesSelected {
					m.mode = ModeList
					return m, nil
				}
				first := m.entries[m.pending[0]]
				m.mode = ModeExecuting
				m.progress = ProgressView{
					Current: 0,
					Total:   len(m.pending),
					Message: "Applying: " + first.step.Name,
				}
				return m, lockAndExecuteCmd(m.prov, first)
			}

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				if m.pool != nil {
					_ = m.prov.Unlock(context.Background())
					m.pool.Close()
				}
				return m, tea.Quit
			}
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI
func (m ProvisionModel) View() string {
	switch m.mode {
	case ModeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("enter", "apply pending") + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), help)

	case ModeConfirm:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.confirmation.View())

	case ModeExecuting:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Left, m.progress.View(), "\n", m.logs.View()))

	case ModeComplete:
		msg := titleStyle.Render("Provisioning Complete!") + "\n\n" +
			successStyle.Render(fmt.Sprintf("Applied %d step(s)", m.progress.Total)) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render(msg))

	case ModeError:
		msg := titleStyle.Render("Provisioning Failed") + "\n\n" +
			errorStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render(msg))
	}

	return "Unknown mode"
}

// RunProvisionUI starts the interactive provisioning UI
func RunProvisionUI(dbURL string, datasets []dataset.Dataset) error {
	p := tea.NewProgram(NewProvisionModel(dbURL, datasets))
	_, err := p.Run()
	return err
}
