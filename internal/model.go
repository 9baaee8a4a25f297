package internal

import (
	"time"

	"timetracker/internal/project"
	"timetracker/internal/timelog"
	"timetracker/internal/tracker"

	tea "github.com/charmbracelet/bubbletea"
)

// MsgTick asks the view to redraw live durations. It changes no state.
type MsgTick struct{}

const (
	focusName = iota
	focusDescription
	focusColor
)

type Model struct {
	Engine  *tracker.Engine
	Refresh time.Duration

	SelectedIndex int
	Err           error

	// Add-project form state
	ShowAddForm    bool
	NewProjectName string
	NewProjectDesc string
	ColorIndex     int
	InputFocus     int

	// Daily report view state
	ShowReport bool
	ReportDate time.Time

	ticking bool
}

func NewModel(engine *tracker.Engine, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = time.Second
	}
	return &Model{Engine: engine, Refresh: refresh}
}

func (m *Model) Init() tea.Cmd {
	return m.ensureTicking()
}

// ensureTicking arms the refresh tick while a timer runs. The chain ends on
// the first tick that finds no running timer.
func (m *Model) ensureTicking() tea.Cmd {
	if m.ticking || !m.Engine.Running() {
		return nil
	}
	m.ticking = true
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.Refresh, func(time.Time) tea.Msg { return MsgTick{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgTick:
		if !m.Engine.Running() {
			m.ticking = false
			return m, nil
		}
		return m, m.tick()
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m, nil
	}
	return m, nil
}

func (m *Model) View() string {
	if m.ShowReport {
		return m.reportView()
	}

	if m.ShowAddForm {
		return m.addFormView()
	}

	if len(m.Engine.Projects()) == 0 {
		return m.emptyStateView()
	}

	return m.mainView()
}

func (m *Model) SelectedProject() (project.Project, bool) {
	projects := m.Engine.Projects()
	if m.SelectedIndex >= 0 && m.SelectedIndex < len(projects) {
		return projects[m.SelectedIndex], true
	}
	return project.Project{}, false
}

// ToggleSelected stops the selected project's timer if it runs, otherwise
// starts it (stopping any other timer first).
func (m *Model) ToggleSelected() tea.Cmd {
	p, ok := m.SelectedProject()
	if !ok {
		return nil
	}
	if active, running := m.Engine.ActiveTimer(); running && active.Belongs(p.ID) {
		m.Engine.Stop()
		return nil
	}
	m.Engine.Start(p.ID)
	return m.ensureTicking()
}

func (m *Model) DeleteSelected() {
	p, ok := m.SelectedProject()
	if !ok {
		return
	}
	m.Engine.RemoveProject(p.ID)
	if n := len(m.Engine.Projects()); m.SelectedIndex >= n {
		m.SelectedIndex = max(n-1, 0)
	}
}

func (m *Model) submitAddForm() {
	p, err := m.Engine.AddProject(m.NewProjectName, project.Palette[m.ColorIndex], m.NewProjectDesc)
	if err != nil {
		m.Err = err
		m.InputFocus = focusName
		return
	}
	m.Err = nil
	m.ShowAddForm = false
	for i, q := range m.Engine.Projects() {
		if q.ID == p.ID {
			m.SelectedIndex = i
		}
	}
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowReport {
		return m.handleReportInput(msg)
	}

	if m.ShowAddForm {
		return m.handleFormInput(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.SelectedIndex > 0 {
			m.SelectedIndex--
		}
	case "down", "j":
		if m.SelectedIndex < len(m.Engine.Projects())-1 {
			m.SelectedIndex++
		}
	case "enter", " ":
		return m, m.ToggleSelected()
	case "s":
		m.Engine.Stop()
	case "n":
		m.ShowAddForm = true
		m.NewProjectName = ""
		m.NewProjectDesc = ""
		m.ColorIndex = len(m.Engine.Projects()) % len(project.Palette)
		m.InputFocus = focusName
		m.Err = nil
	case "d":
		m.DeleteSelected()
	case "r":
		m.ShowReport = true
		m.ReportDate = m.today()
	}
	return m, nil
}

// today is the engine's current day at midnight, so the report view and the
// engine agree on the date.
func (m *Model) today() time.Time {
	d, err := time.ParseInLocation(timelog.DateLayout, m.Engine.Today(), m.Engine.Location())
	if err != nil {
		return time.Now().In(m.Engine.Location())
	}
	return d
}

func (m *Model) reportDay() string {
	return m.ReportDate.Format(timelog.DateLayout)
}

func (m *Model) handleReportInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q", "r":
		m.ShowReport = false
	case "left", "h":
		m.ReportDate = m.ReportDate.AddDate(0, 0, -1)
	case "right", "l":
		m.ReportDate = m.ReportDate.AddDate(0, 0, 1)
	case "t":
		m.ReportDate = m.today()
	}
	return m, nil
}

func (m *Model) handleFormInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.ShowAddForm = false
		m.Err = nil
	case "enter":
		if m.InputFocus < focusColor {
			m.InputFocus++
		} else {
			m.submitAddForm()
		}
	case "tab":
		m.InputFocus = (m.InputFocus + 1) % 3
	case "shift+tab":
		m.InputFocus = (m.InputFocus + 2) % 3
	case "backspace":
		switch m.InputFocus {
		case focusName:
			m.NewProjectName = dropLastRune(m.NewProjectName)
		case focusDescription:
			m.NewProjectDesc = dropLastRune(m.NewProjectDesc)
		}
	case "left":
		if m.InputFocus == focusColor {
			m.ColorIndex = (m.ColorIndex + len(project.Palette) - 1) % len(project.Palette)
		}
	case "right":
		if m.InputFocus == focusColor {
			m.ColorIndex = (m.ColorIndex + 1) % len(project.Palette)
		}
	default:
		runes := []rune(msg.String())
		if len(runes) == 1 {
			switch m.InputFocus {
			case focusName:
				m.NewProjectName += string(runes[0])
			case focusDescription:
				m.NewProjectDesc += string(runes[0])
			}
		}
	}
	return m, nil
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
