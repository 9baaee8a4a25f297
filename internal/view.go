package internal

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"timetracker/internal/project"
	"timetracker/internal/timelog"
	"timetracker/internal/tracker"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center)

	projectItemStyle = lipgloss.NewStyle().
				Padding(0, 1)

	projectItemSelectedStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("170")).
					Background(lipgloss.Color("235")).
					Padding(0, 1)

	timerDisplayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("69")).
				Bold(true)

	timerRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 0)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	inputInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)
)

// formatDuration renders H:MM:SS, or M:SS below one hour.
func formatDuration(d time.Duration) string {
	total := int(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// formatHours renders whole minutes below one hour, tenths of hours above.
func formatHours(hours float64) string {
	if hours < 1 {
		return fmt.Sprintf("%dm", int(math.Floor(hours*60)))
	}
	return fmt.Sprintf("%.1fh", hours)
}

func swatch(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}

func (m *Model) emptyStateView() string {
	return lipgloss.Place(
		80, 24,
		lipgloss.Center, lipgloss.Center,
		titleStyle.Render("Time Tracker")+"\n\n"+
			inactiveStyle.Render("No projects yet. Press 'n' to add one."),
	)
}

func (m *Model) mainView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Width(80).Render("Time Tracker"))
	sb.WriteString("\n\n")

	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.projectListView(),
		"  ",
		m.projectDetailView(),
	)
	sb.WriteString(boxes)
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render("Navigate: Up/Down | Start/Stop: Enter | Stop: s | New: n | Delete: d | Report: r | Quit: q"))

	return sb.String()
}

func (m *Model) projectListView() string {
	var sb strings.Builder

	sb.WriteString("Projects (today)\n\n")

	active, running := m.Engine.ActiveTimer()
	for i, p := range m.Engine.Projects() {
		marker := ""
		if running && active.Belongs(p.ID) {
			marker = " ●"
		}
		today := formatDuration(m.Engine.ProjectDuration(p.ID, ""))
		line := fmt.Sprintf("%s %s %s%s", swatch(p.Color), p.Name, today, marker)

		if i == m.SelectedIndex {
			sb.WriteString(projectItemSelectedStyle.Render(line))
		} else {
			sb.WriteString(projectItemStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	return boxStyle.Width(30).Height(15).Render(sb.String())
}

func (m *Model) projectDetailView() string {
	p, ok := m.SelectedProject()
	if !ok {
		return boxStyle.Width(45).Height(15).Render("Select a project")
	}

	active, running := m.Engine.ActiveTimer()
	running = running && active.Belongs(p.ID)

	var timerStr string
	if running {
		timerStr = timerRunningStyle.Render(formatDuration(m.Engine.ActiveTimerDuration()))
	} else {
		timerStr = timerDisplayStyle.Render(formatDuration(0))
	}

	status := "Stopped"
	statusStyle := inactiveStyle
	if running {
		status = "Running"
		statusStyle = runningStyle
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project: %s %s\n", swatch(p.Color), p.Name))
	if p.Description != "" {
		sb.WriteString(inactiveStyle.Render(p.Description))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(timerStr)
	sb.WriteString(fmt.Sprintf("\n\n%s\n", statusStyle.Render(status)))
	sb.WriteString(fmt.Sprintf("Today: %s\n", formatDuration(m.Engine.ProjectDuration(p.ID, ""))))

	entries := m.recentEntries(p.ID, 5)
	if len(entries) > 0 {
		sb.WriteString("\n")
		sb.WriteString(logHeaderStyle.Render("Recent Sessions"))
		sb.WriteString("\n")
		for _, en := range entries {
			sb.WriteString(formatEntry(en))
			sb.WriteString("\n")
		}
	}

	return boxStyle.Width(45).Height(15).Render(sb.String())
}

// recentEntries returns up to n entries of the project, newest first.
func (m *Model) recentEntries(projectID uuid.UUID, n int) []timelog.Entry {
	var out []timelog.Entry
	for _, en := range slices.Backward(m.Engine.TimeEntries()) {
		if en.ProjectID == projectID {
			out = append(out, en)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func formatEntry(en timelog.Entry) string {
	timeStr := logTimeStyle.Render(en.EndTime.Local().Format("Jan 02 15:04"))
	return fmt.Sprintf("  %s  %s", timeStr, formatDuration(en.Duration))
}

func (m *Model) addFormView() string {
	label := func(focus int, text string) string {
		marker := "  "
		if m.InputFocus == focus {
			marker = "→ "
			return inputStyle.Render(marker + text)
		}
		return inputInactiveStyle.Render(marker + text)
	}
	value := func(focus int, text string) string {
		if m.InputFocus == focus {
			return inputStyle.Render(text + "█")
		}
		return text
	}

	var colors strings.Builder
	for i, c := range project.Palette {
		if i == m.ColorIndex {
			colors.WriteString("[" + swatch(c) + "]")
		} else {
			colors.WriteString(" " + swatch(c) + " ")
		}
	}

	form := fmt.Sprintf("%s%s\n\n%s%s\n\n%s%s\n\n",
		label(focusName, "Project Name: "), value(focusName, m.NewProjectName),
		label(focusDescription, "Description: "), value(focusDescription, m.NewProjectDesc),
		label(focusColor, "Color: "), colors.String(),
	)
	if m.Err != nil {
		form += errorStyle.Render(m.Err.Error()) + "\n\n"
	}
	form += helpStyle.Render("Tab: Switch | ←/→: Color | Enter: Next/Save | Esc: Cancel")

	return lipgloss.Place(
		80, 24,
		lipgloss.Center, lipgloss.Center,
		titleStyle.Width(60).Render("Add New Project")+"\n\n"+boxStyle.Width(60).Render(form),
	)
}

func (m *Model) reportView() string {
	var sb strings.Builder
	sb.WriteString(RenderReport(m.Engine.DailyReport(m.reportDay())))
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render("Prev day: ← | Next day: → | Today: t | Back: Esc"))
	return sb.String()
}

// RenderReport draws a daily report with one proportional bar per project.
func RenderReport(r tracker.DailyReport) string {
	const barWidth = 30

	var sb strings.Builder
	sb.WriteString(titleStyle.Width(60).Render("Daily Report " + r.Date))
	sb.WriteString("\n\n")

	if len(r.Projects) == 0 {
		sb.WriteString(inactiveStyle.Render("No time tracked on this day."))
		return boxStyle.Width(60).Render(sb.String())
	}

	for _, row := range r.Projects {
		n := 0
		if r.TotalHours > 0 {
			n = int(math.Round(row.Hours / r.TotalHours * barWidth))
		}
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(row.Color)).Render(strings.Repeat("█", n))
		sb.WriteString(fmt.Sprintf("%s %-18s %7s %s\n", swatch(row.Color), row.ProjectName, formatHours(row.Hours), bar))
	}
	sb.WriteString("\n")
	sb.WriteString(logHeaderStyle.Render("Total: " + formatHours(r.TotalHours)))

	return boxStyle.Width(60).Render(sb.String())
}
