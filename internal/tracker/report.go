package tracker

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"timetracker/internal/project"
	"timetracker/internal/timelog"
)

// ProjectHours is one row of a DailyReport.
type ProjectHours struct {
	ProjectID   uuid.UUID
	ProjectName string
	Hours       float64
	Color       string
}

// DailyReport aggregates one calendar day. It is derived on every query and
// never persisted.
type DailyReport struct {
	Date       string
	TotalHours float64
	Projects   []ProjectHours
}

// Hours converts a duration to fractional hours at millisecond precision.
func Hours(d time.Duration) float64 {
	return float64(d.Milliseconds()) / float64(time.Hour/time.Millisecond)
}

// ProjectDuration sums the project's entries recorded on date and, when
// date is today, the live duration of its running timer. An empty date
// means today.
func (e *Engine) ProjectDuration(id uuid.UUID, date string) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	today := timelog.DayOf(now, e.loc)
	if date == "" {
		date = today
	}

	var total time.Duration
	for _, en := range e.entries {
		if en.ProjectID == id && en.Date == date {
			total += en.Duration
		}
	}
	if e.active != nil && e.active.Belongs(id) && date == today {
		total += e.active.Elapsed(now)
	}
	return total
}

// DailyReport groups the entries of date by project, adds the running
// timer when date is today, and orders the rows by hours descending. Rows
// with equal hours keep the order in which their project was first seen.
// An empty date means today.
func (e *Engine) DailyReport(date string) DailyReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	today := timelog.DayOf(now, e.loc)
	if date == "" {
		date = today
	}

	byID := make(map[uuid.UUID]project.Project, len(e.projects))
	for _, p := range e.projects {
		byID[p.ID] = p
	}

	var order []uuid.UUID
	totals := make(map[uuid.UUID]time.Duration)
	add := func(id uuid.UUID, d time.Duration) {
		if _, ok := byID[id]; !ok {
			return
		}
		if _, seen := totals[id]; !seen {
			order = append(order, id)
		}
		totals[id] += d
	}

	for _, en := range e.entries {
		if en.Date == date {
			add(en.ProjectID, en.Duration)
		}
	}
	if e.active != nil && date == today {
		add(e.active.ProjectID, e.active.Elapsed(now))
	}

	rows := make([]ProjectHours, 0, len(order))
	for _, id := range order {
		p := byID[id]
		rows = append(rows, ProjectHours{
			ProjectID:   id,
			ProjectName: p.Name,
			Hours:       Hours(totals[id]),
			Color:       p.Color,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Hours > rows[j].Hours })

	var total float64
	for _, r := range rows {
		total += r.Hours
	}

	return DailyReport{Date: date, TotalHours: total, Projects: rows}
}
