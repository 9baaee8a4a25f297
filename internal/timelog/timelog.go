package timelog

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the layout of Entry.Date.
const DateLayout = "2006-01-02"

// Entry represents a completed timer session for a project. Date is the
// day the session was stopped, not the day it started.
type Entry struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Date      string
}

// New records a session between startedAt and stoppedAt, attributed to the
// day of stoppedAt in loc. The duration is clamped at zero and kept at
// millisecond precision.
func New(projectID uuid.UUID, startedAt, stoppedAt time.Time, loc *time.Location) Entry {
	d := stoppedAt.Sub(startedAt).Truncate(time.Millisecond)
	if d < 0 {
		d = 0
	}
	return Entry{
		ID:        uuid.New(),
		ProjectID: projectID,
		StartTime: startedAt,
		EndTime:   stoppedAt,
		Duration:  d,
		Date:      DayOf(stoppedAt, loc),
	}
}

// DayOf formats the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
