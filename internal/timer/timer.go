package timer

import (
	"time"

	"github.com/google/uuid"
)

// Active is the single in-progress session. It holds no goroutine; the
// elapsed time is derived from the caller's clock on every read.
type Active struct {
	ProjectID uuid.UUID
	StartTime time.Time
}

func Start(projectID uuid.UUID, now time.Time) Active {
	return Active{ProjectID: projectID, StartTime: now}
}

// Elapsed returns now - StartTime, never negative.
func (a Active) Elapsed(now time.Time) time.Duration {
	d := now.Sub(a.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

func (a Active) Belongs(projectID uuid.UUID) bool {
	return a.ProjectID == projectID
}
