package timelog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Parallel()
	pid := uuid.New()
	start := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	stop := start.Add(45*time.Minute + 1500*time.Microsecond)

	e := New(pid, start, stop, time.UTC)

	assert.Equal(t, pid, e.ProjectID)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, 45*time.Minute+time.Millisecond, e.Duration)
	assert.Equal(t, "2025-03-11", e.Date, "attributed to the stop day")
}

func TestNew_ClampsNegative(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	e := New(uuid.New(), now, now.Add(-time.Minute), time.UTC)
	assert.Zero(t, e.Duration)
}

func TestDayOf(t *testing.T) {
	t.Parallel()
	ts := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-03-10", DayOf(ts, time.UTC))
	assert.Equal(t, "2025-03-11", DayOf(ts, time.FixedZone("JST", 9*3600)))
	assert.Equal(t, ts.Local().Format(DateLayout), DayOf(ts, nil))
}
