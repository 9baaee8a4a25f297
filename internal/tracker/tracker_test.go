package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetracker/internal/project"
	"timetracker/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock, *store.Memory) {
	t.Helper()
	clock := &fakeClock{t: t0}
	kv := store.NewMemory()
	e := New(kv,
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithLogger(discardLogger()),
	)
	return e, clock, kv
}

func mustAdd(t *testing.T, e *Engine, name string) project.Project {
	t.Helper()
	p, err := e.AddProject(name, "#3B82F6", "")
	require.NoError(t, err)
	return p
}

// checkInvariants verifies the state rules that must hold after every operation.
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	known := map[uuid.UUID]bool{}
	for _, p := range e.Projects() {
		known[p.ID] = true
	}
	for _, en := range e.TimeEntries() {
		assert.True(t, known[en.ProjectID], "entry %s references unknown project", en.ID)
		assert.GreaterOrEqual(t, en.Duration, time.Duration(0))
		assert.Equal(t, en.EndTime.Sub(en.StartTime), en.Duration)
	}
	if a, ok := e.ActiveTimer(); ok {
		assert.True(t, known[a.ProjectID], "timer references unknown project")
	}
}

func TestAddProject_Success(t *testing.T) {
	t.Parallel()
	e, _, kv := newTestEngine(t)

	p, err := e.AddProject("  Website  ", "#10B981", "client work")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "Website", p.Name)
	assert.Equal(t, "#10B981", p.Color)
	assert.Equal(t, "client work", p.Description)
	assert.Equal(t, t0, p.CreatedAt)
	assert.Equal(t, []project.Project{p}, e.Projects())

	_, ok, err := kv.Load(context.Background(), KeyProjects)
	require.NoError(t, err)
	assert.True(t, ok, "projects should be persisted")
}

func TestAddProject_UniqueIDs(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)

	a := mustAdd(t, e, "A")
	b := mustAdd(t, e, "B")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAddProject_EmptyNameRejected(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "   ", "\t\n"} {
		e, _, kv := newTestEngine(t)

		_, err := e.AddProject(name, "#3B82F6", "")

		require.Error(t, err)
		assert.True(t, errors.Is(err, project.ErrValidation), "want ErrValidation, got %v", err)
		var ve *project.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "name", ve.Field)
		assert.Empty(t, e.Projects())
		assert.Equal(t, 0, kv.Keys(), "nothing should be persisted")
	}
}

func TestStop_IdleIsNoop(t *testing.T) {
	t.Parallel()
	e, _, kv := newTestEngine(t)

	e.Stop()

	assert.Empty(t, e.TimeEntries())
	assert.False(t, e.Running())
	assert.Equal(t, 0, kv.Keys())
}

func TestStartStop_NinetyMinutes(t *testing.T) {
	t.Parallel()
	e, clock, _ := newTestEngine(t)
	a := mustAdd(t, e, "A")

	e.Start(a.ID)
	clock.Advance(90 * time.Minute)
	e.Stop()

	entries := e.TimeEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, a.ID, entries[0].ProjectID)
	assert.Equal(t, int64(5_400_000), entries[0].Duration.Milliseconds())
	assert.Equal(t, t0, entries[0].StartTime)
	assert.Equal(t, t0.Add(90*time.Minute), entries[0].EndTime)
	assert.Equal(t, "2025-03-10", entries[0].Date)
	assert.False(t, e.Running())

	r := e.DailyReport("")
	assert.Equal(t, "2025-03-10", r.Date)
	assert.Equal(t, 1.5, r.TotalHours)
	require.Len(t, r.Projects, 1)
	assert.Equal(t, ProjectHours{ProjectID: a.ID, ProjectName: "A", Hours: 1.5, Color: "#3B82F6"}, r.Projects[0])
}

func TestStartStop_RealClock(t *testing.T) {
	t.Parallel()
	e := New(store.NewMemory(), WithLogger(discardLogger()))
	p, err := e.AddProject("A", "#3B82F6", "")
	require.NoError(t, err)

	begin := time.Now()
	e.Start(p.ID)
	time.Sleep(20 * time.Millisecond)
	e.Stop()
	elapsed := time.Since(begin)

	entries := e.TimeEntries()
	require.Len(t, entries, 1)
	assert.GreaterOrEqual(t, entries[0].Duration, 15*time.Millisecond)
	assert.LessOrEqual(t, entries[0].Duration, elapsed+time.Millisecond)
}

func TestStart_SwitchesProject(t *testing.T) {
	t.Parallel()
	e, clock, _ := newTestEngine(t)
	p1 := mustAdd(t, e, "P1")
	p2 := mustAdd(t, e, "P2")

	e.Start(p1.ID)
	clock.Advance(25 * time.Minute)
	switchAt := clock.Now()
	e.Start(p2.ID)

	entries := e.TimeEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, p1.ID, entries[0].ProjectID)
	assert.Equal(t, t0, entries[0].StartTime)
	assert.Equal(t, switchAt, entries[0].EndTime)
	assert.Equal(t, 25*time.Minute, entries[0].Duration)

	active, ok := e.ActiveTimer()
	require.True(t, ok)
	assert.Equal(t, p2.ID, active.ProjectID)
	assert.Equal(t, switchAt, active.StartTime)
}

func TestStart_SameProjectRestarts(t *testing.T) {
	t.Parallel()
	e, clock, _ := newTestEngine(t)
	p := mustAdd(t, e, "P")

	e.Start(p.ID)
	clock.Advance(10 * time.Minute)
	e.Start(p.ID)

	entries := e.TimeEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, 10*time.Minute, entries[0].Duration)

	active, ok := e.ActiveTimer()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), active.StartTime)
	assert.Equal(t, time.Duration(0), e.ActiveTimerDuration())
}

func TestStart_UnknownProjectIgnored(t *testing.T) {
	t.Parallel()
	e, clock, _ := newTestEngine(t)
	p := mustAdd(t, e, "P")
	e.Start(p.ID)
	clock.Advance(time.Minute)

	e.Start(uuid.New())

	active, ok := e.ActiveTimer()
	require.True(t, ok)
	assert.Equal(t, p.ID, active.ProjectID)
	assert.Empty(t, e.TimeEntries())
}

func TestActiveTimerDuration_Live(t *testing.T) {
	t.Parallel()
	e, clock, _ := newTestEngine(t)
	p := mustAdd(t, e, "P")

	assert.Equal(t, time.Duration(0), e.ActiveTimerDuration())

	e.Start(p.ID)
	clock.Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, e.ActiveTimerDuration())
	clock.Advance(2 * time.Second)
	assert.Equal(t, 5*time.Second, e.ActiveTimerDuration())

	e.Stop()
	assert.Equal(t, time.Duration(0), e.ActiveTimerDuration())
}

func TestStop_AttributesToStopDay(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)}
	e := New(store.NewMemory(), WithClock(clock.Now), WithLocation(time.UTC), WithLogger(discardLogger()))
	p, err := e.AddProject("Night", "#EF4444", "")
	require.NoError(t, err)

	e.Start(p.ID)
	clock.Advance(time.Hour)
	e.Stop()

	entries := e.TimeEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-03-11", entries[0].Date)
	assert.Empty(t, e.DailyReport("2025-03-10").Projects)
	assert.Equal(t, 1.0, e.DailyReport("2025-03-11").TotalHours)
}

func TestStop_DayUsesLocation(t *testing.T) {
	t.Parallel()
	tokyo := time.FixedZone("JST", 9*60*60)
	// 14:50 UTC is 23:50 in Tokyo; the stop lands after local midnight.
	clock := &fakeClock{t: time.Date(2025, 3, 10, 14, 50, 0, 0, time.UTC)}
	e := New(store.NewMemory(), WithClock(clock.Now), WithLocation(tokyo), WithLogger(discardLogger()))
	p, err := e.AddProject("P", "#EF4444", "")
	require.NoError(t, err)

	e.Start(p.ID)
	clock.Advance(20 * time.Minute)
	e.Stop()

	require.Len(t, e.TimeEntries(), 1)
	assert.Equal(t, "2025-03-11", e.TimeEntries()[0].Date)
	assert.Equal(t, "2025-03-11", e.Today())
}

func TestRemoveProject_Cascades(t *testing.T) {
	t.Parallel()
	e, clock, kv := newTestEngine(t)
	a := mustAdd(t, e, "A")
	b := mustAdd(t, e, "B")

	e.Start(a.ID)
	clock.Advance(time.Hour)
	e.Start(b.ID)
	clock.Advance(time.Hour)
	e.Start(a.ID)
	clock.Advance(30 * time.Minute)

	e.RemoveProject(a.ID)

	entries := e.TimeEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, b.ID, entries[0].ProjectID)
	assert.False(t, e.Running(), "timer of removed project must be discarded")
	assert.Equal(t, []project.Project{b}, e.Projects())

	_, ok, err := kv.Load(context.Background(), KeyActiveTimer)
	require.NoError(t, err)
	assert.False(t, ok)
	checkInvariants(t, e)
}

func TestRemoveProject_KeepsOtherTimer(t *testing.T) {
	t.Parallel()
	e, clock, _ := newTestEngine(t)
	a := mustAdd(t, e, "A")
	b := mustAdd(t, e, "B")

	e.Start(b.ID)
	clock.Advance(time.Minute)
	e.RemoveProject(a.ID)

	active, ok := e.ActiveTimer()
	require.True(t, ok)
	assert.Equal(t, b.ID, active.ProjectID)
	assert.Equal(t, time.Minute, e.ActiveTimerDuration())
}

func TestRemoveProject_UnknownIsNoop(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	a := mustAdd(t, e, "A")

	e.RemoveProject(uuid.New())
	e.RemoveProject(a.ID)
	e.RemoveProject(a.ID)

	assert.Empty(t, e.Projects())
}

func TestSnapshots_AreCopies(t *testing.T) {
	t.Parallel()
	e, _, _ := newTestEngine(t)
	mustAdd(t, e, "A")

	snap := e.Projects()
	snap[0].Name = "changed"

	assert.Equal(t, "A", e.Projects()[0].Name)
}

func TestOperationSequence_Invariants(t *testing.T) {
	t.Parallel()
	e, clock, _ := newTestEngine(t)
	ids := []uuid.UUID{mustAdd(t, e, "A").ID, mustAdd(t, e, "B").ID, mustAdd(t, e, "C").ID}

	ops := []func(){
		func() { e.Start(ids[0]) },
		func() { e.Stop() },
		func() { e.Start(ids[1]) },
		func() { e.Start(ids[2]) },
		func() { e.Stop() },
		func() { e.Stop() },
		func() { e.Start(ids[2]) },
		func() { e.RemoveProject(ids[2]) },
		func() { e.Start(ids[0]) },
		func() { e.RemoveProject(ids[1]) },
		func() { e.Start(ids[0]) },
		func() { e.Stop() },
	}
	for _, op := range ops {
		clock.Advance(7 * time.Minute)
		op()
		checkInvariants(t, e)
		r := e.DailyReport("")
		var sum float64
		for _, row := range r.Projects {
			sum += row.Hours
		}
		assert.Equal(t, sum, r.TotalHours)
	}
}

type failingKV struct{}

func (failingKV) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}
func (failingKV) Save(context.Context, string, []byte) error { return errors.New("disk on fire") }
func (failingKV) Delete(context.Context, string) error       { return errors.New("disk on fire") }

func TestPersistFailure_DoesNotAbortMutation(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: t0}
	e := New(failingKV{}, WithClock(clock.Now), WithLocation(time.UTC), WithLogger(discardLogger()))

	p, err := e.AddProject("A", "#3B82F6", "")
	require.NoError(t, err)
	e.Start(p.ID)
	clock.Advance(time.Minute)
	e.Stop()
	e.RemoveProject(p.ID)

	assert.Empty(t, e.Projects())
	assert.Empty(t, e.TimeEntries())
}

// brokenKeyKV fails loads of one key and reports every other key absent.
type brokenKeyKV struct {
	*store.Memory
	key string
}

func (b brokenKeyKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if key == b.key {
		return nil, false, errors.New("disk on fire")
	}
	return b.Memory.Load(ctx, key)
}

func TestLoad_StoreErrorReturned(t *testing.T) {
	t.Parallel()

	err := New(failingKV{}, WithLogger(discardLogger())).Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk on fire")

	for _, key := range []string{KeyProjects, KeyTimeEntries, KeyActiveTimer} {
		e := New(brokenKeyKV{Memory: store.NewMemory(), key: key}, WithLogger(discardLogger()))
		err := e.Load(context.Background())
		require.Error(t, err, key)
		assert.ErrorContains(t, err, "load "+key)
	}
}
