// Package tracker owns projects, completed time entries and the single
// active timer, and derives daily reports from them.
//
// The engine is synchronous and holds no goroutines: live durations are
// computed from the clock on every read, and every mutation writes the
// collections it touched to the key-value store before returning.
package tracker

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"timetracker/internal/project"
	"timetracker/internal/timelog"
	"timetracker/internal/timer"
)

type kvStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// WithLocation sets the location used to derive calendar days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger sets the logger; the engine adds component=tracker.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithWriteTimeout bounds each store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.writeTimeout = d
		}
	}
}

// Engine is the time-tracking state engine.
type Engine struct {
	mu           sync.Mutex
	kv           kvStore
	log          *slog.Logger
	clock        func() time.Time
	loc          *time.Location
	writeTimeout time.Duration

	projects []project.Project
	entries  []timelog.Entry
	active   *timer.Active
}

// New creates an empty engine. Call Load to restore persisted state.
func New(kv kvStore, opts ...Option) *Engine {
	e := &Engine{
		kv:           kv,
		log:          slog.Default(),
		clock:        time.Now,
		loc:          time.Local,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "tracker")
	return e
}

// now is millisecond precise so timestamps survive the persisted encoding.
func (e *Engine) now() time.Time {
	return e.clock().In(e.loc).Truncate(time.Millisecond)
}

// Location returns the location used to derive calendar days.
func (e *Engine) Location() *time.Location { return e.loc }

// Today returns the current calendar day as YYYY-MM-DD.
func (e *Engine) Today() string {
	return timelog.DayOf(e.now(), e.loc)
}

// Projects returns a snapshot of all projects in creation order.
func (e *Engine) Projects() []project.Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.projects)
}

// TimeEntries returns a snapshot of all completed entries in the order
// they were recorded.
func (e *Engine) TimeEntries() []timelog.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.entries)
}

// ActiveTimer returns the running timer, if any.
func (e *Engine) ActiveTimer() (timer.Active, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return timer.Active{}, false
	}
	return *e.active, true
}

// Running reports whether a timer is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Project looks up a project by id.
func (e *Engine) Project(id uuid.UUID) (project.Project, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexOf(id)
	if i < 0 {
		return project.Project{}, false
	}
	return e.projects[i], true
}

func (e *Engine) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(e.projects, func(p project.Project) bool { return p.ID == id })
}

// AddProject creates and persists a project. It fails with a
// *project.ValidationError when the trimmed name is empty.
func (e *Engine) AddProject(name, color, description string) (project.Project, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := project.New(name, color, description, e.now())
	if err != nil {
		e.log.Debug("project rejected", slog.String("error", err.Error()))
		return project.Project{}, err
	}
	e.projects = append(e.projects, p)
	e.saveProjects()

	e.log.Info("project added", slog.String("project_id", p.ID.String()), slog.String("name", p.Name))
	return p, nil
}

// RemoveProject deletes a project together with its entries. A timer
// running for it is discarded without recording an entry. Unknown ids are
// ignored.
func (e *Engine) RemoveProject(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexOf(id) < 0 {
		return
	}

	before := len(e.entries)
	e.entries = slices.DeleteFunc(e.entries, func(en timelog.Entry) bool { return en.ProjectID == id })
	purged := before - len(e.entries)

	discarded := e.active != nil && e.active.Belongs(id)
	if discarded {
		e.active = nil
		e.saveActiveTimer()
	}
	if purged > 0 {
		e.saveEntries()
	}
	e.projects = slices.DeleteFunc(e.projects, func(p project.Project) bool { return p.ID == id })
	e.saveProjects()

	e.log.Info("project removed",
		slog.String("project_id", id.String()),
		slog.Int("entries_purged", purged),
		slog.Bool("timer_discarded", discarded),
	)
}

// Start stops any running timer, recording its entry, then starts a timer
// for the project. Restarting the running project flushes its elapsed time
// to an entry. Unknown projects are ignored.
func (e *Engine) Start(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexOf(id) < 0 {
		e.log.Warn("start ignored: unknown project", slog.String("project_id", id.String()))
		return
	}

	now := e.now()
	e.stopAt(now)
	t := timer.Start(id, now)
	e.active = &t
	e.saveActiveTimer()

	e.log.Debug("timer started", slog.String("project_id", id.String()), slog.Time("start", now))
}

// Stop records the running timer as an entry attributed to today. It is a
// no-op when no timer runs.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopAt(e.now()) {
		e.saveActiveTimer()
	}
}

func (e *Engine) stopAt(now time.Time) bool {
	if e.active == nil {
		return false
	}
	en := timelog.New(e.active.ProjectID, e.active.StartTime, now, e.loc)
	e.entries = append(e.entries, en)
	e.active = nil
	e.saveEntries()

	e.log.Debug("timer stopped",
		slog.String("project_id", en.ProjectID.String()),
		slog.Duration("duration", en.Duration),
		slog.String("date", en.Date),
	)
	return true
}

// ActiveTimerDuration returns the live elapsed time of the running timer,
// or zero when idle.
func (e *Engine) ActiveTimerDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return 0
	}
	return e.active.Elapsed(e.now())
}
