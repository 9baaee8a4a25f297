package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"timetracker/internal/project"
	"timetracker/internal/timelog"
	"timetracker/internal/timer"
)

// Store keys.
const (
	KeyProjects    = "projects"
	KeyTimeEntries = "timeEntries"
	KeyActiveTimer = "activeTimer"
)

// SchemaVersion is written into every blob. Blobs without an envelope are
// read as version 0, which has the same record layout.
const SchemaVersion = 1

// TimeLayout is ISO-8601 in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var errUnsupportedVersion = errors.New("unsupported schema version")

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type projectRecord struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	CreatedAt   string    `json:"createdAt"`
}

type entryRecord struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"projectId"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime,omitempty"`
	Duration  int64     `json:"duration"`
	Date      string    `json:"date"`
}

type timerRecord struct {
	ProjectID uuid.UUID `json:"projectId"`
	StartTime string    `json:"startTime"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

func wrap(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: SchemaVersion, Data: data})
}

// unwrap returns the payload of a versioned blob, or the blob itself when it
// carries no envelope.
func unwrap(blob []byte) (json.RawMessage, error) {
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 || blob[0] != '{' {
		return blob, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(blob, &fields); err != nil {
		return nil, err
	}
	rawVersion, hasVersion := fields["version"]
	data, hasData := fields["data"]
	if !hasVersion || !hasData {
		return blob, nil
	}
	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", errUnsupportedVersion, version)
	}
	return data, nil
}

func EncodeProjects(projects []project.Project) ([]byte, error) {
	recs := make([]projectRecord, 0, len(projects))
	for _, p := range projects {
		recs = append(recs, projectRecord{
			ID:          p.ID,
			Name:        p.Name,
			Color:       p.Color,
			Description: p.Description,
			CreatedAt:   formatTime(p.CreatedAt),
		})
	}
	return wrap(recs)
}

func DecodeProjects(blob []byte) ([]project.Project, error) {
	data, err := unwrap(blob)
	if err != nil {
		return nil, err
	}
	var recs []projectRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	out := make([]project.Project, 0, len(recs))
	for i, r := range recs {
		if err := project.ValidateName(r.Name); err != nil {
			return nil, fmt.Errorf("project %d: %w", i, err)
		}
		created, err := parseTime("createdAt", r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("project %d: %w", i, err)
		}
		out = append(out, project.Project{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Description: r.Description,
			CreatedAt:   created,
		})
	}
	return out, nil
}

func EncodeEntries(entries []timelog.Entry) ([]byte, error) {
	recs := make([]entryRecord, 0, len(entries))
	for _, en := range entries {
		recs = append(recs, entryRecord{
			ID:        en.ID,
			ProjectID: en.ProjectID,
			StartTime: formatTime(en.StartTime),
			EndTime:   formatTime(en.EndTime),
			Duration:  en.Duration.Milliseconds(),
			Date:      en.Date,
		})
	}
	return wrap(recs)
}

// DecodeEntries reads time entries. An entry without endTime ends at
// startTime + duration.
func DecodeEntries(blob []byte) ([]timelog.Entry, error) {
	data, err := unwrap(blob)
	if err != nil {
		return nil, err
	}
	var recs []entryRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	out := make([]timelog.Entry, 0, len(recs))
	for i, r := range recs {
		if r.Duration < 0 {
			return nil, fmt.Errorf("entry %d: negative duration %d", i, r.Duration)
		}
		if _, err := time.Parse(timelog.DateLayout, r.Date); err != nil {
			return nil, fmt.Errorf("entry %d: date: %w", i, err)
		}
		start, err := parseTime("startTime", r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		d := time.Duration(r.Duration) * time.Millisecond
		end := start.Add(d)
		if r.EndTime != "" {
			if end, err = parseTime("endTime", r.EndTime); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		out = append(out, timelog.Entry{
			ID:        r.ID,
			ProjectID: r.ProjectID,
			StartTime: start,
			EndTime:   end,
			Duration:  d,
			Date:      r.Date,
		})
	}
	return out, nil
}

func EncodeActiveTimer(t timer.Active) ([]byte, error) {
	return wrap(timerRecord{ProjectID: t.ProjectID, StartTime: formatTime(t.StartTime)})
}

// DecodeActiveTimer returns nil when the blob holds JSON null.
func DecodeActiveTimer(blob []byte) (*timer.Active, error) {
	data, err := unwrap(blob)
	if err != nil {
		return nil, err
	}
	var rec *timerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	start, err := parseTime("startTime", rec.StartTime)
	if err != nil {
		return nil, err
	}
	t := timer.Start(rec.ProjectID, start)
	return &t, nil
}

// Load replaces the engine state with the persisted one. Absent or
// malformed blobs load as empty. Entries and a timer that reference unknown
// projects are dropped. Only store I/O errors are returned.
func (e *Engine) Load(ctx context.Context) error {
	var (
		projects []project.Project
		entries  []timelog.Entry
		active   *timer.Active
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		projects, err = loadKey(gctx, e, KeyProjects, DecodeProjects)
		return err
	})
	g.Go(func() (err error) {
		entries, err = loadKey(gctx, e, KeyTimeEntries, DecodeEntries)
		return err
	})
	g.Go(func() (err error) {
		active, err = loadKey(gctx, e, KeyActiveTimer, DecodeActiveTimer)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Blobs hold UTC; restored times carry the engine location like fresh ones.
	for i := range projects {
		projects[i].CreatedAt = projects[i].CreatedAt.In(e.loc)
	}
	for i := range entries {
		entries[i].StartTime = entries[i].StartTime.In(e.loc)
		entries[i].EndTime = entries[i].EndTime.In(e.loc)
	}
	if active != nil {
		active.StartTime = active.StartTime.In(e.loc)
	}

	known := make(map[uuid.UUID]bool, len(projects))
	for _, p := range projects {
		known[p.ID] = true
	}
	kept := entries[:0]
	for _, en := range entries {
		if known[en.ProjectID] {
			kept = append(kept, en)
		}
	}
	if dropped := len(entries) - len(kept); dropped > 0 {
		e.log.Warn("dropped entries of unknown projects", slog.Int("count", dropped))
	}
	if active != nil && !known[active.ProjectID] {
		e.log.Warn("discarded timer of unknown project", slog.String("project_id", active.ProjectID.String()))
		active = nil
	}

	e.mu.Lock()
	e.projects = projects
	e.entries = kept
	e.active = active
	e.mu.Unlock()

	e.log.Info("state loaded",
		slog.Int("projects", len(projects)),
		slog.Int("entries", len(kept)),
		slog.Bool("timer_running", active != nil),
	)
	return nil
}

func loadKey[T any](ctx context.Context, e *Engine, key string, decode func([]byte) (T, error)) (T, error) {
	var zero T
	blob, ok, err := e.kv.Load(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("tracker: load %s: %w", key, err)
	}
	if !ok {
		return zero, nil
	}
	v, err := decode(blob)
	if err != nil {
		e.log.Warn("discarding malformed blob", slog.String("key", key), slog.String("error", err.Error()))
		return zero, nil
	}
	return v, nil
}

// persist runs one store write. Failures are logged, never returned: the
// in-memory state stays authoritative until the next successful write.
func (e *Engine) persist(key string, write func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		e.log.Error("persist failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (e *Engine) save(key string, encode func() ([]byte, error)) {
	e.persist(key, func(ctx context.Context) error {
		blob, err := encode()
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return e.kv.Save(ctx, key, blob)
	})
}

func (e *Engine) saveProjects() {
	e.save(KeyProjects, func() ([]byte, error) { return EncodeProjects(e.projects) })
}

func (e *Engine) saveEntries() {
	e.save(KeyTimeEntries, func() ([]byte, error) { return EncodeEntries(e.entries) })
}

func (e *Engine) saveActiveTimer() {
	if e.active == nil {
		e.persist(KeyActiveTimer, func(ctx context.Context) error { return e.kv.Delete(ctx, KeyActiveTimer) })
		return
	}
	t := *e.active
	e.save(KeyActiveTimer, func() ([]byte, error) { return EncodeActiveTimer(t) })
}
