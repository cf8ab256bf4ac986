package syncing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/features/feedback"
	"github.com/contre95/plexify/src/features/playlists"
	"github.com/contre95/plexify/src/music"
	"github.com/google/uuid"
)

// ErrCyclePanic wraps a panic recovered inside a cycle.
var ErrCyclePanic = errors.New("cycle panicked")

// Catalog resolves references and loads playlist tracks.
type Catalog interface {
	Resolve(ctx context.Context, refs []music.CatalogRef) ([]music.RemotePlaylist, error)
	LoadTracks(ctx context.Context, pl *music.RemotePlaylist) (bool, error)
	Persist() error
}

// Reconciler brings one local playlist in line with its remote counterpart.
type Reconciler interface {
	Reconcile(ctx context.Context, pl music.RemotePlaylist, stats *music.CycleStats) (*playlists.Report, error)
}

// Cleaner applies rating feedback to a set of playlists.
type Cleaner interface {
	Process(ctx context.Context, pls []music.RemotePlaylist, stats *music.CycleStats) feedback.Report
}

// Pacer is reset at the start of every cycle.
type Pacer interface {
	Reset()
}

// History stores finished cycle reports.
type History interface {
	Save(ctx context.Context, report *music.CycleReport) error
	List(ctx context.Context, limit int) ([]music.CycleReport, error)
	Get(ctx context.Context, id string) (*music.CycleReport, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Observer is told about every finished cycle.
type Observer interface {
	Observe(report music.CycleReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(report music.CycleReport)

func (f ObserverFunc) Observe(report music.CycleReport) { f(report) }

// Service runs sync cycles: resolve the configured playlists, reconcile each
// of them, apply rating feedback and report the counters.
type Service struct {
	configManager *config.Manager
	catalog       Catalog
	reconciler    Reconciler
	cleaner       Cleaner
	pacer         Pacer
	history       History

	mu        sync.Mutex // serializes cycles
	stateMu   sync.RWMutex
	observers []Observer
	last      *music.CycleReport
	running   bool
	nextRun   time.Time

	trigger chan struct{}
	after   func(d time.Duration) <-chan time.Time
	now     func() time.Time
}

// NewService creates a new syncing service. cleaner, pacer and history may be nil.
func NewService(cfgManager *config.Manager, catalog Catalog, reconciler Reconciler, cleaner Cleaner, pacer Pacer, history History) *Service {
	return &Service{
		configManager: cfgManager,
		catalog:       catalog,
		reconciler:    reconciler,
		cleaner:       cleaner,
		pacer:         pacer,
		history:       history,
		trigger:       make(chan struct{}, 1),
		after:         time.After,
		now:           time.Now,
	}
}

// AddObserver registers an observer for cycle reports.
func (s *Service) AddObserver(o Observer) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.observers = append(s.observers, o)
}

// RunCycle runs one full cycle and reports it. The returned error is also
// recorded in the report.
func (s *Service) RunCycle(ctx context.Context) (music.CycleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := music.CycleReport{ID: uuid.NewString(), StartedAt: s.now()}
	s.setRunning(true)
	defer s.setRunning(false)
	slog.Info("Starting sync cycle", "id", report.ID)

	stats := &music.CycleStats{}
	if s.pacer != nil {
		s.pacer.Reset()
	}
	err := s.protected(ctx, stats)

	report.FinishedAt = s.now()
	report.Stats = *stats
	if err != nil {
		report.Error = err.Error()
	}
	s.publish(report)
	return report, err
}

func (s *Service) protected(ctx context.Context, stats *music.CycleStats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in sync cycle", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
		}
	}()
	return s.cycle(ctx, stats)
}

func (s *Service) cycle(ctx context.Context, stats *music.CycleStats) error {
	refs, err := s.configManager.Get().Refs()
	if err != nil {
		return fmt.Errorf("invalid catalog references: %w", err)
	}
	pls, err := s.catalog.Resolve(ctx, refs)
	if err != nil {
		return fmt.Errorf("failed to resolve playlists: %w", err)
	}
	slog.Info("Resolved playlists", "count", len(pls))

	loaded := make([]music.RemotePlaylist, 0, len(pls))
	for i := range pls {
		if err := ctx.Err(); err != nil {
			return err
		}
		pl := &pls[i]
		stats.PlaylistsProcessed++
		if _, err := s.catalog.LoadTracks(ctx, pl); err != nil {
			stats.PlaylistsFailed++
			slog.Error("Failed to load playlist", "playlist", pl.Name, "error", err)
			continue
		}
		loaded = append(loaded, *pl)
		if _, err := s.reconciler.Reconcile(ctx, *pl, stats); err != nil {
			stats.PlaylistsFailed++
			slog.Error("Failed to reconcile playlist", "playlist", pl.Name, "error", err)
		}
	}

	if s.cleaner != nil && ctx.Err() == nil {
		s.cleaner.Process(ctx, loaded, stats)
	}
	if err := s.catalog.Persist(); err != nil {
		slog.Warn("Failed to persist playlist snapshots", "error", err)
	}
	return ctx.Err()
}

// publish logs the summary line, stores the report and notifies observers.
func (s *Service) publish(report music.CycleReport) {
	logger := slog.With("id", report.ID, "duration", report.Duration().Round(time.Millisecond).String())
	if report.Failed() {
		logger.Error("Sync cycle failed", "error", report.Error, "summary", report.Stats.Summary())
	} else {
		logger.Info("Sync cycle finished", "summary", report.Stats.Summary())
	}

	if s.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.history.Save(ctx, &report); err != nil {
			slog.Warn("Failed to store cycle report", "error", err)
		}
		if retention := s.configManager.Get().Database.Retention; retention > 0 {
			if n, err := s.history.Prune(ctx, report.FinishedAt.Add(-retention)); err != nil {
				slog.Warn("Failed to prune cycle history", "error", err)
			} else if n > 0 {
				slog.Debug("Pruned cycle history", "removed", n)
			}
		}
	}

	s.stateMu.Lock()
	s.last = &report
	observers := append([]Observer(nil), s.observers...)
	s.stateMu.Unlock()
	for _, o := range observers {
		o.Observe(report)
	}
}

func (s *Service) setRunning(running bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.running = running
}

// Status is a snapshot of the loop state.
type Status struct {
	Running bool               `json:"running"`
	NextRun time.Time          `json:"nextRun"`
	Last    *music.CycleReport `json:"last,omitempty"`
}

// Status returns the current loop state.
func (s *Service) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st := Status{Running: s.running, NextRun: s.nextRun}
	if s.last != nil {
		last := *s.last
		st.Last = &last
	}
	return st
}

// LastReport returns the most recent report of this process, if any.
func (s *Service) LastReport() (music.CycleReport, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.last == nil {
		return music.CycleReport{}, false
	}
	return *s.last, true
}

// History exposes the report store, nil when none is configured.
func (s *Service) History() History {
	return s.history
}
