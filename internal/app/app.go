// Package app wires the library, playback engine and media session together.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/config"
	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/mediasession"
	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/source"
	"github.com/llehouerou/cadence/internal/state"
)

// Options override the components App builds by default. Tests use them to
// run without audio hardware or D-Bus.
type Options struct {
	Prompter library.Prompter     // nil denies every prompt
	Output   player.Interface     // default: the speaker
	Surface  mediasession.Surface // default: MPRIS when enabled
	InMemory bool                 // use a throwaway database
}

// App is a running player.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	State   *state.Manager
	Library *library.Library
	Engine  *playback.Engine
	Bridge  *mediasession.Bridge

	surface closer
	watcher *library.Watcher
	cancel  context.CancelFunc
}

type closer interface {
	Close() error
}

// New opens the database, loads the library and starts the engine and the
// media session bridge.
func New(cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		stateMgr *state.Manager
		err      error
	)
	if opts.InMemory {
		stateMgr, err = state.OpenMemory()
	} else {
		stateMgr, err = state.Open(cfg.DBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	prompter := opts.Prompter
	if cfg.Permissions.AutoGrant {
		prompter = library.AutoGrant
	}

	lib := library.New(stateMgr.DB(), prompter, log)
	if err := lib.Load(); err != nil {
		stateMgr.Close()
		return nil, fmt.Errorf("load library: %w", err)
	}

	output := opts.Output
	if output == nil {
		output = player.New()
	}

	engine := playback.New(output, source.NewResolver(log, nil), playback.Options{
		Logger:           log,
		HistoryLimit:     cfg.Playback.HistoryLimit,
		RestartThreshold: cfg.Playback.RestartThreshold,
		DisablePreload:   !cfg.Playback.Preload,
		Settings:         stateMgr,
		OnTrackFinished: func(t *library.Track) {
			if err := lib.IncrementPlayCount(t.ID); err != nil {
				log.Warn("increment play count", zap.String("track", t.ID), zap.Error(err))
			}
		},
	})

	if settings, err := stateMgr.GetSettings(); err == nil {
		engine.Restore(settings.Volume, settings.Shuffle)
	} else {
		log.Warn("load settings", zap.Error(err))
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		State:   stateMgr,
		Library: lib,
		Engine:  engine,
	}

	surface := opts.Surface
	if surface == nil {
		surface = a.newSurface()
	}
	artwork := mediasession.NewArtworkStore(cfg.Artwork.Dir, uint(cfg.Artwork.Size))
	a.Bridge = mediasession.NewBridge(engine, surface, artwork, log)
	a.Bridge.Start()

	return a, nil
}

func (a *App) newSurface() mediasession.Surface {
	if !a.Config.MPRIS.Enabled {
		return mediasession.Nop{}
	}
	m, err := mediasession.NewMPRIS(mediasession.MPRISOptions{
		Name:       a.Config.MPRIS.Name,
		Identity:   "Cadence",
		Position:   a.Engine.Position,
		Volume:     a.Engine.Volume,
		Shuffle:    a.Engine.Shuffle,
		SetShuffle: a.Engine.SetShuffle,
		Logger:     a.Log,
	})
	if err != nil {
		a.Log.Warn("media session unavailable", zap.Error(err))
		return mediasession.Nop{}
	}
	a.surface = m
	return m
}

// Watch starts refreshing the library on file changes when enabled.
func (a *App) Watch(ctx context.Context) error {
	if !a.Config.Library.Watch || a.watcher != nil {
		return nil
	}
	w, err := library.NewWatcher(a.Library, a.Config.Library.WatchDebounce, a.Log)
	if err != nil {
		return err
	}
	ctx, a.cancel = context.WithCancel(ctx)
	w.Start(ctx)
	a.watcher = w
	return nil
}

// AddFolder grants and indexes root, and watches it when watching is on.
func (a *App) AddFolder(ctx context.Context, root string, progress chan<- library.ScanProgress) (*library.ScanStats, error) {
	stats, err := a.Library.AddFolder(ctx, root, progress)
	if err != nil {
		return nil, err
	}
	if a.watcher != nil {
		a.watcher.Add(root)
	}
	return stats, nil
}

// SyncConfiguredSources indexes every folder listed in the configuration
// that the library does not know yet.
func (a *App) SyncConfiguredSources(ctx context.Context) error {
	var errs []error
	for _, root := range a.Config.LibrarySources {
		ok, err := a.Library.HasGrant(root)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			continue
		}
		if _, err := a.AddFolder(ctx, root, nil); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", root, err))
		}
	}
	return errors.Join(errs...)
}

// Close shuts everything down in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		a.cancel()
		errs = append(errs, a.watcher.Close())
	}
	errs = append(errs, a.Bridge.Close())
	if a.surface != nil {
		errs = append(errs, a.surface.Close())
	}
	errs = append(errs, a.Engine.Close())
	errs = append(errs, a.State.Close())
	return errors.Join(errs...)
}
