package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"profile-selector/pkg/manager"
)

// app is the wired selector shared by the commands.
type app struct {
	cfg      *manager.Config
	state    *manager.StateFile
	prefs    *manager.PingPrefs
	sel      *manager.Selector
	notifier *manager.PingNotifier
	logger   *log.Logger
	logClose io.Closer
}

// openApp loads the store and state and runs the first load. The monitor
// only runs when withMonitor is set; one-shot commands never probe.
func openApp(ctx context.Context, withMonitor bool) (*app, error) {
	logger, closer, err := manager.NewLogger(manager.LogOptions{Path: flags.logPath})
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger, logClose: closer}

	cfg, path, err := manager.LoadConfig(flags.config)
	switch {
	case errors.Is(err, manager.ErrConfigNotFound):
		if path = flags.config; path == "" {
			if path, err = manager.DefaultConfigPath(); err != nil {
				a.Close()
				return nil, err
			}
		}
		manager.Logf(logger, "[CONFIG] no store yet; will create %s on first change", path)
		cfg = manager.NewConfig(path)
	case err != nil:
		a.Close()
		return nil, err
	default:
		manager.Logf(logger, "[CONFIG] loaded %s", path)
	}
	a.cfg = cfg

	state, err := manager.OpenStateFile("")
	if err != nil {
		manager.Logf(logger, "[CONFIG] state: %v (starting empty)", err)
		state = manager.NewStateFile("", nil)
	}
	a.state = state
	a.prefs = &manager.PingPrefs{Config: cfg, State: state, Logger: logger}

	var extras manager.ExtrasStore
	if dir, err := manager.DefaultExtrasDir(); err == nil {
		extras.Dir = dir
	}

	var mon *manager.Monitor
	a.notifier = manager.NewPingNotifier(0)
	if withMonitor {
		mon = manager.NewMonitor(manager.MonitorOptions{
			Interval: flags.interval,
			Timeout:  flags.timeout,
			Prober:   prober(),
			Prefs:    a.prefs,
			Logger:   logger,
			OnChange: a.notifier.Notify,
		})
	}

	a.sel = manager.NewSelector(manager.SelectorOptions{
		Source: &manager.ConfigSource{
			Config:    cfg,
			Providers: manager.DefaultProviders(extras),
			Extras:    extras,
			State:     state,
			Logger:    logger,
		},
		Store:   cfg,
		Monitor: mon,
		Editor:  manager.FormEditor{Groups: cfg.Registry},
		Extras:  extras,
		Logger:  logger,
	})
	if err := a.sel.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func prober() manager.Prober {
	if flags.tcpPort > 0 {
		return manager.TCPProber{Port: flags.tcpPort}
	}
	return manager.SystemPinger{}
}

// watcher returns a store watcher, or nil when the store's directory does
// not exist yet.
func (a *app) watcher() *manager.ConfigWatcher {
	path := a.cfg.Path()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil
	}
	return &manager.ConfigWatcher{Path: path, Selector: a.sel, Logger: a.logger}
}

// resolve loads the named profile or fails with a usable message.
func (a *app) resolve(ref string) (manager.Profile, error) {
	p, ok := a.sel.Lookup(ref)
	if !ok {
		return manager.Profile{}, fmt.Errorf("no profile matches %q", ref)
	}
	return p, nil
}

func (a *app) Close() {
	if a.sel != nil {
		a.sel.Close()
	}
	if a.logClose != nil {
		_ = a.logClose.Close()
	}
}
