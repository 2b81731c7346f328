package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"markestedt/maphider/config"
	"markestedt/maphider/feedback"
	"markestedt/maphider/hotkeys"
	"markestedt/maphider/obsws"
	"markestedt/maphider/platform"
	"markestedt/maphider/plugin"
	"markestedt/maphider/storage"
	"markestedt/maphider/toggler"
	"markestedt/maphider/web"
)

// Agent wires OBS, the hotkey registry, settings storage and the settings page around the plugin
type Agent struct {
	cfg    *config.Config
	db     *storage.DB
	client *obsws.Client
	beeper *feedback.Beeper
}

// NewAgent opens storage and prepares the OBS client
func NewAgent(cfg *config.Config) (*Agent, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	db, err := storage.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &Agent{
		cfg:    cfg,
		db:     db,
		client: obsws.NewClient(cfg.OBS.URL, cfg.OBSPassword(), cfg.RequestTimeout()),
	}
	if cfg.Feedback.Beep {
		a.beeper = feedback.NewBeeper()
	}
	return a, nil
}

// WebURL returns the settings page address, or "" when the page is disabled
func (a *Agent) WebURL() string {
	if !a.cfg.Web.Enabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", a.cfg.Web.Port)
}

// Run loads the plugin and blocks until ctx is done, then saves and unloads it
func (a *Agent) Run(ctx context.Context) error {
	defer a.db.Close()
	defer a.client.Close()

	// The client re-dials on the next request, so OBS may start later
	if err := a.client.Connect(ctx); err != nil {
		slog.Warn("OBS not reachable, will retry on first hotkey", "url", a.cfg.OBS.URL, "error", err)
	} else {
		slog.Info("Connected to OBS", "url", a.cfg.OBS.URL)
	}

	registry := hotkeys.NewRegistry(ctx, platform.NewHotkey)
	defer registry.Close()

	p := plugin.New(a.client, registry, []string{a.cfg.Hotkey.Combo})

	var server *web.Server
	if a.cfg.Web.Enabled {
		server = web.NewServer(a.db, p, a.client, a.cfg.Web.Port)
	}
	p.OnFlip(func(f toggler.Flip) { a.recordFlip(server, f) })

	if err := p.Load(a.db); err != nil {
		return fmt.Errorf("failed to load plugin: %w", err)
	}

	var wg sync.WaitGroup
	if server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				slog.Error("Web server error", "error", err)
			}
		}()
	}

	slog.Info("MapHider started", "hotkey", p.Hotkey())

	<-ctx.Done()

	if err := p.Save(a.db); err != nil {
		slog.Warn("Failed to save hotkey", "error", err)
	}
	p.Unload()
	wg.Wait()
	return nil
}

// recordFlip stores a flip in the history and forwards it to the settings page and beeper
func (a *Agent) recordFlip(server *web.Server, f toggler.Flip) {
	t := &storage.Toggle{
		Timestamp: f.Time,
		Edge:      f.Edge.String(),
		Scene:     f.Scene,
		Item:      f.Item,
		Visible:   f.Visible,
	}
	if err := a.db.SaveToggle(t); err != nil {
		slog.Error("Failed to save toggle", "error", err)
	}

	if server != nil {
		server.BroadcastToggle(t.ID, f)
	}
	if a.beeper != nil {
		a.beeper.OnFlip(f)
	}
}
