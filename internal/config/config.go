// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/config/config.go
// Summary: Loads termstackd configuration from
// ~/.config/termstack/config.json and watches it for changes.

package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Config holds the tunables the rest of the application reads at
// startup. Watch delivers reloaded values, but a running coordinator
// keeps the values it was constructed with.
type Config struct {
	// MinCellHeight is the smallest height, in pixels, any cell may be
	// squeezed to before its content is clipped rather than shrunk
	// further.
	MinCellHeight int `json:"minCellHeight"`
	// GapSize is inserted between adjacent cells in the stack.
	GapSize int `json:"gapSize"`
	// AutoScrollOnNew mirrors the stack engine's sticky auto-scroll
	// policy default.
	AutoScrollOnNew bool `json:"autoScrollOnNew"`
	// ClientSideDecoratedApps lists command names that should be
	// launched as client-decorated external cells instead of the
	// server-decorated default.
	ClientSideDecoratedApps []string `json:"clientSideDecoratedApps"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		MinCellHeight:           24,
		GapSize:                 0,
		AutoScrollOnNew:         true,
		ClientSideDecoratedApps: nil,
	}
}

func path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "termstack", "config.json"), nil
}

// Load reads ~/.config/termstack/config.json, falling back to Default
// if the file does not exist.
func Load() (*Config, error) {
	cfg := Default()

	p, err := path()
	if err != nil {
		log.Printf("config: failed to resolve user config dir: %v", err)
		return cfg, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: no config file at %s, using defaults", p)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	log.Printf("config: loaded from %s", p)
	return cfg, nil
}

// Save writes the configuration back to disk, creating the parent
// directory if needed.
func (c *Config) Save() error {
	p, err := path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return err
	}
	log.Printf("config: saved to %s", p)
	return nil
}

// Watcher reloads the config file on change and delivers the new value
// on Updates. Stop releases the underlying fsnotify watcher.
type Watcher struct {
	fsw     *fsnotify.Watcher
	Updates chan *Config
	done    chan struct{}
}

// Watch starts watching the config file's directory for writes. fsnotify
// watches directories rather than files directly because editors
// typically replace the file (rename-over-write) instead of writing in
// place, which a direct file watch would miss.
func Watch() (*Watcher, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, Updates: make(chan *Config, 1), done: make(chan struct{})}
	go w.loop(p)
	return w, nil
}

func (w *Watcher) loop(target string) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(target) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load()
			if err != nil {
				log.Printf("config: reload after %s failed: %v", ev.Op, err)
				continue
			}
			select {
			case w.Updates <- cfg:
			default:
				// Drop the stale pending update; the new one supersedes it.
				select {
				case <-w.Updates:
				default:
				}
				w.Updates <- cfg
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Stop ends the watch goroutine and releases the fsnotify handle.
func (w *Watcher) Stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.fsw.Close()
}
