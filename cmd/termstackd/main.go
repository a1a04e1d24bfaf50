// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/termstackd/main.go
// Summary: Entrypoint wiring config, the cell stack coordinator, the
// PTY backend, the ipc server and daemon lifecycle together.
// Usage: Run `termstackd` to start the compositor core (it runs in the
// calling process until SIGINT/SIGTERM and does not fork), or
// `termstackd -foreground` to also drive a debug tcell renderer
// against the controlling terminal.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/termstack/termstack/internal/classify"
	"github.com/termstack/termstack/internal/collab"
	"github.com/termstack/termstack/internal/config"
	"github.com/termstack/termstack/internal/daemon"
	"github.com/termstack/termstack/internal/ipcserver"
	"github.com/termstack/termstack/internal/ptyterm"
	"github.com/termstack/termstack/internal/scrollindex"
	"github.com/termstack/termstack/internal/surfaceadapter"
	"github.com/termstack/termstack/internal/tuirender"
	"github.com/termstack/termstack/stack"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "termstackd: %v\n", err)
		os.Exit(1)
	}
}

// paths bundles the filesystem locations termstackd reads and writes,
// all rooted under the user's config directory the way config.Load
// already resolves its own file.
type paths struct {
	stateDir string
	socket   string
	pidFile  string
	indexDB  string
}

func resolvePaths() (paths, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return paths{}, fmt.Errorf("resolve config dir: %w", err)
	}
	stateDir := filepath.Join(dir, "termstack")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return paths{}, fmt.Errorf("create state dir: %w", err)
	}
	return paths{
		stateDir: stateDir,
		socket:   filepath.Join(stateDir, "termstackd.sock"),
		pidFile:  filepath.Join(stateDir, "termstackd.pid"),
		indexDB:  filepath.Join(stateDir, "scrollback.db"),
	}, nil
}

func run() error {
	fs := flag.NewFlagSet("termstackd", flag.ContinueOnError)
	foreground := fs.Bool("foreground", false, "draw a debug tcell view of the cell stack to the controlling terminal")
	stop := fs.Bool("stop", false, "stop a running daemon and exit")
	status := fs.Bool("status", false, "print daemon status and exit")
	socketFlag := fs.String("socket", "", "override the Unix socket path")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	p, err := resolvePaths()
	if err != nil {
		return err
	}
	if *socketFlag != "" {
		p.socket = *socketFlag
	}

	pidFile := daemon.NewPIDFile(p.pidFile)
	ctx := context.Background()

	switch {
	case *status:
		return handleStatus(ctx, pidFile, p.socket)
	case *stop:
		return handleStop(pidFile)
	default:
		return handleStart(p, pidFile, *foreground)
	}
}

func handleStatus(ctx context.Context, pidFile *daemon.PIDFile, socket string) error {
	state := daemon.GetState(ctx, pidFile, socket)
	fmt.Println(state)
	return nil
}

func handleStop(pidFile *daemon.PIDFile) error {
	pid, err := pidFile.Read()
	if err != nil {
		fmt.Println("not running")
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pidFile.Remove()
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Already dead; clean up the stale file rather than erroring.
		return pidFile.Remove()
	}
	fmt.Printf("sent SIGTERM to %d\n", pid)
	return nil
}

func handleStart(p paths, pidFile *daemon.PIDFile, foreground bool) error {
	if state := daemon.GetState(context.Background(), pidFile, p.socket); state == daemon.StateRunning {
		return fmt.Errorf("termstackd already running (pid file %s)", pidFile.Path())
	}
	if err := pidFile.Write(os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer pidFile.Remove()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	index, err := scrollindex.Open(p.indexDB)
	if err != nil {
		return fmt.Errorf("open scrollback index: %w", err)
	}
	defer index.Close()

	surfaces := surfaceadapter.New()

	sink := &coordLineSink{}
	backend := ptyterm.NewBackend(sink)
	backend.SetIndexer(index)
	launcher := ptyterm.Launcher{}

	coord := stack.NewCoordinator(stack.Config{
		Heights:         stack.DefaultHeightDefaults(),
		Gap:             cfg.GapSize,
		ViewportHeight:  800,
		AutoScrollOnNew: cfg.AutoScrollOnNew,
	}, backend, launcher, surfaces)
	sink.coord = coord

	var classifier collab.Classifier = classify.HeuristicClassifier{}
	server := ipcserver.New(p.socket, coord, classifier, surfaces)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	defer server.Stop()

	watcher, err := config.Watch()
	if err != nil {
		fmt.Fprintf(os.Stderr, "termstackd: config watch disabled: %v\n", err)
	} else {
		defer watcher.Stop()
		go watchConfig(coord, watcher)
	}

	go coord.Run()
	defer coord.Stop()

	if foreground {
		return runForegroundDebugView(coord)
	}

	waitForSignal()
	return nil
}

// coordLineSink adapts ptyterm.LineSink onto the coordinator's single
// event thread via Post, so the PTY reader goroutines never touch
// Coordinator state directly.
type coordLineSink struct {
	coord *stack.Coordinator
}

func (s *coordLineSink) OnLine(id stack.TerminalID) {
	s.coord.Post(func() { s.coord.OnTerminalLine(id) })
}

func (s *coordLineSink) OnAltScreenEnter(id stack.TerminalID) {
	s.coord.Post(func() { s.coord.OnTerminalAltScreenEnter(id) })
}

func (s *coordLineSink) OnAltScreenExit(id stack.TerminalID) {
	s.coord.Post(func() { s.coord.OnTerminalAltScreenExit(id) })
}

func (s *coordLineSink) OnExit(id stack.TerminalID) {
	s.coord.Post(func() { s.coord.OnTerminalExit(id) })
}

// watchConfig logs reloaded tunables. Coordinator.Config is fixed at
// construction, so applying a live reload onto a running coordinator
// is not wired yet; this at least surfaces that a reload happened
// instead of silently dropping it.
func watchConfig(coord *stack.Coordinator, watcher *config.Watcher) {
	for range watcher.Updates {
		log.Printf("termstackd: config reloaded; restart to apply gap/auto-scroll changes")
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// runForegroundDebugView drives a tcell screen showing cell boundaries
// and titles, refreshed on a fixed tick, until interrupted. This is a
// debug aid; actual cell content rendering belongs to the terminal and
// GUI collaborators, out of scope here.
func runForegroundDebugView(coord *stack.Coordinator) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	driver := tuirender.NewTcellScreenDriver(screen)
	if err := driver.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer driver.Fini()

	renderer := tuirender.New(driver)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	const rowHeight = 16
	for {
		select {
		case <-sigCh:
			return nil
		case ev := <-events:
			switch e := ev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyCtrlC || e.Rune() == 'q' {
					return nil
				}
			}
		case <-ticker.C:
			renderer.Draw(coord.Model(), coord.Layout(), rowHeight)
		}
	}
}
