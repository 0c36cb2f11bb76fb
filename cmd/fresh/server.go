package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fresh-editor/fresh/internal/config"
	"github.com/fresh-editor/fresh/internal/editor"
	"github.com/fresh-editor/fresh/internal/logger"
	"github.com/fresh-editor/fresh/internal/session"
	"github.com/fresh-editor/fresh/internal/workspace"
)

const serverStartTimeout = 5 * time.Second

// ensureServer starts paths' session server if it isn't already alive,
// waiting for the pid file to appear before returning (spec.md §8
// property 8: a client that sees the pid file connects without backoff).
// fileArgs is forwarded as positional arguments to the spawned server so
// it opens them before its first render.
func ensureServer(paths session.Paths, fileArgs []string) error {
	if paths.ReadLivePID() != 0 {
		return nil
	}
	paths.CleanupStale()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve fresh executable: %w", err)
	}

	args := []string{"--server", "--session-name", paths.Name}
	args = append(args, fileArgs...)

	dir := filepath.Dir(paths.PidFile)
	logPath := filepath.Join(dir, paths.Name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("start session server: %w", err)
	}

	deadline := time.Now().Add(serverStartTimeout)
	for time.Now().Before(deadline) {
		if paths.ReadLivePID() != 0 {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("session server did not start within %s (check %s)", serverStartTimeout, logPath)
}

// loadConfig reads the two-tier ~/.fresh + <project>/.fresh settings.yaml
// layers (SPEC_FULL.md §3.2) and returns their merge. Any load error (a
// settings file exists but fails to parse, or the directories can't be
// resolved) is logged and swallowed, falling back to the built-in
// defaults, the same warn-and-continue treatment workspace load failures
// get below.
func loadConfig() *config.Config {
	mgr := config.NewManager()

	userDir, err := config.GetUserConfigDir()
	if err != nil {
		logger.Warn("failed to resolve user config dir", "err", err)
		return mgr.Get()
	}
	projectDir, err := config.GetProjectDir()
	if err != nil {
		logger.Warn("failed to resolve project config dir", "err", err)
		return mgr.Get()
	}
	if err := mgr.Load(userDir, projectDir); err != nil {
		logger.Warn("failed to load settings", "err", err)
	}
	return mgr.Get()
}

// runServer is the --server entry point: it owns the Editor and blocks
// in Server.Run until shutdown.
func runServer(name, remoteAddr string, fileArgs []string) error {
	if name == "" {
		return fmt.Errorf("--server requires --session-name")
	}
	paths, err := session.Resolve(name)
	if err != nil {
		return err
	}

	if err := logger.Init("info", filepath.Join(filepath.Dir(paths.PidFile), name+".slog")); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ws, err := workspace.NewStore(name)
	if err != nil {
		return fmt.Errorf("open workspace store: %w", err)
	}

	cfg := loadConfig()

	ed := editor.New()
	for k, v := range cfg.Keybindings {
		ed.Bindings[k] = v
	}
	for _, a := range fileArgs {
		loc := session.ParseFileLocation(a)
		if _, err := ed.OpenFile(loc.Path); err != nil {
			logger.Warn("failed to open file at startup", "path", loc.Path, "err", err)
		}
	}

	// No files named on the command line: resume whatever was open last
	// time this session exited (spec.md §6.4).
	if len(fileArgs) == 0 {
		entries, err := ws.Load()
		if err != nil {
			logger.Warn("failed to load workspace", "err", err)
		}
		for _, e := range entries {
			if _, err := ed.OpenFile(e.Path); err != nil {
				logger.Warn("failed to reopen workspace file", "path", e.Path, "err", err)
			}
		}
	}

	if keys, err := ws.ListRecoveries(); err != nil {
		logger.Warn("failed to list recovery files", "err", err)
	} else if len(keys) > 0 {
		logger.Warn("pending crash recovery available", "count", len(keys))
	}

	srv := session.NewServer(paths, ed, logger.Log, cfg.IdleTimeout())
	srv.SetRenderInterval(cfg.FrameInterval())
	srv.SetWorkspace(ws)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if remoteAddr != "" {
		go func() {
			if err := srv.ListenRemote(ctx, remoteAddr); err != nil {
				logger.Warn("remote listener stopped", "err", err)
			}
		}()
	}

	runErr := srv.Run(ctx)
	saveWorkspace(ws, ed)
	return runErr
}

// saveWorkspace persists every currently open buffer's path at shutdown
// (spec.md §6.4: "saved atomically at shutdown") so the next `--server`
// launch with no file arguments resumes where this one left off.
func saveWorkspace(ws *workspace.Store, ed *editor.Editor) {
	var entries []workspace.Entry
	for _, id := range ed.OpenBufferIDs() {
		st, ok := ed.State(id)
		if !ok {
			continue
		}
		path := st.Buffer.Path()
		if path == "" {
			continue
		}
		entries = append(entries, workspace.Entry{Path: path})
	}
	if err := ws.Save(entries); err != nil {
		logger.Warn("failed to save workspace", "err", err)
	}
}

// attachInteractive dials paths and pumps the local terminal through it
// until the server or user ends the session.
func attachInteractive(paths session.Paths) error {
	cols, rows := 80, 24
	client, err := session.Dial(paths, cols, rows)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer client.Close()

	code, err := client.Run()
	if err != nil {
		return err
	}
	if code != session.ExitNormal {
		os.Exit(code)
	}
	return nil
}
