// Package session implements the session server/client relay of spec.md
// §4.9/§4.10: a long-lived server owning an Editor, attached to by zero or
// more thin clients over a control socket (line-delimited JSON) and a data
// socket (raw bytes). Grounded on the teacher's per-user runtime directory
// layout (internal/config/paths.go) and its pid-file readiness signal
// (internal/egg/server.go's egg.pid).
package session

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Paths is the socket/pid layout for one named session, per spec.md §6.2.
type Paths struct {
	Name        string
	ControlSock string
	DataSock    string
	PidFile     string
}

// runtimeDir returns the per-user runtime directory sessions live under,
// mirroring the teacher's GetUserConfigDir but rooted for fresh.
func runtimeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".fresh", "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create runtime dir: %w", err)
	}
	return dir, nil
}

// RuntimeDir exposes runtimeDir for cmd/fresh's `session list`, which
// needs to scan every *.pid file rather than resolve a single name.
func RuntimeDir() (string, error) {
	return runtimeDir()
}

// ListNames returns the session name for every *.pid file under the
// runtime directory, regardless of whether that process is still alive.
func ListNames() ([]string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		const suffix = ".pid"
		n := e.Name()
		if len(n) > len(suffix) && n[len(n)-len(suffix):] == suffix {
			names = append(names, n[:len(n)-len(suffix)])
		}
	}
	return names, nil
}

// NameForCWD derives a deterministic, URL-safe session name from an
// absolute working directory, used when the user didn't supply one
// (spec.md §6.2: "a URL-safe encoding of the absolute working directory").
func NameForCWD(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:20]
}

// Resolve builds the Paths for a session name.
func Resolve(name string) (Paths, error) {
	dir, err := runtimeDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		Name:        name,
		ControlSock: filepath.Join(dir, name+".ctrl.sock"),
		DataSock:    filepath.Join(dir, name+".data.sock"),
		PidFile:     filepath.Join(dir, name+".pid"),
	}, nil
}

// ResolveForCWD resolves Paths for the session implicitly named after cwd.
func ResolveForCWD() (Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Paths{}, err
	}
	abs, err := filepath.Abs(wd)
	if err != nil {
		return Paths{}, err
	}
	return Resolve(NameForCWD(abs))
}

// ReadLivePID returns the pid recorded in p.PidFile if the file exists and
// that process is still alive, or 0 if the session is absent or stale.
// Errors reading the file are treated as "absent", not propagated, since
// the caller's only decision is whether to start a fresh server.
func (p Paths) ReadLivePID() int {
	data, err := os.ReadFile(p.PidFile)
	if err != nil {
		return 0
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0
	}
	if !processAlive(pid) {
		return 0
	}
	return pid
}

// CleanupStale removes the pid file and both sockets left behind by a dead
// server (spec.md §7 "stale session" error kind).
func (p Paths) CleanupStale() {
	os.Remove(p.PidFile)
	os.Remove(p.ControlSock)
	os.Remove(p.DataSock)
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 checks liveness
	// without actually delivering one (same technique as the teacher's
	// shutdown-then-poll pattern in internal/egg/server.go).
	return proc.Signal(syscall.Signal(0)) == nil
}
