// Package fs provides the Filesystem abstraction the editor core uses for
// every disk touch and subprocess spawn, so buffer load/save and the
// remote-file routing in spec.md §6.1 can be tested without a real disk.
// Grounded on the teacher's interfaces.FileSystem
// (internal/interfaces/filesystem.go), extended with a Spawn operation for
// the narrow "external command" need (a plugin host's language server,
// the $EDITOR invoked from a rename prompt, etc.) that the teacher's egg
// server starts via github.com/creack/pty.
package fs

import (
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// Filesystem is the narrow disk surface the editor core depends on.
type Filesystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	ReadDir(path string) ([]os.DirEntry, error)
	Remove(path string) error
	IsNotExist(err error) bool
	Spawn(name string, args ...string) (*os.File, *exec.Cmd, error)
}

// OS implements Filesystem against the real operating system.
type OS struct{}

// New returns the real-disk Filesystem implementation.
func New() *OS { return &OS{} }

func (OS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (OS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OS) ReadDir(path string) ([]os.DirEntry, error) { return os.ReadDir(path) }

func (OS) Remove(path string) error { return os.Remove(path) }

func (OS) IsNotExist(err error) bool { return os.IsNotExist(err) }

// Spawn launches name with args attached to a new pty, returning the
// master end and the running command. Callers are responsible for closing
// the returned file once the command exits.
func (OS) Spawn(name string, args ...string) (*os.File, *exec.Cmd, error) {
	cmd := exec.Command(name, args...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, nil, err
	}
	return ptmx, cmd, nil
}
