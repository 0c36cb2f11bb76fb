// Package workspace implements the persistent state layout of spec.md
// §6.4: a workspace file recording the open-file set, saved atomically at
// shutdown and reloaded at startup when no explicit files are given, plus
// per-buffer recovery backups that can be listed and read back at startup.
//
// Grounded on the teacher's internal/history/store.go for the
// MkdirAll-then-marshal-then-write shape, with the write itself hardened
// to a temp-file-then-rename for the "saved atomically" requirement the
// distilled spec states explicitly — the same create-temp/rename sequence
// used by the pack's tessera posix storage layer.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// Entry is one open file recorded in the workspace file.
type Entry struct {
	Path        string       `json:"path"`
	BufferState *BufferState `json:"buffer_state,omitempty"`
}

// BufferState is the optional cursor position carried alongside a path.
type BufferState struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Store owns one session's workspace file and recovery directory, both
// rooted under ~/.fresh/workspaces/<name>, beside the ~/.fresh/sessions
// directory session.Paths uses.
type Store struct {
	dir string
}

// NewStore returns the Store for a session name, creating its directory
// (and the recovery subdirectory) if necessary.
func NewStore(name string) (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".fresh", "workspaces", name)
	if err := os.MkdirAll(filepath.Join(dir, "recovery"), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewStoreAt returns a Store rooted at an explicit directory, for tests.
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "recovery"), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) workspaceFile() string { return filepath.Join(s.dir, "workspace.json") }

func (s *Store) recoveryDir() string { return filepath.Join(s.dir, "recovery") }

// Save atomically persists the open-file set, overwriting any previous
// workspace file (spec.md §6.4: "saved atomically at shutdown").
func (s *Store) Save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.workspaceFile(), data, 0o644)
}

// Load reads the workspace file, returning (nil, nil) if none exists yet
// (first run, or a workspace that was never saved).
func (s *Store) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.workspaceFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// recoveryPath maps a buffer key (the teacher's Store uses a session id
// the same way; here the session server passes the decimal buffer id) to
// its backup file.
func (s *Store) recoveryPath(key string) string {
	return filepath.Join(s.recoveryDir(), key+".recovery")
}

// WriteRecovery writes (or overwrites) the recovery backup for key. The
// session server calls it for every open buffer on each render tick that
// follows an edit, so a crash loses at most the edits since the last such
// tick.
func (s *Store) WriteRecovery(key, path string, content []byte) error {
	rec := recoveryFile{Path: path, Content: content}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return writeAtomic(s.recoveryPath(key), data, 0o644)
}

type recoveryFile struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// ReadRecovery returns the backed-up path and content for key.
func (s *Store) ReadRecovery(key string) (path string, content []byte, err error) {
	data, err := os.ReadFile(s.recoveryPath(key))
	if err != nil {
		return "", nil, err
	}
	var rec recoveryFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", nil, err
	}
	return rec.Path, rec.Content, nil
}

// RemoveRecovery deletes key's backup, called once its edits are saved to
// the real file or the user declines recovery.
func (s *Store) RemoveRecovery(key string) error {
	err := os.Remove(s.recoveryPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ListRecoveries returns the buffer keys with a pending recovery backup,
// sorted for deterministic startup-prompt ordering.
func (s *Store) ListRecoveries() ([]string, error) {
	entries, err := os.ReadDir(s.recoveryDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const suffix = ".recovery"
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			keys = append(keys, name[:len(name)-len(suffix)])
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// WatchRecoveries watches the recovery directory for files created after
// startup — e.g. another client of the same session committing a batch —
// and reports their buffer keys on the returned channel, instead of the
// caller polling ListRecoveries on a timer. The channel is closed when ctx
// is canceled.
func (s *Store) WatchRecoveries(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(s.recoveryDir()); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan string, 16)
	go func() {
		defer w.Close()
		defer close(out)
		const suffix = ".recovery"
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
					select {
					case out <- name[:len(name)-len(suffix)]:
					case <-ctx.Done():
						return
					}
				}
			case <-w.Errors:
				// Surfaced via the teacher's warn-and-continue idiom
				// elsewhere; a watch error here just stops delivering
				// recovery notifications, it doesn't affect editing.
			}
		}
	}()
	return out, nil
}

// writeAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves path
// truncated or half-written.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file into place: %w", err)
	}
	return nil
}
