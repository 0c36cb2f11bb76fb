// Command fresh is the CLI surface of spec.md §6.1: it either opens files
// against a session (starting the session server if one isn't already
// running), attaches to one, manages sessions directly (list/new/kill/
// open-file), or — behind --server — runs as the session server itself.
//
// Grounded on the teacher's cmd/wt/main.go root-command-plus-subcommands
// shape (spf13/cobra, one function per subcommand) and the detached
// self-exec pattern of cmd/wt/egg.go's spawnEgg (Setsid, poll for a
// readiness file).
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	args := stripCmdFlag(os.Args[1:])
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fresh:", err)
		os.Exit(exitCodeFor(err))
	}
}

// stripCmdFlag rewrites `fresh --cmd session list` into `fresh session
// list`. Session management is implemented as an ordinary cobra
// subcommand tree; --cmd is only the CLI spelling spec.md §6.1 names at
// the surface.
func stripCmdFlag(args []string) []string {
	if len(args) > 0 && args[0] == "--cmd" {
		return args[1:]
	}
	return args
}

// exitCodeError lets a subcommand's RunE request a specific process exit
// code, per spec.md §6.1: 0 normal, 1 error, 2 "session was started and
// files were opened; caller may spawn a terminal to attach".
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: code, err: err}
}

func exitCodeFor(err error) int {
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}
