package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fresh-editor/fresh/internal/session"
)

const attachCWDSentinel = "\x00cwd\x00"

func newRootCmd() *cobra.Command {
	var attachFlag string
	var serverFlag bool
	var sessionNameFlag string
	var stdinFlag bool
	var remoteAddrFlag string

	root := &cobra.Command{
		Use:   "fresh [FILE[:LINE[:COL]]...]",
		Short: "a multi-cursor terminal editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case serverFlag:
				return runServer(sessionNameFlag, remoteAddrFlag, args)
			case stdinFlag || (len(args) == 1 && args[0] == "-"):
				return runStdin()
			case cmd.Flags().Changed("attach"):
				name := attachFlag
				if name == attachCWDSentinel {
					name = ""
				}
				return runAttach(name)
			default:
				return runOpen(args)
			}
		},
	}

	root.Flags().StringVarP(&attachFlag, "attach", "a", "", "attach to a session (default: working directory)")
	root.Flags().Lookup("attach").NoOptDefVal = attachCWDSentinel
	root.Flags().BoolVar(&serverFlag, "server", false, "run as the session server (internal)")
	root.Flags().StringVar(&sessionNameFlag, "session-name", "", "session name for --server")
	root.Flags().BoolVar(&stdinFlag, "stdin", false, "read piped input and open it as a buffer")
	root.Flags().StringVar(&remoteAddrFlag, "remote-addr", "", "also serve the data channel over websocket at this address (--server only)")

	root.AddCommand(sessionCmd())
	return root
}

// runOpen opens args as files against the working-directory session,
// starting its server first if none is alive.
func runOpen(fileArgs []string) error {
	paths, err := session.ResolveForCWD()
	if err != nil {
		return err
	}
	if err := ensureServer(paths, fileArgs); err != nil {
		return err
	}
	return attachInteractive(paths)
}

// runAttach attaches to name (or the working-directory session if name
// is empty), starting its server first if none is alive.
func runAttach(name string) error {
	paths, err := resolvePaths(name)
	if err != nil {
		return err
	}
	if err := ensureServer(paths, nil); err != nil {
		return err
	}
	return attachInteractive(paths)
}

// runStdin reads piped stdin fully, writes it to a scratch file (the
// session's wire protocol only opens files by path, per spec.md §6.3),
// reopens /dev/tty so keyboard input still works despite stdin being a
// pipe, then opens that scratch file like any other file argument.
func runStdin() error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("reopen /dev/tty for keyboard input: %w", err)
	}
	os.Stdin = tty

	tmp, err := os.CreateTemp("", "fresh-stdin-*.txt")
	if err != nil {
		return fmt.Errorf("create scratch file for stdin: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write stdin to scratch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return runOpen([]string{tmp.Name()})
}

func resolvePaths(name string) (session.Paths, error) {
	if name == "" {
		return session.ResolveForCWD()
	}
	return session.Resolve(name)
}
