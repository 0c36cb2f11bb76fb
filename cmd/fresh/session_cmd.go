package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fresh-editor/fresh/internal/session"
)

// sessionCmd groups the `fresh --cmd session ...` subcommands of
// spec.md §6.1, grounded on the teacher's one-function-per-subcommand
// cobra layout (cmd/wt/main.go's timelineCmd/statusCmd/etc).
func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "manage session servers",
	}
	cmd.AddCommand(
		sessionListCmd(),
		sessionAttachCmd(),
		sessionNewCmd(),
		sessionKillCmd(),
		sessionOpenFileCmd(),
	)
	return cmd
}

func sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list known sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := session.ListNames()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tPID")
			for _, name := range names {
				paths, err := session.Resolve(name)
				if err != nil {
					continue
				}
				pid := paths.ReadLivePID()
				status := "dead"
				if pid != 0 {
					status = "alive"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", name, status, pid)
			}
			return w.Flush()
		},
	}
}

func sessionAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach [NAME]",
		Short: "attach to a session, starting it if dead",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runAttach(name)
		},
	}
}

func sessionNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new NAME [FILES...]",
		Short: "start and attach to a named session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			files := args[1:]
			paths, err := session.Resolve(name)
			if err != nil {
				return err
			}
			if err := ensureServer(paths, files); err != nil {
				return err
			}
			return attachInteractive(paths)
		},
	}
}

func sessionKillCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "kill [NAME]",
		Short: "kill one or all sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				names, err := session.ListNames()
				if err != nil {
					return err
				}
				for _, n := range names {
					if err := killSession(n); err != nil {
						fmt.Fprintf(os.Stderr, "fresh: kill %s: %v\n", n, err)
					}
				}
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("kill requires NAME or --all")
			}
			return killSession(args[0])
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "kill every known session")
	return cmd
}

func killSession(name string) error {
	paths, err := session.Resolve(name)
	if err != nil {
		return err
	}
	if paths.ReadLivePID() == 0 {
		paths.CleanupStale()
		return nil
	}
	client, err := session.Dial(paths, 80, 24)
	if err != nil {
		return fmt.Errorf("dial %s: %w", name, err)
	}
	defer client.Close()
	return client.Quit()
}

func sessionOpenFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open-file NAME|. FILES...",
		Short: "push files to a session, starting it if needed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if name == "." {
				name = ""
			}
			files := args[1:]

			paths, err := resolvePaths(name)
			if err != nil {
				return err
			}

			alreadyAlive := paths.ReadLivePID() != 0
			if err := ensureServer(paths, files); err != nil {
				return err
			}
			if alreadyAlive {
				client, err := session.Dial(paths, 80, 24)
				if err != nil {
					return err
				}
				defer client.Close()
				locs := make([]session.FileLocation, len(files))
				for i, f := range files {
					locs[i] = session.ParseFileLocation(f).ToFileLocation()
				}
				if err := client.OpenFiles(locs); err != nil {
					return err
				}
				return nil
			}
			return withExitCode(2, fmt.Errorf("started session %q; attach with `fresh --cmd session attach %s`", paths.Name, paths.Name))
		},
	}
}
