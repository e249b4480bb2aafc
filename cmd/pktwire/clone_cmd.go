package pktwire

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mhauser/pktwire/pkg/orchestrate"
	"github.com/mhauser/pktwire/pkg/remote"
)

func newCloneCmd() *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "clone URL [NAME]",
		Short: "Clone a single branch from a remote into a fresh local store",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			name := "origin"
			if len(args) > 1 {
				name = args[1]
			}
			if branch == "" {
				branch = "refs/heads/main"
			}

			objects, err := openObjectStore(cmd)
			if err != nil {
				return err
			}
			defer objects.Close()

			rs, rc, err := openRemoteConfig(cmd)
			if err != nil {
				return err
			}
			r := &remote.Remote{URL: url}
			rc.Set(name, r)
			if err := rs.Save(rc); err != nil {
				return err
			}

			ep, origin, err := resolveEndpoint(r)
			if err != nil {
				return err
			}
			client, _, err := newHTTPClient(cmd)
			if err != nil {
				return err
			}

			notifier := newBarNotifier(false)
			opts := orchestrate.DefaultOptions()
			opts.Notify = notifier
			defer notifier.done()

			update, err := orchestrate.Clone(client, ep, objects, objects, branch, branch, opts)
			if err != nil {
				return handleAuthError(cmd, origin, err)
			}
			printRefUpdate(cmd, update)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "remote branch to clone (default \"refs/heads/main\")")
	return cmd
}

// printRefUpdate renders one ref update the way displayRefUpdate colorizes
// its one-character outcome codes: green for a clean advance, yellow for a
// forced or tag update, red for a rejection.
func printRefUpdate(cmd *cobra.Command, u orchestrate.RefUpdate) {
	code := string(u.Outcome.Code())
	switch u.Outcome {
	case orchestrate.RefFastForward, orchestrate.RefNew:
		code = color.GreenString(code)
	case orchestrate.RefForcedUpdate, orchestrate.RefTagUpdate:
		code = color.YellowString(code)
	case orchestrate.RefRejected:
		code = color.RedString(code)
	}
	if u.Err != nil {
		cmd.Printf(" %s %s -> %s  %v\n", code, u.Remote, u.Local, u.Err)
		return
	}
	cmd.Printf(" %s %s -> %s  %s..%s\n", code, u.Remote, u.Local, shortID(u.Old.String()), shortID(u.New.String()))
}

func shortID(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
