package pktwire

import (
	"github.com/spf13/cobra"

	"github.com/mhauser/pktwire/pkg/orchestrate"
)

func newFetchCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "fetch [REMOTE] [REFSPEC...]",
		Short: "Fetch refs from a remote, applying its configured or given refspecs",
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := openObjectStore(cmd)
			if err != nil {
				return err
			}
			defer objects.Close()

			_, c, err := openRemoteConfig(cmd)
			if err != nil {
				return err
			}

			var remoteArgs []string
			if len(args) > 0 {
				remoteArgs = args[:1]
			}
			name, r, err := mustRemote(cmd, c, remoteArgs)
			if err != nil {
				return err
			}
			ep, origin, err := resolveEndpoint(r)
			if err != nil {
				return err
			}
			client, log, err := newHTTPClient(cmd)
			if err != nil {
				return err
			}

			specs := r.Fetch
			if len(args) > 1 {
				specs = nil
				for _, raw := range args[1:] {
					sp, err := orchestrate.ParseRefspec(raw)
					if err != nil {
						return err
					}
					specs = append(specs, sp)
				}
			}

			notifier := newBarNotifier(false)
			opts := orchestrate.DefaultOptions()
			opts.Notify = notifier
			defer notifier.done()

			var updates []orchestrate.RefUpdate
			switch {
			case all:
				updates, err = orchestrate.FetchAll(client, ep, objects, objects, opts)
			case len(specs) > 0:
				updates, err = orchestrate.FetchSome(client, ep, objects, objects, specs, opts, log)
			default:
				var u orchestrate.RefUpdate
				var alreadySync bool
				u, alreadySync, err = orchestrate.FetchOne(client, ep, objects, objects,
					orchestrate.Refspec{Src: "refs/heads/main", Dst: "refs/remotes/" + name + "/main"},
					opts)
				if err == nil && !alreadySync {
					updates = []orchestrate.RefUpdate{u}
				}
			}
			if err != nil {
				return handleAuthError(cmd, origin, err)
			}
			for _, u := range updates {
				printRefUpdate(cmd, u)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "fetch every ref the remote advertises")
	return cmd
}
