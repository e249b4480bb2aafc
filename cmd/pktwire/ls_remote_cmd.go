package pktwire

import (
	"github.com/spf13/cobra"

	"github.com/mhauser/pktwire/pkg/orchestrate"
	httpapi "github.com/mhauser/pktwire/pkg/transport/http"
)

func newLsRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-remote [REMOTE]",
		Short: "List references advertised by a remote, without fetching",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := openRemoteConfig(cmd)
			if err != nil {
				return err
			}
			_, r, err := mustRemote(cmd, c, args)
			if err != nil {
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
			adv, err := httpapi.Ls(client, orchestrate.DefaultOptions().Capabilities, ep)
			if err != nil {
				return handleAuthError(cmd, origin, err)
			}
			for _, ref := range adv.Refs {
				cmd.Printf("%s\t%s\n", ref.ID.String(), ref.Name)
			}
			return nil
		},
	}
	return cmd
}
