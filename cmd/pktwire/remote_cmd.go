package pktwire

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhauser/pktwire/pkg/remote"
)

func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage configured remotes",
	}
	cmd.AddCommand(newRemoteAddCmd(), newRemoteRemoveCmd(), newRemoteListCmd())
	return cmd
}

func newRemoteAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME URL",
		Short: "Add a remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, c, err := openRemoteConfig(cmd)
			if err != nil {
				return err
			}
			c.Set(args[0], &remote.Remote{URL: args[1]})
			return s.Save(c)
		},
	}
}

func newRemoteRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, c, err := openRemoteConfig(cmd)
			if err != nil {
				return err
			}
			c.Remove(args[0])
			return s.Save(c)
		},
	}
}

func newRemoteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := openRemoteConfig(cmd)
			if err != nil {
				return err
			}
			for _, name := range c.Names() {
				r, _ := c.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, r.URL)
			}
			return nil
		},
	}
}
