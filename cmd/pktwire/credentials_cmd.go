package pktwire

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhauser/pktwire/pkg/credentials"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored HTTP Basic credentials, keyed by remote origin",
	}
	cmd.AddCommand(newCredentialsSetCmd(), newCredentialsUnsetCmd())
	return cmd
}

func newCredentialsSetCmd() *cobra.Command {
	var username, password string
	c := &cobra.Command{
		Use:   "set ORIGIN",
		Short: "Store a Basic credential for an origin (scheme://host[:port])",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := credentials.NewStore()
			if err != nil {
				return err
			}
			cs.Set(args[0], credentials.Entry{Username: username, Password: password})
			return cs.Flush()
		},
	}
	c.Flags().StringVar(&username, "username", "", "Basic auth username")
	c.Flags().StringVar(&password, "password", "", "Basic auth password")
	return c
}

func newCredentialsUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset ORIGIN",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := credentials.NewStore()
			if err != nil {
				return err
			}
			cs.Delete(args[0])
			if err := cs.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed credential for %s\n", args[0])
			return nil
		},
	}
}
