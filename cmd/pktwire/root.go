package pktwire

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootCmd builds the pktwire command tree: clone, fetch, push, and
// ls-remote, the same flat top-level shape cmd/wrgl/root.go uses for
// its own transport commands, plus the remote and credentials
// management commands.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pktwire",
		Short:         "Smart HTTP Git transport client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("store", "", "local repository directory (default \".pktwire\")")
	root.PersistentFlags().Bool("verbose", false, "enable verbose logging")
	viper.SetEnvPrefix("pktwire")
	viper.BindEnv("store")
	viper.BindPFlag("store", root.PersistentFlags().Lookup("store"))

	root.AddCommand(newCloneCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newPushCmd())
	root.AddCommand(newLsRemoteCmd())
	root.AddCommand(newRemoteCmd())
	root.AddCommand(newCredentialsCmd())
	return root
}
