// Package pktwire is the CLI wiring the orchestration layer to a
// badgerstore-backed local repository, in the shape of the teacher's
// cmd/wrgl package: one thin RunE per subcommand, shared helpers for
// opening the local store and resolving remotes/credentials.
package pktwire

import (
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhauser/pktwire/pkg/credentials"
	"github.com/mhauser/pktwire/pkg/remote"
	"github.com/mhauser/pktwire/pkg/store/badgerstore"
	"github.com/mhauser/pktwire/pkg/transport"
	httpapi "github.com/mhauser/pktwire/pkg/transport/http"
)

// storeDir reads through viper rather than the flag directly, so
// PKTWIRE_STORE (bound in RootCmd via SetEnvPrefix/BindEnv) takes effect
// even when --store is not passed on the command line.
func storeDir(cmd *cobra.Command) (string, error) {
	dir := viper.GetString("store")
	if dir == "" {
		dir = ".pktwire"
	}
	return dir, nil
}

func openObjectStore(cmd *cobra.Command) (*badgerstore.Store, error) {
	dir, err := storeDir(cmd)
	if err != nil {
		return nil, err
	}
	st, err := badgerstore.Open(filepath.Join(dir, "objects"))
	if err != nil {
		return nil, transport.NewStoreError("error opening object store", err)
	}
	return st, nil
}

func openRemoteConfig(cmd *cobra.Command) (*remote.Store, *remote.Config, error) {
	dir, err := storeDir(cmd)
	if err != nil {
		return nil, nil, err
	}
	s := remote.NewStore(filepath.Join(dir, "config.yaml"))
	c, err := s.Open()
	if err != nil {
		return nil, nil, err
	}
	return s, c, nil
}

func loggerFromFlags(cmd *cobra.Command) (logr.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return logr.Logger{}, err
	}
	l := stdr.New(nil)
	if verbose {
		stdr.SetVerbosity(1)
	}
	return l, nil
}

// resolveEndpoint parses r.URL into a transport.Endpoint, returning the
// origin (scheme://host[:port]) used as the credential store key —
// mirrors getCredentials' use of the parsed remote URL as a lookup key.
func resolveEndpoint(r *remote.Remote) (transport.Endpoint, string, error) {
	ep, err := transport.ParseEndpoint(r.URL)
	if err != nil {
		return transport.Endpoint{}, "", err
	}
	origin := ep.Scheme + "://" + ep.Host
	if ep.Port != "" {
		origin += ":" + ep.Port
	}
	return ep, origin, nil
}

// newHTTPClient builds the transport-level Client with the credential
// store wired in, so a 401 challenge can be answered with a stored
// Basic credential without cmd/pktwire touching request headers itself.
func newHTTPClient(cmd *cobra.Command) (*httpapi.Client, logr.Logger, error) {
	log, err := loggerFromFlags(cmd)
	if err != nil {
		return nil, log, err
	}
	cs, err := credentials.NewStore()
	if err != nil {
		return nil, log, err
	}
	c, err := httpapi.NewClient(log, httpapi.WithCredentialStore(cs))
	if err != nil {
		return nil, log, fmt.Errorf("error creating new client: %w", err)
	}
	return c, log, nil
}

// mustRemote resolves the remote named by args[0] (defaulting to
// "origin"), the same default parseRemoteAndRefspec applies.
func mustRemote(cmd *cobra.Command, c *remote.Config, args []string) (string, *remote.Remote, error) {
	name := "origin"
	if len(args) > 0 {
		name = args[0]
	}
	r, err := c.Get(name)
	if err != nil {
		return "", nil, fmt.Errorf("pktwire: %w (run \"pktwire remote add %s <url>\" first)", err, name)
	}
	return name, r, nil
}

// handleAuthError reports a 401 the way handleHTTPError does, without
// wrgl's silent-retry loop: SUPPLEMENTED FEATURE 1 explicitly forbids a
// second retry, so this only tells the caller their stored credential
// (if any) needs refreshing.
func handleAuthError(cmd *cobra.Command, origin string, err error) error {
	if herr, ok := err.(*httpapi.HTTPError); ok && herr.Code == 401 {
		return fmt.Errorf("pktwire: %s rejected the stored credential for %s; run \"pktwire credentials set %s\" to update it", herr.Error(), origin, origin)
	}
	return fmt.Errorf("error syncing with remote: %w", err)
}
