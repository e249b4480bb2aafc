// Package remote persists named remote definitions (URL plus default
// fetch/push refspecs) the way `wrgl remote` does, minus the
// local/global/system config layering the teacher aggregates over —
// this core has a single repository-local config file.
package remote

import (
	"fmt"

	"github.com/mhauser/pktwire/pkg/orchestrate"
)

// Remote is one entry in the remotes config: a URL plus the refspecs
// used when the caller runs fetch/push against this remote without
// specifying refspecs explicitly.
type Remote struct {
	URL   string                `yaml:"url"`
	Fetch []orchestrate.Refspec `yaml:"fetch,omitempty"`
	Push  []orchestrate.Refspec `yaml:"push,omitempty"`
}

// Config is the full set of named remotes for one repository.
type Config struct {
	Remotes map[string]*Remote `yaml:"remotes,omitempty"`
}

// Get returns the named remote, or an error if it isn't configured.
func (c *Config) Get(name string) (*Remote, error) {
	if c.Remotes == nil {
		return nil, fmt.Errorf("remote: no such remote %q", name)
	}
	r, ok := c.Remotes[name]
	if !ok {
		return nil, fmt.Errorf("remote: no such remote %q", name)
	}
	return r, nil
}

// Set adds or replaces the named remote.
func (c *Config) Set(name string, r *Remote) {
	if c.Remotes == nil {
		c.Remotes = map[string]*Remote{}
	}
	c.Remotes[name] = r
}

// Remove deletes the named remote, if present.
func (c *Config) Remove(name string) {
	delete(c.Remotes, name)
}

// Names lists every configured remote name.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	return names
}
