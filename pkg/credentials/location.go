// Package credentials persists HTTP Basic credentials keyed by remote
// origin (scheme://host[:port]) so the HTTP client wrapper can answer a 401 challenge once
// without prompting the caller on every request.
package credentials

import (
	"os"
	"path/filepath"
)

func credsLocation() string {
	if s := os.Getenv("XDG_CONFIG_HOME"); s != "" {
		return filepath.Join(s, "pktwire", "credentials.yaml")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "pktwire", "credentials.yaml")
}
