package remote

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store persists a Config to a single YAML file, the repository-local
// slice of what the teacher's conffs.Store aggregates across
// local/global/system sources.
type Store struct {
	fp string
}

// NewStore returns a Store backed by fp.
func NewStore(fp string) *Store {
	return &Store{fp: fp}
}

// Open reads the config file, returning an empty Config if it doesn't
// exist yet.
func (s *Store) Open() (*Config, error) {
	c := &Config{}
	f, err := os.Open(s.fp)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return c, nil
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c back to the config file, creating its parent directory
// if necessary.
func (s *Store) Save(c *Config) error {
	if err := os.MkdirAll(filepath.Dir(s.fp), 0755); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.fp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}
