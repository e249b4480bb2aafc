package credentials

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Entry is the HTTP Basic credential pair the client wrapper attaches
// to a retried request after a 401 challenge.
type Entry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Store persists Entry values keyed by remote origin
// (scheme://host[:port]) in a YAML file under XDG_CONFIG_HOME.
type Store struct {
	fp      string
	entries map[string]Entry
}

func NewStore() (*Store, error) {
	fp := credsLocation()
	s := &Store{
		fp:      fp,
		entries: map[string]Entry{},
	}
	f, err := os.Open(fp)
	if err == nil {
		defer f.Close()
		b, err := ioutil.ReadAll(f)
		if err != nil {
			return nil, err
		}
		if len(b) > 0 {
			if err := yaml.Unmarshal(b, &s.entries); err != nil {
				return nil, err
			}
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.fp }

// Len returns the number of stored entries.
func (s *Store) Len() int { return len(s.entries) }

func (s *Store) Set(origin string, e Entry) {
	s.entries[origin] = e
}

func (s *Store) Get(origin string) (Entry, bool) {
	e, ok := s.entries[origin]
	return e, ok
}

func (s *Store) Delete(origin string) {
	delete(s.entries, origin)
}

// Origins lists every remote this store holds credentials for.
func (s *Store) Origins() []string {
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	return out
}

func (s *Store) Flush() error {
	f, err := os.OpenFile(s.fp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := yaml.Marshal(s.entries)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	return err
}
