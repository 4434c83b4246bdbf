package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"

	"github.com/guilledk/telos-works/worksmachine"
)

// Store keeps one flat file per (mind, name) under its root directory. Minds write their
// current state as "current" and every committed state under its hash.
type Store struct {
	root  string
	mutex *deadlock.Mutex
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &Store{root: root, mutex: &deadlock.Mutex{}}, nil
}

// FromConfig opens the store at rootDir/flatFileDir.
func FromConfig(conf *viper.Viper) (*Store, error) {
	return New(filepath.Join(conf.GetString("rootDir"), conf.GetString("flatFileDir")))
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(mind, name string) (string, error) {
	for _, p := range []string{mind, name} {
		if len(p) == 0 || strings.ContainsAny(p, `/\`) || strings.Contains(p, "..") {
			return "", fmt.Errorf("invalid database path element %q", p)
		}
	}
	return filepath.Join(s.root, mind, name+".json"), nil
}

// Open returns the file for reading. The caller closes it.
func (s *Store) Open(mind, name string) (*os.File, bool) {
	p, err := s.path(mind, name)
	if err != nil {
		worksmachine.LogCLI(err.Error(), 1)
		return nil, false
	}
	f, err := os.Open(p)
	if err != nil {
		if !os.IsNotExist(err) {
			worksmachine.LogCLI(err.Error(), 1)
		}
		return nil, false
	}
	return f, true
}

func (s *Store) Read(mind, name string) ([]byte, bool) {
	p, err := s.path(mind, name)
	if err != nil {
		return nil, false
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Write replaces the file contents atomically.
func (s *Store) Write(mind, name string, b []byte) error {
	p, err := s.path(mind, name)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Backup copies the whole data directory to dest.
func (s *Store) Backup(dest string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := copy.Copy(s.root, dest); err != nil {
		return fmt.Errorf("backup of %s failed: %w", s.root, err)
	}
	worksmachine.LogCLI(fmt.Sprintf("backed up %s to %s", s.root, dest), 4)
	return nil
}
