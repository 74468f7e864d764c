package actions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type fileState struct {
	Outputs map[string]string `toml:"outputs"`
	State   map[string]string `toml:"state"`
	Env     map[string]string `toml:"env"`
}

// FileStore keeps outputs, state and exported variables in a TOML file.
type FileStore struct {
	Path   string
	Setenv func(string, string) error
}

func (s *FileStore) load() (fileState, error) {
	st := fileState{
		Outputs: map[string]string{},
		State:   map[string]string{},
		Env:     map[string]string{},
	}
	_, err := toml.DecodeFile(s.Path, &st)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("loading state file %s: %w", s.Path, err)
	}
	return st, nil
}

func (s *FileStore) update(f func(st *fileState)) error {
	st, err := s.load()
	if err != nil {
		return err
	}
	f(&st)

	err = os.MkdirAll(filepath.Dir(s.Path), 0755)
	if err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	w, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating state file: %w", err)
	}
	err = toml.NewEncoder(w).Encode(st)
	if err != nil {
		w.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	return w.Close()
}

func (s *FileStore) SetOutput(name, value string) error {
	return s.update(func(st *fileState) { st.Outputs[name] = value })
}

func (s *FileStore) SaveState(name, value string) error {
	return s.update(func(st *fileState) { st.State[name] = value })
}

// State returns "" if the file is missing or unreadable.
func (s *FileStore) State(name string) string {
	st, err := s.load()
	if err != nil {
		return ""
	}
	return st.State[name]
}

func (s *FileStore) ExportVariable(name, value string) error {
	if s.Setenv != nil {
		if err := s.Setenv(name, value); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return s.update(func(st *fileState) { st.Env[name] = value })
}

// Remove deletes the state file once the cluster it describes is gone.
func (s *FileStore) Remove() error {
	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
