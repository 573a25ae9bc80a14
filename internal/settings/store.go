// Package settings keeps the sync client's durable state: the selected
// folders, the last successful sync and the server endpoint.
package settings

import (
	"encoding/json"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	filePerms = 0o600
	dirPerms  = 0o700
)

var ErrInvalidServerURL = errors.New("server url must be an absolute http or https url")

type (
	Folder struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	state struct {
		SelectedFolders []Folder   `json:"selectedFolders"`
		LastSync        *time.Time `json:"lastSync,omitempty"`
		ServerURL       string     `json:"serverUrl,omitempty"`
		APIToken        string     `json:"apiToken,omitempty"`
	}

	// Store is a JSON settings file. Every setter writes the whole file
	// before the new value becomes visible, so a failed write leaves both
	// the file and the in-memory view on the old value.
	Store struct {
		mu    sync.RWMutex
		path  string
		state state
		write func(path string, data []byte) error
	}
)

// Open loads the settings file at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		write: writeAtomic,
		state: state{SelectedFolders: []Folder{}},
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load re-reads the file, dropping the in-memory view.
func (s *Store) Load() error {
	b, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read settings")
	}

	st := state{}
	if err := json.Unmarshal(b, &st); err != nil {
		return errors.Wrapf(err, "decode settings %s", s.path)
	}
	if st.SelectedFolders == nil {
		st.SelectedFolders = []Folder{}
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

func (s *Store) ServerURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ServerURL
}

func (s *Store) SetServerURL(raw string) error {
	if err := ValidateServerURL(raw); err != nil {
		return err
	}
	return s.update(func(st *state) { st.ServerURL = raw })
}

func (s *Store) APIToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.APIToken
}

func (s *Store) SetAPIToken(token string) error {
	return s.update(func(st *state) { st.APIToken = token })
}

// LastSync returns the zero time when no sync has completed yet.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.LastSync == nil {
		return time.Time{}
	}
	return *s.state.LastSync
}

func (s *Store) SetLastSync(at time.Time) error {
	at = at.UTC()
	return s.update(func(st *state) { st.LastSync = &at })
}

func (s *Store) Folders() []Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Folder{}, s.state.SelectedFolders...)
}

func (s *Store) SetFolders(folders []Folder) error {
	folders = append([]Folder{}, folders...)
	return s.update(func(st *state) { st.SelectedFolders = folders })
}

func (s *Store) update(fn func(st *state)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.SelectedFolders = append([]Folder{}, s.state.SelectedFolders...)
	fn(&next)

	b, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	if err := s.write(s.path, b); err != nil {
		return err
	}

	s.state = next
	return nil
}

func ValidateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(ErrInvalidServerURL, err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}
	return nil
}

// writeAtomic replaces path with data through a synced temp file in the same
// directory, so readers see either the old or the new file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return errors.Wrap(err, "create settings directory")
	}

	tmp, err := ioutil.TempFile(dir, ".settings-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, filePerms); err != nil {
		tmp.Close()
		return errors.Wrap(err, "set permissions")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write settings")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync settings")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close settings")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "rename settings")
	}

	success = true
	return nil
}
