package settings

import (
	"sync"

	"go.uber.org/zap"
)

// Selection is the ordered set of folders chosen for sync, keyed by folder
// id and backed by a Store.
type Selection struct {
	mu     sync.Mutex
	store  *Store
	logger *zap.SugaredLogger
}

func NewSelection(store *Store, logger *zap.SugaredLogger) *Selection {
	return &Selection{
		store:  store,
		logger: logger,
	}
}

// Add appends folder unless its id is already selected, in which case the
// stored title is kept and nothing is written. It reports whether the
// selection changed.
func (s *Selection) Add(folder Folder) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Folders()
	if indexOf(current, folder.ID) >= 0 {
		return false, nil
	}
	if err := s.store.SetFolders(append(current, folder)); err != nil {
		return false, err
	}
	s.logger.Debugw("folder selected", "id", folder.ID, "title", folder.Title)
	return true, nil
}

// Remove drops the folder with id, if selected.
func (s *Selection) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Folders()
	i := indexOf(current, id)
	if i < 0 {
		return false, nil
	}
	next := append(current[:i:i], current[i+1:]...)
	if err := s.store.SetFolders(next); err != nil {
		return false, err
	}
	s.logger.Debugw("folder unselected", "id", id)
	return true, nil
}

// List returns a copy of the selection in insertion order.
func (s *Selection) List() []Folder {
	return s.store.Folders()
}

func (s *Selection) Contains(id string) bool {
	return indexOf(s.store.Folders(), id) >= 0
}

func indexOf(folders []Folder, id string) int {
	for i := range folders {
		if folders[i].ID == id {
			return i
		}
	}
	return -1
}
