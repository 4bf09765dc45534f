package storage

import (
	"fmt"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// Store persists projects and their outputs as plain files under a data root.
type Store struct {
	paths Paths
	clock Clock
	newID func() string

	// mu and lock serialize read-modify-write cycles on the project index,
	// in-process and across processes respectively.
	mu   sync.Mutex
	lock *flock.Flock
}

// New returns a Store rooted at root. The directory is created lazily on first write.
func New(root string) *Store {
	return NewWithClock(root, realClock{})
}

// NewWithClock is like New but uses the given clock for timestamps.
func NewWithClock(root string, clock Clock) *Store {
	p := Paths{Root: root}
	return &Store{
		paths: p,
		clock: clock,
		newID: func() string { return uuid.New().String() },
		lock:  flock.New(p.IndexLock()),
	}
}

// Paths returns the resolver used by this store.
func (s *Store) Paths() Paths { return s.paths }

func (s *Store) withIndexLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := EnsureDir(s.paths.Root); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking project index: %w", err)
	}
	defer s.lock.Unlock()

	return fn()
}

func (s *Store) readIndex() []Project {
	var idx projectIndex
	if !ReadJSONFile(s.paths.ProjectsIndex(), &idx) {
		return []Project{}
	}
	if idx.Projects == nil {
		return []Project{}
	}
	return idx.Projects
}

func (s *Store) writeIndex(projects []Project) error {
	return WriteJSONFile(s.paths.ProjectsIndex(), projectIndex{Projects: projects})
}
