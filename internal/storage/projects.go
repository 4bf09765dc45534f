package storage

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ListProjects returns every indexed project, newest first.
// A missing or unreadable index yields an empty list.
func (s *Store) ListProjects() []Project {
	projects := s.readIndex()
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt > projects[j].CreatedAt
	})
	return projects
}

// GetProject looks a project up by id.
func (s *Store) GetProject(id string) (Project, bool) {
	id = strings.TrimSpace(id)
	if !ValidID(id) {
		return Project{}, false
	}
	for _, p := range s.readIndex() {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// CreateProject writes a new project directory and appends it to the index.
func (s *Store) CreateProject(name string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, invalid("name", "Project name is required")
	}

	p := Project{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: formatTime(s.clock.Now()),
	}

	err := s.withIndexLock(func() error {
		if err := EnsureDir(s.paths.ProjectDir(p.ID)); err != nil {
			return err
		}
		if err := WriteJSONFile(s.paths.ProjectMeta(p.ID), p); err != nil {
			return err
		}
		return s.writeIndex(append(s.readIndex(), p))
	})
	if err != nil {
		return Project{}, fmt.Errorf("creating project: %w", err)
	}
	return p, nil
}

// DeleteProject removes the project directory and its index entry.
// Unknown or blank ids are a no-op.
func (s *Store) DeleteProject(id string) error {
	id = strings.TrimSpace(id)
	if !ValidID(id) {
		return nil
	}

	err := s.withIndexLock(func() error {
		if err := os.RemoveAll(s.paths.ProjectDir(id)); err != nil {
			return err
		}

		projects := s.readIndex()
		kept := make([]Project, 0, len(projects))
		for _, p := range projects {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(projects) {
			return nil
		}
		return s.writeIndex(kept)
	})
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return nil
}
