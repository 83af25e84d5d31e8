package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docforge/pkg/domain"
)

// MemoryStore keeps projects in-process. It is the volatile backend of the
// persistence adapter: records survive only for the process lifetime and
// are assigned UUID ids, distinguishable from durable ids by format.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]domain.Project
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]domain.Project)}
}

// CreateProject assigns a UUID and stores the project.
func (m *MemoryStore) CreateProject(p domain.Project) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.projects[p.ID] = cloneProject(p)
	return p, nil
}

// GetProject retrieves a project scoped to its owner.
func (m *MemoryStore) GetProject(id, ownerID string) (domain.Project, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return domain.Project{}, false, nil
	}
	return cloneProject(p), true, nil
}

// ListProjects returns the owner's projects, newest first.
func (m *MemoryStore) ListProjects(ownerID string, f ProjectFilter) ([]domain.Project, error) {
	m.mu.RLock()
	res := make([]domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		if p.OwnerID != ownerID {
			continue
		}
		if f.Kind != "" && p.Kind != f.Kind {
			continue
		}
		if f.Search != "" && !matchesSearch(p, f.Search) {
			continue
		}
		res = append(res, cloneProject(p))
	}
	m.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if f.Skip > 0 {
		if f.Skip >= len(res) {
			return []domain.Project{}, nil
		}
		res = res[f.Skip:]
	}
	if f.Limit > 0 && f.Limit < len(res) {
		res = res[:f.Limit]
	}
	return res, nil
}

// UpdateProject applies a partial update and returns the updated record.
func (m *MemoryStore) UpdateProject(id, ownerID string, patch ProjectPatch) (domain.Project, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return domain.Project{}, false, nil
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Topic != nil {
		p.Topic = *patch.Topic
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Sections != nil {
		p.Sections = *patch.Sections
	}
	if patch.Slides != nil {
		p.Slides = *patch.Slides
	}
	if patch.Refinements != nil {
		p.Refinements = *patch.Refinements
	}
	if patch.Feedback != nil {
		p.Feedback = *patch.Feedback
	}
	p.UpdatedAt = time.Now().UTC()
	m.projects[id] = cloneProject(p)
	return p, true, nil
}

// DeleteProject removes a project.
func (m *MemoryStore) DeleteProject(id, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return false, nil
	}
	delete(m.projects, id)
	return true, nil
}

func matchesSearch(p domain.Project, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Title), search) ||
		strings.Contains(strings.ToLower(p.Topic), search)
}

// cloneProject deep-copies a project so callers never alias store-owned
// slices and maps.
func cloneProject(p domain.Project) domain.Project {
	out := p
	if p.Sections != nil {
		out.Sections = make([]domain.Section, len(p.Sections))
		for i, s := range p.Sections {
			cs := s
			if s.Content != nil {
				v := *s.Content
				cs.Content = &v
			}
			if s.GeneratedAt != nil {
				t := *s.GeneratedAt
				cs.GeneratedAt = &t
			}
			out.Sections[i] = cs
		}
	}
	if p.Slides != nil {
		out.Slides = make([]domain.Slide, len(p.Slides))
		for i, s := range p.Slides {
			cs := s
			if s.Bullets != nil {
				cs.Bullets = append([]string(nil), s.Bullets...)
			}
			if s.GeneratedAt != nil {
				t := *s.GeneratedAt
				cs.GeneratedAt = &t
			}
			out.Slides[i] = cs
		}
	}
	if p.Refinements != nil {
		out.Refinements = make(map[string][]domain.RefinementEntry, len(p.Refinements))
		for k, entries := range p.Refinements {
			out.Refinements[k] = append([]domain.RefinementEntry(nil), entries...)
		}
	}
	if p.Feedback != nil {
		out.Feedback = make(map[string]domain.Feedback, len(p.Feedback))
		for k, v := range p.Feedback {
			out.Feedback[k] = v
		}
	}
	return out
}
