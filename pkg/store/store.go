package store

import (
	"docforge/pkg/domain"
)

// ProjectFilter narrows and pages project listings.
type ProjectFilter struct {
	Kind   domain.DocumentKind
	Search string
	Skip   int
	Limit  int
}

// ProjectPatch is a partial update; nil fields are left untouched.
// Stores apply patches with merge semantics, never full overwrite.
type ProjectPatch struct {
	Title       *string
	Topic       *string
	Description *string
	Status      *domain.ProjectStatus
	Sections    *[]domain.Section
	Slides      *[]domain.Slide
	Refinements *map[string][]domain.RefinementEntry
	Feedback    *map[string]domain.Feedback
}

// ProjectStore defines persistence operations for projects and their
// embedded units, refinement ledger, and feedback. Records are keyed by
// (project id, owner id); lookups with the wrong owner report not found.
type ProjectStore interface {
	// CreateProject assigns an id and timestamps and stores the project.
	CreateProject(p domain.Project) (domain.Project, error)
	GetProject(id, ownerID string) (domain.Project, bool, error)
	ListProjects(ownerID string, f ProjectFilter) ([]domain.Project, error)
	// UpdateProject applies the patch and returns the updated record.
	UpdateProject(id, ownerID string, patch ProjectPatch) (domain.Project, bool, error)
	DeleteProject(id, ownerID string) (bool, error)
}
