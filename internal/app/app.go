// Package app implements the document drafting core: project CRUD, the
// generation cascade, the refinement ledger, and export.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"docforge/pkg/ai"
	"docforge/pkg/domain"
	"docforge/pkg/storage"
	"docforge/pkg/store"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Config wires required dependencies for the application core.
type Config struct {
	Store     store.ProjectStore
	Generator ai.TextGenerator
	// Artifacts is optional; when set, exported documents are archived
	// to object storage best-effort.
	Artifacts        storage.ObjectStore
	DefaultUnitCount int
}

// App holds the application services.
type App struct {
	store            store.ProjectStore
	generator        ai.TextGenerator
	artifacts        storage.ObjectStore
	defaultUnitCount int

	// inflight coalesces concurrent full-project cascades so two callers
	// hitting generate-all on the same project join one run.
	inflight singleflight.Group
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app requires a project store")
	}
	if cfg.Generator == nil {
		return nil, errors.New("app requires a text generator")
	}
	unitCount := cfg.DefaultUnitCount
	if unitCount <= 0 {
		unitCount = 5
	}
	return &App{
		store:            cfg.Store,
		generator:        cfg.Generator,
		artifacts:        cfg.Artifacts,
		defaultUnitCount: unitCount,
	}, nil
}

// UnitInput is a caller-supplied outline entry for project creation.
type UnitInput struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

// CreateProjectInput carries the fields for a new project.
type CreateProjectInput struct {
	Title       string              `json:"title"`
	Kind        domain.DocumentKind `json:"documentType"`
	Topic       string              `json:"topic"`
	Description string              `json:"description"`
	Sections    []UnitInput         `json:"sections"`
	Slides      []UnitInput         `json:"slides"`
}

// CreateProject creates a project in draft status. A pre-supplied outline
// gets fresh unit identifiers; the collection for the other kind stays nil.
func (a *App) CreateProject(identity domain.Identity, in CreateProjectInput) (domain.Project, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Project{}, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return domain.Project{}, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if !in.Kind.Valid() {
		return domain.Project{}, fmt.Errorf("%w: documentType must be %s or %s", ErrInvalidRequest, domain.KindWord, domain.KindSlide)
	}

	p := domain.Project{
		OwnerID:     identity.ID,
		Title:       title,
		Kind:        in.Kind,
		Topic:       topic,
		Description: strings.TrimSpace(in.Description),
		Status:      domain.StatusDraft,
	}
	switch in.Kind {
	case domain.KindWord:
		p.Sections = make([]domain.Section, 0, len(in.Sections))
		for _, u := range in.Sections {
			p.Sections = append(p.Sections, domain.Section{
				ID:    uuid.NewString(),
				Title: u.Title,
				Order: u.Order,
			})
		}
	case domain.KindSlide:
		p.Slides = make([]domain.Slide, 0, len(in.Slides))
		for _, u := range in.Slides {
			p.Slides = append(p.Slides, domain.Slide{
				ID:    uuid.NewString(),
				Title: u.Title,
				Order: u.Order,
			})
		}
	}
	return a.store.CreateProject(p)
}

// GetProject resolves a project owned by the caller.
func (a *App) GetProject(identity domain.Identity, id string) (domain.Project, error) {
	p, ok, err := a.store.GetProject(id, identity.ID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("get project: %w", err)
	}
	if !ok {
		return domain.Project{}, ErrProjectNotFound
	}
	return p, nil
}

// ListProjects returns the caller's projects, newest first.
func (a *App) ListProjects(identity domain.Identity, f store.ProjectFilter) ([]domain.Project, error) {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown documentType %q", ErrInvalidRequest, f.Kind)
	}
	projects, err := a.store.ListProjects(identity.ID, f)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectInput is a partial project update; nil fields are untouched.
type UpdateProjectInput struct {
	Title       *string               `json:"title"`
	Topic       *string               `json:"topic"`
	Description *string               `json:"description"`
	Status      *domain.ProjectStatus `json:"status"`
	Sections    *[]domain.Section     `json:"sections"`
	Slides      *[]domain.Slide       `json:"slides"`
}

// UpdateProject applies a partial update with merge semantics.
func (a *App) UpdateProject(identity domain.Identity, id string, in UpdateProjectInput) (domain.Project, error) {
	if in.Status != nil {
		switch *in.Status {
		case domain.StatusDraft, domain.StatusGenerating, domain.StatusCompleted:
		default:
			return domain.Project{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, *in.Status)
		}
	}
	patch := store.ProjectPatch{
		Title:       in.Title,
		Topic:       in.Topic,
		Description: in.Description,
		Status:      in.Status,
		Sections:    in.Sections,
		Slides:      in.Slides,
	}
	p, ok, err := a.store.UpdateProject(id, identity.ID, patch)
	if err != nil {
		return domain.Project{}, fmt.Errorf("update project: %w", err)
	}
	if !ok {
		return domain.Project{}, ErrProjectNotFound
	}
	return p, nil
}

// DeleteProject removes a project and, implicitly, its units, refinement
// ledger, and feedback. Any archived export artifact is pruned best-effort.
func (a *App) DeleteProject(ctx context.Context, identity domain.Identity, id string) error {
	p, err := a.GetProject(identity, id)
	if err != nil {
		return err
	}
	ok, err := a.store.DeleteProject(id, identity.ID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if !ok {
		return ErrProjectNotFound
	}
	a.pruneArtifact(ctx, p)
	return nil
}
