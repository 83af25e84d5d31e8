package app

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"docforge/internal/util"
	"docforge/pkg/docgen"
	"docforge/pkg/domain"
	"docforge/pkg/store"
)

// ExportResult is a serialized document ready for download.
type ExportResult struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Export serializes the project into its document container. A project with
// no units or no generated content is completed first by running the full
// generation cascade; export never returns a half-empty document when the
// cascade can fill it. After serialization the project status is completed.
func (a *App) Export(ctx context.Context, identity domain.Identity, projectID string) (ExportResult, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return ExportResult{}, err
	}

	if p.UnitCount() == 0 || !p.HasGeneratedContent() {
		if _, err := a.GenerateAll(ctx, identity, projectID); err != nil {
			return ExportResult{}, err
		}
		p, err = a.GetProject(identity, projectID)
		if err != nil {
			return ExportResult{}, err
		}
	}

	data, err := docgen.Serialize(p)
	if err != nil {
		return ExportResult{}, fmt.Errorf("serialize document: %w", err)
	}

	status := domain.StatusCompleted
	if _, _, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{Status: &status}); err != nil {
		return ExportResult{}, fmt.Errorf("finalize export: %w", err)
	}

	result := ExportResult{
		Data:     data,
		Filename: docgen.Filename(p.Title, p.Kind),
		MIMEType: docgen.MIMEType(p.Kind),
	}
	a.archiveArtifact(ctx, p.ID, result)
	return result, nil
}

// archiveArtifact copies the exported document to object storage.
// Best-effort: failures are logged, never surfaced.
func (a *App) archiveArtifact(ctx context.Context, projectID string, r ExportResult) {
	if a.artifacts == nil {
		return
	}
	key := artifactKey(projectID, r.Filename)
	if err := a.artifacts.Put(ctx, key, bytes.NewReader(r.Data), int64(len(r.Data)), r.MIMEType); err != nil {
		util.LoggerFromContext(ctx).Warn("artifact archive failed", "key", key, "err", err)
	}
}

// pruneArtifact removes the archived export for a deleted project.
// Best-effort: failures are logged, never surfaced.
func (a *App) pruneArtifact(ctx context.Context, p domain.Project) {
	if a.artifacts == nil {
		return
	}
	key := artifactKey(p.ID, docgen.Filename(p.Title, p.Kind))
	if err := a.artifacts.Delete(ctx, key); err != nil {
		util.LoggerFromContext(ctx).Warn("artifact prune failed", "key", key, "err", err)
	}
}

func artifactKey(projectID, filename string) string {
	return "exports/" + projectID + "/" + filename
}

// SectionPreview summarizes one section's generation state.
type SectionPreview struct {
	Title         string `json:"title"`
	Order         int    `json:"order"`
	HasContent    bool   `json:"hasContent"`
	ContentLength int    `json:"contentLength"`
}

// SlidePreview summarizes one slide's generation state.
type SlidePreview struct {
	Title       string `json:"title"`
	Order       int    `json:"order"`
	HasContent  bool   `json:"hasContent"`
	BulletCount int    `json:"bulletCount"`
}

// Preview describes the document structure without serializing it. For
// presentations the unit total includes the title slide.
type Preview struct {
	Title          string              `json:"title"`
	Kind           domain.DocumentKind `json:"documentType"`
	Sections       []SectionPreview    `json:"sections,omitempty"`
	Slides         []SlidePreview      `json:"slides,omitempty"`
	TotalUnits     int                 `json:"totalUnits"`
	CompletedUnits int                 `json:"completedUnits"`
}

// ExportPreview reports per-unit completeness in presentation order.
func (a *App) ExportPreview(identity domain.Identity, projectID string) (Preview, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return Preview{}, err
	}

	preview := Preview{Title: p.Title, Kind: p.Kind}
	if p.Kind == domain.KindWord {
		sections := append([]domain.Section(nil), p.Sections...)
		sort.Slice(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
		preview.Sections = make([]SectionPreview, 0, len(sections))
		for _, s := range sections {
			sp := SectionPreview{Title: s.Title, Order: s.Order, HasContent: s.Content != nil}
			if s.Content != nil {
				sp.ContentLength = len(*s.Content)
				preview.CompletedUnits++
			}
			preview.Sections = append(preview.Sections, sp)
		}
		preview.TotalUnits = len(sections)
		return preview, nil
	}

	slides := append([]domain.Slide(nil), p.Slides...)
	sort.Slice(slides, func(i, j int) bool { return slides[i].Order < slides[j].Order })
	preview.Slides = make([]SlidePreview, 0, len(slides))
	for _, s := range slides {
		sp := SlidePreview{Title: s.Title, Order: s.Order, HasContent: s.Bullets != nil}
		if s.Bullets != nil {
			sp.BulletCount = len(s.Bullets)
			preview.CompletedUnits++
		}
		preview.Slides = append(preview.Slides, sp)
	}
	// The exported deck adds a title slide ahead of the content slides.
	preview.TotalUnits = len(slides) + 1
	return preview, nil
}
