package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"docforge/internal/util"
	"docforge/pkg/domain"
	"docforge/pkg/store"
)

// GenerateOutline replaces the project's unit list with a fresh outline of
// exactly count titles (fewer when the model under-delivers; the deficit is
// not backfilled). Capability failures fall back to a fixed placeholder
// outline; the operation never fails because the model is unavailable.
func (a *App) GenerateOutline(ctx context.Context, identity domain.Identity, projectID string, count int) (domain.Project, error) {
	if count < 1 {
		return domain.Project{}, fmt.Errorf("%w: unit count must be at least 1", ErrInvalidRequest)
	}
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return domain.Project{}, err
	}

	titles := a.outlineTitles(ctx, p.Topic, p.Kind, count)

	patch := store.ProjectPatch{}
	if p.Kind == domain.KindWord {
		sections := make([]domain.Section, 0, len(titles))
		for i, title := range titles {
			sections = append(sections, domain.Section{
				ID:    uuid.NewString(),
				Title: title,
				Order: i + 1,
			})
		}
		patch.Sections = &sections
	} else {
		slides := make([]domain.Slide, 0, len(titles))
		for i, title := range titles {
			slides = append(slides, domain.Slide{
				ID:    uuid.NewString(),
				Title: title,
				Order: i + 1,
			})
		}
		patch.Slides = &slides
	}

	updated, ok, err := a.store.UpdateProject(projectID, identity.ID, patch)
	if err != nil {
		return domain.Project{}, fmt.Errorf("persist outline: %w", err)
	}
	if !ok {
		return domain.Project{}, ErrProjectNotFound
	}
	return updated, nil
}

func (a *App) outlineTitles(ctx context.Context, topic string, kind domain.DocumentKind, count int) []string {
	raw, err := a.generator.GenerateText(ctx, systemPrompt, outlinePrompt(topic, kind, count))
	if err != nil {
		util.LoggerFromContext(ctx).Warn("outline generation failed, using placeholder", "err", err)
		raw = ""
	}
	titles := splitLines(raw)
	if len(titles) == 0 {
		titles = placeholderOutline(topic, kind)
	}
	if len(titles) > count {
		titles = titles[:count]
	}
	return titles
}

// GenerateSection generates content for one section of a Word project,
// threading previews of every preceding generated section as context.
func (a *App) GenerateSection(ctx context.Context, identity domain.Identity, projectID, sectionID string) (domain.Section, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return domain.Section{}, err
	}
	if p.Kind != domain.KindWord {
		return domain.Section{}, fmt.Errorf("%w: this operation is for Word documents only", ErrWrongKind)
	}
	// Context is defined by unit order, not slice position, so a single-unit
	// call threads the same context a full-project run would.
	sort.Slice(p.Sections, func(i, j int) bool { return p.Sections[i].Order < p.Sections[j].Order })
	idx := sectionIndex(p.Sections, sectionID)
	if idx < 0 {
		return domain.Section{}, ErrUnitNotFound
	}

	content := a.sectionContent(ctx, p.Sections[idx].Title, p.Topic, sectionContext(p.Sections[:idx]))
	now := time.Now().UTC()
	p.Sections[idx].Content = &content
	p.Sections[idx].GeneratedAt = &now

	status := domain.StatusGenerating
	_, ok, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{
		Sections: &p.Sections,
		Status:   &status,
	})
	if err != nil {
		return domain.Section{}, fmt.Errorf("persist section content: %w", err)
	}
	if !ok {
		return domain.Section{}, ErrProjectNotFound
	}
	return p.Sections[idx], nil
}

// GenerateSlide generates bullet points for one slide of a presentation
// project, threading previews of every preceding generated slide as context.
func (a *App) GenerateSlide(ctx context.Context, identity domain.Identity, projectID, slideID string) (domain.Slide, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return domain.Slide{}, err
	}
	if p.Kind != domain.KindSlide {
		return domain.Slide{}, fmt.Errorf("%w: this operation is for PowerPoint presentations only", ErrWrongKind)
	}
	sort.Slice(p.Slides, func(i, j int) bool { return p.Slides[i].Order < p.Slides[j].Order })
	idx := slideIndex(p.Slides, slideID)
	if idx < 0 {
		return domain.Slide{}, ErrUnitNotFound
	}

	bullets := a.slideBullets(ctx, p.Slides[idx].Title, p.Topic, slideContext(p.Slides[:idx]))
	now := time.Now().UTC()
	p.Slides[idx].Bullets = bullets
	p.Slides[idx].GeneratedAt = &now

	status := domain.StatusGenerating
	_, ok, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{
		Slides: &p.Slides,
		Status: &status,
	})
	if err != nil {
		return domain.Slide{}, fmt.Errorf("persist slide content: %w", err)
	}
	if !ok {
		return domain.Slide{}, ErrProjectNotFound
	}
	return p.Slides[idx], nil
}

// GenerateAll is the cascading entry point: it creates an outline when the
// unit list is empty, then fills every unit without content in ascending
// order, persisting after each unit. Units that already have content are
// skipped, so re-running on a fully generated project only flips status to
// completed. Concurrent calls for the same project join one in-flight run.
func (a *App) GenerateAll(ctx context.Context, identity domain.Identity, projectID string) (domain.Project, error) {
	v, err, _ := a.inflight.Do(identity.ID+":"+projectID, func() (any, error) {
		return a.generateAll(ctx, identity, projectID)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return v.(domain.Project), nil
}

func (a *App) generateAll(ctx context.Context, identity domain.Identity, projectID string) (domain.Project, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if p.UnitCount() == 0 {
		// The returned project comes from the backend that accepted the
		// outline write, so the cascade continues on consistent state.
		p, err = a.GenerateOutline(ctx, identity, projectID, a.defaultUnitCount)
		if err != nil {
			return domain.Project{}, err
		}
	}

	if p.Kind == domain.KindWord {
		sort.Slice(p.Sections, func(i, j int) bool { return p.Sections[i].Order < p.Sections[j].Order })
		for i := range p.Sections {
			if p.Sections[i].Content != nil {
				continue
			}
			content := a.sectionContent(ctx, p.Sections[i].Title, p.Topic, sectionContext(p.Sections[:i]))
			now := time.Now().UTC()
			p.Sections[i].Content = &content
			p.Sections[i].GeneratedAt = &now
			if _, _, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{Sections: &p.Sections}); err != nil {
				return domain.Project{}, fmt.Errorf("persist section content: %w", err)
			}
		}
	} else {
		sort.Slice(p.Slides, func(i, j int) bool { return p.Slides[i].Order < p.Slides[j].Order })
		for i := range p.Slides {
			if p.Slides[i].Bullets != nil {
				continue
			}
			bullets := a.slideBullets(ctx, p.Slides[i].Title, p.Topic, slideContext(p.Slides[:i]))
			now := time.Now().UTC()
			p.Slides[i].Bullets = bullets
			p.Slides[i].GeneratedAt = &now
			if _, _, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{Slides: &p.Slides}); err != nil {
				return domain.Project{}, fmt.Errorf("persist slide content: %w", err)
			}
		}
	}

	status := domain.StatusCompleted
	updated, ok, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{Status: &status})
	if err != nil {
		return domain.Project{}, fmt.Errorf("finalize generation: %w", err)
	}
	if !ok {
		return domain.Project{}, ErrProjectNotFound
	}
	return updated, nil
}

func (a *App) sectionContent(ctx context.Context, title, topic, contextText string) string {
	content, err := a.generator.GenerateText(ctx, systemPrompt, sectionPrompt(title, topic, contextText))
	if err != nil || content == "" {
		if err != nil {
			util.LoggerFromContext(ctx).Warn("section generation failed, using filler content", "section", title, "err", err)
		}
		return sectionFallback(title, topic)
	}
	return content
}

func (a *App) slideBullets(ctx context.Context, title, topic, contextText string) []string {
	raw, err := a.generator.GenerateText(ctx, systemPrompt, slidePrompt(title, topic, contextText))
	if err != nil {
		util.LoggerFromContext(ctx).Warn("slide generation failed, using filler bullets", "slide", title, "err", err)
		return slideFallback(title, topic)
	}
	bullets := splitLines(raw)
	if len(bullets) == 0 {
		return slideFallback(title, topic)
	}
	if len(bullets) > slideBulletCount {
		bullets = bullets[:slideBulletCount]
	}
	return bullets
}

func sectionIndex(sections []domain.Section, id string) int {
	for i, s := range sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func slideIndex(slides []domain.Slide, id string) int {
	for i, s := range slides {
		if s.ID == id {
			return i
		}
	}
	return -1
}
