package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docforge/internal/util"
	"docforge/pkg/domain"
	"docforge/pkg/store"
)

// RefineResult is a proposed rewrite for one unit. The canonical content is
// untouched until the proposal is accepted.
type RefineResult struct {
	UnitID          string
	Kind            domain.DocumentKind
	OriginalContent string
	RefinedContent  string
	RefinedBullets  []string
	Instruction     string
	Timestamp       time.Time
}

// Refine asks the model to rewrite a unit's content per the instruction and
// appends the proposal to the unit's refinement ledger. A capability failure
// is absorbed: the proposal is then the current content unchanged.
func (a *App) Refine(ctx context.Context, identity domain.Identity, projectID, unitID, instruction string) (RefineResult, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return RefineResult{}, fmt.Errorf("%w: refinement instruction is required", ErrInvalidRequest)
	}
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return RefineResult{}, err
	}

	current, ok, hasContent := unitContent(p, unitID)
	if !ok {
		return RefineResult{}, ErrUnitNotFound
	}
	if !hasContent {
		return RefineResult{}, ErrNoContentToRefine
	}

	refined, err := a.generator.GenerateText(ctx, systemPrompt, refinePrompt(current, instruction, p.Kind))
	if err != nil || refined == "" {
		if err != nil {
			util.LoggerFromContext(ctx).Warn("refinement generation failed, proposing current content", "unit", unitID, "err", err)
		}
		refined = current
	}

	entry := domain.RefinementEntry{
		Timestamp:   time.Now().UTC(),
		Instruction: instruction,
		OldContent:  current,
		NewContent:  refined,
		Accepted:    false,
	}
	refinements := cloneRefinements(p.Refinements)
	refinements[unitID] = append(refinements[unitID], entry)

	if _, ok, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{Refinements: &refinements}); err != nil {
		return RefineResult{}, fmt.Errorf("persist refinement: %w", err)
	} else if !ok {
		return RefineResult{}, ErrProjectNotFound
	}

	result := RefineResult{
		UnitID:          unitID,
		Kind:            p.Kind,
		OriginalContent: current,
		RefinedContent:  refined,
		Instruction:     instruction,
		Timestamp:       entry.Timestamp,
	}
	if p.Kind == domain.KindSlide {
		result.RefinedBullets = splitLines(refined)
	}
	return result, nil
}

// AcceptResult is the canonical content after promoting a refinement.
type AcceptResult struct {
	UnitID     string
	Kind       domain.DocumentKind
	NewContent string
	NewBullets []string
}

// AcceptRefinement promotes the most recent ledger entry for the unit:
// the entry is marked accepted and its proposed content becomes canonical.
// Older entries are never accepted retroactively.
func (a *App) AcceptRefinement(identity domain.Identity, projectID, unitID string) (AcceptResult, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return AcceptResult{}, err
	}
	history := p.Refinements[unitID]
	if len(history) == 0 {
		return AcceptResult{}, ErrNoRefinements
	}

	refinements := cloneRefinements(p.Refinements)
	entries := refinements[unitID]
	entries[len(entries)-1].Accepted = true
	newContent := entries[len(entries)-1].NewContent

	patch := store.ProjectPatch{Refinements: &refinements}
	result := AcceptResult{UnitID: unitID, Kind: p.Kind, NewContent: newContent}
	if p.Kind == domain.KindWord {
		idx := sectionIndex(p.Sections, unitID)
		if idx < 0 {
			return AcceptResult{}, ErrUnitNotFound
		}
		p.Sections[idx].Content = &newContent
		patch.Sections = &p.Sections
	} else {
		idx := slideIndex(p.Slides, unitID)
		if idx < 0 {
			return AcceptResult{}, ErrUnitNotFound
		}
		bullets := splitLines(newContent)
		p.Slides[idx].Bullets = bullets
		patch.Slides = &p.Slides
		result.NewBullets = bullets
	}

	if _, ok, err := a.store.UpdateProject(projectID, identity.ID, patch); err != nil {
		return AcceptResult{}, fmt.Errorf("persist accepted refinement: %w", err)
	} else if !ok {
		return AcceptResult{}, ErrProjectNotFound
	}
	return result, nil
}

// SubmitFeedback replaces the unit's single feedback record.
func (a *App) SubmitFeedback(identity domain.Identity, projectID, unitID string, liked *bool, comment string) (domain.Feedback, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return domain.Feedback{}, err
	}

	entry := domain.Feedback{
		Liked:     liked,
		Comment:   strings.TrimSpace(comment),
		Timestamp: time.Now().UTC(),
	}
	feedback := make(map[string]domain.Feedback, len(p.Feedback)+1)
	for k, v := range p.Feedback {
		feedback[k] = v
	}
	feedback[unitID] = entry

	if _, ok, err := a.store.UpdateProject(projectID, identity.ID, store.ProjectPatch{Feedback: &feedback}); err != nil {
		return domain.Feedback{}, fmt.Errorf("persist feedback: %w", err)
	} else if !ok {
		return domain.Feedback{}, ErrProjectNotFound
	}
	return entry, nil
}

// RefinementHistory returns the unit's ledger in chronological order.
func (a *App) RefinementHistory(identity domain.Identity, projectID, unitID string) ([]domain.RefinementEntry, error) {
	p, err := a.GetProject(identity, projectID)
	if err != nil {
		return nil, err
	}
	history := p.Refinements[unitID]
	if history == nil {
		history = []domain.RefinementEntry{}
	}
	return history, nil
}

// unitContent returns the unit's content normalized to a single string
// (slide bullets joined with newlines), whether the unit exists, and
// whether it has content.
func unitContent(p domain.Project, unitID string) (content string, ok, hasContent bool) {
	if p.Kind == domain.KindWord {
		idx := sectionIndex(p.Sections, unitID)
		if idx < 0 {
			return "", false, false
		}
		if p.Sections[idx].Content == nil {
			return "", true, false
		}
		return *p.Sections[idx].Content, true, true
	}
	idx := slideIndex(p.Slides, unitID)
	if idx < 0 {
		return "", false, false
	}
	if p.Slides[idx].Bullets == nil {
		return "", true, false
	}
	return strings.Join(p.Slides[idx].Bullets, "\n"), true, true
}

func cloneRefinements(src map[string][]domain.RefinementEntry) map[string][]domain.RefinementEntry {
	out := make(map[string][]domain.RefinementEntry, len(src)+1)
	for unitID, entries := range src {
		out[unitID] = append([]domain.RefinementEntry(nil), entries...)
	}
	return out
}
