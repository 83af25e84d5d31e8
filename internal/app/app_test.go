package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"docforge/pkg/domain"
	"docforge/pkg/store"
)

// stubGenerator scripts the text-generation capability and records every
// user prompt it was asked to complete.
type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	respond func(userPrompt string) (string, error)
}

func (g *stubGenerator) GenerateText(_ context.Context, _, userPrompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, userPrompt)
	g.mu.Unlock()
	if g.respond != nil {
		return g.respond(userPrompt)
	}
	return "generated content", nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *stubGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func (g *stubGenerator) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = nil
}

// cascadeRespond answers outline prompts with five titles and everything
// else with plain content, so generate-all produces a full-size project.
func cascadeRespond(userPrompt string) (string, error) {
	if strings.Contains(userPrompt, "Create a professional outline") {
		return "Alpha\nBeta\nGamma\nDelta\nEpsilon", nil
	}
	return "generated content", nil
}

var testIdentity = domain.Identity{ID: "user-1"}

func newTestApp(t *testing.T, gen *stubGenerator) *App {
	t.Helper()
	a, err := New(Config{Store: store.NewMemoryStore(), Generator: gen})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func createWordProject(t *testing.T, a *App, units ...string) domain.Project {
	t.Helper()
	in := CreateProjectInput{Title: "Quarterly Report", Kind: domain.KindWord, Topic: "cloud migration"}
	for i, title := range units {
		in.Sections = append(in.Sections, UnitInput{Title: title, Order: i + 1})
	}
	p, err := a.CreateProject(testIdentity, in)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func createSlideProject(t *testing.T, a *App, units ...string) domain.Project {
	t.Helper()
	in := CreateProjectInput{Title: "Kickoff Deck", Kind: domain.KindSlide, Topic: "cloud migration"}
	for i, title := range units {
		in.Slides = append(in.Slides, UnitInput{Title: title, Order: i + 1})
	}
	p, err := a.CreateProject(testIdentity, in)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// assertUnitInvariant checks content != nil iff generatedAt != nil for
// every unit of the project.
func assertUnitInvariant(t *testing.T, p domain.Project) {
	t.Helper()
	for _, s := range p.Sections {
		if (s.Content != nil) != (s.GeneratedAt != nil) {
			t.Fatalf("section %q: content/generatedAt mismatch", s.Title)
		}
	}
	for _, s := range p.Slides {
		if (s.Bullets != nil) != (s.GeneratedAt != nil) {
			t.Fatalf("slide %q: content/generatedAt mismatch", s.Title)
		}
	}
}

func TestGenerateOutlineExactCount(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return "First\nSecond\nThird\nFourth\nFifth\nSixth", nil
	}}
	a := newTestApp(t, gen)
	p := createWordProject(t, a)

	updated, err := a.GenerateOutline(context.Background(), testIdentity, p.ID, 3)
	if err != nil {
		t.Fatalf("generate outline: %v", err)
	}
	if len(updated.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(updated.Sections))
	}
	seen := map[string]bool{}
	for i, s := range updated.Sections {
		if s.Order != i+1 {
			t.Fatalf("section %d: order %d", i, s.Order)
		}
		if s.ID == "" || seen[s.ID] {
			t.Fatalf("section %d: id not fresh and distinct", i)
		}
		seen[s.ID] = true
	}
	if updated.Status != domain.StatusDraft {
		t.Fatalf("outline generation must not change status, got %q", updated.Status)
	}
	assertUnitInvariant(t, updated)
}

func TestGenerateOutlinePlaceholderOnCapabilityFailure(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	a := newTestApp(t, gen)
	p := createSlideProject(t, a)

	updated, err := a.GenerateOutline(context.Background(), testIdentity, p.ID, 5)
	if err != nil {
		t.Fatalf("generate outline: %v", err)
	}
	if len(updated.Slides) != 5 {
		t.Fatalf("expected placeholder outline of 5 slides, got %d", len(updated.Slides))
	}
	if updated.Slides[0].Title != "Introduction to cloud migration" {
		t.Fatalf("unexpected placeholder title: %q", updated.Slides[0].Title)
	}
}

func TestGenerateOutlineKeepsDeficit(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return "Only One Title", nil
	}}
	a := newTestApp(t, gen)
	p := createWordProject(t, a)

	updated, err := a.GenerateOutline(context.Background(), testIdentity, p.ID, 5)
	if err != nil {
		t.Fatalf("generate outline: %v", err)
	}
	// The model under-delivered; the deficit is deliberately not padded.
	if len(updated.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(updated.Sections))
	}
}

func TestGenerateOutlineReplacesExistingUnits(t *testing.T) {
	gen := &stubGenerator{}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "Old One", "Old Two")
	oldID := p.Sections[0].ID

	updated, err := a.GenerateOutline(context.Background(), testIdentity, p.ID, 2)
	if err != nil {
		t.Fatalf("generate outline: %v", err)
	}
	for _, s := range updated.Sections {
		if s.ID == oldID {
			t.Fatal("outline must assign fresh unit ids")
		}
	}
}

func TestGenerateOutlineRejectsZeroCount(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	p := createWordProject(t, a)
	if _, err := a.GenerateOutline(context.Background(), testIdentity, p.ID, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestGenerateSectionSetsContentAndStatus(t *testing.T) {
	gen := &stubGenerator{}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "Overview")

	section, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[0].ID)
	if err != nil {
		t.Fatalf("generate section: %v", err)
	}
	if section.Content == nil || *section.Content != "generated content" {
		t.Fatalf("unexpected content: %v", section.Content)
	}
	if section.GeneratedAt == nil {
		t.Fatal("expected generatedAt to be set")
	}

	stored, err := a.GetProject(testIdentity, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if stored.Status != domain.StatusGenerating {
		t.Fatalf("expected generating status, got %q", stored.Status)
	}
	assertUnitInvariant(t, stored)
}

func TestGenerateSectionWrongKind(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	p := createSlideProject(t, a, "Intro")
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Slides[0].ID); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestGenerateSectionUnknownUnit(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	p := createWordProject(t, a, "Overview")
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, "missing-unit"); !errors.Is(err, ErrUnitNotFound) {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestGenerateSectionFillerOnCapabilityFailure(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "Overview")

	section, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[0].ID)
	if err != nil {
		t.Fatalf("capability failure must be absorbed, got %v", err)
	}
	want := "This section will cover important aspects of Overview related to cloud migration. Please refine this content to get detailed information."
	if section.Content == nil || *section.Content != want {
		t.Fatalf("unexpected filler content: %v", section.Content)
	}
}

func TestContextThreadingSkipsLaterUnits(t *testing.T) {
	counter := 0
	gen := &stubGenerator{respond: func(string) (string, error) {
		counter++
		return fmt.Sprintf("unique-content-%d", counter), nil
	}}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "One", "Two", "Three")

	// Generate units 1 and 3 out of order, then unit 2.
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[0].ID); err != nil {
		t.Fatalf("generate unit 1: %v", err)
	}
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[2].ID); err != nil {
		t.Fatalf("generate unit 3: %v", err)
	}
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[1].ID); err != nil {
		t.Fatalf("generate unit 2: %v", err)
	}

	prompt := gen.lastPrompt()
	if !strings.Contains(prompt, "unique-content-1") {
		t.Fatal("context for unit 2 must include unit 1's content")
	}
	if strings.Contains(prompt, "unique-content-2") {
		t.Fatal("context for unit 2 must not include unit 3's content")
	}
}

func TestContextFollowsUnitOrderNotSliceOrder(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return "second-content", nil
	}}
	a := newTestApp(t, gen)

	// The outline arrives with the slice out of unit order.
	p, err := a.CreateProject(testIdentity, CreateProjectInput{
		Title: "Quarterly Report",
		Kind:  domain.KindWord,
		Topic: "cloud migration",
		Sections: []UnitInput{
			{Title: "Second", Order: 2},
			{Title: "First", Order: 1},
		},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	var firstID, secondID string
	for _, s := range p.Sections {
		switch s.Title {
		case "First":
			firstID = s.ID
		case "Second":
			secondID = s.ID
		}
	}

	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, secondID); err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, firstID); err != nil {
		t.Fatalf("generate first: %v", err)
	}

	prompt := gen.lastPrompt()
	if strings.Contains(prompt, "second-content") || strings.Contains(prompt, "Second:") {
		t.Fatalf("context for the Order-1 unit must not include the Order-2 unit's content, got:\n%s", prompt)
	}

	// And the Order-2 unit's context must include the Order-1 unit once
	// generated, just as a full-project run would thread it.
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, secondID); err != nil {
		t.Fatalf("regenerate second: %v", err)
	}
	if !strings.Contains(gen.lastPrompt(), "First: second-content...") {
		t.Fatalf("context for the Order-2 unit must include the Order-1 unit's content, got:\n%s", gen.lastPrompt())
	}
}

func TestSlideContextUsesFirstTwoBullets(t *testing.T) {
	responses := []string{
		"bullet-a\nbullet-b\nbullet-c\nbullet-d",
		"second slide bullets",
	}
	gen := &stubGenerator{}
	gen.respond = func(string) (string, error) {
		r := responses[0]
		if len(responses) > 1 {
			responses = responses[1:]
		}
		return r, nil
	}
	a := newTestApp(t, gen)
	p := createSlideProject(t, a, "Intro", "Detail")

	if _, err := a.GenerateSlide(context.Background(), testIdentity, p.ID, p.Slides[0].ID); err != nil {
		t.Fatalf("generate slide 1: %v", err)
	}
	if _, err := a.GenerateSlide(context.Background(), testIdentity, p.ID, p.Slides[1].ID); err != nil {
		t.Fatalf("generate slide 2: %v", err)
	}

	prompt := gen.lastPrompt()
	if !strings.Contains(prompt, "Intro: bullet-a, bullet-b...") {
		t.Fatalf("context must preview the first two bullets, got prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "bullet-c") {
		t.Fatal("context must not include bullets beyond the first two")
	}
}

func TestGenerateAllCascadesFromEmptyProject(t *testing.T) {
	gen := &stubGenerator{respond: cascadeRespond}
	a := newTestApp(t, gen)
	p := createWordProject(t, a)

	updated, err := a.GenerateAll(context.Background(), testIdentity, p.ID)
	if err != nil {
		t.Fatalf("generate all: %v", err)
	}
	// One outline call plus one content call per resulting unit.
	if got := gen.callCount(); got != 1+len(updated.Sections) {
		t.Fatalf("expected %d capability calls, got %d", 1+len(updated.Sections), got)
	}
	if len(updated.Sections) != 5 {
		t.Fatalf("expected default outline of 5 sections, got %d", len(updated.Sections))
	}
	for _, s := range updated.Sections {
		if s.Content == nil {
			t.Fatalf("section %q has no content after generate all", s.Title)
		}
	}
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %q", updated.Status)
	}
	assertUnitInvariant(t, updated)
}

func TestGenerateAllIsIdempotent(t *testing.T) {
	gen := &stubGenerator{respond: cascadeRespond}
	a := newTestApp(t, gen)
	p := createWordProject(t, a)

	first, err := a.GenerateAll(context.Background(), testIdentity, p.ID)
	if err != nil {
		t.Fatalf("generate all: %v", err)
	}
	gen.reset()

	second, err := a.GenerateAll(context.Background(), testIdentity, p.ID)
	if err != nil {
		t.Fatalf("second generate all: %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("expected zero capability calls on re-run, got %d", gen.callCount())
	}
	if second.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %q", second.Status)
	}
	for i := range first.Sections {
		if *first.Sections[i].Content != *second.Sections[i].Content {
			t.Fatalf("section %d content changed on re-run", i)
		}
	}
}

func TestGenerateAllMatchesSingleUnitContext(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return "stable content", nil
	}}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "One", "Two")

	// Unit 1 was generated earlier through the single-unit path.
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[0].ID); err != nil {
		t.Fatalf("generate unit 1: %v", err)
	}
	gen.reset()

	if _, err := a.GenerateAll(context.Background(), testIdentity, p.ID); err != nil {
		t.Fatalf("generate all: %v", err)
	}
	// Only unit 2 was missing; its context must include unit 1's content
	// exactly as the single-unit path would have built it.
	if gen.callCount() != 1 {
		t.Fatalf("expected one capability call, got %d", gen.callCount())
	}
	if !strings.Contains(gen.lastPrompt(), "One: stable content...") {
		t.Fatalf("batch context must match single-unit context, got:\n%s", gen.lastPrompt())
	}
}

func TestRefineAppendsLedgerWithoutTouchingContent(t *testing.T) {
	gen := &stubGenerator{}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "Overview")
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[0].ID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	gen.respond = func(string) (string, error) { return "refined draft", nil }
	result, err := a.Refine(context.Background(), testIdentity, p.ID, p.Sections[0].ID, "make it shorter")
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if result.RefinedContent != "refined draft" {
		t.Fatalf("unexpected proposal: %q", result.RefinedContent)
	}

	stored, _ := a.GetProject(testIdentity, p.ID)
	if *stored.Sections[0].Content != "generated content" {
		t.Fatal("refine must not modify canonical content")
	}
	history := stored.Refinements[p.Sections[0].ID]
	if len(history) != 1 || history[0].Accepted {
		t.Fatalf("expected one unaccepted ledger entry, got %+v", history)
	}
	if history[0].OldContent != "generated content" || history[0].NewContent != "refined draft" {
		t.Fatalf("unexpected ledger entry: %+v", history[0])
	}
}

func TestRefineWithoutContentAppendsNothing(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	p := createWordProject(t, a, "Overview")

	_, err := a.Refine(context.Background(), testIdentity, p.ID, p.Sections[0].ID, "make it shorter")
	if !errors.Is(err, ErrNoContentToRefine) {
		t.Fatalf("expected ErrNoContentToRefine, got %v", err)
	}
	stored, _ := a.GetProject(testIdentity, p.ID)
	if len(stored.Refinements[p.Sections[0].ID]) != 0 {
		t.Fatal("failed refine must not append a ledger entry")
	}
}

func TestRefineCapabilityFailureProposesCurrentContent(t *testing.T) {
	gen := &stubGenerator{}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "Overview")
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, p.Sections[0].ID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	gen.respond = func(string) (string, error) { return "", errors.New("model unavailable") }
	result, err := a.Refine(context.Background(), testIdentity, p.ID, p.Sections[0].ID, "improve it")
	if err != nil {
		t.Fatalf("capability failure must be absorbed, got %v", err)
	}
	if result.RefinedContent != "generated content" {
		t.Fatalf("expected current content as proposal, got %q", result.RefinedContent)
	}
}

func TestAcceptPromotesOnlyLatestEntry(t *testing.T) {
	gen := &stubGenerator{}
	a := newTestApp(t, gen)
	p := createWordProject(t, a, "Overview")
	unitID := p.Sections[0].ID
	if _, err := a.GenerateSection(context.Background(), testIdentity, p.ID, unitID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	revisions := []string{"rev-1", "rev-2"}
	gen.respond = func(string) (string, error) {
		r := revisions[0]
		if len(revisions) > 1 {
			revisions = revisions[1:]
		}
		return r, nil
	}
	if _, err := a.Refine(context.Background(), testIdentity, p.ID, unitID, "first pass"); err != nil {
		t.Fatalf("refine 1: %v", err)
	}
	if _, err := a.Refine(context.Background(), testIdentity, p.ID, unitID, "second pass"); err != nil {
		t.Fatalf("refine 2: %v", err)
	}

	result, err := a.AcceptRefinement(testIdentity, p.ID, unitID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if result.NewContent != "rev-2" {
		t.Fatalf("expected latest revision promoted, got %q", result.NewContent)
	}

	stored, _ := a.GetProject(testIdentity, p.ID)
	history := stored.Refinements[unitID]
	if len(history) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(history))
	}
	if history[0].Accepted {
		t.Fatal("older entry must stay unaccepted")
	}
	if !history[1].Accepted {
		t.Fatal("latest entry must be accepted")
	}
	if *stored.Sections[0].Content != "rev-2" {
		t.Fatalf("canonical content not promoted: %q", *stored.Sections[0].Content)
	}
}

func TestAcceptWithoutHistory(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	p := createWordProject(t, a, "Overview")
	if _, err := a.AcceptRefinement(testIdentity, p.ID, p.Sections[0].ID); !errors.Is(err, ErrNoRefinements) {
		t.Fatalf("expected ErrNoRefinements, got %v", err)
	}
}

func TestAcceptSplitsSlideBullets(t *testing.T) {
	gen := &stubGenerator{}
	a := newTestApp(t, gen)
	p := createSlideProject(t, a, "Intro")
	unitID := p.Slides[0].ID
	if _, err := a.GenerateSlide(context.Background(), testIdentity, p.ID, unitID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	gen.respond = func(string) (string, error) { return "new bullet one\nnew bullet two", nil }
	if _, err := a.Refine(context.Background(), testIdentity, p.ID, unitID, "rewrite"); err != nil {
		t.Fatalf("refine: %v", err)
	}
	result, err := a.AcceptRefinement(testIdentity, p.ID, unitID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(result.NewBullets) != 2 || result.NewBullets[0] != "new bullet one" {
		t.Fatalf("unexpected bullets: %v", result.NewBullets)
	}

	stored, _ := a.GetProject(testIdentity, p.ID)
	if len(stored.Slides[0].Bullets) != 2 {
		t.Fatalf("canonical bullets not promoted: %v", stored.Slides[0].Bullets)
	}
}

func TestFeedbackReplacesPriorRecord(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	p := createWordProject(t, a, "Overview")
	unitID := p.Sections[0].ID

	liked := true
	if _, err := a.SubmitFeedback(testIdentity, p.ID, unitID, &liked, "good"); err != nil {
		t.Fatalf("feedback 1: %v", err)
	}
	disliked := false
	if _, err := a.SubmitFeedback(testIdentity, p.ID, unitID, &disliked, "changed my mind"); err != nil {
		t.Fatalf("feedback 2: %v", err)
	}

	stored, _ := a.GetProject(testIdentity, p.ID)
	fb, ok := stored.Feedback[unitID]
	if !ok {
		t.Fatal("expected feedback record")
	}
	if fb.Liked == nil || *fb.Liked || fb.Comment != "changed my mind" {
		t.Fatalf("expected replacement semantics, got %+v", fb)
	}
}

func TestExportRunsCascadeOnceAndThenNoMore(t *testing.T) {
	gen := &stubGenerator{respond: cascadeRespond}
	a := newTestApp(t, gen)
	p := createWordProject(t, a)

	result, err := a.Export(context.Background(), testIdentity, p.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// One outline call plus content for each of the 5 default units.
	if gen.callCount() != 6 {
		t.Fatalf("expected 6 capability calls, got %d", gen.callCount())
	}
	if len(result.Data) < 4 || string(result.Data[:2]) != "PK" {
		t.Fatal("expected a zip container")
	}
	if result.Filename != "Quarterly Report.docx" {
		t.Fatalf("unexpected filename: %q", result.Filename)
	}

	stored, _ := a.GetProject(testIdentity, p.ID)
	if stored.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %q", stored.Status)
	}

	gen.reset()
	if _, err := a.Export(context.Background(), testIdentity, p.ID); err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("re-export must not trigger generation, got %d calls", gen.callCount())
	}
}

func TestExportPreviewCountsTitleSlide(t *testing.T) {
	gen := &stubGenerator{}
	a := newTestApp(t, gen)
	p := createSlideProject(t, a, "Intro", "Detail")
	if _, err := a.GenerateSlide(context.Background(), testIdentity, p.ID, p.Slides[0].ID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	preview, err := a.ExportPreview(testIdentity, p.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.TotalUnits != 3 {
		t.Fatalf("expected 3 total units (title slide included), got %d", preview.TotalUnits)
	}
	if preview.CompletedUnits != 1 {
		t.Fatalf("expected 1 completed unit, got %d", preview.CompletedUnits)
	}
	if !preview.Slides[0].HasContent || preview.Slides[0].BulletCount == 0 {
		t.Fatalf("unexpected slide preview: %+v", preview.Slides[0])
	}
	if preview.Slides[1].HasContent {
		t.Fatalf("unexpected slide preview: %+v", preview.Slides[1])
	}
}

// fakeArtifacts records archive and prune calls.
type fakeArtifacts struct {
	mu      sync.Mutex
	puts    []string
	deletes []string
}

func (f *fakeArtifacts) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeArtifacts) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return nil
}

func TestDeleteProjectPrunesArchivedExport(t *testing.T) {
	artifacts := &fakeArtifacts{}
	a, err := New(Config{
		Store:     store.NewMemoryStore(),
		Generator: &stubGenerator{respond: cascadeRespond},
		Artifacts: artifacts,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	p := createWordProject(t, a)

	if _, err := a.Export(context.Background(), testIdentity, p.ID); err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(artifacts.puts) != 1 {
		t.Fatalf("expected one archived artifact, got %v", artifacts.puts)
	}

	if err := a.DeleteProject(context.Background(), testIdentity, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(artifacts.deletes) != 1 || artifacts.deletes[0] != artifacts.puts[0] {
		t.Fatalf("expected the archived artifact pruned, got %v", artifacts.deletes)
	}
}

func TestProjectCRUDScopedToOwner(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	p := createWordProject(t, a, "Overview")

	other := domain.Identity{ID: "user-2"}
	if _, err := a.GetProject(other, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if err := a.DeleteProject(context.Background(), other, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if err := a.DeleteProject(context.Background(), testIdentity, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := a.GetProject(testIdentity, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	a := newTestApp(t, &stubGenerator{})
	cases := []CreateProjectInput{
		{Kind: domain.KindWord, Topic: "x"},
		{Title: "t", Kind: domain.KindWord},
		{Title: "t", Kind: "pdf", Topic: "x"},
	}
	for i, in := range cases {
		if _, err := a.CreateProject(testIdentity, in); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}
