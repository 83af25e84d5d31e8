package domain

import "time"

type DocumentKind string

const (
	KindWord  DocumentKind = "docx"
	KindSlide DocumentKind = "pptx"
)

type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusGenerating ProjectStatus = "generating"
	StatusCompleted  ProjectStatus = "completed"
)

// Section is one generatable unit of a Word document. Content stays nil
// until generated; Content and GeneratedAt are set together.
type Section struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Order       int        `json:"order"`
	Content     *string    `json:"content"`
	GeneratedAt *time.Time `json:"generatedAt"`
}

// Slide is one generatable unit of a presentation. Bullets stays nil until
// generated; Bullets and GeneratedAt are set together.
type Slide struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Order       int        `json:"order"`
	Bullets     []string   `json:"content"`
	GeneratedAt *time.Time `json:"generatedAt"`
}

// RefinementEntry records one refinement attempt for a unit. Entries are
// append-only; accepting promotes exactly the latest entry.
type RefinementEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Instruction string    `json:"instruction"`
	OldContent  string    `json:"oldContent"`
	NewContent  string    `json:"newContent"`
	Accepted    bool      `json:"accepted"`
}

// Feedback is the single current feedback record for a unit; a new
// submission replaces the previous one.
type Feedback struct {
	Liked     *bool     `json:"liked"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Project is a document drafting project. Kind fixes which unit collection
// is populated: Sections for docx, Slides for pptx; the other stays nil.
type Project struct {
	ID          string                       `json:"id"`
	OwnerID     string                       `json:"ownerId"`
	Title       string                       `json:"title"`
	Kind        DocumentKind                 `json:"documentType"`
	Topic       string                       `json:"topic"`
	Description string                       `json:"description,omitempty"`
	Sections    []Section                    `json:"sections,omitempty"`
	Slides      []Slide                      `json:"slides,omitempty"`
	Refinements map[string][]RefinementEntry `json:"refinementHistory,omitempty"`
	Feedback    map[string]Feedback          `json:"feedback,omitempty"`
	Status      ProjectStatus                `json:"status"`
	CreatedAt   time.Time                    `json:"createdAt"`
	UpdatedAt   time.Time                    `json:"updatedAt"`
}

// Identity is the resolved caller: either an authenticated user or the
// fixed development fallback. Resolved once at the HTTP boundary.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

func (k DocumentKind) Valid() bool {
	return k == KindWord || k == KindSlide
}

// UnitCount returns the number of units for the project's kind.
func (p Project) UnitCount() int {
	if p.Kind == KindSlide {
		return len(p.Slides)
	}
	return len(p.Sections)
}

// HasGeneratedContent reports whether any unit has content.
func (p Project) HasGeneratedContent() bool {
	for _, s := range p.Sections {
		if s.Content != nil {
			return true
		}
	}
	for _, s := range p.Slides {
		if s.Bullets != nil {
			return true
		}
	}
	return false
}
