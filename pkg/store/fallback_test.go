package store

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"docforge/pkg/domain"
)

// fakeDurable is a scriptable durable backend: it behaves like a database
// that assigns 24-char hex ids and can be switched into a failing state.
type fakeDurable struct {
	mu       sync.Mutex
	projects map[string]domain.Project
	fail     bool
	getCalls int
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{projects: make(map[string]domain.Project)}
}

var errDown = errors.New("connection refused")

func (f *fakeDurable) CreateProject(p domain.Project) (domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return domain.Project{}, errDown
	}
	p.ID = NewID()
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeDurable) GetProject(id, ownerID string) (domain.Project, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.fail {
		return domain.Project{}, false, errDown
	}
	p, ok := f.projects[id]
	if !ok || p.OwnerID != ownerID {
		return domain.Project{}, false, nil
	}
	return p, true, nil
}

func (f *fakeDurable) ListProjects(ownerID string, _ ProjectFilter) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errDown
	}
	out := []domain.Project{}
	for _, p := range f.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDurable) UpdateProject(id, ownerID string, patch ProjectPatch) (domain.Project, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return domain.Project{}, false, errDown
	}
	p, ok := f.projects[id]
	if !ok || p.OwnerID != ownerID {
		return domain.Project{}, false, nil
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	f.projects[id] = p
	return p, true, nil
}

func (f *fakeDurable) DeleteProject(id, ownerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false, errDown
	}
	p, ok := f.projects[id]
	if !ok || p.OwnerID != ownerID {
		return false, nil
	}
	delete(f.projects, id)
	return true, nil
}

func (f *fakeDurable) getCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallbackPrefersDurableBackend(t *testing.T) {
	durable := newFakeDurable()
	volatile := NewMemoryStore()
	fs := NewFallbackStore(durable, volatile, quietLogger())

	p, err := fs.CreateProject(domain.Project{OwnerID: "owner", Title: "Report", Kind: domain.KindWord, Topic: "topic"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !IsValidID(p.ID) {
		t.Fatalf("durable create must yield a durable id, got %q", p.ID)
	}

	// Durable writes are not mirrored into the volatile store.
	if _, ok, _ := volatile.GetProject(p.ID, "owner"); ok {
		t.Fatal("volatile store must not hold a durable record")
	}
	got, ok, err := fs.GetProject(p.ID, "owner")
	if err != nil || !ok || got.ID != p.ID {
		t.Fatalf("durable read: ok=%v err=%v %+v", ok, err, got)
	}
}

func TestFallbackCreateFallsBackOnOutage(t *testing.T) {
	durable := newFakeDurable()
	durable.fail = true
	fs := NewFallbackStore(durable, NewMemoryStore(), quietLogger())

	p, err := fs.CreateProject(domain.Project{OwnerID: "owner", Title: "Report", Kind: domain.KindWord, Topic: "topic"})
	if err != nil {
		t.Fatalf("create during outage: %v", err)
	}
	if IsValidID(p.ID) {
		t.Fatalf("volatile create must yield a volatile id, got %q", p.ID)
	}

	// The id format routes later reads straight to the volatile store,
	// even once the durable backend recovers.
	durable.fail = false
	before := durable.getCallCount()
	got, ok, err := fs.GetProject(p.ID, "owner")
	if err != nil || !ok || got.ID != p.ID {
		t.Fatalf("volatile read: ok=%v err=%v %+v", ok, err, got)
	}
	if durable.getCallCount() != before {
		t.Fatal("volatile-format id must skip the durable backend")
	}
}

func TestFallbackReadsVolatileAfterDurableMiss(t *testing.T) {
	durable := newFakeDurable()
	volatile := NewMemoryStore()
	fs := NewFallbackStore(durable, volatile, quietLogger())

	// Durable ids are valid-format, so a durable miss still reaches the
	// volatile store before reporting not found.
	if _, ok, err := fs.GetProject(NewID(), "owner"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if durable.getCallCount() != 1 {
		t.Fatalf("expected one durable lookup, got %d", durable.getCallCount())
	}
}

func TestFallbackGetDuringOutage(t *testing.T) {
	durable := newFakeDurable()
	fs := NewFallbackStore(durable, NewMemoryStore(), quietLogger())

	p, _ := fs.CreateProject(domain.Project{OwnerID: "owner", Title: "Report", Kind: domain.KindWord, Topic: "topic"})
	durable.fail = true

	// The durable error is absorbed; the volatile store answers (here with
	// a miss, since the record lives durably).
	if _, ok, err := fs.GetProject(p.ID, "owner"); ok || err != nil {
		t.Fatalf("expected absorbed outage with miss, got ok=%v err=%v", ok, err)
	}
}

func TestFallbackUpdateAndDeleteRouting(t *testing.T) {
	durable := newFakeDurable()
	volatile := NewMemoryStore()
	fs := NewFallbackStore(durable, volatile, quietLogger())

	durableRec, _ := fs.CreateProject(domain.Project{OwnerID: "owner", Title: "Durable", Kind: domain.KindWord, Topic: "topic"})
	durable.fail = true
	volatileRec, _ := fs.CreateProject(domain.Project{OwnerID: "owner", Title: "Volatile", Kind: domain.KindWord, Topic: "topic"})
	durable.fail = false

	title := "Renamed"
	updated, ok, err := fs.UpdateProject(volatileRec.ID, "owner", ProjectPatch{Title: &title})
	if err != nil || !ok || updated.Title != "Renamed" {
		t.Fatalf("volatile update: ok=%v err=%v %+v", ok, err, updated)
	}
	if got, _, _ := durable.GetProject(durableRec.ID, "owner"); got.Title != "Durable" {
		t.Fatal("durable record must be untouched by a volatile update")
	}

	updated, ok, err = fs.UpdateProject(durableRec.ID, "owner", ProjectPatch{Title: &title})
	if err != nil || !ok || updated.Title != "Renamed" {
		t.Fatalf("durable update: ok=%v err=%v %+v", ok, err, updated)
	}

	if ok, err := fs.DeleteProject(durableRec.ID, "owner"); err != nil || !ok {
		t.Fatalf("durable delete: ok=%v err=%v", ok, err)
	}
	if ok, err := fs.DeleteProject(volatileRec.ID, "owner"); err != nil || !ok {
		t.Fatalf("volatile delete: ok=%v err=%v", ok, err)
	}
	if ok, _ := fs.DeleteProject(volatileRec.ID, "owner"); ok {
		t.Fatal("second delete must report not found")
	}
}

func TestFallbackWithoutDurableBackend(t *testing.T) {
	fs := NewFallbackStore(nil, NewMemoryStore(), quietLogger())
	p, err := fs.CreateProject(domain.Project{OwnerID: "owner", Title: "Report", Kind: domain.KindWord, Topic: "topic"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok, err := fs.GetProject(p.ID, "owner"); err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
}

func TestIDFormat(t *testing.T) {
	id := NewID()
	if len(id) != 24 || !IsValidID(id) {
		t.Fatalf("unexpected id: %q", id)
	}
	for _, bad := range []string{"", "xyz", "g123456789012345678901234", NewID() + "0"} {
		if IsValidID(bad) {
			t.Fatalf("id %q must be invalid", bad)
		}
	}
}
