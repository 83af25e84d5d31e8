package store

import (
	"log/slog"

	"docforge/pkg/domain"
)

// FallbackStore is the dual-backend persistence adapter. Every operation is
// attempted against the durable backend first and falls back to the
// volatile backend when the durable one is unreachable or has no match.
//
// Policy notes:
//   - A write accepted by the durable backend is NOT mirrored into the
//     volatile store; the two backends are not kept in sync.
//   - Reads try the volatile store after a durable miss, because a record
//     created during a durable outage exists only there.
//   - Ids carry their owning backend in their format: durable ids are
//     24-char hex, volatile ids are UUIDs. An id that fails the durable
//     format check skips the durable backend entirely.
//   - Durable failures are logged and absorbed; the caller sees an error
//     only when both backends fail.
type FallbackStore struct {
	durable  ProjectStore // nil when no database is configured
	volatile ProjectStore
	logger   *slog.Logger
}

// NewFallbackStore builds the adapter. durable may be nil; volatile must
// not be.
func NewFallbackStore(durable, volatile ProjectStore, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{durable: durable, volatile: volatile, logger: logger}
}

// CreateProject stores the project durably when possible; the volatile
// store takes over on failure.
func (f *FallbackStore) CreateProject(p domain.Project) (domain.Project, error) {
	if f.durable != nil {
		created, err := f.durable.CreateProject(p)
		if err == nil {
			return created, nil
		}
		f.logger.Warn("durable store unavailable, using volatile store", "op", "create", "err", err)
	}
	return f.volatile.CreateProject(p)
}

// GetProject reads durable-first, then volatile.
func (f *FallbackStore) GetProject(id, ownerID string) (domain.Project, bool, error) {
	if f.durable != nil && IsValidID(id) {
		p, ok, err := f.durable.GetProject(id, ownerID)
		if err != nil {
			f.logger.Warn("durable store unavailable, using volatile store", "op", "get", "err", err)
		} else if ok {
			return p, true, nil
		}
	}
	return f.volatile.GetProject(id, ownerID)
}

// ListProjects lists from the durable backend when it answers; a durable
// error falls back to the volatile store. Results are not merged, so
// records created during an outage are only listed while the outage lasts.
func (f *FallbackStore) ListProjects(ownerID string, filter ProjectFilter) ([]domain.Project, error) {
	if f.durable != nil {
		items, err := f.durable.ListProjects(ownerID, filter)
		if err == nil {
			return items, nil
		}
		f.logger.Warn("durable store unavailable, using volatile store", "op", "list", "err", err)
	}
	return f.volatile.ListProjects(ownerID, filter)
}

// UpdateProject patches durable-first; a durable error or miss falls
// through to the volatile store.
func (f *FallbackStore) UpdateProject(id, ownerID string, patch ProjectPatch) (domain.Project, bool, error) {
	if f.durable != nil && IsValidID(id) {
		p, ok, err := f.durable.UpdateProject(id, ownerID, patch)
		if err != nil {
			f.logger.Warn("durable store unavailable, using volatile store", "op", "update", "err", err)
		} else if ok {
			return p, true, nil
		}
	}
	return f.volatile.UpdateProject(id, ownerID, patch)
}

// DeleteProject deletes durable-first, then volatile.
func (f *FallbackStore) DeleteProject(id, ownerID string) (bool, error) {
	if f.durable != nil && IsValidID(id) {
		ok, err := f.durable.DeleteProject(id, ownerID)
		if err != nil {
			f.logger.Warn("durable store unavailable, using volatile store", "op", "delete", "err", err)
		} else if ok {
			return true, nil
		}
	}
	return f.volatile.DeleteProject(id, ownerID)
}
