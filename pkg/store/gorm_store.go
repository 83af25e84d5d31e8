package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"docforge/pkg/domain"
)

const migrateLockID int64 = 48291517

// GormStore implements ProjectStore using GORM + Postgres. It is the
// durable backend of the persistence adapter.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ProjectModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateProject assigns a durable id and stores the project.
func (s *GormStore) CreateProject(p domain.Project) (domain.Project, error) {
	now := time.Now().UTC()
	p.ID = NewID()
	p.CreatedAt = now
	p.UpdatedAt = now
	model, err := projectToModel(p)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// GetProject retrieves a project scoped to its owner. Ids that do not match
// the durable format short-circuit to not found.
func (s *GormStore) GetProject(id, ownerID string) (domain.Project, bool, error) {
	if !IsValidID(id) {
		return domain.Project{}, false, nil
	}
	var model ProjectModel
	if err := s.db.First(&model, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Project{}, false, nil
		}
		return domain.Project{}, false, err
	}
	p, err := projectFromModel(model)
	if err != nil {
		return domain.Project{}, false, err
	}
	return p, true, nil
}

// ListProjects returns the owner's projects, newest first.
func (s *GormStore) ListProjects(ownerID string, f ProjectFilter) ([]domain.Project, error) {
	tx := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC")
	if f.Kind != "" {
		tx = tx.Where("kind = ?", string(f.Kind))
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		tx = tx.Where("title ILIKE ? OR topic ILIKE ?", pattern, pattern)
	}
	if f.Skip > 0 {
		tx = tx.Offset(f.Skip)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	var models []ProjectModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Project, 0, len(models))
	for _, m := range models {
		p, err := projectFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// UpdateProject applies a partial update and returns the updated record.
func (s *GormStore) UpdateProject(id, ownerID string, patch ProjectPatch) (domain.Project, bool, error) {
	if !IsValidID(id) {
		return domain.Project{}, false, nil
	}
	updates, err := patchToUpdates(patch)
	if err != nil {
		return domain.Project{}, false, err
	}
	tx := s.db.Model(&ProjectModel{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if tx.Error != nil {
		return domain.Project{}, false, tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.Project{}, false, nil
	}
	return s.GetProject(id, ownerID)
}

// DeleteProject removes the project and, with it, its units, ledger, and
// feedback.
func (s *GormStore) DeleteProject(id, ownerID string) (bool, error) {
	if !IsValidID(id) {
		return false, nil
	}
	tx := s.db.Delete(&ProjectModel{}, "id = ? AND owner_id = ?", id, ownerID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func patchToUpdates(patch ProjectPatch) (map[string]any, error) {
	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Topic != nil {
		updates["topic"] = *patch.Topic
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.Sections != nil {
		raw, err := json.Marshal(*patch.Sections)
		if err != nil {
			return nil, fmt.Errorf("marshal sections: %w", err)
		}
		updates["sections"] = raw
	}
	if patch.Slides != nil {
		raw, err := json.Marshal(*patch.Slides)
		if err != nil {
			return nil, fmt.Errorf("marshal slides: %w", err)
		}
		updates["slides"] = raw
	}
	if patch.Refinements != nil {
		raw, err := json.Marshal(*patch.Refinements)
		if err != nil {
			return nil, fmt.Errorf("marshal refinements: %w", err)
		}
		updates["refinements"] = raw
	}
	if patch.Feedback != nil {
		raw, err := json.Marshal(*patch.Feedback)
		if err != nil {
			return nil, fmt.Errorf("marshal feedback: %w", err)
		}
		updates["feedback"] = raw
	}
	return updates, nil
}

func projectToModel(p domain.Project) (ProjectModel, error) {
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return ProjectModel{}, fmt.Errorf("marshal sections: %w", err)
	}
	slides, err := json.Marshal(p.Slides)
	if err != nil {
		return ProjectModel{}, fmt.Errorf("marshal slides: %w", err)
	}
	refinements, err := json.Marshal(p.Refinements)
	if err != nil {
		return ProjectModel{}, fmt.Errorf("marshal refinements: %w", err)
	}
	feedback, err := json.Marshal(p.Feedback)
	if err != nil {
		return ProjectModel{}, fmt.Errorf("marshal feedback: %w", err)
	}
	return ProjectModel{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Kind:        string(p.Kind),
		Topic:       p.Topic,
		Description: p.Description,
		Sections:    sections,
		Slides:      slides,
		Refinements: refinements,
		Feedback:    feedback,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func projectFromModel(m ProjectModel) (domain.Project, error) {
	p := domain.Project{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		Kind:        domain.DocumentKind(m.Kind),
		Topic:       m.Topic,
		Description: m.Description,
		Status:      domain.ProjectStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.Sections) > 0 {
		if err := json.Unmarshal(m.Sections, &p.Sections); err != nil {
			return domain.Project{}, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	if len(m.Slides) > 0 {
		if err := json.Unmarshal(m.Slides, &p.Slides); err != nil {
			return domain.Project{}, fmt.Errorf("unmarshal slides: %w", err)
		}
	}
	if len(m.Refinements) > 0 {
		if err := json.Unmarshal(m.Refinements, &p.Refinements); err != nil {
			return domain.Project{}, fmt.Errorf("unmarshal refinements: %w", err)
		}
	}
	if len(m.Feedback) > 0 {
		if err := json.Unmarshal(m.Feedback, &p.Feedback); err != nil {
			return domain.Project{}, fmt.Errorf("unmarshal feedback: %w", err)
		}
	}
	return p, nil
}
