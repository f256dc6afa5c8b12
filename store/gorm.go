package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collab-docs/models"
)

// Gorm is the Postgres-backed store. Per-document serialization of body
// mutations comes from the row lock taken inside Transaction.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func (s *Gorm) GetDocument(id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := s.db.First(&doc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *Gorm) GetDocumentForUpdate(id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *Gorm) CreateDocument(doc *models.Document, owner *models.Collaborator) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("failed to create owner binding: %w", err)
		}
		return nil
	})
}

func (s *Gorm) UpdateDocument(doc *models.Document) error {
	res := s.db.Model(&models.Document{}).Where("id = ?", doc.ID).
		Select("title", "description", "content", "tags", "is_public",
			"allow_comments", "allow_suggestions", "require_approval",
			"revision", "updated_at", "last_edited_at").
		Updates(doc)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) DeleteDocument(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Document{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		tx.Delete(&models.Collaborator{}, "document_id = ?", id)
		tx.Delete(&models.Operation{}, "document_id = ?", id)
		return nil
	})
}

func (s *Gorm) ListDocuments(principal string, filter ListFilter) ([]models.Document, error) {
	q := s.db.Model(&models.Document{}).Where(
		"is_public = ? OR owner_id = ? OR id IN (?)",
		true, principal,
		s.db.Model(&models.Collaborator{}).Select("document_id").
			Where("principal_id = ? AND active = ?", principal, true),
	)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}
	if filter.Public != nil {
		q = q.Where("is_public = ?", *filter.Public)
	}
	var docs []models.Document
	err := q.Order("updated_at DESC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&docs).Error
	if err != nil {
		return nil, translate(err)
	}
	return docs, nil
}

func (s *Gorm) GetBinding(docID uuid.UUID, principal string) (*models.Collaborator, error) {
	var binding models.Collaborator
	err := s.db.First(&binding,
		"document_id = ? AND principal_id = ? AND active = ?",
		docID, principal, true).Error
	if err != nil {
		return nil, translate(err)
	}
	return &binding, nil
}

func (s *Gorm) CreateBinding(b *models.Collaborator) error {
	if err := s.db.Create(b).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Gorm) UpdateDocumentBody(id uuid.UUID, body string) (int64, error) {
	now := time.Now().UTC()
	var doc models.Document
	res := s.db.Model(&doc).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "revision"}}}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":        body,
			"revision":       gorm.Expr("revision + 1"),
			"updated_at":     now,
			"last_edited_at": now,
		})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return doc.Revision, nil
}

func (s *Gorm) AppendOperation(op *models.Operation) error {
	var next int64
	err := s.db.Model(&models.Operation{}).
		Where("document_id = ?", op.DocumentID).
		Select("COALESCE(MAX(sequence), 0) + 1").
		Scan(&next).Error
	if err != nil {
		return translate(err)
	}
	op.Sequence = next
	if err := s.db.Create(op).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Gorm) InsertAnalytics(ev *models.AnalyticsEvent) error {
	if err := s.db.Create(ev).Error; err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
