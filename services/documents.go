package services

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"collab-docs/models"
	"collab-docs/store"
	"collab-docs/utils"
)

// DocumentService owns document CRUD and listing. All access rules live here
// and in access.go; controllers only translate HTTP.
type DocumentService struct {
	store store.Store
}

func NewDocumentService(s store.Store) *DocumentService {
	return &DocumentService{store: s}
}

func (ds *DocumentService) Store() store.Store {
	return ds.store
}

func (ds *DocumentService) Create(principal models.Principal, req *models.CreateDocumentRequest) (*models.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, utils.BadRequest(err.Error())
	}
	now := time.Now().UTC()
	doc := &models.Document{
		ID:               uuid.New(),
		Title:            req.Title,
		Description:      req.Description,
		Content:          req.Content,
		Tags:             req.Tags,
		IsPublic:         req.IsPublic,
		AllowComments:    req.AllowComments,
		AllowSuggestions: req.AllowSuggestions,
		RequireApproval:  req.RequireApproval,
		OwnerID:          principal.ID,
		Revision:         0,
		CreatedAt:        now,
		UpdatedAt:        now,
		LastEditedAt:     now,
	}
	owner := &models.Collaborator{
		DocumentID:  doc.ID,
		PrincipalID: principal.ID,
		Permission:  models.PermissionOwner,
		Active:      true,
		CreatedAt:   now,
	}
	if err := ds.store.CreateDocument(doc, owner); err != nil {
		return nil, utils.AsError(err)
	}
	slog.Info("document created", "document", doc.ID, "owner", principal.ID)
	return doc, nil
}

// Get fetches a readable document. Missing and not-readable are both 404 so
// private documents do not leak their existence.
func (ds *DocumentService) Get(principal models.Principal, id string) (*models.Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, utils.BadRequest("document id must be a valid UUID")
	}
	doc, err := ds.store.GetDocument(docID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, utils.NotFound("document not found")
	}
	if err != nil {
		return nil, utils.AsError(err)
	}
	readable, err := CanRead(ds.store, doc, principal.ID)
	if err != nil {
		return nil, utils.AsError(err)
	}
	if !readable {
		return nil, utils.NotFound("document not found")
	}
	return doc, nil
}

func (ds *DocumentService) Update(principal models.Principal, id string, req *models.UpdateDocumentRequest) (*models.Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, utils.BadRequest("document id must be a valid UUID")
	}
	if req.Empty() {
		return nil, utils.BadRequest("no fields to update")
	}
	if err := req.Validate(); err != nil {
		return nil, utils.BadRequest(err.Error())
	}
	var updated *models.Document
	txErr := ds.store.Transaction(func(tx store.Store) error {
		doc, err := tx.GetDocumentForUpdate(docID)
		if errors.Is(err, store.ErrNotFound) {
			return utils.NotFound("document not found")
		}
		if err != nil {
			return err
		}
		writable, err := CanWrite(tx, doc, principal.ID)
		if err != nil {
			return err
		}
		if !writable {
			return utils.Forbidden("you do not have permission to edit this document")
		}
		if req.Title != nil {
			doc.Title = *req.Title
		}
		if req.Description != nil {
			doc.Description = *req.Description
		}
		if req.Tags != nil {
			doc.Tags = *req.Tags
		}
		if req.IsPublic != nil {
			doc.IsPublic = *req.IsPublic
		}
		if req.AllowComments != nil {
			doc.AllowComments = *req.AllowComments
		}
		if req.AllowSuggestions != nil {
			doc.AllowSuggestions = *req.AllowSuggestions
		}
		if req.RequireApproval != nil {
			doc.RequireApproval = *req.RequireApproval
		}
		now := time.Now().UTC()
		doc.UpdatedAt = now
		if req.Content != nil {
			doc.Content = *req.Content
			doc.Revision++
			doc.LastEditedAt = now
		}
		if err := tx.UpdateDocument(doc); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if txErr != nil {
		return nil, utils.AsError(txErr)
	}
	return updated, nil
}

// Delete hard-deletes a document. Only the owner may; anyone else gets the
// same 404 a missing document would.
func (ds *DocumentService) Delete(principal models.Principal, id string) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return utils.BadRequest("document id must be a valid UUID")
	}
	doc, err := ds.store.GetDocument(docID)
	if errors.Is(err, store.ErrNotFound) {
		return utils.NotFound("document not found")
	}
	if err != nil {
		return utils.AsError(err)
	}
	if doc.OwnerID != principal.ID {
		return utils.NotFound("document not found")
	}
	if err := ds.store.DeleteDocument(docID); err != nil {
		return utils.AsError(err)
	}
	slog.Info("document deleted", "document", docID, "owner", principal.ID)
	return nil
}

func (ds *DocumentService) List(principal models.Principal, filter store.ListFilter) ([]models.Document, error) {
	docs, err := ds.store.ListDocuments(principal.ID, filter)
	if err != nil {
		return nil, utils.AsError(err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}
