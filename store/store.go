package store

import (
	"errors"

	"github.com/google/uuid"

	"collab-docs/models"
)

// ErrNotFound is returned by every implementation when the requested record
// does not exist. Callers translate it at the boundary.
var ErrNotFound = errors.New("record not found")

// ListFilter narrows a document listing. Search matches title and content.
type ListFilter struct {
	Search string
	Public *bool
	Limit  int
	Offset int
}

// Store is the persistence port. It is implementable on any relational store
// with row-level locking and a UTF-8 text column; the service ships a
// Postgres implementation and an in-memory one for tests.
//
// GetDocumentForUpdate holds its row lock only inside Transaction, where the
// implementation serializes writers on the document row. UpdateDocumentBody
// is atomic on its own and is also called outside Transaction by the hub's
// content path.
type Store interface {
	GetDocument(id uuid.UUID) (*models.Document, error)
	GetDocumentForUpdate(id uuid.UUID) (*models.Document, error)
	CreateDocument(doc *models.Document, owner *models.Collaborator) error
	UpdateDocument(doc *models.Document) error
	DeleteDocument(id uuid.UUID) error

	// ListDocuments returns documents readable by the principal (owned,
	// public, or bound), newest first, narrowed by the filter.
	ListDocuments(principal string, filter ListFilter) ([]models.Document, error)

	// GetBinding returns the active binding for (document, principal),
	// or ErrNotFound.
	GetBinding(docID uuid.UUID, principal string) (*models.Collaborator, error)
	CreateBinding(b *models.Collaborator) error

	// UpdateDocumentBody atomically swaps the body and bumps the revision,
	// returning the new revision.
	UpdateDocumentBody(id uuid.UUID, body string) (int64, error)

	// AppendOperation assigns the document's next contiguous sequence
	// number and inserts the record.
	AppendOperation(op *models.Operation) error

	InsertAnalytics(ev *models.AnalyticsEvent) error

	// Transaction runs fn against a store whose effects commit together
	// or not at all.
	Transaction(fn func(Store) error) error
}
