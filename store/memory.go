package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"collab-docs/models"
)

// Memory is an in-process Store used by tests. A single mutex serializes all
// access; Transaction snapshots the state and restores it when fn fails.
type Memory struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	docs      map[uuid.UUID]models.Document
	bindings  map[uuid.UUID]map[string]models.Collaborator
	ops       map[uuid.UUID][]models.Operation
	analytics []models.AnalyticsEvent
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[uuid.UUID]models.Document),
		bindings: make(map[uuid.UUID]map[string]models.Collaborator),
		ops:      make(map[uuid.UUID][]models.Operation),
	}
}

func (m *Memory) Transaction(fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snapshot := m.clone()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *Memory) clone() *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := NewMemory()
	for id, doc := range m.docs {
		doc.Tags = append(models.StringList(nil), doc.Tags...)
		c.docs[id] = doc
	}
	for id, byPrincipal := range m.bindings {
		c.bindings[id] = make(map[string]models.Collaborator, len(byPrincipal))
		for p, b := range byPrincipal {
			c.bindings[id][p] = b
		}
	}
	for id, ops := range m.ops {
		c.ops[id] = append([]models.Operation(nil), ops...)
	}
	c.analytics = append([]models.AnalyticsEvent(nil), m.analytics...)
	return c
}

func (m *Memory) restore(snapshot *Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = snapshot.docs
	m.bindings = snapshot.bindings
	m.ops = snapshot.ops
	m.analytics = snapshot.analytics
}

func (m *Memory) GetDocument(id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (m *Memory) GetDocumentForUpdate(id uuid.UUID) (*models.Document, error) {
	return m.GetDocument(id)
}

func (m *Memory) CreateDocument(doc *models.Document, owner *models.Collaborator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	m.docs[doc.ID] = *doc
	m.bindings[doc.ID] = map[string]models.Collaborator{
		owner.PrincipalID: *owner,
	}
	return nil
}

func (m *Memory) UpdateDocument(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		return ErrNotFound
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *Memory) DeleteDocument(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	delete(m.bindings, id)
	delete(m.ops, id)
	return nil
}

func (m *Memory) ListDocuments(principal string, filter ListFilter) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []models.Document
	for id, doc := range m.docs {
		_, bound := m.bindings[id][principal]
		if bound {
			bound = m.bindings[id][principal].Active
		}
		if !doc.IsPublic && doc.OwnerID != principal && !bound {
			continue
		}
		if filter.Public != nil && doc.IsPublic != *filter.Public {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(doc.Title), needle) &&
				!strings.Contains(strings.ToLower(doc.Content), needle) {
				continue
			}
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	if filter.Offset >= len(docs) {
		return nil, nil
	}
	docs = docs[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(docs) {
		docs = docs[:filter.Limit]
	}
	return docs, nil
}

func (m *Memory) GetBinding(docID uuid.UUID, principal string) (*models.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[docID][principal]
	if !ok || !b.Active {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) CreateBinding(b *models.Collaborator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPrincipal, ok := m.bindings[b.DocumentID]
	if !ok {
		byPrincipal = make(map[string]models.Collaborator)
		m.bindings[b.DocumentID] = byPrincipal
	}
	if _, exists := byPrincipal[b.PrincipalID]; exists {
		return fmt.Errorf("binding for %s already exists", b.PrincipalID)
	}
	byPrincipal[b.PrincipalID] = *b
	return nil
}

func (m *Memory) UpdateDocumentBody(id uuid.UUID, body string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return 0, ErrNotFound
	}
	now := time.Now().UTC()
	doc.Content = body
	doc.Revision++
	doc.UpdatedAt = now
	doc.LastEditedAt = now
	m.docs[id] = doc
	return doc.Revision, nil
}

func (m *Memory) AppendOperation(op *models.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op.Sequence = int64(len(m.ops[op.DocumentID])) + 1
	m.ops[op.DocumentID] = append(m.ops[op.DocumentID], *op)
	return nil
}

func (m *Memory) InsertAnalytics(ev *models.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analytics = append(m.analytics, *ev)
	return nil
}

// OperationsFor exposes a document's operation log to tests.
func (m *Memory) OperationsFor(id uuid.UUID) []models.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Operation(nil), m.ops[id]...)
}

// AnalyticsEvents exposes the analytics log to tests.
func (m *Memory) AnalyticsEvents() []models.AnalyticsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AnalyticsEvent(nil), m.analytics...)
}
