package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"collab-docs/models"
	"collab-docs/store"
	"collab-docs/utils"
)

func strptr(s string) *string { return &s }

func seedDocument(t *testing.T, mem *store.Memory, owner, body string, public bool) *models.Document {
	t.Helper()
	now := time.Now().UTC()
	doc := &models.Document{
		ID:           uuid.New(),
		Title:        "test document",
		Content:      body,
		IsPublic:     public,
		OwnerID:      owner,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastEditedAt: now,
	}
	binding := &models.Collaborator{
		DocumentID:  doc.ID,
		PrincipalID: owner,
		Permission:  models.PermissionOwner,
		Active:      true,
		CreatedAt:   now,
	}
	if err := mem.CreateDocument(doc, binding); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func appCode(t *testing.T, err error) int {
	t.Helper()
	var appErr *utils.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected taxonomy error, got %v", err)
	}
	return appErr.Code
}

func TestApplySingleChangeOwner(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "I love reading books", false)

	resp, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		TextToReplace: strptr("books"),
		NewText:       strptr("emails"),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.DocumentText != "I love reading emails" {
		t.Fatalf("unexpected body: %q", resp.DocumentText)
	}
	if resp.Changes.RequestType != models.RequestTypeSingle {
		t.Fatalf("unexpected request type: %s", resp.Changes.RequestType)
	}
	if resp.Changes.AppliedChanges != 1 || resp.Changes.TotalChanges != 1 {
		t.Fatalf("unexpected counts: %+v", resp.Changes)
	}
	if resp.Changes.DocumentVersion != 1 {
		t.Fatalf("expected revision 1, got %d", resp.Changes.DocumentVersion)
	}

	stored, err := mem.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("fetch document: %v", err)
	}
	if stored.Content != "I love reading emails" || stored.Revision != 1 {
		t.Fatalf("persisted state wrong: %q rev %d", stored.Content, stored.Revision)
	}

	ops := mem.OperationsFor(doc.ID)
	if len(ops) != 1 {
		t.Fatalf("expected one operation record, got %d", len(ops))
	}
	op := ops[0]
	if op.Position != 15 || op.Length != 5 || op.Content != "emails" {
		t.Fatalf("unexpected operation record: %+v", op)
	}
	if op.Kind != models.OpReplace || op.Sequence != 1 || op.PrincipalID != "alice" {
		t.Fatalf("unexpected operation record: %+v", op)
	}

	events := mem.AnalyticsEvents()
	if len(events) != 1 {
		t.Fatalf("expected one analytics event, got %d", len(events))
	}
	if events[0].PrincipalID != "alice" || events[0].Kind != AnalyticsKindChange {
		t.Fatalf("unexpected analytics event: %+v", events[0])
	}
}

func TestApplyBatchWithOneMiss(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello world", false)

	resp, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		Changes: []models.Change{
			{TextToReplace: strptr("Hello"), NewText: strptr("Hi")},
			{TextToReplace: strptr("missing"), NewText: strptr("x")},
			{TextToReplace: strptr("world"), NewText: strptr("universe")},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.DocumentText != "Hi universe" {
		t.Fatalf("unexpected body: %q", resp.DocumentText)
	}
	if resp.Changes.TotalChanges != 3 || resp.Changes.AppliedChanges != 2 {
		t.Fatalf("unexpected counts: %+v", resp.Changes)
	}
	miss := resp.Changes.Changes[1]
	if miss.Applied || miss.Position != -1 {
		t.Fatalf("expected miss outcome, got %+v", miss)
	}
	if len(mem.OperationsFor(doc.ID)) != 2 {
		t.Fatalf("expected two operation records")
	}
	stored, _ := mem.GetDocument(doc.ID)
	if stored.Revision != 1 {
		t.Fatalf("expected a single revision bump, got %d", stored.Revision)
	}
}

// Ops sort by their position in the pre-request body, descending, so the
// right-most target applies first and the whole-string target misses.
func TestApplyBatchOverlappingTargets(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello world", false)

	resp, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		Changes: []models.Change{
			{TextToReplace: strptr("Hello world"), NewText: strptr("Hi universe")},
			{TextToReplace: strptr("Hello"), NewText: strptr("Hi")},
			{TextToReplace: strptr("world"), NewText: strptr("universe")},
		},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.DocumentText != "Hi universe" {
		t.Fatalf("unexpected body: %q", resp.DocumentText)
	}
	if resp.Changes.AppliedChanges != 2 {
		t.Fatalf("expected 2 applied, got %d", resp.Changes.AppliedChanges)
	}
	whole := resp.Changes.Changes[0]
	if whole.Applied || whole.Position != -1 {
		t.Fatalf("whole-string target should have missed, got %+v", whole)
	}
}

func TestApplyZeroOpsApplied(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello", false)

	_, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		TextToReplace: strptr("foo"),
		NewText:       strptr("bar"),
	})
	if code := appCode(t, err); code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}

	stored, _ := mem.GetDocument(doc.ID)
	if stored.Content != "Hello" || stored.Revision != 0 {
		t.Fatalf("document mutated on failed request: %q rev %d", stored.Content, stored.Revision)
	}
	if len(mem.OperationsFor(doc.ID)) != 0 {
		t.Fatalf("operation records written on failed request")
	}
	if len(mem.AnalyticsEvents()) != 0 {
		t.Fatalf("analytics written on failed request")
	}
}

func TestApplyPublicDocumentByStranger(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello world", true)

	resp, err := engine.Apply(doc.ID.String(), models.Principal{ID: "bob"}, &models.ChangeRequest{
		TextToReplace: strptr("world"),
		NewText:       strptr("there"),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.DocumentText != "Hello there" {
		t.Fatalf("unexpected body: %q", resp.DocumentText)
	}
	events := mem.AnalyticsEvents()
	if len(events) != 1 || events[0].PrincipalID != "bob" {
		t.Fatalf("analytics should credit bob, got %+v", events)
	}
}

// An explicit viewer binding denies writes even though the document is public.
func TestApplyViewerBindingOverridesPublic(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello world", true)
	err := mem.CreateBinding(&models.Collaborator{
		DocumentID:  doc.ID,
		PrincipalID: "bob",
		Permission:  models.PermissionViewer,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create binding: %v", err)
	}

	_, applyErr := engine.Apply(doc.ID.String(), models.Principal{ID: "bob"}, &models.ChangeRequest{
		TextToReplace: strptr("world"),
		NewText:       strptr("there"),
	})
	if code := appCode(t, applyErr); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
	stored, _ := mem.GetDocument(doc.ID)
	if stored.Content != "Hello world" || stored.Revision != 0 {
		t.Fatalf("document mutated on denied request")
	}
}

func TestApplyEditorBindingOnPrivateDocument(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello world", false)
	err := mem.CreateBinding(&models.Collaborator{
		DocumentID:  doc.ID,
		PrincipalID: "bob",
		Permission:  models.PermissionEditor,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create binding: %v", err)
	}

	resp, applyErr := engine.Apply(doc.ID.String(), models.Principal{ID: "bob"}, &models.ChangeRequest{
		TextToReplace: strptr("world"),
		NewText:       strptr("there"),
	})
	if applyErr != nil {
		t.Fatalf("apply failed: %v", applyErr)
	}
	if resp.DocumentText != "Hello there" {
		t.Fatalf("unexpected body: %q", resp.DocumentText)
	}
}

func TestApplyStrangerOnPrivateDocument(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello world", false)

	_, err := engine.Apply(doc.ID.String(), models.Principal{ID: "mallory"}, &models.ChangeRequest{
		TextToReplace: strptr("world"),
		NewText:       strptr("there"),
	})
	if code := appCode(t, err); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestApplyInvalidDocumentID(t *testing.T) {
	engine := NewChangeEngine(store.NewMemory())
	_, err := engine.Apply("not-a-uuid", models.Principal{ID: "alice"}, &models.ChangeRequest{
		TextToReplace: strptr("a"),
		NewText:       strptr("b"),
	})
	if code := appCode(t, err); code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestApplyMissingDocument(t *testing.T) {
	engine := NewChangeEngine(store.NewMemory())
	_, err := engine.Apply(uuid.NewString(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		TextToReplace: strptr("a"),
		NewText:       strptr("b"),
	})
	if code := appCode(t, err); code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestApplyMixedShapeRejected(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "Hello", false)

	_, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		TextToReplace: strptr("Hello"),
		NewText:       strptr("Hi"),
		Changes: []models.Change{
			{TextToReplace: strptr("Hello"), NewText: strptr("Hi")},
		},
	})
	if code := appCode(t, err); code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
}

// Empty textToReplace matches at position zero and becomes an insert op.
func TestApplyEmptyTargetInserts(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "", false)

	resp, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		TextToReplace: strptr(""),
		NewText:       strptr("fresh start"),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if resp.DocumentText != "fresh start" {
		t.Fatalf("unexpected body: %q", resp.DocumentText)
	}
	ops := mem.OperationsFor(doc.ID)
	if len(ops) != 1 || ops[0].Kind != models.OpInsert || ops[0].Position != 0 {
		t.Fatalf("unexpected operation: %+v", ops)
	}
}

func TestApplySequencesStayContiguous(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "one two three four", false)

	requests := []*models.ChangeRequest{
		{TextToReplace: strptr("one"), NewText: strptr("1")},
		{Changes: []models.Change{
			{TextToReplace: strptr("two"), NewText: strptr("2")},
			{TextToReplace: strptr("three"), NewText: strptr("3")},
		}},
		{TextToReplace: strptr("four"), NewText: strptr("4")},
	}
	for _, req := range requests {
		if _, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, req); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
	}

	ops := mem.OperationsFor(doc.ID)
	if len(ops) != 4 {
		t.Fatalf("expected four operation records, got %d", len(ops))
	}
	for i, op := range ops {
		if op.Sequence != int64(i)+1 {
			t.Fatalf("sequence gap at %d: %+v", i, ops)
		}
	}
	stored, _ := mem.GetDocument(doc.ID)
	if stored.Revision != 3 {
		t.Fatalf("expected three revisions, got %d", stored.Revision)
	}
	if stored.Content != "1 2 3 4" {
		t.Fatalf("unexpected final body: %q", stored.Content)
	}
}

func TestApplyDeleteClassification(t *testing.T) {
	mem := store.NewMemory()
	engine := NewChangeEngine(mem)
	doc := seedDocument(t, mem, "alice", "keep remove keep", false)

	_, err := engine.Apply(doc.ID.String(), models.Principal{ID: "alice"}, &models.ChangeRequest{
		TextToReplace: strptr(" remove"),
		NewText:       strptr(""),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	ops := mem.OperationsFor(doc.ID)
	if len(ops) != 1 || ops[0].Kind != models.OpDelete {
		t.Fatalf("expected delete op, got %+v", ops)
	}
}
