package services

import (
	"testing"

	"collab-docs/models"
	"collab-docs/store"
)

func TestAccessMatrix(t *testing.T) {
	mem := store.NewMemory()
	public := seedDocument(t, mem, "alice", "body", true)
	private := seedDocument(t, mem, "alice", "body", false)

	bind := func(doc *models.Document, principal string, perm models.Permission, active bool) {
		t.Helper()
		err := mem.CreateBinding(&models.Collaborator{
			DocumentID:  doc.ID,
			PrincipalID: principal,
			Permission:  perm,
			Active:      active,
		})
		if err != nil {
			t.Fatalf("create binding: %v", err)
		}
	}
	bind(public, "viewer", models.PermissionViewer, true)
	bind(public, "commenter", models.PermissionCommenter, true)
	bind(private, "editor", models.PermissionEditor, true)
	bind(private, "viewer", models.PermissionViewer, true)
	bind(private, "revoked", models.PermissionEditor, false)

	cases := []struct {
		name      string
		doc       *models.Document
		principal string
		read      bool
		write     bool
	}{
		{"owner on private", private, "alice", true, true},
		{"owner on public", public, "alice", true, true},
		{"stranger on public", public, "stranger", true, true},
		{"stranger on private", private, "stranger", false, false},
		{"viewer binding on public blocks writes", public, "viewer", true, false},
		{"commenter binding on public blocks writes", public, "commenter", true, false},
		{"editor binding on private", private, "editor", true, true},
		{"viewer binding on private reads only", private, "viewer", true, false},
		{"inactive binding behaves like none", private, "revoked", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			read, err := CanRead(mem, tc.doc, tc.principal)
			if err != nil {
				t.Fatalf("CanRead: %v", err)
			}
			if read != tc.read {
				t.Fatalf("CanRead = %v, want %v", read, tc.read)
			}
			write, err := CanWrite(mem, tc.doc, tc.principal)
			if err != nil {
				t.Fatalf("CanWrite: %v", err)
			}
			if write != tc.write {
				t.Fatalf("CanWrite = %v, want %v", write, tc.write)
			}
		})
	}
}
