package services

import (
	"errors"
	"fmt"

	"collab-docs/models"
	"collab-docs/store"
)

// CanRead reports whether the principal may read the document: owner, public,
// or any active binding.
func CanRead(s store.Store, doc *models.Document, principal string) (bool, error) {
	if doc.OwnerID == principal {
		return true, nil
	}
	if doc.IsPublic {
		return true, nil
	}
	binding, err := s.GetBinding(doc.ID, principal)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch binding: %w", err)
	}
	return binding.Active, nil
}

// CanWrite reports whether the principal may mutate the document body.
// The owner always may. An explicit active binding decides next: editor
// tiers write, viewer and commenter are denied even on public documents.
// Without a binding, public documents are writable by any authenticated
// principal.
func CanWrite(s store.Store, doc *models.Document, principal string) (bool, error) {
	if doc.OwnerID == principal {
		return true, nil
	}
	binding, err := s.GetBinding(doc.ID, principal)
	if err == nil {
		return binding.Permission.CanEdit(), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("failed to fetch binding: %w", err)
	}
	return doc.IsPublic, nil
}
