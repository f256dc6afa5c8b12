package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Size ceilings shared by validation and the change engine.
const (
	MaxTitleLen       = 255
	MaxDescriptionLen = 1000
	MaxTagLen         = 50
	MaxContentBytes   = 1_000_000
)

type Permission string

const (
	PermissionOwner     Permission = "owner"
	PermissionEditor    Permission = "editor"
	PermissionViewer    Permission = "viewer"
	PermissionCommenter Permission = "commenter"
)

// CanEdit reports whether the permission tier allows body mutation.
func (p Permission) CanEdit() bool {
	return p == PermissionOwner || p == PermissionEditor
}

// Principal is the identity supplied by the external identity provider.
// The service never stores principals; it only records their opaque IDs.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// StringList stores a tag set as a JSON-encoded text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

type Document struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Description      string     `gorm:"size:1000" json:"description,omitempty"`
	Content          string     `gorm:"type:text" json:"content"`
	Tags             StringList `gorm:"type:text" json:"tags"`
	IsPublic         bool       `json:"is_public"`
	AllowComments    bool       `json:"allow_comments"`
	AllowSuggestions bool       `json:"allow_suggestions"`
	RequireApproval  bool       `json:"require_approval"`
	OwnerID          string     `gorm:"index;not null" json:"owner_id"`
	Revision         int64      `gorm:"not null;default:0" json:"revision"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastEditedAt     time.Time  `json:"last_edited_at"`
}

// Collaborator is an explicit (document, principal, permission) binding.
// At most one binding exists per (document, principal).
type Collaborator struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	DocumentID  uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_doc_principal;not null" json:"document_id"`
	PrincipalID string     `gorm:"uniqueIndex:idx_doc_principal;not null" json:"principal_id"`
	Permission  Permission `gorm:"not null" json:"permission"`
	Active      bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Operation kinds. A change with empty textToReplace is an insert, one with
// empty newText is a delete, anything else is a replace.
const (
	OpInsert  = "insert"
	OpDelete  = "delete"
	OpReplace = "replace"
)

// Operation is one entry of a document's append-only mutation log. Sequence
// numbers are contiguous from 1 per document.
type Operation struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	DocumentID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_doc_sequence;not null" json:"document_id"`
	Sequence    int64     `gorm:"uniqueIndex:idx_doc_sequence;not null" json:"sequence"`
	Kind        string    `gorm:"not null" json:"kind"`
	Position    int       `gorm:"not null" json:"position"`
	Length      int       `gorm:"not null" json:"length"`
	Content     string    `gorm:"type:text" json:"content"`
	PrincipalID string    `gorm:"not null" json:"principal_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnalyticsEvent is the write-hook record appended once per accepted change
// request. Metadata holds the per-request summary as JSON.
type AnalyticsEvent struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	DocumentID  uuid.UUID `gorm:"type:uuid;index;not null" json:"document_id"`
	PrincipalID string    `gorm:"not null" json:"principal_id"`
	Kind        string    `gorm:"not null" json:"kind"`
	Metadata    string    `gorm:"type:text" json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
}
