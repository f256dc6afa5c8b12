package models

import (
	"fmt"
)

// Change is one {textToReplace, newText} pair inside a change request.
type Change struct {
	TextToReplace *string `json:"textToReplace"`
	NewText       *string `json:"newText"`
}

// ChangeRequest is the tagged union accepted by the change endpoint: either
// the single shape (textToReplace + newText at the top level) or the batch
// shape (a changes array). The two shapes are mutually exclusive; a request
// mixing fields from both is rejected.
type ChangeRequest struct {
	TextToReplace *string  `json:"textToReplace,omitempty"`
	NewText       *string  `json:"newText,omitempty"`
	Changes       []Change `json:"changes,omitempty"`
}

const (
	RequestTypeSingle = "single"
	RequestTypeBatch  = "batch"
)

// IsBatch reports which arm of the union the request is. The batch field is
// the discriminator: its presence, even empty, selects the batch shape.
func (r *ChangeRequest) IsBatch() bool {
	return r.Changes != nil
}

func (r *ChangeRequest) RequestType() string {
	if r.IsBatch() {
		return RequestTypeBatch
	}
	return RequestTypeSingle
}

// Ops normalizes the request into its ordered list of changes. Valid only
// after Validate has passed.
func (r *ChangeRequest) Ops() []Change {
	if r.IsBatch() {
		return r.Changes
	}
	return []Change{{TextToReplace: r.TextToReplace, NewText: r.NewText}}
}

// Validate enforces the union discriminator and the per-string size ceilings.
func (r *ChangeRequest) Validate() error {
	if r.IsBatch() {
		if r.TextToReplace != nil || r.NewText != nil {
			return fmt.Errorf("request mixes single and batch fields")
		}
		if len(r.Changes) == 0 {
			return fmt.Errorf("changes array is empty")
		}
		for i, c := range r.Changes {
			if err := c.validate(); err != nil {
				return fmt.Errorf("changes[%d]: %w", i, err)
			}
		}
		return nil
	}
	if r.TextToReplace == nil || r.NewText == nil {
		return fmt.Errorf("textToReplace and newText are required")
	}
	return Change{TextToReplace: r.TextToReplace, NewText: r.NewText}.validate()
}

func (c Change) validate() error {
	if c.TextToReplace == nil || c.NewText == nil {
		return fmt.Errorf("textToReplace and newText are required")
	}
	if len(*c.TextToReplace) > MaxContentBytes {
		return fmt.Errorf("textToReplace exceeds %d bytes", MaxContentBytes)
	}
	if len(*c.NewText) > MaxContentBytes {
		return fmt.Errorf("newText exceeds %d bytes", MaxContentBytes)
	}
	return nil
}

// ChangeOutcome reports what happened to one op: where it applied in the
// working copy, or position -1 when its target was not found.
type ChangeOutcome struct {
	TextReplaced string `json:"textReplaced"`
	NewText      string `json:"newText"`
	Position     int    `json:"position"`
	Applied      bool   `json:"applied"`
}

type ChangeSummary struct {
	RequestType     string          `json:"requestType"`
	TotalChanges    int             `json:"totalChanges"`
	AppliedChanges  int             `json:"appliedChanges"`
	Changes         []ChangeOutcome `json:"changes"`
	DocumentVersion int64           `json:"documentVersion"`
}

type ChangeResponse struct {
	DocumentText string        `json:"documentText"`
	Changes      ChangeSummary `json:"changes"`
}

type CreateDocumentRequest struct {
	Title            string   `json:"title" binding:"required"`
	Content          string   `json:"content"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	IsPublic         bool     `json:"is_public"`
	AllowComments    bool     `json:"allow_comments"`
	AllowSuggestions bool     `json:"allow_suggestions"`
	RequireApproval  bool     `json:"require_approval"`
}

func (r *CreateDocumentRequest) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if err := validateContent(r.Content); err != nil {
		return err
	}
	return validateTags(r.Tags)
}

// UpdateDocumentRequest carries a partial update; nil fields are untouched.
type UpdateDocumentRequest struct {
	Title            *string   `json:"title"`
	Content          *string   `json:"content"`
	Description      *string   `json:"description"`
	Tags             *[]string `json:"tags"`
	IsPublic         *bool     `json:"is_public"`
	AllowComments    *bool     `json:"allow_comments"`
	AllowSuggestions *bool     `json:"allow_suggestions"`
	RequireApproval  *bool     `json:"require_approval"`
}

func (r *UpdateDocumentRequest) Validate() error {
	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.Description != nil {
		if err := validateDescription(*r.Description); err != nil {
			return err
		}
	}
	if r.Content != nil {
		if err := validateContent(*r.Content); err != nil {
			return err
		}
	}
	if r.Tags != nil {
		return validateTags(*r.Tags)
	}
	return nil
}

func (r *UpdateDocumentRequest) Empty() bool {
	return r.Title == nil && r.Content == nil && r.Description == nil &&
		r.Tags == nil && r.IsPublic == nil && r.AllowComments == nil &&
		r.AllowSuggestions == nil && r.RequireApproval == nil
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	return nil
}

func validateDescription(desc string) error {
	if len(desc) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLen)
	}
	return nil
}

func validateContent(content string) error {
	if len(content) > MaxContentBytes {
		return fmt.Errorf("content exceeds %d bytes", MaxContentBytes)
	}
	return nil
}

func validateTags(tags []string) error {
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("tags must not be empty")
		}
		if len(tag) > MaxTagLen {
			return fmt.Errorf("tag %q exceeds %d characters", tag, MaxTagLen)
		}
	}
	return nil
}
