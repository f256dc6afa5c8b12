package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"collab-docs/models"
	"collab-docs/store"
	"collab-docs/utils"
)

// AnalyticsKindChange labels the write-hook row appended per accepted request.
const AnalyticsKindChange = "document-change"

// ChangeEngine applies find-and-replace requests to documents. Every accepted
// request commits the new body, its operation records, and one analytics row
// in a single transaction; the document row lock serializes writers.
type ChangeEngine struct {
	store store.Store
}

func NewChangeEngine(s store.Store) *ChangeEngine {
	return &ChangeEngine{store: s}
}

type workItem struct {
	textToReplace string
	newText       string
	// first-occurrence position in the pre-request body, used only for
	// ordering; -1 when absent there.
	origPos int
	// index into the request, so outcomes report in input order.
	inputIdx int
}

// Apply validates, authorizes, and applies a change request, returning the
// new body and the per-op outcomes.
func (e *ChangeEngine) Apply(documentID string, principal models.Principal, req *models.ChangeRequest) (*models.ChangeResponse, error) {
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return nil, utils.BadRequest("document id must be a valid UUID")
	}
	if err := req.Validate(); err != nil {
		return nil, utils.BadRequest(err.Error())
	}

	var resp *models.ChangeResponse
	txErr := e.store.Transaction(func(tx store.Store) error {
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

		working, outcomes, appliedOrder := replaceAll(doc.Content, req.Ops())
		applied := len(appliedOrder)
		if applied == 0 {
			return utils.BadRequest("no occurrence of the requested text was found").
				WithDetails(map[string]any{"reason": "ChangeNotFound"})
		}
		if len(working) > models.MaxContentBytes {
			return utils.Validation("document would exceed the size ceiling")
		}

		revision, err := tx.UpdateDocumentBody(docID, working)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, idx := range appliedOrder {
			out := outcomes[idx]
			err := tx.AppendOperation(&models.Operation{
				DocumentID:  docID,
				Kind:        classifyOp(out.TextReplaced, out.NewText),
				Position:    out.Position,
				Length:      len(out.TextReplaced),
				Content:     out.NewText,
				PrincipalID: principal.ID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
		}

		summary := models.ChangeSummary{
			RequestType:     req.RequestType(),
			TotalChanges:    len(outcomes),
			AppliedChanges:  applied,
			Changes:         outcomes,
			DocumentVersion: revision,
		}
		metadata, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		err = tx.InsertAnalytics(&models.AnalyticsEvent{
			DocumentID:  docID,
			PrincipalID: principal.ID,
			Kind:        AnalyticsKindChange,
			Metadata:    string(metadata),
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}

		resp = &models.ChangeResponse{
			DocumentText: working,
			Changes:      summary,
		}
		return nil
	})
	if txErr != nil {
		return nil, utils.AsError(txErr)
	}
	slog.Info("changes applied",
		"document", docID,
		"principal", principal.ID,
		"total", resp.Changes.TotalChanges,
		"applied", resp.Changes.AppliedChanges,
		"revision", resp.Changes.DocumentVersion,
	)
	return resp, nil
}

// replaceAll walks the ops right-to-left by their first-occurrence position
// in the original body, replacing the first occurrence of each target in the
// working copy. Applying from the highest original position down keeps the
// positions of ops still to run from shifting under earlier replacements.
// Outcomes are indexed by input position; appliedOrder records which ops
// applied, in application order.
func replaceAll(body string, ops []models.Change) (string, []models.ChangeOutcome, []int) {
	items := make([]workItem, len(ops))
	for i, op := range ops {
		items[i] = workItem{
			textToReplace: *op.TextToReplace,
			newText:       *op.NewText,
			origPos:       strings.Index(body, *op.TextToReplace),
			inputIdx:      i,
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].origPos > items[j].origPos
	})

	working := body
	outcomes := make([]models.ChangeOutcome, len(ops))
	var appliedOrder []int
	for _, item := range items {
		out := models.ChangeOutcome{
			TextReplaced: item.textToReplace,
			NewText:      item.newText,
			Position:     -1,
		}
		pos := strings.Index(working, item.textToReplace)
		if pos >= 0 {
			working = working[:pos] + item.newText + working[pos+len(item.textToReplace):]
			out.Position = pos
			out.Applied = true
			appliedOrder = append(appliedOrder, item.inputIdx)
		}
		outcomes[item.inputIdx] = out
	}
	return working, outcomes, appliedOrder
}

func classifyOp(textReplaced, newText string) string {
	switch {
	case textReplaced == "":
		return models.OpInsert
	case newText == "":
		return models.OpDelete
	default:
		return models.OpReplace
	}
}
