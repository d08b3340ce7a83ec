package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"famledger/internal/core"
	"famledger/internal/ledger"
	"famledger/internal/log"
	"famledger/internal/services"
	"famledger/internal/sheets"
)

// categoryChoices feeds the category pickers of the page.
var categoryChoices = []string{core.CategoryIncome, core.CategoryExpense}

// transactionDTO is the wire form of a transaction. Date is YYYY-MM-DD for
// edit forms and DisplayDate DD/MM/YYYY for lists; both are empty when the
// stored date could not be read.
type transactionDTO struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	DisplayDate string      `json:"displayDate"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	RecordedAt  string      `json:"recordedAt,omitempty"`
}

func toDTO(tx core.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		DisplayDate: tx.Date.DMY(),
		Category:    tx.Category,
		Description: tx.Description,
		Amount:      json.Number(tx.Amount.String()),
	}
	if !tx.RecordedAt.IsZero() {
		dto.RecordedAt = tx.RecordedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = toDTO(tx)
	}
	return out
}

// queryResponse is the body of every filtered listing.
type queryResponse struct {
	Filter   map[string]string `json:"filter"`
	Window   string            `json:"window"`
	Fallback string            `json:"fallback,omitempty"`
	Items    []transactionDTO  `json:"items"`
	Summary  ledger.Summary    `json:"summary"`
}

func newQueryResponse(res services.Result) queryResponse {
	filter := map[string]string{}
	for k, v := range res.Spec.Values() {
		filter[k] = v[0]
	}
	out := queryResponse{
		Filter:  filter,
		Window:  res.Window.String(),
		Items:   toDTOs(res.Items),
		Summary: res.Summary,
	}
	if res.Window.Fallback != nil {
		out.Fallback = res.Window.Fallback.Error()
	}
	return out
}

// storeError maps a store failure onto a response. Not-found is the only
// store error a client can act on.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op, id string, err error) {
	if errors.Is(err, sheets.ErrNotFound) {
		NotFoundError("transaction not found").Write(w)
		return
	}
	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Store operation failed", err,
		log.ComponentStorage, op, log.LogFields{log.FieldTxID: id, "error_type": log.ErrorTypeDatabase})
	InternalServerError("store unavailable").Write(w)
}

// validationMessage renders a validation error for the client.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyCategory):
		return "category is required"
	case errors.Is(err, core.ErrNegativeAmount):
		return "amount must not be negative"
	case errors.Is(err, core.ErrDescriptionLong):
		return "description is too long"
	default:
		return "invalid transaction"
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
