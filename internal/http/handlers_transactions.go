package http

import (
	"net/http"
	"strings"

	"famledger/internal/core"
	"famledger/internal/ledger"
	"famledger/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	s.writeQuery(w, r, querySpec(r))
}

// handleSearchTransactions takes the filter from a JSON or form body.
func (s *Server) handleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	s.writeQuery(w, r, p.Spec())
}

func (s *Server) writeQuery(w http.ResponseWriter, r *http.Request, spec ledger.Spec) {
	res, err := s.ledger.Query(r.Context(), spec)
	if err != nil {
		s.storeError(w, r, log.OpQuery, "", err)
		return
	}
	NewResponse().JSON(newQueryResponse(res)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	tx, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.storeError(w, r, log.OpRead, id, err)
		return
	}
	NewResponse().JSON(toDTO(tx)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.readTransaction(w, r)
	if !ok {
		return
	}

	created, err := s.store.Append(r.Context(), tx)
	if err != nil {
		s.storeError(w, r, log.OpCreate, "", err)
		return
	}
	s.events.LogTransactionChanged(r.Context(), log.OpCreate, created.ID, created.Date.String(), created.Category, created.Amount.String())

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+created.ID).
		JSON(map[string]any{"ok": true, "id": created.ID, "item": toDTO(created)}).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	tx, ok := s.readTransaction(w, r)
	if !ok {
		return
	}

	updated, err := s.store.Update(r.Context(), id, tx)
	if err != nil {
		s.storeError(w, r, log.OpUpdate, id, err)
		return
	}
	s.events.LogTransactionChanged(r.Context(), log.OpUpdate, updated.ID, updated.Date.String(), updated.Category, updated.Amount.String())

	NewResponse().JSON(map[string]any{"ok": true, "item": toDTO(updated)}).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.storeError(w, r, log.OpDelete, id, err)
		return
	}
	s.events.LogTransactionChanged(r.Context(), log.OpDelete, id, "", "", "")

	NewResponse().JSON(map[string]any{"ok": true}).Write(w)
}

// handleSummary reports store-wide totals, ignoring any filter.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Totals(r.Context())
	if err != nil {
		s.storeError(w, r, log.OpQuery, "", err)
		return
	}
	NewResponse().JSON(sum).Write(w)
}

// readTransaction parses and normalizes a create or update body. On failure
// the response has been written and ok is false.
func (s *Server) readTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return core.Transaction{}, false
	}

	tx, err := p.TransactionInput().Normalize(s.ledger.Today())
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return core.Transaction{}, false
	}
	return tx, true
}
