package services

import (
	"context"
	"fmt"
	"time"

	"famledger/internal/core"
	"famledger/internal/ledger"
	"famledger/internal/log"
	"famledger/internal/sheets"
)

// Result is one answered filter request.
type Result struct {
	Spec    ledger.Spec
	Window  ledger.Window
	Items   []core.Transaction // display order, newest appended first
	Summary ledger.Summary
}

// ExportItems returns the result rows oldest appended first, the order every
// export adapter writes.
func (r Result) ExportItems() []core.Transaction {
	return ledger.Chronological(r.Items)
}

// LedgerService answers filter requests against a store snapshot. It is the
// single query path for the page, the JSON API and every export.
type LedgerService struct {
	store  sheets.TransactionScanner
	loc    *time.Location
	policy ledger.FallbackPolicy
	now    func() time.Time
	events *log.StructuredLogger
}

func NewLedgerService(store sheets.TransactionScanner, loc *time.Location, policy ledger.FallbackPolicy, logger *log.Logger) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:  store,
		loc:    loc,
		policy: policy,
		now:    time.Now,
		events: log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
	}
}

// Now is the current instant in the ledger's time zone.
func (s *LedgerService) Now() time.Time {
	return s.now().In(s.loc)
}

// Today is the current calendar date in the ledger's time zone.
func (s *LedgerService) Today() core.Date {
	return core.Today(s.now(), s.loc)
}

// Policy reports the configured fallback policy.
func (s *LedgerService) Policy() ledger.FallbackPolicy {
	return s.policy
}

// Query scans the store once, resolves spec against today and returns the
// matching rows with their totals. Malformed filter input never fails; only a
// store error does.
func (s *LedgerService) Query(ctx context.Context, spec ledger.Spec) (Result, error) {
	txs, err := s.store.ScanAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scan transactions: %w", err)
	}

	window := ledger.Resolve(spec, s.Today(), s.policy)
	if window.Fallback != nil {
		s.events.LogFilterFallback(ctx, string(spec.Mode), s.policy.String(), window.Fallback)
	}

	items := ledger.Apply(txs, window, spec.Category)
	s.events.LogQuery(ctx, string(spec.Mode), window.String(), len(items))
	return Result{
		Spec:    spec,
		Window:  window,
		Items:   items,
		Summary: ledger.Aggregate(items),
	}, nil
}

// Totals returns income, expense and balance over the whole store.
func (s *LedgerService) Totals(ctx context.Context) (ledger.Summary, error) {
	txs, err := s.store.ScanAll(ctx)
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("scan transactions: %w", err)
	}
	return ledger.Aggregate(txs), nil
}
