// Package report e-mails the previous month's ledger on a cron schedule.
package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"famledger/internal/core"
	"famledger/internal/export"
	"famledger/internal/ledger"
	"famledger/internal/log"
	"famledger/internal/services"
)

// Querier answers filter requests; services.LedgerService implements it.
type Querier interface {
	Query(ctx context.Context, spec ledger.Spec) (services.Result, error)
	Today() core.Date
}

// Sender delivers a rendered report; export.Mailer implements it.
type Sender interface {
	Send(ctx context.Context, to []string, rep export.Report) error
}

type Reporter struct {
	ledger     Querier
	sender     Sender
	recipients []string
	loc        *time.Location
	now        func() time.Time
	logger     *log.Logger
	cron       *cron.Cron
}

func New(q Querier, sender Sender, recipients []string, loc *time.Location, logger *log.Logger) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Reporter{
		ledger:     q,
		sender:     sender,
		recipients: recipients,
		loc:        loc,
		now:        time.Now,
		logger:     logger.WithComponent(log.ComponentReport),
	}
}

// PreviousMonthSpec selects the whole calendar month before today.
func PreviousMonthSpec(today core.Date) ledger.Spec {
	prev := core.NewDate(today.Year(), today.Month()-1, 1)
	m := strconv.Itoa(prev.Month())
	return ledger.Spec{
		Mode:      ledger.ModeMonth,
		Year:      strconv.Itoa(prev.Year()),
		FromMonth: m,
		ToMonth:   m,
	}
}

// SendPreviousMonth queries last month and mails it to the recipients.
func (r *Reporter) SendPreviousMonth(ctx context.Context) error {
	spec := PreviousMonthSpec(r.ledger.Today())
	res, err := r.ledger.Query(ctx, spec)
	if err != nil {
		return fmt.Errorf("monthly report: %w", err)
	}

	rep := export.NewReport(res.ExportItems(), res.Window, res.Summary, r.now().In(r.loc))
	if err := r.sender.Send(ctx, r.recipients, rep); err != nil {
		return fmt.Errorf("monthly report: %w", err)
	}

	r.logger.InfoContext(ctx, "Monthly report sent",
		log.FieldWindow, res.Window.String(),
		log.FieldResultCount, len(res.Items),
		"recipients", len(r.recipients))
	return nil
}

// Start schedules SendPreviousMonth with a standard five field cron spec,
// evaluated in the ledger time zone.
func (r *Reporter) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithLocation(r.loc))
	_, err := c.AddFunc(schedule, func() {
		if err := r.SendPreviousMonth(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Scheduled report failed", log.FieldError, err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()

	next := c.Entries()[0].Next
	r.logger.Info("Report scheduler started", "schedule", schedule, "next_run", next.Format(time.RFC3339))
	return nil
}

// Stop halts the scheduler and waits for a running report to finish.
func (r *Reporter) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.logger.Info("Report scheduler stopped")
}
