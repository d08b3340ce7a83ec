package export

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/mail"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"

	"famledger/internal/core"
)

//go:embed email.html
var emailTemplate string

var emailTmpl = template.Must(template.New("email").Parse(emailTemplate))

// ErrNoRecipient is returned when an e-mail export names no valid address.
var ErrNoRecipient = errors.New("no valid recipient")

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends reports as HTML e-mail.
type Mailer struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, a smtp.Auth) error
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		cfg: cfg,
		send: func(e *email.Email, addr string, a smtp.Auth) error {
			return e.Send(addr, a)
		},
	}
}

type emailView struct {
	Sent        string
	Period      string
	Rows        []row
	Income      string
	Expense     string
	Balance     string
	BalanceNeg  bool
	RowsPresent bool
}

// RenderHTML renders the report table with its three total rows. The balance
// is red when negative and blue otherwise.
func RenderHTML(rep Report) (string, error) {
	view := emailView{
		Sent:        rep.GeneratedAt.Format("02/01/2006 15:04"),
		Period:      rep.Window.String(),
		Rows:        rep.rows(),
		Income:      core.FormatAmount(rep.Summary.Income),
		Expense:     core.FormatAmount(rep.Summary.Expense),
		Balance:     core.FormatAmount(rep.Summary.Balance),
		BalanceNeg:  rep.Summary.Balance.IsNegative(),
		RowsPresent: len(rep.Items) > 0,
	}
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// Subject is the e-mail subject for a report generated at rep.GeneratedAt.
func Subject(rep Report) string {
	return "Family ledger report - " + rep.GeneratedAt.Format("02/01/2006")
}

// Send e-mails rep to every address in to. Failures are returned to the
// caller.
func (m *Mailer) Send(ctx context.Context, to []string, rep Report) error {
	if m.cfg.Host == "" {
		return errors.New("smtp is not configured")
	}
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		parsed, err := mail.ParseAddress(addr)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrNoRecipient, addr)
		}
		recipients = append(recipients, parsed.Address)
	}
	if len(recipients) == 0 {
		return ErrNoRecipient
	}

	body, err := RenderHTML(rep)
	if err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = recipients
	e.Subject = Subject(rep)
	e.HTML = []byte(body)

	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	if err := m.send(e, addr, a); err != nil {
		slog.ErrorContext(ctx, "Failed to send report email", "component", "export", "to", recipients, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.InfoContext(ctx, "Report email sent", "component", "export", "to", recipients, "rows", len(rep.Items))
	return nil
}
