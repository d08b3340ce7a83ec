package export

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/xuri/excelize/v2"

	"famledger/internal/core"
	"famledger/internal/ledger"
)

var generated = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func sampleReport(balanceNegative bool) Report {
	mk := func(id, date, category, desc string, amount int64) core.Transaction {
		d, _ := core.ParseDate(date)
		return core.Transaction{ID: id, Date: d, Category: category, Description: desc, Amount: core.ParseAmount(amount)}
	}
	display := []core.Transaction{
		mk("3", "2024-02-10", core.CategoryExpense, "Rent <b>", 1500),
		mk("2", "2024-02-05", core.CategoryExpense, "Groceries", 250),
		mk("1", "2024-02-01", core.CategoryIncome, "Salary", 2000),
	}
	if balanceNegative {
		display = display[:2]
	}
	items := ledger.Chronological(display)
	return NewReport(items, ledger.Between(core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)), ledger.Aggregate(items), generated)
}

func TestNewReport_KeepsOrder(t *testing.T) {
	rep := sampleReport(false)
	if rep.Items[0].ID != "1" || rep.Items[2].ID != "3" {
		t.Fatalf("items reordered: %v, %v", rep.Items[0].ID, rep.Items[2].ID)
	}
}

func TestFileNames(t *testing.T) {
	if got := XLSXFileName(generated); got != "Report_0503_1430.xlsx" {
		t.Errorf("XLSXFileName = %q", got)
	}
	if got := PDFFileName(generated); got != "Report_1709649000000.pdf" {
		t.Errorf("PDFFileName = %q", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleReport(false)); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if strings.Join(rows[0], ",") != "Date,Category,Description,Amount" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "01/02/2024" || rows[1][3] != "2000" {
		t.Fatalf("first data row = %v", rows[1])
	}
	if rows[3][2] != "Rent <b>" {
		t.Fatalf("last data row = %v", rows[3])
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleReport(false)); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:8])
	}
}

func TestWritePDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	rep := NewReport(nil, ledger.AllTime(), ledger.Aggregate(nil), generated)
	if err := WritePDF(&buf, rep); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
}

func TestWritePDF_KeepsVietnameseText(t *testing.T) {
	d, _ := core.ParseDate("2024-05-02")
	items := []core.Transaction{
		{ID: "1", Date: d, Category: core.CategoryExpense, Description: "Tiền điện tháng 5", Amount: core.ParseAmount(350000)},
	}
	rep := NewReport(items, ledger.AllTime(), ledger.Aggregate(items), generated)

	var buf bytes.Buffer
	if err := writePDF(&buf, rep, false); err != nil {
		t.Fatalf("writePDF: %v", err)
	}
	out := buf.Bytes()
	if !bytes.Contains(out, []byte("/Encoding /Identity-H")) {
		t.Fatal("PDF does not use an embedded Unicode font")
	}
	// "Tiền" as UTF-16BE inside the text operator
	if !bytes.Contains(out, []byte{0x00, 'T', 0x00, 'i', 0x1e, 0xc1, 0x00, 'n'}) {
		t.Error("description glyphs missing from the page content")
	}
	if bytes.Contains(out, []byte("(Ti.n .i.n")) {
		t.Error("description was flattened to a single-byte code page")
	}
}

func TestRenderHTML(t *testing.T) {
	tests := []struct {
		name     string
		negative bool
		balance  string
	}{
		{"positive balance is blue", false, `color: #0984e3;">250`},
		{"negative balance is red", true, `color: #d63031;">-1,750`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderHTML(sampleReport(tt.negative))
			if err != nil {
				t.Fatalf("RenderHTML: %v", err)
			}
			if !strings.Contains(out, tt.balance) {
				t.Fatalf("balance cell %q not found in:\n%s", tt.balance, out)
			}
			if strings.Contains(out, "Rent <b>") {
				t.Fatal("descriptions must be escaped")
			}
		})
	}
}

func TestMailer_Send(t *testing.T) {
	var sent *email.Email
	var gotAddr string
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "ledger@example.com"})
	m.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		sent, gotAddr = e, addr
		return nil
	}

	if err := m.Send(context.Background(), []string{"Mum <mum@example.com>"}, sampleReport(false)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("addr = %q", gotAddr)
	}
	if len(sent.To) != 1 || sent.To[0] != "mum@example.com" {
		t.Fatalf("To = %v", sent.To)
	}
	if sent.Subject != "Family ledger report - 05/03/2024" || len(sent.HTML) == 0 {
		t.Fatalf("unexpected message %q", sent.Subject)
	}
}

func TestMailer_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: 25})
	m.send = func(*email.Email, string, smtp.Auth) error { return boom }

	if err := m.Send(context.Background(), nil, sampleReport(false)); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("no recipients: %v", err)
	}
	if err := m.Send(context.Background(), []string{"nope"}, sampleReport(false)); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("bad address: %v", err)
	}
	if err := m.Send(context.Background(), []string{"a@example.com"}, sampleReport(false)); !errors.Is(err, boom) {
		t.Fatalf("send failure not surfaced: %v", err)
	}
	if err := NewMailer(SMTPConfig{}).Send(context.Background(), []string{"a@example.com"}, sampleReport(false)); err == nil {
		t.Fatal("unconfigured mailer should fail")
	}
}
