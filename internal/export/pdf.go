package export

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"famledger/internal/core"
)

// PDFFileName is Report_<unix millis>.pdf.
func PDFFileName(t time.Time) string {
	return "Report_" + strconv.FormatInt(t.UnixMilli(), 10) + ".pdf"
}

var colWidths = []float64{28, 32, 90, 40}

// fontFamily is a UTF-8 TrueType font so Vietnamese text survives; the core
// PDF fonts only cover cp1252.
const fontFamily = "DejaVu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

// WritePDF renders a title, the totals block and the row table. Expense rows
// are tinted red.
func WritePDF(w io.Writer, rep Report) error {
	return writePDF(w, rep, true)
}

func writePDF(w io.Writer, rep Report, compress bool) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetCreationDate(rep.GeneratedAt)
	pdf.SetTitle("Income / Expense Report", true)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf font: %w", err)
	}
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, "INCOME / EXPENSE REPORT", "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 6, "Exported: "+rep.GeneratedAt.Format("02/01/2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Period: "+rep.Window.String(), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	totals := []struct {
		label string
		value string
	}{
		{"Total income:", core.FormatAmount(rep.Summary.Income)},
		{"Total expense:", core.FormatAmount(rep.Summary.Expense)},
		{"Balance:", core.FormatAmount(rep.Summary.Balance)},
	}
	for _, t := range totals {
		pdf.SetFont(fontFamily, "B", 11)
		pdf.CellFormat(40, 7, t.label, "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 11)
		pdf.CellFormat(50, 7, t.value, "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetFillColor(0x1e, 0x40, 0xaf)
	pdf.SetTextColor(0xff, 0xff, 0xff)
	for i, c := range columns {
		pdf.CellFormat(colWidths[i], 8, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 10)
	for _, r := range rep.rows() {
		if r.Expense {
			pdf.SetFillColor(0xff, 0xf0, 0xf0)
			pdf.SetTextColor(0xb9, 0x1c, 0x1c)
		} else {
			pdf.SetFillColor(0xff, 0xff, 0xff)
			pdf.SetTextColor(0, 0, 0)
		}
		cells := []string{r.Date, r.Category, truncate(r.Description, 60), r.AmountText}
		for i, c := range cells {
			align := "L"
			if i == 3 {
				align = "R"
			}
			pdf.CellFormat(colWidths[i], 7, c, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
