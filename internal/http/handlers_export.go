package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"famledger/internal/export"
	"famledger/internal/ledger"
	"famledger/internal/log"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, "xlsx", contentTypeXLSX, export.XLSXFileName, export.WriteXLSX)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, "pdf", contentTypePDF, export.PDFFileName, export.WritePDF)
}

func (s *Server) writeExport(
	w http.ResponseWriter,
	r *http.Request,
	format, contentType string,
	fileName func(t time.Time) string,
	write func(io.Writer, export.Report) error,
) {
	rep, ok := s.buildReport(w, r, querySpec(r))
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, rep); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			log.FieldError, err,
			log.FieldFormat, format,
			log.FieldOperation, log.OpExport,
			log.FieldComponent, log.ComponentExport)
		InternalServerError("export failed").Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Export generated",
		log.FieldFormat, format,
		log.FieldResultCount, len(rep.Items),
		log.FieldWindow, rep.Window.String(),
		log.FieldComponent, log.ComponentExport)
	NewResponse().
		Attachment(fileName(rep.GeneratedAt), contentType, buf.Bytes()).
		Write(w)
}

// handleExportEmail sends the filtered report to the addresses in "to". The
// filter is read from the body, flat or nested under "filter".
func (s *Server) handleExportEmail(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		ServiceUnavailableError("e-mail is not configured").Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	to := p.Strings("to")
	if len(to) == 0 {
		to = p.Strings("email")
	}
	if len(to) == 0 {
		BadRequestError("recipient is required").Write(w)
		return
	}

	rep, ok := s.buildReport(w, r, p.Spec())
	if !ok {
		return
	}

	err := s.mailer.Send(r.Context(), to, rep)
	switch {
	case errors.Is(err, export.ErrNoRecipient):
		BadRequestError("invalid recipient").Write(w)
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Report e-mail failed",
			log.FieldError, err,
			log.FieldOperation, log.OpExport,
			log.FieldFormat, "email",
			log.FieldComponent, log.ComponentExport,
			"error_type", log.ErrorTypeNetwork)
		BadGatewayError("e-mail delivery failed").Write(w)
		return
	}

	NewResponse().JSON(map[string]any{"ok": true, "sent": len(to), "rows": len(rep.Items)}).Write(w)
}

// buildReport runs the query behind an export. On failure the response has
// been written and ok is false.
func (s *Server) buildReport(w http.ResponseWriter, r *http.Request, spec ledger.Spec) (export.Report, bool) {
	res, err := s.ledger.Query(r.Context(), spec)
	if err != nil {
		s.storeError(w, r, log.OpExport, "", err)
		return export.Report{}, false
	}
	return export.NewReport(res.ExportItems(), res.Window, res.Summary, s.ledger.Now()), true
}
