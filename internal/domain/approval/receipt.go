package approval

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Receipt renders the decision on a request as a one-page PDF.
func (s *Service) Receipt(ctx context.Context, token string, loc *time.Location) ([]byte, error) {
	if !validToken(token) {
		return nil, ErrNotFound
	}
	rec, err := s.Store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !rec.Action.Terminal() {
		return nil, ErrUndecided
	}
	return RenderReceipt(rec, loc)
}

func RenderReceipt(rec Record, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	p := rec.Payload

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Decision")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Reference: %s", rec.Token))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Employee: %s", p.Nickname)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Leave type: %s", p.LeaveType)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Dates: %s", p.Dates.String()))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", p.PeriodLabel()))
	pdf.Ln(7)
	if total, err := p.TotalDays(); err == nil {
		pdf.Cell(0, 8, fmt.Sprintf("Days: %s", total.StringFixed(2)))
		pdf.Ln(7)
	}
	pdf.MultiCell(0, 8, tr(fmt.Sprintf("Reason: %s", p.Reason)), "", "L", false)
	pdf.Cell(0, 8, fmt.Sprintf("Submitted: %s", FormatSubmitTime(p.SubmitTime, loc)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Decision: %s", rec.Action))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	if rec.ProcessedAt != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Decided at: %s", rec.ProcessedAt.In(loc).Format("2006-01-02 15:04")))
		pdf.Ln(7)
	}
	if rec.ReviewReason != nil {
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("Review note: %s", *rec.ReviewReason)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
