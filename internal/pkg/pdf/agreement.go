// Package pdf renders enrollment agreements.
package pdf

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const pngDataURLPrefix = "data:image/png;base64,"

// ErrInvalidSignature is returned for signature data that is not a PNG data URL
var ErrInvalidSignature = errors.New("signature must be a base64 PNG data URL")

// AgreementDoc is everything printed on an agreement
type AgreementDoc struct {
	School        string
	AgreementID   int64
	StudentName   string
	StudentNumber string
	SignerName    string
	TermsVersion  string
	Terms         []string
	SignedAt      time.Time
	SignaturePNG  []byte
}

// DecodeSignature validates a data URL and returns the PNG bytes
func DecodeSignature(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, pngDataURLPrefix) {
		return nil, ErrInvalidSignature
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataURLPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, ErrInvalidSignature
	}
	return raw, nil
}

// DefaultTerms are printed when the school has not configured its own
func DefaultTerms() []string {
	return []string{
		"Lessons are booked in advance and may be cancelled free of charge up to 24 hours before the start time.",
		"Lessons missed without notice are counted as taken.",
		"Purchased lesson packages are valid for six months from the payment date.",
		"The school may reschedule a lesson if the teacher is unavailable; a replacement slot will be offered.",
		"Personal data is used only to administer enrollment, scheduling and payments.",
	}
}

// RenderAgreement produces the PDF bytes for doc
func RenderAgreement(doc AgreementDoc) ([]byte, error) {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle("Enrollment Agreement", true)
	p.SetAuthor(doc.School, true)
	p.SetCreationDate(doc.SignedAt)
	p.SetMargins(20, 20, 20)
	p.AddPage()

	w := newTextWriter(p, doc.School, doc.StudentName, doc.SignerName, strings.Join(doc.Terms, "\n"))

	w.line(18, 10, doc.School, "C")
	p.SetFont("Helvetica", "", 13)
	p.CellFormat(0, 8, "Enrollment Agreement", "", 1, "C", false, 0, "")
	p.Ln(6)

	field := func(label, value string) {
		p.SetFont("Helvetica", "B", 11)
		p.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		w.line(11, 7, value, "L")
	}
	field("Agreement no.", fmt.Sprintf("%d", doc.AgreementID))
	field("Student", doc.StudentName)
	field("Student number", doc.StudentNumber)
	field("Terms version", doc.TermsVersion)
	p.Ln(4)

	terms := doc.Terms
	if len(terms) == 0 {
		terms = DefaultTerms()
	}
	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(0, 8, "Terms", "", 1, "L", false, 0, "")
	for i, t := range terms {
		w.flow(10, 6, fmt.Sprintf("%d. %s", i+1, t))
		p.Ln(7)
	}
	p.Ln(6)

	w.flow(11, 6, fmt.Sprintf("Signed by %s on %s.", doc.SignerName, doc.SignedAt.Format("2 January 2006 15:04 MST")))
	p.Ln(8)

	if len(doc.SignaturePNG) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		p.RegisterImageOptionsReader("signature", opts, bytes.NewReader(doc.SignaturePNG))
		p.ImageOptions("signature", p.GetX(), p.GetY(), 60, 0, true, opts, 0, "")
		p.Ln(2)
	}
	p.SetDrawColor(120, 120, 120)
	p.Line(20, p.GetY(), 90, p.GetY())
	p.Ln(2)
	p.SetFont("Helvetica", "I", 9)
	p.CellFormat(0, 5, "Signature", "", 1, "L", false, 0, "")

	if err := p.Error(); err != nil {
		return nil, fmt.Errorf("failed to render agreement: %w", err)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write agreement PDF: %w", err)
	}
	return buf.Bytes(), nil
}
