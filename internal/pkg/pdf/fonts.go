package pdf

import (
	_ "embed"

	"github.com/go-pdf/fpdf"
)

// Core PDF fonts only cover cp1252, so names and terms are drawn with
// embedded TrueType fonts. The Nanum file is a Hangul-only subset and is
// registered only for documents that need it.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	textTTF []byte
	//go:embed fonts/NanumBarunGothic.ttf
	hangulTTF []byte
)

const (
	textFamily   = "dejavu"
	hangulFamily = "nanum"
)

// isHangul reports whether r is covered by the Hangul font: compatibility
// jamo and precomposed syllables.
func isHangul(r rune) bool {
	return (r >= 0x3131 && r <= 0x318E) || (r >= 0xAC00 && r <= 0xD7A3)
}

type run struct {
	hangul bool
	text   string
}

// splitRuns cuts s into maximal pieces drawn with the same font
func splitRuns(s string) []run {
	var runs []run
	start := 0
	cur := false
	for i, r := range s {
		h := isHangul(r)
		if i > start && h != cur {
			runs = append(runs, run{hangul: cur, text: s[start:i]})
			start = i
		}
		cur = h
	}
	if start < len(s) {
		runs = append(runs, run{hangul: cur, text: s[start:]})
	}
	return runs
}

func containsHangul(parts ...string) bool {
	for _, s := range parts {
		for _, r := range s {
			if isHangul(r) {
				return true
			}
		}
	}
	return false
}

// textWriter draws user supplied text, switching fonts per run
type textWriter struct {
	p      *fpdf.Fpdf
	hangul bool
}

// newTextWriter registers the fonts needed to draw texts
func newTextWriter(p *fpdf.Fpdf, texts ...string) *textWriter {
	p.AddUTF8FontFromBytes(textFamily, "", textTTF)
	w := &textWriter{p: p, hangul: containsHangul(texts...)}
	if w.hangul {
		p.AddUTF8FontFromBytes(hangulFamily, "", hangulTTF)
	}
	return w
}

func (w *textWriter) setFont(r run, size float64) {
	if r.hangul && w.hangul {
		w.p.SetFont(hangulFamily, "", size)
		return
	}
	w.p.SetFont(textFamily, "", size)
}

// line draws s on a single line starting at the current position, or
// centred on the page for align "C", then moves to the next line.
func (w *textWriter) line(size, h float64, s string, align string) {
	runs := splitRuns(s)
	widths := make([]float64, len(runs))
	total := 0.0
	for i, r := range runs {
		w.setFont(r, size)
		widths[i] = w.p.GetStringWidth(r.text)
		total += widths[i]
	}
	if align == "C" {
		pageW, _ := w.p.GetPageSize()
		left, _, right, _ := w.p.GetMargins()
		w.p.SetX(left + (pageW-left-right-total)/2)
	}
	for i, r := range runs {
		w.setFont(r, size)
		w.p.CellFormat(widths[i], h, r.text, "", 0, "L", false, 0, "")
	}
	w.p.Ln(h)
}

// flow writes s as wrapping text from the current position
func (w *textWriter) flow(size, h float64, s string) {
	for _, r := range splitRuns(s) {
		w.setFont(r, size)
		w.p.Write(h, r.text)
	}
}
