// Package pdf extracts plain text and positioned text spans from PDF bytes.
//
// It uses github.com/ledongthuc/pdf, a pure Go reader, so no external
// services or CGO are involved. Rasterizing pages is left to the viewer.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// US letter, used when a page carries no usable MediaBox.
const (
	defaultWidth  = 612.0
	defaultHeight = 792.0
)

// ErrPageOutOfRange is returned when a page index is outside the document.
var ErrPageOutOfRange = errors.New("page out of range")

// Span is a run of text on one line, in top-left origin coordinates scaled for display.
type Span struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	FontSize float64 `json:"font_size"`
}

// Page is one page of a document laid out for the detail view.
type Page struct {
	Index  int     `json:"index"`
	Count  int     `json:"count"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
	Spans  []Span  `json:"spans"`
}

// Extractor implements text extraction and page layout.
type Extractor struct{}

// NewExtractor returns a ready Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText returns the text of every page, each page's words joined by single
// spaces and followed by one trailing space. Output is NFC-normalised so
// accented words compare equal to their composed spelling.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract text: malformed pdf: %v", r)
		}
	}()

	reader, err := open(data)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			b.WriteString(" ")
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		b.WriteString(strings.Join(strings.Fields(raw), " "))
		b.WriteString(" ")
	}
	return norm.NFC.String(b.String()), nil
}

// RenderPage lays out the text of page pageIndex (zero based) at the given scale.
func (e *Extractor) RenderPage(ctx context.Context, data []byte, pageIndex int, scale float64) (page *Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render page: malformed pdf: %v", r)
		}
	}()

	if scale <= 0 {
		scale = 1
	}
	reader, err := open(data)
	if err != nil {
		return nil, err
	}
	count := reader.NumPage()
	if pageIndex < 0 || pageIndex >= count {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, pageIndex, count)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := reader.Page(pageIndex + 1)
	width, height := mediaBox(p)
	out := &Page{
		Index:  pageIndex,
		Count:  count,
		Width:  width * scale,
		Height: height * scale,
		Scale:  scale,
	}
	if p.V.IsNull() {
		return out, nil
	}

	for _, s := range groupSpans(p.Content().Text) {
		out.Spans = append(out.Spans, Span{
			Text:     norm.NFC.String(s.Text),
			X:        s.X * scale,
			Y:        (height - s.Y - s.FontSize) * scale,
			Width:    s.Width * scale,
			FontSize: s.FontSize * scale,
		})
	}
	return out, nil
}

func open(data []byte) (*pdf.Reader, error) {
	if len(data) == 0 {
		return nil, errors.New("open pdf: empty document")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

// mediaBox reads the page size, following Parent links since MediaBox is inheritable.
func mediaBox(p pdf.Page) (float64, float64) {
	var box pdf.Value
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if b := v.Key("MediaBox"); b.Kind() == pdf.Array {
			box = b
			break
		}
	}
	if box.Kind() != pdf.Array || box.Len() < 4 {
		return defaultWidth, defaultHeight
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return defaultWidth, defaultHeight
	}
	return w, h
}

// groupSpans merges the per-glyph text runs of a page into line spans in PDF
// user space (bottom-left origin). A new span starts when the baseline or font
// size changes or the horizontal gap is wider than a font size.
func groupSpans(texts []pdf.Text) []Span {
	var spans []Span
	var cur *Span
	var lastEnd float64

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if cur != nil {
			sameLine := math.Abs(t.Y-cur.Y) < 0.5 && math.Abs(t.FontSize-cur.FontSize) < 0.01
			gap := t.X - lastEnd
			if sameLine && gap <= t.FontSize && gap > -t.FontSize {
				if gap > 0.2*t.FontSize && !strings.HasSuffix(cur.Text, " ") && t.S != " " {
					cur.Text += " "
				}
				cur.Text += t.S
				lastEnd = t.X + t.W
				cur.Width = lastEnd - cur.X
				continue
			}
			spans = append(spans, *cur)
		}
		cur = &Span{Text: t.S, X: t.X, Y: t.Y, Width: t.W, FontSize: t.FontSize}
		lastEnd = t.X + t.W
	}
	if cur != nil {
		spans = append(spans, *cur)
	}

	out := spans[:0]
	for _, s := range spans {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text != "" {
			out = append(out, s)
		}
	}
	return out
}
