package engine

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/phpdave11/gofpdf"
)

const pointsPerInch = 72

// PDF renders pages into a single PDF document, working in points.
type PDF struct {
	doc   *gofpdf.Fpdf
	tr    func(string) string
	pages int
}

func NewPDF() *PDF {
	doc := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "A4"})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	return &PDF{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
}

func (p *PDF) UnitsPerMM() float64 { return pointsPerInch / mmPerInch }

func (p *PDF) AddPage(bg image.Image, width, height float64) error {
	p.doc.AddPageFormat("P", gofpdf.SizeType{Wd: width, Ht: height})
	p.pages++
	if bg == nil {
		return p.doc.Error()
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, bg); err != nil {
		return fmt.Errorf("encode page %d background: %w", p.pages, err)
	}
	name := fmt.Sprintf("page-bg-%d", p.pages)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.doc.RegisterImageOptionsReader(name, opts, &buf)
	p.doc.ImageOptions(name, 0, 0, width, height, false, opts, 0, "")
	return p.doc.Error()
}

func (p *PDF) PlaceText(text string, x, y, width, fontSize float64) error {
	if p.pages == 0 {
		return errNoPage
	}
	p.doc.SetFont("Helvetica", "", fontSize)
	if width > 0 {
		p.doc.SetXY(x, y)
		p.doc.MultiCell(width, fontSize*lineSpacing, p.tr(text), "", "L", false)
	} else {
		// Text positions the baseline.
		p.doc.Text(x, y+fontSize, p.tr(text))
	}
	return p.doc.Error()
}

func (p *PDF) Finish() (*Artifact, error) {
	if p.pages == 0 {
		return nil, errNoPage
	}
	var buf bytes.Buffer
	if err := p.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return &Artifact{MimeType: "application/pdf", Parts: [][]byte{buf.Bytes()}}, nil
}
