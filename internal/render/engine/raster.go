package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const lineSpacing = 1.2

var errNoPage = errors.New("no page added")

// Raster renders each page to a PNG at a fixed DPI.
type Raster struct {
	dpi   float64
	font  *truetype.Font
	faces map[float64]font.Face
	pages []*gg.Context
}

// NewRaster builds a raster engine. An empty fontPath selects the bundled Go Regular face.
func NewRaster(dpi float64, fontPath string) (*Raster, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("raster dpi must be positive, got %v", dpi)
	}
	ttf := goregular.TTF
	if fontPath != "" {
		b, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		ttf = b
	}
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return &Raster{dpi: dpi, font: parsed, faces: map[float64]font.Face{}}, nil
}

func (r *Raster) UnitsPerMM() float64 { return r.dpi / mmPerInch }

func (r *Raster) AddPage(bg image.Image, width, height float64) error {
	w, h := int(math.Round(width)), int(math.Round(height))
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid page size %vx%v", width, height)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if bg != nil {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), bg, bg.Bounds(), draw.Over, nil)
	}
	dc := gg.NewContextForRGBA(canvas)
	dc.SetColor(color.Black)
	r.pages = append(r.pages, dc)
	return nil
}

func (r *Raster) PlaceText(text string, x, y, width, fontSize float64) error {
	if len(r.pages) == 0 {
		return errNoPage
	}
	dc := r.pages[len(r.pages)-1]
	dc.SetFontFace(r.face(fontSize))
	if width > 0 {
		dc.DrawStringWrapped(text, x, y, 0, 0, width, lineSpacing, gg.AlignLeft)
		return nil
	}
	dc.DrawStringAnchored(text, x, y, 0, 1)
	return nil
}

func (r *Raster) Finish() (*Artifact, error) {
	if len(r.pages) == 0 {
		return nil, errNoPage
	}
	out := &Artifact{MimeType: "image/png"}
	for i, dc := range r.pages {
		var buf bytes.Buffer
		if err := dc.EncodePNG(&buf); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		out.Parts = append(out.Parts, buf.Bytes())
	}
	return out, nil
}

func (r *Raster) face(size float64) font.Face {
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     r.dpi,
		Hinting: font.HintingNone,
	})
	r.faces[size] = f
	return f
}
