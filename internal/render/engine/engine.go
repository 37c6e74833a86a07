// Package engine places text at absolute positions on fixed-size pages with a background image.
// Coordinates and sizes passed to an Engine are in its native unit; callers convert millimetres
// with UnitsPerMM. Font sizes are always in points.
package engine

import (
	"image"
)

const mmPerInch = 25.4

type Engine interface {
	UnitsPerMM() float64
	AddPage(bg image.Image, width, height float64) error
	// PlaceText draws text with its top-left corner at (x, y). A positive width wraps the text.
	PlaceText(text string, x, y, width, fontSize float64) error
	Finish() (*Artifact, error)
}

// Artifact is the encoded output. Raster engines produce one part per page.
type Artifact struct {
	MimeType string
	Parts    [][]byte
}
