package render

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans operator-supplied HTML before it is displayed.
type Sanitizer interface {
	Sanitize(html string) string
}

var svgElements = []string{
	"svg", "g", "path", "circle", "ellipse", "rect", "line", "polyline", "polygon", "text", "tspan",
}

type policySanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer allows user-generated-content markup, basic layout styles and a static SVG subset.
// Scripts, event handlers and external references inside SVG are stripped.
func NewSanitizer() Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowElements("header", "footer", "section", "article", "main")
	p.AllowAttrs("class").Globally()
	p.AllowStyles(
		"color", "background-color", "font-size", "font-weight", "font-family", "text-align",
		"margin", "padding", "border", "width", "height",
	).Globally()

	p.AllowElements(svgElements...)
	p.AllowAttrs("viewBox", "xmlns", "width", "height", "fill", "stroke", "stroke-width", "transform").
		OnElements(svgElements...)
	p.AllowAttrs("d").OnElements("path")
	p.AllowAttrs("cx", "cy", "r").OnElements("circle")
	p.AllowAttrs("cx", "cy", "rx", "ry").OnElements("ellipse")
	p.AllowAttrs("x", "y", "rx", "ry").OnElements("rect")
	p.AllowAttrs("x1", "y1", "x2", "y2").OnElements("line")
	p.AllowAttrs("points").OnElements("polyline", "polygon")
	p.AllowAttrs("x", "y", "font-size", "text-anchor").OnElements("text", "tspan")
	return &policySanitizer{policy: p}
}

func (s *policySanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
