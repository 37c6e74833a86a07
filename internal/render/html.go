package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate = template.Must(
	template.New("document.html").Funcs(template.FuncMap{
		"money": money,
		"mm":    func(v float64) string { return fmt.Sprintf("%.2fmm", v) },
		"pt":    func(v float64) string { return fmt.Sprintf("%.1fpt", v) },
	}).ParseFS(templateFS, "templates/document.html"),
)

// HTML renders a layout as a standalone HTML page. Raw overrides are emitted as sanitized,
// without any generated markup around them.
func (r *Renderer) HTML(l *Layout) ([]byte, error) {
	if l.Raw {
		return []byte(l.RawHTML), nil
	}
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, l); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
