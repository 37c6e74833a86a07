package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diewo77/go-docflow/internal/lineage"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/render"
	"github.com/diewo77/go-docflow/internal/status"
	"github.com/diewo77/go-docflow/internal/templates"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	legacyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

func formatStatuses(t models.DocumentType) (string, error) {
	legal, err := status.LegalStatuses(t)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(string(t)) + "\n")
	for _, s := range legal {
		label, err := status.DisplayLabel(s)
		if err != nil {
			return "", err
		}
		line := fmt.Sprintf("  %-12s %s", s, label)
		if legacy, _ := status.IsLegacy(s); legacy {
			line = legacyStyle.Render(line + " (legacy)")
		}
		b.WriteString(line + "\n")
	}
	return b.String(), nil
}

func docLine(d models.Document) string {
	return fmt.Sprintf("%s %s [%s] %s", d.Type, d.Number, d.Status, detailStyle.Render(d.ID.String()))
}

func formatChain(c lineage.Chain) string {
	var b strings.Builder
	for _, d := range c.Ancestors {
		b.WriteString("  " + docLine(d) + "\n")
	}
	if c.Current != nil {
		b.WriteString(currentStyle.Render("> ") + docLine(*c.Current) + "\n")
	}
	for _, d := range c.Descendants {
		b.WriteString("    " + docLine(d) + "\n")
	}
	if c.Truncated {
		b.WriteString(warnStyle.Render("chain truncated") + "\n")
	}
	return b.String()
}

func formatResolution(doc *models.Document, res templates.Resolution) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(string(doc.Type)+" "+doc.Number) + "\n")
	src := string(res.Source)
	if res.TemplateID != nil {
		src += " " + detailStyle.Render(res.TemplateID.String())
	}
	b.WriteString("  source   " + src + "\n")
	switch cfg := res.Config.(type) {
	case templates.Structured:
		b.WriteString("  template " + cfg.Name + "\n")
		b.WriteString("  columns  " + strings.Join(render.FilterColumns(doc.Type, cfg.Columns), ", ") + "\n")
	case templates.RawOverride:
		b.WriteString("  template " + cfg.Name + " " + warnStyle.Render("(raw html)") + "\n")
	}
	return b.String()
}

func formatOverlay(t *render.OverlayTable) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("overlay %gx%gmm", t.PageWidthMM, t.PageHeightMM)) + "\n")
	for i, p := range t.Pages {
		n := 0
		for _, f := range t.Fields {
			if f.Page == i+1 {
				n++
			}
		}
		fmt.Fprintf(&b, "  page %d  %-24s %d fields\n", i+1, p.Background, n)
	}
	return b.String()
}
