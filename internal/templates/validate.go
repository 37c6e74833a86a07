package templates

import (
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/validation"
)

// Validate checks a template before it is saved.
func Validate(tpl *models.Template) error {
	v := validation.Violations{}
	validation.Required("name", tpl.Name, v)
	if !tpl.DocumentType.Valid() {
		v["document_type"] = "unknown"
	}
	validation.UniqueKeys("columns", tpl.Columns, KnownColumns, v)
	validation.HexColor("primary_color", tpl.PrimaryColor, v)
	validation.HexColor("accent_color", tpl.AccentColor, v)
	if tpl.FontSize != 0 {
		validation.RangeFloat("font_size", tpl.FontSize, 4, 32, v)
	}
	if tpl.HeaderFontSize != 0 {
		validation.RangeFloat("header_font_size", tpl.HeaderFontSize, 4, 48, v)
	}
	return v.Err()
}
