package templates

import (
	"fmt"

	"github.com/diewo77/go-docflow/internal/models"
)

var defaultStyle = Style{
	FontSize:       10,
	HeaderFontSize: 14,
	PrimaryColor:   "#1F2937",
	AccentColor:    "#2563EB",
}

var (
	monetaryColumns = []string{
		ColDescription, ColQuantity, ColUnit, ColPrice, ColDiscount,
		ColDiscountedPrice, ColVAT, ColVATAmount, ColTotal,
	}
	goodsColumns = []string{ColDescription, ColQuantity, ColUnit}
)

var builtins = map[models.DocumentType]Structured{
	models.TypeQuote: {
		Columns:  monetaryColumns,
		Sections: Sections{Header: true, Footer: true, Signatures: true},
	},
	models.TypeSpecialQuote: {
		Columns:  monetaryColumns,
		Sections: Sections{Header: true, Footer: true, Signatures: true},
	},
	models.TypeContract: {
		Columns:  monetaryColumns,
		Sections: Sections{Header: true, Footer: true, Signatures: true, Certificates: true},
	},
	models.TypeInvoice: {
		Columns:  monetaryColumns,
		Sections: Sections{Header: true, Footer: true},
	},
	models.TypeDeliveryNote: {
		Columns:  goodsColumns,
		Sections: Sections{Header: true, Footer: true, Signatures: true, Stamp: true},
	},
	models.TypeInstallationOrder: {
		Columns:  goodsColumns,
		Sections: Sections{Header: true, Footer: true, Signatures: true, Certificates: true},
	},
	models.TypeComplaint: {
		Columns:  []string{ColDescription, ColQuantity},
		Sections: Sections{Header: true, Footer: true},
	},
}

// Builtin returns the hard-coded configuration used when no template matches.
// The returned value is a fresh copy.
func Builtin(t models.DocumentType) (Structured, error) {
	b, ok := builtins[t]
	if !ok {
		return Structured{}, fmt.Errorf("%w: no built-in configuration for %q", ErrTemplateResolutionExhausted, t)
	}
	b.Name = "builtin:" + string(t)
	b.DocumentType = t
	b.Columns = append([]string(nil), b.Columns...)
	b.Style = defaultStyle
	return b, nil
}
