// Package pdf renders the downloadable shopping list.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	title        = "Shopping list"
	emptyMessage = "Your shopping cart is empty."
	utf8Family   = "shopping"
)

// Renderer lays out aggregated shopping lines on A4 pages. The built-in
// Helvetica font only covers cp1252; set FontPath to a TTF file to print
// other scripts.
type Renderer struct {
	FontPath string
}

func NewRenderer(fontPath string, logger *zap.Logger) *Renderer {
	if fontPath == "" && logger != nil {
		logger.Warn("no PDF font configured, shopping lists fall back to Helvetica",
			zap.String("charset", "cp1252"),
		)
	}
	return &Renderer{FontPath: fontPath}
}

// encoder converts text for the font in use. Characters the core fonts
// cannot show are replaced rather than printed as raw UTF-8 bytes.
func (r *Renderer) encoder(doc *fpdf.Fpdf) func(string) string {
	if r.FontPath != "" {
		return func(s string) string { return s }
	}
	return doc.UnicodeTranslatorFromDescriptor("")
}

// Render returns the PDF document for lines.
func (r *Renderer) Render(lines []types.ShoppingLine) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	if r.FontPath != "" {
		doc.AddUTF8Font(utf8Family, "", r.FontPath)
		family = utf8Family
	}
	encode := r.encoder(doc)
	doc.SetTitle(title, true)
	doc.AddPage()

	doc.SetFont(family, "", 18)
	doc.CellFormat(0, 12, title, "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont(family, "", 12)
	if len(lines) == 0 {
		doc.CellFormat(0, 8, emptyMessage, "", 1, "L", false, 0, "")
	}
	for i, line := range lines {
		text := fmt.Sprintf("%d. %s (%s) - %s", i+1, line.Name, line.Unit, formatAmount(line.Amount))
		doc.CellFormat(0, 8, encode(text), "", 1, "L", false, 0, "")
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to lay out shopping list: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write shopping list: %w", err)
	}
	return buf.Bytes(), nil
}

// formatAmount prints whole amounts without a fraction.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
