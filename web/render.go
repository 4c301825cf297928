package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	product "github.com/angelmondragon/inventario/internal/products"
	"github.com/angelmondragon/inventario/internal/sales"
)

// Page names accepted by Renderer.Render.
const (
	PageIndex     = "index"
	PageEdit      = "editar"
	PageSales     = "ventas"
	PageSaleForm  = "formulario_venta"
	layoutName    = "layout"
	layoutFile    = "templates/layout.html"
	dateLayout    = "02/01/2006 15:04"
	moneyDecimals = 2
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{PageIndex, PageEdit, PageSales, PageSaleForm}

// IndexPage is the catalog list with the create form.
type IndexPage struct {
	Title    string
	Products []product.ProductDTO
}

// EditPage is the edit form of one product.
type EditPage struct {
	Title   string
	Product *product.ProductDTO
}

// SalesPage lists recorded sales.
type SalesPage struct {
	Title string
	Sales []sales.SaleRow
}

// SaleFormPage is the new-sale form.
type SaleFormPage struct {
	Title    string
	Products []sales.ProductOption
}

// Renderer holds one parsed template set per page, each sharing the layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"money":  money,
		"fecha":  fecha,
		"newKey": uuid.NewString,
	}

	set := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(layoutName).Funcs(funcs).ParseFS(templateFS, layoutFile, "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", page, err)
		}
		set[page] = tmpl
	}
	return &Renderer{pages: set}, nil
}

// Render executes page into memory. Nothing reaches the client here, so a
// template failure can still be answered with an error page.
func (r *Renderer) Render(page string, data any) ([]byte, error) {
	tmpl, ok := r.pages[page]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutName, data); err != nil {
		return nil, fmt.Errorf("render page %s: %w", page, err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(moneyDecimals)
}

func fecha(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
