package controllers

import (
	"net/http"
	"strconv"

	"github.com/angelmondragon/inventario/api/responses"
	"github.com/angelmondragon/inventario/api/validators"
	"github.com/angelmondragon/inventario/internal/sales"
	"github.com/angelmondragon/inventario/pkg/logger"
	"github.com/angelmondragon/inventario/web"
)

// ListSales renders every recorded sale with its product name.
func ListSales(svc sales.Service, views Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListSales(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		render(w, r, views, logg, web.PageSales, web.SalesPage{
			Title: "Ventas",
			Sales: rows,
		})
	}
}

// NewSaleForm renders the form used to record a sale.
func NewSaleForm(svc sales.Service, views Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.NewSaleForm(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		render(w, r, views, logg, web.PageSaleForm, web.SaleFormPage{
			Title:    "Nueva venta",
			Products: products,
		})
	}
}

// RecordSale records a sale and returns to the sales list.
func RecordSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form saleForm
		if err := validators.DecodeForm(w, r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.RecordSale(r.Context(), form.toInput()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, "/ventas")
	}
}

type saleForm struct {
	Client    string `form:"cliente" validate:"required,max=255"`
	ProductID string `form:"producto_id" validate:"required,int_gte=1"`
	Quantity  string `form:"cantidad" validate:"required,int_gte=1"`
}

func (f saleForm) toInput() sales.SaleInput {
	productID, _ := strconv.ParseInt(f.ProductID, 10, 64)
	qty, _ := strconv.Atoi(f.Quantity)
	return sales.SaleInput{
		Client:    f.Client,
		ProductID: productID,
		Quantity:  qty,
	}
}
