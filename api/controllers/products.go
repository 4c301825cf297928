package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/inventario/api/responses"
	"github.com/angelmondragon/inventario/api/validators"
	productsvc "github.com/angelmondragon/inventario/internal/products"
	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
	"github.com/angelmondragon/inventario/pkg/logger"
	"github.com/angelmondragon/inventario/web"
)

// Renderer produces a full HTML page.
type Renderer interface {
	Render(page string, data any) ([]byte, error)
}

// ListProducts renders the catalog with the create form.
func ListProducts(svc productsvc.Service, views Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		render(w, r, views, logg, web.PageIndex, web.IndexPage{
			Title:    "Inventario",
			Products: products,
		})
	}
}

// CreateProduct handles the create form and returns to the catalog.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form productForm
		if err := validators.DecodeForm(w, r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.CreateProduct(r.Context(), form.toInput()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, "/")
	}
}

// EditProductForm renders the edit form for one product.
func EditProductForm(svc productsvc.Service, views Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		render(w, r, views, logg, web.PageEdit, web.EditPage{
			Title:   "Editar producto",
			Product: product,
		})
	}
}

// UpdateProduct overwrites a product from the edit form.
func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var form productForm
		if err := validators.DecodeForm(w, r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateProduct(r.Context(), id, form.toInput()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, "/")
	}
}

// DeleteProduct removes a product that has no sales.
func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, "/")
	}
}

type productForm struct {
	Name        string `form:"nombre" validate:"required,max=255"`
	Category    string `form:"categoria" validate:"required,max=100"`
	Price       string `form:"precio" validate:"required,money"`
	Quantity    string `form:"cantidad" validate:"required,int_gte=0"`
	Description string `form:"descripcion" validate:"max=2000"`
}

// toInput converts a form that already passed validation.
func (f productForm) toInput() productsvc.ProductInput {
	price, _ := decimal.NewFromString(f.Price)
	qty, _ := strconv.Atoi(f.Quantity)
	return productsvc.ProductInput{
		Name:        f.Name,
		Category:    f.Category,
		Price:       price,
		Quantity:    qty,
		Description: f.Description,
	}
}

// productIDParam reads {id}. Anything but a positive integer cannot name a
// product, so it is reported as not found.
func productIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, productsvc.MsgNotFound).
			WithDetails(map[string]any{"id": raw})
	}
	return id, nil
}

// render only writes once the page is complete, so a template error is still
// answered with a clean 500.
func render(w http.ResponseWriter, r *http.Request, views Renderer, logg *logger.Logger, page string, data any) {
	body, err := views.Render(page, data)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render "+page))
		return
	}
	responses.WriteHTML(w, http.StatusOK, body)
}
