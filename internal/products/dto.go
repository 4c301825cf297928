package product

import (
	"github.com/angelmondragon/inventario/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ProductInput is the validated content of the create and edit forms.
type ProductInput struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Quantity    int
	Description string
}

// ProductDTO is the catalog row handed to the pages.
type ProductDTO struct {
	ID          int64
	Name        string
	Category    string
	Price       decimal.Decimal
	Quantity    int
	Description string
}

// NewProductDTO maps a persisted product to its page representation.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Description: p.Description,
	}
}

func newProductDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *NewProductDTO(&products[i]))
	}
	return out
}

func (in ProductInput) toModel() *models.Product {
	return &models.Product{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price.Round(2),
		Quantity:    in.Quantity,
		Description: in.Description,
	}
}
