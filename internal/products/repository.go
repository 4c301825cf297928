package product

import (
	"context"

	"github.com/angelmondragon/inventario/pkg/db/models"
	"gorm.io/gorm"
)

// Repository holds the catalog statements. Every method runs a single
// statement; multi-statement work goes through WithTx.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// List returns every product ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindByID loads one product; gorm.ErrRecordNotFound when absent.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a product row and fills its generated id.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update overwrites the editable columns of row id and reports how many rows
// matched. A map is used so zero values (cantidad 0, empty descripcion) are written.
func (r *Repository) Update(ctx context.Context, id int64, product *models.Product) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"nombre":      product.Name,
			"categoria":   product.Category,
			"precio":      product.Price,
			"cantidad":    product.Quantity,
			"descripcion": product.Description,
		})
	return res.RowsAffected, res.Error
}

// Delete removes row id and reports how many rows were removed.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// CountSales returns how many ventas reference the product.
func (r *Repository) CountSales(ctx context.Context, productID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("producto_id = ?", productID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
