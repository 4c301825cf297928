package sales

import (
	"context"

	"github.com/angelmondragon/inventario/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines the statements behind the sales pages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListSales(ctx context.Context) ([]SaleRow, error)
	ListProductOptions(ctx context.Context) ([]ProductOption, error)
	ProductStock(ctx context.Context, productID int64) (int, error)
	Insert(ctx context.Context, sale *models.Sale) error
	DecrementStock(ctx context.Context, productID int64, quantity int) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a GORM-backed sales repository.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// ListSales joins every sale with its product, oldest first.
func (r *repositoryImpl) ListSales(ctx context.Context) ([]SaleRow, error) {
	var rows []SaleRow
	err := r.db.WithContext(ctx).
		Table("ventas AS v").
		Select("v.id, v.cliente, p.nombre AS producto_nombre, v.cantidad, v.fecha").
		Joins("JOIN productos AS p ON p.id = v.producto_id").
		Order("v.fecha ASC, v.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListProductOptions(ctx context.Context) ([]ProductOption, error) {
	var options []ProductOption
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id, nombre, cantidad").
		Order("id ASC").
		Scan(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

// ProductStock reads the product's cantidad; gorm.ErrRecordNotFound when absent.
func (r *repositoryImpl) ProductStock(ctx context.Context, productID int64) (int, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Select("id", "cantidad").
		First(&product, "id = ?", productID).Error
	if err != nil {
		return 0, err
	}
	return product.Quantity, nil
}

func (r *repositoryImpl) Insert(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Product").Create(sale).Error
}

// DecrementStock subtracts quantity only while enough stock remains, so two
// racing sales can never drive cantidad below zero. Zero rows affected means
// the stock was no longer sufficient.
func (r *repositoryImpl) DecrementStock(ctx context.Context, productID int64, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND cantidad >= ?", productID, quantity).
		UpdateColumn("cantidad", gorm.Expr("cantidad - ?", quantity))
	return res.RowsAffected, res.Error
}
