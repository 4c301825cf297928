package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/inventario/pkg/db"
	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
	"github.com/angelmondragon/inventario/pkg/logger"
	"gorm.io/gorm"
)

// Messages shown to the browser.
const (
	MsgNotFound     = "Producto no encontrado"
	MsgHasSales     = "No puedes eliminar un producto que tiene ventas asociadas"
	msgListFailed   = "Error en el servidor"
	msgCreateFailed = "Error al agregar producto"
	msgLoadFailed   = "Error en el servidor"
	msgUpdateFailed = "Error al actualizar producto"
	msgCheckFailed  = "Error al verificar las ventas"
	msgDeleteFailed = "Error al borrar el producto"
)

// Service exposes the catalog operations behind the product pages.
type Service interface {
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id int64) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     *Repository
	dbClient txRunner
	logg     *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgListFailed)
	}
	return newProductDTOs(products), nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	product := input.toModel()
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgCreateFailed)
	}
	s.info(ctx, product.ID, "product.created")
	return NewProductDTO(product), nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgLoadFailed)
	}
	return NewProductDTO(product), nil
}

// UpdateProduct overwrites the product without an existence check; an id
// that matches nothing is a no-op, same as the plain UPDATE it runs.
func (s *service) UpdateProduct(ctx context.Context, id int64, input ProductInput) error {
	rows, err := s.repo.Update(ctx, id, input.toModel())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgUpdateFailed)
	}
	if rows == 0 {
		s.debug(ctx, id, "product.update_no_rows")
		return nil
	}
	s.info(ctx, id, "product.updated")
	return nil
}

// DeleteProduct removes a product that no sale references. The count and
// the delete share one transaction, and the ventas foreign key backs the
// check up if a sale lands in between.
func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	var removed int64
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		sales, err := txRepo.CountSales(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgCheckFailed)
		}
		if sales > 0 {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, MsgHasSales).
				WithDetails(map[string]any{"product_id": id, "sales": sales})
		}

		removed, err = txRepo.Delete(ctx, id)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, err, MsgHasSales)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgDeleteFailed)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, err, MsgHasSales)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgDeleteFailed)
	}
	if removed == 0 {
		s.debug(ctx, id, "product.delete_no_rows")
		return nil
	}
	s.info(ctx, id, "product.deleted")
	return nil
}

func (s *service) info(ctx context.Context, id int64, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithProductID(ctx, id), msg)
}

func (s *service) debug(ctx context.Context, id int64, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Debug(s.logg.WithProductID(ctx, id), msg)
}
