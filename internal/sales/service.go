package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/inventario/pkg/db"
	"github.com/angelmondragon/inventario/pkg/db/models"
	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
	"github.com/angelmondragon/inventario/pkg/logger"
	"github.com/angelmondragon/inventario/pkg/metrics"
	"gorm.io/gorm"
)

// Messages shown to the browser.
const (
	MsgInsufficientStock = "Cantidad insuficiente en el inventario"
	MsgInvalidProduct    = "Producto no válido"
	msgListFailed        = "Error al cargar las ventas"
	msgProductsFailed    = "Error al cargar los productos"
	msgStockFailed       = "Error al verificar el inventario"
	msgInsertFailed      = "Error al registrar la venta"
	msgDecrementFailed   = "Error al actualizar el inventario"
)

// Service exposes the sales workflow.
type Service interface {
	ListSales(ctx context.Context) ([]SaleRow, error)
	NewSaleForm(ctx context.Context) ([]ProductOption, error)
	RecordSale(ctx context.Context, input SaleInput) (*SaleDTO, error)
}

// Recorder receives sale outcomes; *metrics.SalesMetrics satisfies it.
type Recorder interface {
	Recorded(quantity int)
	Rejected(reason string)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	dbClient txRunner
	recorder Recorder
	logg     *logger.Logger
}

// NewService constructs the sales service. recorder may be nil.
func NewService(repo Repository, dbClient txRunner, recorder Recorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if recorder == nil {
		recorder = (*metrics.SalesMetrics)(nil)
	}
	return &service{repo: repo, dbClient: dbClient, recorder: recorder, logg: logg}, nil
}

func (s *service) ListSales(ctx context.Context) ([]SaleRow, error) {
	rows, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgListFailed)
	}
	return rows, nil
}

func (s *service) NewSaleForm(ctx context.Context) ([]ProductOption, error) {
	options, err := s.repo.ListProductOptions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgProductsFailed)
	}
	return options, nil
}

// RecordSale checks stock, inserts the sale and decrements stock in one
// transaction. Any failure rolls everything back.
func (s *service) RecordSale(ctx context.Context, input SaleInput) (*SaleDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Datos inválidos: cantidad debe ser mayor a 0")
	}

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"product_id": input.ProductID,
			"quantity":   input.Quantity,
		})
	}

	var sale models.Sale
	var remaining int
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		available, err := txRepo.ProductStock(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, MsgInvalidProduct)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgStockFailed)
		}
		if input.Quantity > available {
			return insufficientStock(available, input.Quantity)
		}

		sale = models.Sale{
			Client:    input.Client,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
		}
		if err := txRepo.Insert(ctx, &sale); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, MsgInvalidProduct)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgInsertFailed)
		}

		rows, err := txRepo.DecrementStock(ctx, input.ProductID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgDecrementFailed)
		}
		if rows == 0 {
			// a concurrent sale took the stock after our read
			return insufficientStock(available, input.Quantity)
		}
		remaining = available - input.Quantity
		return nil
	})
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil {
			typed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgInsertFailed)
		}
		s.recorder.Rejected(rejectionReason(typed))
		if s.logg != nil && typed.Code() != pkgerrors.CodeDependency {
			s.logg.Info(ctx, "sale.rejected")
		}
		return nil, typed
	}

	s.recorder.Recorded(sale.Quantity)
	if s.logg != nil {
		s.logg.Info(s.logg.WithSaleID(ctx, sale.ID), "sale.recorded")
	}

	return &SaleDTO{
		ID:             sale.ID,
		Client:         sale.Client,
		ProductID:      sale.ProductID,
		Quantity:       sale.Quantity,
		SoldAt:         sale.SoldAt,
		RemainingStock: remaining,
	}, nil
}

func insufficientStock(available, requested int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeBusinessRule, MsgInsufficientStock).
		WithDetails(map[string]any{"available": available, "requested": requested})
}

func rejectionReason(err *pkgerrors.Error) string {
	switch {
	case err.Code() == pkgerrors.CodeBusinessRule:
		return metrics.ReasonInsufficientStock
	case err.Code() == pkgerrors.CodeValidation:
		return metrics.ReasonInvalidProduct
	default:
		return metrics.ReasonStoreError
	}
}
