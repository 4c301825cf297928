package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/inventario/pkg/config"
	"github.com/angelmondragon/inventario/pkg/db"
	"github.com/angelmondragon/inventario/pkg/db/models"
	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
	"github.com/angelmondragon/inventario/pkg/metrics"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.Sale{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func mustCreateWidget(t *testing.T, conn *gorm.DB, qty int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        "Widget",
		Category:    "Tools",
		Price:       decimal.RequireFromString("9.99"),
		Quantity:    qty,
		Description: "A widget",
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func stockOf(t *testing.T, conn *gorm.DB, id int64) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Quantity
}

func salesCount(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(&models.Sale{}).Count(&count).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	return count
}

type fakeRecorder struct {
	recorded []int
	rejected []string
}

func (f *fakeRecorder) Recorded(quantity int)  { f.recorded = append(f.recorded, quantity) }
func (f *fakeRecorder) Rejected(reason string) { f.rejected = append(f.rejected, reason) }

func newTestService(t *testing.T, conn *gorm.DB, repo Repository) (Service, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	if repo == nil {
		repo = NewRepository(conn)
	}
	svc, err := NewService(repo, db.NewFromGorm(conn, config.DriverSQLite), rec, nil)
	require.NoError(t, err)
	return svc, rec
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil)
	require.Error(t, err)

	conn := openTestDB(t)
	_, err = NewService(NewRepository(conn), nil, nil, nil)
	require.Error(t, err)

	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn, config.DriverSQLite), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestWidgetScenario(t *testing.T) {
	conn := openTestDB(t)
	svc, rec := newTestService(t, conn, nil)
	ctx := context.Background()
	widget := mustCreateWidget(t, conn, 10)

	sale, err := svc.RecordSale(ctx, SaleInput{Client: "Alice", ProductID: widget.ID, Quantity: 4})
	require.NoError(t, err)
	assert.NotZero(t, sale.ID)
	assert.Equal(t, 6, sale.RemainingStock)
	assert.False(t, sale.SoldAt.IsZero())
	assert.Equal(t, 6, stockOf(t, conn, widget.ID))
	assert.EqualValues(t, 1, salesCount(t, conn))

	_, err = svc.RecordSale(ctx, SaleInput{Client: "Bob", ProductID: widget.ID, Quantity: 10})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeBusinessRule, typed.Code())
	assert.Equal(t, MsgInsufficientStock, typed.Message())
	assert.Equal(t, 6, stockOf(t, conn, widget.ID))
	assert.EqualValues(t, 1, salesCount(t, conn))

	rows, err := svc.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].Client)
	assert.Equal(t, "Widget", rows[0].ProductName)
	assert.Equal(t, 4, rows[0].Quantity)

	assert.Equal(t, []int{4}, rec.recorded)
	assert.Equal(t, []string{metrics.ReasonInsufficientStock}, rec.rejected)
}

func TestRecordSaleExactStock(t *testing.T) {
	conn := openTestDB(t)
	svc, _ := newTestService(t, conn, nil)
	widget := mustCreateWidget(t, conn, 3)

	sale, err := svc.RecordSale(context.Background(), SaleInput{Client: "Carol", ProductID: widget.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, sale.RemainingStock)
	assert.Equal(t, 0, stockOf(t, conn, widget.ID))
}

func TestRecordSaleUnknownProduct(t *testing.T) {
	conn := openTestDB(t)
	svc, rec := newTestService(t, conn, nil)

	_, err := svc.RecordSale(context.Background(), SaleInput{Client: "Alice", ProductID: 999, Quantity: 1})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, MsgInvalidProduct, typed.Message())
	assert.Zero(t, salesCount(t, conn))
	assert.Equal(t, []string{metrics.ReasonInvalidProduct}, rec.rejected)
}

func TestRecordSaleRejectsNonPositiveQuantity(t *testing.T) {
	conn := openTestDB(t)
	svc, _ := newTestService(t, conn, nil)
	widget := mustCreateWidget(t, conn, 5)

	_, err := svc.RecordSale(context.Background(), SaleInput{Client: "Alice", ProductID: widget.ID, Quantity: 0})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Equal(t, 5, stockOf(t, conn, widget.ID))
}

// lostRaceRepo simulates another sale committing between the stock read and
// the decrement.
type lostRaceRepo struct {
	Repository
}

func (r lostRaceRepo) WithTx(tx *gorm.DB) Repository {
	return lostRaceRepo{Repository: r.Repository.WithTx(tx)}
}

func (r lostRaceRepo) DecrementStock(context.Context, int64, int) (int64, error) {
	return 0, nil
}

func TestRecordSaleLostRaceRollsBack(t *testing.T) {
	conn := openTestDB(t)
	svc, _ := newTestService(t, conn, lostRaceRepo{Repository: NewRepository(conn)})
	widget := mustCreateWidget(t, conn, 10)

	_, err := svc.RecordSale(context.Background(), SaleInput{Client: "Alice", ProductID: widget.ID, Quantity: 4})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBusinessRule, pkgerrors.As(err).Code())
	assert.Zero(t, salesCount(t, conn), "sale insert must be rolled back")
	assert.Equal(t, 10, stockOf(t, conn, widget.ID))
}

type failingDecrementRepo struct {
	Repository
}

func (r failingDecrementRepo) WithTx(tx *gorm.DB) Repository {
	return failingDecrementRepo{Repository: r.Repository.WithTx(tx)}
}

func (r failingDecrementRepo) DecrementStock(context.Context, int64, int) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestRecordSaleStoreFailureRollsBack(t *testing.T) {
	conn := openTestDB(t)
	svc, rec := newTestService(t, conn, failingDecrementRepo{Repository: NewRepository(conn)})
	widget := mustCreateWidget(t, conn, 10)

	_, err := svc.RecordSale(context.Background(), SaleInput{Client: "Alice", ProductID: widget.ID, Quantity: 4})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Equal(t, "Error al actualizar el inventario", typed.Message())
	assert.Zero(t, salesCount(t, conn))
	assert.Equal(t, 10, stockOf(t, conn, widget.ID))
	assert.Equal(t, []string{metrics.ReasonStoreError}, rec.rejected)
}

func TestNewSaleFormListsProducts(t *testing.T) {
	conn := openTestDB(t)
	svc, _ := newTestService(t, conn, nil)
	first := mustCreateWidget(t, conn, 10)
	second := mustCreateWidget(t, conn, 0)

	options, err := svc.NewSaleForm(context.Background())
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, first.ID, options[0].ID)
	assert.Equal(t, second.ID, options[1].ID)
	assert.Equal(t, 0, options[1].Quantity)
}

func TestListSalesOrderedByDate(t *testing.T) {
	conn := openTestDB(t)
	svc, _ := newTestService(t, conn, nil)
	widget := mustCreateWidget(t, conn, 10)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, client := range []string{"late", "early"} {
		sale := models.Sale{Client: client, ProductID: widget.ID, Quantity: 1, SoldAt: base.Add(time.Duration(1-i) * time.Hour)}
		require.NoError(t, conn.Create(&sale).Error)
	}

	rows, err := svc.ListSales(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "early", rows[0].Client)
	assert.Equal(t, "late", rows[1].Client)
}
