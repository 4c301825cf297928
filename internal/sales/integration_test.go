//go:build integration
// +build integration

package sales_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	product "github.com/angelmondragon/inventario/internal/products"
	"github.com/angelmondragon/inventario/internal/sales"
	"github.com/angelmondragon/inventario/pkg/config"
	"github.com/angelmondragon/inventario/pkg/db"
	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
	"github.com/angelmondragon/inventario/pkg/migrate"
)

func setupPostgres(t *testing.T) *db.Client {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("inventario"),
		postgres.WithUsername("inventario"),
		postgres.WithPassword("inventario"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := db.New(ctx, config.DBConfig{DSN: dsn, Driver: config.DriverPostgres, MaxOpenConns: 10, MaxIdleConns: 5}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	require.NoError(t, err)
	require.NoError(t, migrate.Run(ctx, sqlDB, config.DriverPostgres, "", "up"))
	return client
}

func TestPostgresSaleScenario(t *testing.T) {
	client := setupPostgres(t)
	ctx := context.Background()

	products, err := product.NewService(product.NewRepository(client.DB()), client, nil)
	require.NoError(t, err)
	svc, err := sales.NewService(sales.NewRepository(client.DB()), client, nil, nil)
	require.NoError(t, err)

	widget, err := products.CreateProduct(ctx, product.ProductInput{
		Name:        "Widget",
		Category:    "Tools",
		Price:       decimal.RequireFromString("9.99"),
		Quantity:    10,
		Description: "A widget",
	})
	require.NoError(t, err)

	sale, err := svc.RecordSale(ctx, sales.SaleInput{Client: "Alice", ProductID: widget.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, sale.RemainingStock)

	_, err = svc.RecordSale(ctx, sales.SaleInput{Client: "Bob", ProductID: widget.ID, Quantity: 10})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBusinessRule, pkgerrors.As(err).Code())

	rows, err := svc.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].Client)
	assert.Equal(t, "Widget", rows[0].ProductName)

	err = products.DeleteProduct(ctx, widget.ID)
	require.Error(t, err)
	assert.Equal(t, product.MsgHasSales, pkgerrors.As(err).Message())

	current, err := products.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, current.Quantity)
	assert.Equal(t, "9.99", current.Price.StringFixed(2))
}

func TestPostgresConcurrentSalesNeverOversell(t *testing.T) {
	client := setupPostgres(t)
	ctx := context.Background()

	products, err := product.NewService(product.NewRepository(client.DB()), client, nil)
	require.NoError(t, err)
	svc, err := sales.NewService(sales.NewRepository(client.DB()), client, nil, nil)
	require.NoError(t, err)

	widget, err := products.CreateProduct(ctx, product.ProductInput{
		Name:     "Widget",
		Category: "Tools",
		Price:    decimal.RequireFromString("9.99"),
		Quantity: 5,
	})
	require.NoError(t, err)

	const buyers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordSale(ctx, sales.SaleInput{Client: "Buyer", ProductID: widget.ID, Quantity: 1}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	current, err := products.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Quantity)
}
