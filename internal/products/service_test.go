package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/inventario/pkg/db/models"
	pkgerrors "github.com/angelmondragon/inventario/pkg/errors"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, nil, nil); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewService(NewRepository(nil), nil, nil); err == nil {
		t.Fatal("expected error without db client")
	}
}

func TestCreateThenListContainsProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, widgetInput())
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	list, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "Widget", list[0].Name)
	assert.Equal(t, "Tools", list[0].Category)
	assert.True(t, decimal.RequireFromString("9.99").Equal(list[0].Price), "price %s", list[0].Price)
	assert.Equal(t, 10, list[0].Quantity)
	assert.Equal(t, "A widget", list[0].Description)
}

func TestListProductsOrderedByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		in := widgetInput()
		in.Name = name
		_, err := svc.CreateProduct(ctx, in)
		require.NoError(t, err)
	}

	list, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.Less(t, list[0].ID, list[1].ID)
}

func TestListProductsEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	list, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetProduct(context.Background(), 999)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Equal(t, MsgNotFound, typed.Message())
}

func TestUpdateThenGetReturnsNewFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, widgetInput())
	require.NoError(t, err)

	err = svc.UpdateProduct(ctx, created.ID, ProductInput{
		Name:     "Gadget",
		Category: "Toys",
		Price:    decimal.RequireFromString("1.50"),
		Quantity: 0,
	})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", got.Name)
	assert.Equal(t, "Toys", got.Category)
	assert.True(t, decimal.RequireFromString("1.5").Equal(got.Price))
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, "", got.Description)
}

func TestUpdateUnknownProductIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.UpdateProduct(context.Background(), 42, widgetInput()))

	list, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteProductWithoutSales(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, widgetInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteProductWithSalesIsRejected(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, widgetInput())
	require.NoError(t, err)
	mustCreateTestSale(t, conn, created.ID, 1)

	err = svc.DeleteProduct(ctx, created.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeBusinessRule, typed.Code())
	assert.Equal(t, MsgHasSales, typed.Message())

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
}

func TestDeleteUnknownProductIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.DeleteProduct(context.Background(), 12345))
}
