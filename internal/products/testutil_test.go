package product

import (
	"testing"

	"github.com/angelmondragon/inventario/pkg/config"
	"github.com/angelmondragon/inventario/pkg/db"
	"github.com/angelmondragon/inventario/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
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

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn, config.DriverSQLite), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func widgetInput() ProductInput {
	return ProductInput{
		Name:        "Widget",
		Category:    "Tools",
		Price:       decimal.RequireFromString("9.99"),
		Quantity:    10,
		Description: "A widget",
	}
}

func mustCreateTestSale(t *testing.T, conn *gorm.DB, productID int64, qty int) {
	t.Helper()
	if err := conn.Create(&models.Sale{Client: "Alice", ProductID: productID, Quantity: qty}).Error; err != nil {
		t.Fatalf("create sale: %v", err)
	}
}
