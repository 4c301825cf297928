package models

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog row in productos.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:nombre;size:255;not null"`
	Category    string          `gorm:"column:categoria;size:100;not null"`
	Price       decimal.Decimal `gorm:"column:precio;type:numeric(10,2);not null"`
	Quantity    int             `gorm:"column:cantidad;not null;default:0"`
	Description string          `gorm:"column:descripcion;type:text"`
}

func (Product) TableName() string {
	return "productos"
}
