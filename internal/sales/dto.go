package sales

import "time"

// SaleInput is the validated content of the new-sale form.
type SaleInput struct {
	Client    string
	ProductID int64
	Quantity  int
}

// SaleRow is one line of the sales page: a sale joined with its product name.
type SaleRow struct {
	ID          int64     `gorm:"column:id"`
	Client      string    `gorm:"column:cliente"`
	ProductName string    `gorm:"column:producto_nombre"`
	Quantity    int       `gorm:"column:cantidad"`
	SoldAt      time.Time `gorm:"column:fecha"`
}

// ProductOption feeds the product select of the new-sale form.
type ProductOption struct {
	ID       int64  `gorm:"column:id"`
	Name     string `gorm:"column:nombre"`
	Quantity int    `gorm:"column:cantidad"`
}

// SaleDTO describes a committed sale.
type SaleDTO struct {
	ID             int64
	Client         string
	ProductID      int64
	Quantity       int
	SoldAt         time.Time
	RemainingStock int
}
