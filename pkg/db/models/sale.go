package models

import "time"

// Sale records units of a product sold to a client. SoldAt is assigned on insert.
type Sale struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Client    string    `gorm:"column:cliente;size:255;not null"`
	ProductID int64     `gorm:"column:producto_id;not null;index"`
	Product   *Product  `gorm:"foreignKey:ProductID;references:ID;constraint:OnDelete:RESTRICT"`
	Quantity  int       `gorm:"column:cantidad;not null"`
	SoldAt    time.Time `gorm:"column:fecha;autoCreateTime"`
}

func (Sale) TableName() string {
	return "ventas"
}
