package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null;unique"`
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Product struct {
	ID          uint   `gorm:"primaryKey"`
	SKU         string `gorm:"size:50;uniqueIndex;not null"` // siempre canonicalizado en mayúsculas
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`

	// Precio de referencia vigente (> 0). Los pedidos guardan su propia
	// copia del precio en OrderLine, así que cambiarlo aquí nunca altera
	// totales históricos.
	Price decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	CategoryID *uint `gorm:"index"`
	Category   *Category
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
