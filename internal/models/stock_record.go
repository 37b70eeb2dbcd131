package models

import "time"

// StockRecord: cantidad disponible de un producto en una sucursal.
// Es la única fuente de verdad de "este producto se puede vender aquí ahora".
// Invariante: Quantity >= 0 siempre.
type StockRecord struct {
	ID        uint `gorm:"primaryKey"`
	ProductID uint `gorm:"uniqueIndex:idx_stock_product_branch;not null"`
	Product   Product
	BranchID  uint `gorm:"uniqueIndex:idx_stock_product_branch;not null"`
	Branch    Branch
	Quantity  int `gorm:"not null;default:0;check:quantity >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
