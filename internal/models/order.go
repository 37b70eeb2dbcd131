package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState - estados del pedido. Los valores son los mismos strings que
// consumen los frontends, por eso van en español.
type OrderState string

const (
	OrderPending   OrderState = "PENDIENTE"
	OrderPaid      OrderState = "PAGADO"
	OrderInProcess OrderState = "EN_PROCESO"
	OrderDelivered OrderState = "ENTREGADO"
	OrderCancelled OrderState = "CANCELADO"
	OrderReturned  OrderState = "DEVOLUCION"
)

type Order struct {
	ID uint `gorm:"primaryKey"`

	// CustomerID nulo = venta mostrador anónima. Un pedido anónimo nunca
	// entra en estado PENDIENTE, así que jamás participa en abonos.
	CustomerID *uint `gorm:"index"`
	Customer   *User `gorm:"foreignKey:CustomerID"`
	SellerID   *uint `gorm:"index"`
	Seller     *User `gorm:"foreignKey:SellerID"`
	BranchID   uint  `gorm:"index;not null"`
	Branch     Branch

	State          OrderState `gorm:"type:varchar(15);not null;index"`
	PaymentMethod  string     `gorm:"size:50"`
	TransactionRef string     `gorm:"size:100"` // referencia del PSP o recibo de mostrador

	// Vencimiento y mora de ventas al crédito. DueDate se fija una sola vez
	// al crear el pedido, si el cliente tiene días de plazo.
	DueDate     *time.Time      `gorm:"type:date"`
	LateFeeRate decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"` // tasa de mora en %

	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	AmountReceived decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"` // monto recibido (abonos / pago en caja)

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Outstanding: lo que aún se debe de este pedido.
func (o *Order) Outstanding() decimal.Decimal {
	return o.Total.Sub(o.AmountReceived)
}

type OrderLine struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"uniqueIndex:idx_line_order_product;not null"`
	ProductID uint `gorm:"uniqueIndex:idx_line_order_product;not null"`
	Product   Product
	Quantity  int `gorm:"not null"`

	// Precio congelado al momento de la venta; inmune a cambios de catálogo.
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null"`
}
