package repository

import (
	"context"
	"errors"

	"ferreteria-backend/internal/models"
)

// ErrNotFound se devuelve cuando la entidad no existe.
var ErrNotFound = errors.New("registro no encontrado")

// TxManager delimita una unidad atómica. Todo lo que el núcleo muta
// (stock + pedido + líneas, o el recorrido de un abono) ocurre dentro
// de una sola transacción.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepository interface {
	// GetByIDs carga los productos indicados; un id ausente simplemente
	// no aparece en el mapa resultante.
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error)
}

type StockRepository interface {
	// LockForUpdate carga los registros (producto, sucursal) con bloqueo
	// exclusivo de fila hasta el fin de la transacción, siempre en orden
	// ascendente de producto para que dos ventas concurrentes no se
	// interbloqueen adquiriendo en órdenes cruzados.
	LockForUpdate(ctx context.Context, branchID uint, productIDs []uint) ([]models.StockRecord, error)
	// SetQuantity fija la cantidad de un registro ya bloqueado.
	SetQuantity(ctx context.Context, branchID, productID uint, quantity int) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	// GetForUpdate bloquea la fila del pedido antes de leer su estado,
	// para que la validación de transición y la mutación sean atómicas.
	GetForUpdate(ctx context.Context, id uint) (*models.Order, error)
	Update(ctx context.Context, o *models.Order) error
	// LockPendingByCustomer bloquea todos los pedidos PENDIENTE del
	// cliente, del más antiguo al más reciente (FIFO de deuda).
	LockPendingByCustomer(ctx context.Context, customerID uint) ([]*models.Order, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}
