package stock

import (
	"context"
	"fmt"
	"sort"

	"ferreteria-backend/internal/repository"
)

// Line: una línea de reserva o devolución de stock.
type Line struct {
	ProductID uint
	Quantity  int
}

// InsufficientStockError: una línea pidió más de lo disponible (o el
// producto no tiene registro de stock en esa sucursal). Aborta la venta
// completa.
type InsufficientStockError struct {
	ProductID uint
	Name      string
}

func (e *InsufficientStockError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("sin stock: %s", e.Name)
	}
	return fmt.Sprintf("sin stock: producto %d", e.ProductID)
}

// Ledger administra las cantidades por (producto, sucursal). Reserve y
// Restore deben invocarse dentro de la transacción que persiste (o
// cancela) el pedido: los bloqueos de fila viven hasta el commit.
type Ledger struct {
	stocks   repository.StockRepository
	products repository.ProductRepository
}

func NewLedger(stocks repository.StockRepository, products repository.ProductRepository) *Ledger {
	return &Ledger{stocks: stocks, products: products}
}

// Reserve descuenta stock para todas las líneas o para ninguna. Los
// registros se bloquean en orden ascendente de producto — orden canónico
// compartido por todas las ventas, para que dos ventas multi-línea
// concurrentes no se interbloqueen.
func (l *Ledger) Reserve(ctx context.Context, branchID uint, lines []Line) error {
	merged := mergeLines(lines)
	ids := productIDs(merged)

	recs, err := l.stocks.LockForUpdate(ctx, branchID, ids)
	if err != nil {
		return err
	}
	byProduct := make(map[uint]int, len(recs))
	for _, r := range recs {
		byProduct[r.ProductID] = r.Quantity
	}

	// Primera pasada: validar todo antes de tocar nada. Si una sola línea
	// no alcanza, no se descuenta ninguna.
	for _, ln := range merged {
		qty, ok := byProduct[ln.ProductID]
		if !ok || qty < ln.Quantity {
			return l.insufficient(ctx, ln.ProductID)
		}
	}

	// Segunda pasada: descontar.
	for _, ln := range merged {
		newQty := byProduct[ln.ProductID] - ln.Quantity
		if err := l.stocks.SetQuantity(ctx, branchID, ln.ProductID, newQty); err != nil {
			return err
		}
	}
	return nil
}

// Restore devuelve al stock las cantidades de un pedido cancelado. La
// idempotencia la garantiza el llamador: la transición de estado del
// pedido impide cancelar (y por tanto restaurar) dos veces.
func (l *Ledger) Restore(ctx context.Context, branchID uint, lines []Line) error {
	merged := mergeLines(lines)
	ids := productIDs(merged)

	recs, err := l.stocks.LockForUpdate(ctx, branchID, ids)
	if err != nil {
		return err
	}
	byProduct := make(map[uint]int, len(recs))
	found := make(map[uint]bool, len(recs))
	for _, r := range recs {
		byProduct[r.ProductID] = r.Quantity
		found[r.ProductID] = true
	}

	for _, ln := range merged {
		if !found[ln.ProductID] {
			return fmt.Errorf("restaurar stock del producto %d: %w", ln.ProductID, repository.ErrNotFound)
		}
	}
	for _, ln := range merged {
		if err := l.stocks.SetQuantity(ctx, branchID, ln.ProductID, byProduct[ln.ProductID]+ln.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) insufficient(ctx context.Context, productID uint) error {
	e := &InsufficientStockError{ProductID: productID}
	if products, err := l.products.GetByIDs(ctx, []uint{productID}); err == nil {
		if p, ok := products[productID]; ok {
			e.Name = p.Name
		}
	}
	return e
}

// mergeLines suma cantidades de productos repetidos; validar duplicados
// por separado contra la misma fila permitiría sobrevender.
func mergeLines(lines []Line) []Line {
	byProduct := make(map[uint]int, len(lines))
	for _, ln := range lines {
		byProduct[ln.ProductID] += ln.Quantity
	}
	out := make([]Line, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func productIDs(lines []Line) []uint {
	ids := make([]uint, len(lines))
	for i, ln := range lines {
		ids[i] = ln.ProductID
	}
	return ids
}
