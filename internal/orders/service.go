package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ferreteria-backend/internal/audit"
	"ferreteria-backend/internal/logger"
	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/pricing"
	"ferreteria-backend/internal/repository"
	"ferreteria-backend/internal/stock"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptySale       = errors.New("la venta no tiene líneas")
	ErrBadQuantity     = errors.New("cantidad inválida")
	ErrBadInitialState = errors.New("estado inicial de venta inválido")
)

// Channel: por dónde entró la venta. El canal decide el estado inicial,
// no este servicio.
type Channel string

const (
	ChannelWeb     Channel = "WEB"
	ChannelCounter Channel = "MOSTRADOR"
)

type SaleLine struct {
	ProductID uint
	Quantity  int
}

type SaleInput struct {
	BranchID       uint
	CustomerID     *uint // nulo = venta mostrador anónima
	SellerID       *uint
	Channel        Channel
	InitialState   models.OrderState // PENDIENTE, PAGADO o ENTREGADO según el canal
	PaymentMethod  string
	TransactionRef string
	AmountReceived decimal.Decimal
	LateFeeRate    decimal.Decimal
	Lines          []SaleLine
}

// Service: agregado de pedidos. Crea venta + líneas + descuento de stock
// en una sola unidad atómica, y cancela restaurando stock en otra.
type Service struct {
	tx       repository.TxManager
	orders   repository.OrderRepository
	users    repository.UserRepository
	products repository.ProductRepository
	ledger   *stock.Ledger
	audit    audit.Recorder
	now      func() time.Time
}

func NewService(tx repository.TxManager, orders repository.OrderRepository, users repository.UserRepository, products repository.ProductRepository, ledger *stock.Ledger, recorder audit.Recorder) *Service {
	return &Service{
		tx:       tx,
		orders:   orders,
		users:    users,
		products: products,
		ledger:   ledger,
		audit:    recorder,
		now:      time.Now,
	}
}

// CreateSale reserva stock, crea el pedido con sus líneas (precio
// congelado al momento de la venta) y calcula el total con IVA. Todo
// dentro de una transacción: si una línea no tiene stock, no se escribe
// nada.
func (s *Service) CreateSale(ctx context.Context, actor audit.Actor, in SaleInput) (*models.Order, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptySale
	}
	for _, ln := range in.Lines {
		if ln.ProductID == 0 || ln.Quantity <= 0 {
			return nil, ErrBadQuantity
		}
	}
	switch in.InitialState {
	case models.OrderPending, models.OrderPaid, models.OrderDelivered:
	default:
		return nil, ErrBadInitialState
	}

	var order *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var customer *models.User
		if in.CustomerID != nil {
			var err error
			customer, err = s.users.GetUser(ctx, *in.CustomerID)
			if err != nil {
				return fmt.Errorf("cliente %d: %w", *in.CustomerID, err)
			}
		}

		stockLines := make([]stock.Line, len(in.Lines))
		for i, ln := range in.Lines {
			stockLines[i] = stock.Line{ProductID: ln.ProductID, Quantity: ln.Quantity}
		}
		if err := s.ledger.Reserve(ctx, in.BranchID, stockLines); err != nil {
			return err
		}

		lines, err := s.snapshotLines(ctx, in.Lines)
		if err != nil {
			return err
		}
		_, _, total := pricing.ComputeTotal(lines)

		createdAt := s.now()
		o := &models.Order{
			CustomerID:     in.CustomerID,
			SellerID:       in.SellerID,
			BranchID:       in.BranchID,
			State:          in.InitialState,
			PaymentMethod:  in.PaymentMethod,
			TransactionRef: in.TransactionRef,
			LateFeeRate:    in.LateFeeRate,
			Total:          total,
			AmountReceived: in.AmountReceived,
			Lines:          lines,
			CreatedAt:      createdAt,
		}
		// Vencimiento automático para clientes con días de plazo
		if customer != nil && customer.CreditTermDays > 0 {
			due := dateOnly(createdAt).AddDate(0, 0, customer.CreditTermDays)
			o.DueDate = &due
		}

		if err := s.orders.Create(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		BranchID:    &order.BranchID,
		EntityType:  "order",
		EntityID:    order.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Venta %s creada: total %s", in.Channel, order.Total.StringFixed(2)),
		After:       orderSnapshot(order),
	})
	return order, nil
}

// CancelOrder pasa el pedido a CANCELADO y devuelve todas sus cantidades
// al stock, como una sola unidad atómica. Sólo PENDIENTE y PAGADO son
// cancelables; el resto falla con ErrInvalidTransition (incluido un
// pedido ya cancelado: rechazo explícito, no un no-op silencioso).
func (s *Service) CancelOrder(ctx context.Context, actor audit.Actor, orderID uint) (*models.Order, error) {
	var cancelled *models.Order
	var prevState models.OrderState

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		prevState = o.State
		if err := Transition(o, models.OrderCancelled); err != nil {
			return err
		}

		restoreLines := make([]stock.Line, len(o.Lines))
		for i, ln := range o.Lines {
			restoreLines[i] = stock.Line{ProductID: ln.ProductID, Quantity: ln.Quantity}
		}
		if err := s.ledger.Restore(ctx, o.BranchID, restoreLines); err != nil {
			return err
		}

		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		BranchID:    &cancelled.BranchID,
		EntityType:  "order",
		EntityID:    cancelled.ID,
		Action:      models.AuditActionCancel,
		Description: fmt.Sprintf("Pedido %d cancelado, stock restaurado", cancelled.ID),
		Before:      map[string]any{"estado": prevState},
		After:       map[string]any{"estado": cancelled.State},
	})
	return cancelled, nil
}

// AdvanceOrder avanza el pedido por el flujo de entrega (EN_PROCESO,
// ENTREGADO). Cancelar y pagar tienen sus propios caminos: cancelar
// restaura stock y pagar es exclusivo del motor de abonos.
func (s *Service) AdvanceOrder(ctx context.Context, actor audit.Actor, orderID uint, to models.OrderState) (*models.Order, error) {
	if to != models.OrderInProcess && to != models.OrderDelivered {
		return nil, ErrInvalidTransition
	}

	var updated *models.Order
	var prevState models.OrderState
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		prevState = o.State
		if err := Transition(o, to); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		BranchID:    &updated.BranchID,
		EntityType:  "order",
		EntityID:    updated.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Pedido %d: %s -> %s", updated.ID, prevState, updated.State),
		Before:      map[string]any{"estado": prevState},
		After:       map[string]any{"estado": updated.State},
	})
	return updated, nil
}

// TotalWithPenalty evalúa el total con mora de un pedido a la fecha dada.
func (s *Service) TotalWithPenalty(ctx context.Context, orderID uint, today time.Time) (decimal.Decimal, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.TotalWithPenalty(o, today), nil
}

// snapshotLines congela el precio de catálogo vigente en cada línea.
func (s *Service) snapshotLines(ctx context.Context, in []SaleLine) ([]models.OrderLine, error) {
	merged := make(map[uint]int, len(in))
	order := make([]uint, 0, len(in))
	for _, ln := range in {
		if _, seen := merged[ln.ProductID]; !seen {
			order = append(order, ln.ProductID)
		}
		merged[ln.ProductID] += ln.Quantity
	}

	products, err := s.products.GetByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(order))
	for _, id := range order {
		p, ok := products[id]
		if !ok {
			return nil, fmt.Errorf("producto %d: %w", id, repository.ErrNotFound)
		}
		lines = append(lines, models.OrderLine{
			ProductID: id,
			Quantity:  merged[id],
			UnitPrice: p.Price,
		})
	}
	return lines, nil
}

// record escribe la bitácora después del commit; un fallo aquí no revierte
// la operación, sólo se loguea.
func (s *Service) record(ctx context.Context, e audit.Entry) {
	if err := s.audit.Record(ctx, e); err != nil {
		l := logger.WithComponent("orders")
		l.Warn().Err(err).
			Uint("entity_id", e.EntityID).
			Msg("no se pudo escribir el audit log")
	}
}

func orderSnapshot(o *models.Order) map[string]any {
	return map[string]any{
		"id":             o.ID,
		"sucursal_id":    o.BranchID,
		"estado":         o.State,
		"metodo_pago":    o.PaymentMethod,
		"total":          o.Total.StringFixed(2),
		"monto_recibido": o.AmountReceived.StringFixed(2),
		"lineas":         len(o.Lines),
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
