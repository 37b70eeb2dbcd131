package credit

import (
	"context"
	"errors"
	"fmt"

	"ferreteria-backend/internal/audit"
	"ferreteria-backend/internal/logger"
	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/orders"
	"ferreteria-backend/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("el monto del abono debe ser mayor que cero")
	ErrNoOutstandingDebt = errors.New("el cliente no tiene deuda pendiente")
)

// Result: resumen de un abono aplicado.
type Result struct {
	AppliedTotal  decimal.Decimal `json:"monto_aplicado"`
	Change        decimal.Decimal `json:"cambio"`
	RemainingDebt decimal.Decimal `json:"deuda_restante"`
}

// Allocator aplica un abono del cliente contra sus pedidos PENDIENTE en
// orden FIFO: primero la deuda más vieja, y sólo al saldarla se pasa a la
// siguiente. La mora no entra aquí: la deuda se salda contra el total
// crudo del pedido.
type Allocator struct {
	tx     repository.TxManager
	orders repository.OrderRepository
	users  repository.UserRepository
	audit  audit.Recorder
}

func NewAllocator(tx repository.TxManager, ordersRepo repository.OrderRepository, users repository.UserRepository, recorder audit.Recorder) *Allocator {
	return &Allocator{tx: tx, orders: ordersRepo, users: users, audit: recorder}
}

// ApplyPayment es una sola unidad atómica: se bloquean todos los pedidos
// PENDIENTE del cliente antes de mutar cualquiera, de modo que dos abonos
// concurrentes del mismo cliente no puedan aplicarse dos veces sobre el
// mismo pedido.
func (a *Allocator) ApplyPayment(ctx context.Context, actor audit.Actor, customerID uint, amount decimal.Decimal) (*Result, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var res Result
	var customer *models.User
	err := a.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		customer, err = a.users.GetUser(ctx, customerID)
		if err != nil {
			return fmt.Errorf("cliente %d: %w", customerID, err)
		}

		pending, err := a.orders.LockPendingByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return ErrNoOutstandingDebt
		}

		remaining := amount
		applied := decimal.Zero
		for _, o := range pending {
			if !remaining.IsPositive() {
				break
			}
			owed := o.Outstanding()
			if !owed.IsPositive() {
				continue
			}
			if remaining.GreaterThanOrEqual(owed) {
				// salda este pedido y sigue con el siguiente más viejo
				o.AmountReceived = o.AmountReceived.Add(owed)
				if err := orders.Transition(o, models.OrderPaid); err != nil {
					return err
				}
				remaining = remaining.Sub(owed)
				applied = applied.Add(owed)
			} else {
				// abono parcial: el pedido sigue PENDIENTE
				o.AmountReceived = o.AmountReceived.Add(remaining)
				applied = applied.Add(remaining)
				remaining = decimal.Zero
			}
			if err := a.orders.Update(ctx, o); err != nil {
				return err
			}
		}

		// Deuda que queda después del recorrido. El cambio sólo es > 0
		// cuando el abono superó la deuda total; el llamador debe
		// devolverlo al cliente, nunca descartarlo.
		rest := decimal.Zero
		for _, o := range pending {
			if o.State == models.OrderPending {
				rest = rest.Add(o.Outstanding())
			}
		}
		res = Result{
			AppliedTotal:  applied,
			Change:        amount.Sub(applied),
			RemainingDebt: rest,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := a.audit.Record(ctx, audit.Entry{
		Actor:      actor,
		EntityType: "customer",
		EntityID:   customerID,
		Action:     models.AuditActionAbono,
		Description: fmt.Sprintf("Abono de %s aplicado a %s (deuda restante %s)",
			res.AppliedTotal.StringFixed(2), customer.Name, res.RemainingDebt.StringFixed(2)),
		After: map[string]any{
			"monto_aplicado": res.AppliedTotal.StringFixed(2),
			"cambio":         res.Change.StringFixed(2),
			"deuda_restante": res.RemainingDebt.StringFixed(2),
		},
	}); err != nil {
		l := logger.WithComponent("credit")
		l.Warn().Err(err).
			Uint("cliente", customerID).
			Msg("no se pudo escribir el audit log del abono")
	}

	return &res, nil
}

// OutstandingDebt deriva la deuda corriente del cliente: suma de
// total - monto_recibido sobre sus pedidos PENDIENTE. Nunca se
// materializa en la tabla de usuarios.
func (a *Allocator) OutstandingDebt(ctx context.Context, customerID uint) (decimal.Decimal, error) {
	var debt decimal.Decimal
	err := a.tx.WithTransaction(ctx, func(ctx context.Context) error {
		pending, err := a.orders.LockPendingByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		debt = decimal.Zero
		for _, o := range pending {
			debt = debt.Add(o.Outstanding())
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return debt, nil
}
