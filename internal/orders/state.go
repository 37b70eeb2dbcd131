package orders

import (
	"errors"

	"ferreteria-backend/internal/models"
)

// ErrInvalidTransition: cambio de estado no permitido (ej: cancelar un
// pedido ya entregado, o cancelar dos veces).
var ErrInvalidTransition = errors.New("transición de estado inválida")

// Transiciones que el núcleo permite. CANCELADO, ENTREGADO y DEVOLUCION
// son terminales: nada los revisita. PENDIENTE -> PAGADO la ejecuta
// únicamente el motor de abonos al saldar la deuda.
var allowedTransitions = map[models.OrderState]map[models.OrderState]bool{
	models.OrderPending: {
		models.OrderPaid:      true,
		models.OrderCancelled: true,
	},
	models.OrderPaid: {
		models.OrderInProcess: true,
		models.OrderCancelled: true,
	},
	models.OrderInProcess: {
		models.OrderDelivered: true,
	},
}

func CanTransition(from, to models.OrderState) bool {
	return allowedTransitions[from][to]
}

// Transition valida y aplica el cambio de estado sobre el pedido en memoria.
// Persistirlo es responsabilidad del llamador, dentro de su transacción.
func Transition(o *models.Order, to models.OrderState) error {
	if !CanTransition(o.State, to) {
		return ErrInvalidTransition
	}
	o.State = to
	return nil
}
