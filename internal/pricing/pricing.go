package pricing

import (
	"time"

	"ferreteria-backend/internal/models"

	"github.com/shopspring/decimal"
)

// TaxRate: IVA fijo del despliegue (15%).
var TaxRate = decimal.RequireFromString("0.15")

var oneHundred = decimal.NewFromInt(100)

// ComputeTotal calcula subtotal, IVA y total de las líneas de una venta.
// Toda la aritmética es decimal exacta; el redondeo a dos decimales se
// aplica una sola vez, sobre el total final, para no acumular error de
// redondeo línea por línea.
func ComputeTotal(lines []models.OrderLine) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	tax = subtotal.Mul(TaxRate)
	total = subtotal.Add(tax).Round(2)
	return subtotal, tax, total
}

// TotalWithPenalty devuelve el total del pedido con la mora aplicada si está
// PENDIENTE y vencido a la fecha dada; en cualquier otro caso devuelve el
// total sin cambios. Función pura: la fecha de evaluación es un parámetro
// explícito, nunca "ahora" ambiente.
func TotalWithPenalty(o *models.Order, today time.Time) decimal.Decimal {
	if o.State != models.OrderPending || o.DueDate == nil {
		return o.Total
	}
	due := dateOnly(*o.DueDate)
	if !due.Before(dateOnly(today)) {
		return o.Total
	}
	factor := decimal.NewFromInt(1).Add(o.LateFeeRate.Div(oneHundred))
	return o.Total.Mul(factor).Round(2)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
