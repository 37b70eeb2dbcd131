package reports

import (
	"time"

	"ferreteria-backend/internal/auth"
	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// GET /api/reports/corte-caja - corte del vendedor autenticado: lo vendido
// hoy (ENTREGADO o PAGADO) con su detalle.
func CorteCajaHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		now := time.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)

		var sales []models.Order
		err = database.DB.
			Where("seller_id = ? AND created_at >= ? AND created_at < ? AND state IN ?",
				actor.UserID, dayStart, dayEnd,
				[]models.OrderState{models.OrderDelivered, models.OrderPaid}).
			Order("created_at desc").
			Find(&sales).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el corte de caja")
		}

		total := decimal.Zero
		type saleRow struct {
			ID    uint              `json:"id"`
			Date  string            `json:"fecha"`
			Total decimal.Decimal   `json:"total"`
			State models.OrderState `json:"estado"`
		}
		rows := make([]saleRow, 0, len(sales))
		for _, o := range sales {
			total = total.Add(o.Total)
			rows = append(rows, saleRow{
				ID:    o.ID,
				Date:  o.CreatedAt.Format(time.RFC3339),
				Total: o.Total,
				State: o.State,
			})
		}

		return c.JSON(fiber.Map{
			"vendedor":            actor.Name,
			"fecha":               now.Format("02/01/2006"),
			"total_vendido":       total,
			"total_transacciones": len(sales),
			"detalles":            rows,
		})
	}
}

// GET /api/reports/ventas - totales de ventas cobradas + facturas vencidas
func SalesReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var orders []models.Order
		err := database.DB.
			Where("state IN ?", []models.OrderState{models.OrderPaid, models.OrderDelivered}).
			Find(&orders).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el reporte")
		}

		total := decimal.Zero
		for _, o := range orders {
			total = total.Add(o.Total)
		}

		var overdue int64
		today := time.Now().Format("2006-01-02")
		database.DB.Model(&models.Order{}).
			Where("state = ? AND due_date IS NOT NULL AND due_date < ?", models.OrderPending, today).
			Count(&overdue)

		return c.JSON(fiber.Map{
			"total_ventas":       total,
			"pedidos_procesados": len(orders),
			"facturas_vencidas":  overdue,
		})
	}
}
