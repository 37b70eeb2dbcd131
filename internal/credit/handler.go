package credit

import (
	"errors"

	"ferreteria-backend/internal/auth"
	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AbonoRequest struct {
	CustomerID uint   `json:"cliente_id"`
	Amount     string `json:"monto"`
}

type CustomerDebtResponse struct {
	ID             uint            `json:"id"`
	Name           string          `json:"nombre"`
	Email          string          `json:"email"`
	CreditLimit    decimal.Decimal `json:"limite_credito"`
	CreditTermDays int             `json:"dias_credito"`
	CurrentDebt    decimal.Decimal `json:"deuda_actual"`
}

// POST /api/abonos - registrar un abono contra la deuda del cliente
func RegisterAbonoHandler(alloc *Allocator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body AbonoRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.CustomerID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "cliente_id es obligatorio")
		}
		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "monto inválido")
		}

		res, err := alloc.ApplyPayment(c.Context(), actor, body.CustomerID, amount)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidAmount):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, ErrNoOutstandingDebt):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case errors.Is(err, repository.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Cliente no encontrado")
			default:
				return err
			}
		}
		return c.JSON(res)
	}
}

// GET /api/clientes - clientes con su deuda derivada (pantalla de gestión
// comercial y abonos). La deuda nunca está materializada: se calcula aquí
// sumando total - monto_recibido de los pedidos PENDIENTE.
func ListCustomersWithDebtHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var customers []models.User
		if err := database.DB.Where("role = ?", models.RoleCustomer).Order("name asc").Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los clientes")
		}

		type debtRow struct {
			CustomerID uint
			Debt       decimal.Decimal
		}
		var rows []debtRow
		err := database.DB.Model(&models.Order{}).
			Select("customer_id as customer_id, COALESCE(SUM(total - amount_received), 0) as debt").
			Where("state = ? AND customer_id IS NOT NULL", models.OrderPending).
			Group("customer_id").
			Scan(&rows).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular la deuda")
		}
		debtByCustomer := make(map[uint]decimal.Decimal, len(rows))
		for _, r := range rows {
			debtByCustomer[r.CustomerID] = r.Debt
		}

		resp := make([]CustomerDebtResponse, 0, len(customers))
		for _, u := range customers {
			debt, ok := debtByCustomer[u.ID]
			if !ok {
				debt = decimal.Zero
			}
			resp = append(resp, CustomerDebtResponse{
				ID:             u.ID,
				Name:           u.Name,
				Email:          u.Email,
				CreditLimit:    u.CreditLimit,
				CreditTermDays: u.CreditTermDays,
				CurrentDebt:    debt,
			})
		}
		return c.JSON(resp)
	}
}
