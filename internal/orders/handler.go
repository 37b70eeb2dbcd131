package orders

import (
	"errors"
	"time"

	"ferreteria-backend/internal/auth"
	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/models"
	"ferreteria-backend/internal/repository"
	"ferreteria-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -------------------------
// Request/Response
// -------------------------

type SaleItemRequest struct {
	ProductID uint `json:"producto_id"`
	Quantity  int  `json:"cantidad"`
}

type CheckoutRequest struct {
	BranchID      uint              `json:"sucursal_id"`
	Items         []SaleItemRequest `json:"items"`
	TransactionID string            `json:"transaction_id"` // referencia del PSP; vacía = pago diferido
}

type CounterSaleRequest struct {
	BranchID       *uint             `json:"sucursal_id"` // opcional si el vendedor tiene sucursal
	Items          []SaleItemRequest `json:"items"`
	PaymentMethod  string            `json:"metodo_pago"` // EFECTIVO, TARJETA o CREDITO
	AmountReceived string            `json:"monto_recibido"`
	CustomerID     *uint             `json:"cliente_id"`  // obligatorio para CREDITO
	LateFeeRate    string            `json:"tasa_mora"`   // % opcional para ventas al crédito
}

type OrderLineResponse struct {
	ProductID uint            `json:"producto_id"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
}

type OrderResponse struct {
	ID             uint                `json:"id"`
	CustomerID     *uint               `json:"cliente_id"`
	SellerID       *uint               `json:"vendedor_id"`
	BranchID       uint                `json:"sucursal_id"`
	State          models.OrderState   `json:"estado"`
	PaymentMethod  string              `json:"metodo_pago"`
	TransactionRef string              `json:"transaction_ref"`
	DueDate        *string             `json:"fecha_vencimiento"`
	LateFeeRate    decimal.Decimal     `json:"tasa_mora"`
	Total          decimal.Decimal     `json:"total"`
	AmountReceived decimal.Decimal     `json:"monto_recibido"`
	Lines          []OrderLineResponse `json:"detalles"`
	CreatedAt      string              `json:"fecha_pedido"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		SellerID:       o.SellerID,
		BranchID:       o.BranchID,
		State:          o.State,
		PaymentMethod:  o.PaymentMethod,
		TransactionRef: o.TransactionRef,
		LateFeeRate:    o.LateFeeRate,
		Total:          o.Total,
		AmountReceived: o.AmountReceived,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
	}
	if o.DueDate != nil {
		s := o.DueDate.Format("2006-01-02")
		resp.DueDate = &s
	}
	for _, ln := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			UnitPrice: ln.UnitPrice,
		})
	}
	return resp
}

func parseItems(items []SaleItemRequest) ([]SaleLine, error) {
	if len(items) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "La venta necesita al menos un producto")
	}
	lines := make([]SaleLine, len(items))
	for i, it := range items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Cada línea necesita producto_id y cantidad mayor que cero")
		}
		lines[i] = SaleLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines, nil
}

// mapSaleError traduce los errores tipados del núcleo a HTTP.
func mapSaleError(err error) error {
	var insuf *stock.InsufficientStockError
	switch {
	case errors.As(err, &insuf):
		return fiber.NewError(fiber.StatusConflict, insuf.Error())
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, "El pedido no admite esa transición de estado")
	case errors.Is(err, repository.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "No encontrado")
	case errors.Is(err, ErrEmptySale), errors.Is(err, ErrBadQuantity), errors.Is(err, ErrBadInitialState):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// -------------------------
// Handlers
// -------------------------

// POST /api/checkout - venta web del cliente autenticado.
// Con transaction_id el pago ya fue capturado afuera y el pedido nace
// PAGADO; sin él queda PENDIENTE.
func CheckoutHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CheckoutRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.BranchID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "sucursal_id es obligatorio")
		}
		lines, err := parseItems(body.Items)
		if err != nil {
			return err
		}

		state := models.OrderPending
		if body.TransactionID != "" {
			state = models.OrderPaid
		}

		customerID := actor.UserID
		in := SaleInput{
			BranchID:       body.BranchID,
			CustomerID:     &customerID,
			Channel:        ChannelWeb,
			InitialState:   state,
			PaymentMethod:  "PAYPAL",
			TransactionRef: body.TransactionID,
			AmountReceived: decimal.Zero,
			Lines:          lines,
		}

		order, err := svc.CreateSale(c.Context(), actor, in)
		if err != nil {
			return mapSaleError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
	}
}

// POST /api/pos/sales - venta mostrador.
// EFECTIVO/TARJETA entregan en el acto (ENTREGADO); CREDITO abre deuda
// (PENDIENTE, monto recibido 0) y exige cliente identificado.
func CounterSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CounterSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		lines, err := parseItems(body.Items)
		if err != nil {
			return err
		}

		branchID, err := resolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}

		method := body.PaymentMethod
		if method == "" {
			method = "EFECTIVO"
		}
		if method != "EFECTIVO" && method != "TARJETA" && method != "CREDITO" {
			return fiber.NewError(fiber.StatusBadRequest, "metodo_pago debe ser EFECTIVO, TARJETA o CREDITO")
		}

		sellerID := actor.UserID
		in := SaleInput{
			BranchID:       branchID,
			SellerID:       &sellerID,
			CustomerID:     body.CustomerID,
			Channel:        ChannelCounter,
			PaymentMethod:  method,
			TransactionRef: uuid.NewString(), // recibo interno de caja
			AmountReceived: decimal.Zero,
			Lines:          lines,
		}

		if method == "CREDITO" {
			if body.CustomerID == nil {
				return fiber.NewError(fiber.StatusBadRequest, "Una venta al crédito necesita cliente_id")
			}
			in.InitialState = models.OrderPending
			if body.LateFeeRate != "" {
				rate, err := decimal.NewFromString(body.LateFeeRate)
				if err != nil || rate.IsNegative() {
					return fiber.NewError(fiber.StatusBadRequest, "tasa_mora inválida")
				}
				in.LateFeeRate = rate
			}
		} else {
			in.InitialState = models.OrderDelivered
			if body.AmountReceived != "" {
				received, err := decimal.NewFromString(body.AmountReceived)
				if err != nil || received.IsNegative() {
					return fiber.NewError(fiber.StatusBadRequest, "monto_recibido inválido")
				}
				in.AmountReceived = received
			}
		}

		order, err := svc.CreateSale(c.Context(), actor, in)
		if err != nil {
			return mapSaleError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
	}
}

// POST /api/orders/:id/cancel
func CancelOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		// Un cliente sólo puede cancelar sus propios pedidos
		if role, ok := auth.RoleFromCtx(c); ok && role == models.RoleCustomer {
			var o models.Order
			if err := database.DB.First(&o, "id = ?", orderID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Pedido no encontrado")
			}
			if o.CustomerID == nil || *o.CustomerID != actor.UserID {
				return fiber.NewError(fiber.StatusForbidden, "Este pedido no es suyo")
			}
		}

		order, err := svc.CancelOrder(c.Context(), actor, uint(orderID))
		if err != nil {
			return mapSaleError(err)
		}
		return c.JSON(toOrderResponse(order))
	}
}

// PUT /api/admin/orders/:id/estado - avanzar el flujo de entrega
func UpdateOrderStateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		var body struct {
			State models.OrderState `json:"estado"`
		}
		if err := c.BodyParser(&body); err != nil || body.State == "" {
			return fiber.NewError(fiber.StatusBadRequest, "estado es obligatorio")
		}

		order, err := svc.AdvanceOrder(c.Context(), actor, uint(orderID), body.State)
		if err != nil {
			return mapSaleError(err)
		}
		return c.JSON(toOrderResponse(order))
	}
}

// GET /api/orders - historial del cliente autenticado
func MyOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var list []models.Order
		err = database.DB.Preload("Lines").
			Where("customer_id = ?", actor.UserID).
			Order("created_at desc").
			Find(&list).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los pedidos")
		}

		resp := make([]OrderResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toOrderResponse(&list[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/admin/orders?estado=...&sucursal_id=...
func AdminListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Preload("Lines").Order("created_at desc")
		if st := c.Query("estado"); st != "" {
			q = q.Where("state = ?", st)
		}
		if bid := c.Query("sucursal_id"); bid != "" {
			q = q.Where("branch_id = ?", bid)
		}

		var list []models.Order
		if err := q.Limit(200).Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los pedidos")
		}

		resp := make([]OrderResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toOrderResponse(&list[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/orders/:id/total?fecha=YYYY-MM-DD - total con mora a la fecha
// dada (por defecto hoy). Lo consume la capa de facturación.
func OrderTotalHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		today := time.Now()
		if f := c.Query("fecha"); f != "" {
			parsed, err := time.Parse("2006-01-02", f)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "fecha debe ser 'YYYY-MM-DD'")
			}
			today = parsed
		}

		total, err := svc.TotalWithPenalty(c.Context(), uint(orderID), today)
		if err != nil {
			return mapSaleError(err)
		}
		return c.JSON(fiber.Map{
			"pedido_id":      orderID,
			"fecha":          today.Format("2006-01-02"),
			"total_con_mora": total,
		})
	}
}

// Sucursal del cuerpo o la del vendedor autenticado (adaptado del patrón
// body-o-rol del panel).
func resolveBranchID(c *fiber.Ctx, bodyBranchID *uint) (uint, error) {
	if bodyBranchID != nil && *bodyBranchID != 0 {
		return *bodyBranchID, nil
	}
	if b, ok := c.Locals(auth.CtxBranchIDKey).(*uint); ok && b != nil {
		return *b, nil
	}
	return 0, fiber.NewError(fiber.StatusBadRequest, "sucursal_id es obligatorio")
}
