package stock

import (
	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// El umbral de alerta que usa el panel de administración.
const lowStockThreshold = 10

type UpsertStockRequest struct {
	ProductID uint `json:"producto_id"`
	BranchID  uint `json:"sucursal_id"`
	Quantity  int  `json:"cantidad"`
}

type StockResponse struct {
	ID          uint   `json:"id"`
	ProductID   uint   `json:"producto_id"`
	ProductName string `json:"producto"`
	SKU         string `json:"sku"`
	BranchID    uint   `json:"sucursal_id"`
	BranchName  string `json:"sucursal"`
	Quantity    int    `json:"cantidad"`
}

// POST /api/admin/stock - alta o ajuste administrativo de inventario.
// Las ventas nunca pasan por aquí; ellas reservan vía Ledger.
func UpsertStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpsertStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.ProductID == 0 || body.BranchID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "producto_id y sucursal_id son obligatorios")
		}
		if body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "cantidad no puede ser negativa")
		}

		var rec models.StockRecord
		err := database.DB.Where("product_id = ? AND branch_id = ?", body.ProductID, body.BranchID).First(&rec).Error
		if err != nil {
			rec = models.StockRecord{ProductID: body.ProductID, BranchID: body.BranchID, Quantity: body.Quantity}
			if err := database.DB.Create(&rec).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el registro de stock")
			}
		} else {
			rec.Quantity = body.Quantity
			if err := database.DB.Save(&rec).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el stock")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":          rec.ID,
			"producto_id": rec.ProductID,
			"sucursal_id": rec.BranchID,
			"cantidad":    rec.Quantity,
		})
	}
}

// GET /api/stock?sucursal_id=...
func ListStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Preload("Product").Preload("Branch").Order("product_id asc")
		if bid := c.Query("sucursal_id"); bid != "" {
			q = q.Where("branch_id = ?", bid)
		}

		var recs []models.StockRecord
		if err := q.Find(&recs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo listar el inventario")
		}
		return c.JSON(toResponses(recs))
	}
}

// GET /api/stock/alerts - productos con stock bajo en cualquier sucursal
func LowStockAlertHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var recs []models.StockRecord
		err := database.DB.Preload("Product").Preload("Branch").
			Where("quantity <= ?", lowStockThreshold).
			Order("quantity asc").
			Find(&recs).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron cargar las alertas de stock")
		}
		return c.JSON(toResponses(recs))
	}
}

func toResponses(recs []models.StockRecord) []StockResponse {
	resp := make([]StockResponse, 0, len(recs))
	for _, r := range recs {
		resp = append(resp, StockResponse{
			ID:          r.ID,
			ProductID:   r.ProductID,
			ProductName: r.Product.Name,
			SKU:         r.Product.SKU,
			BranchID:    r.BranchID,
			BranchName:  r.Branch.Name,
			Quantity:    r.Quantity,
		})
	}
	return resp
}
