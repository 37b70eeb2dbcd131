package catalog

import (
	"strings"

	"ferreteria-backend/internal/audit"
	"ferreteria-backend/internal/auth"
	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/logger"
	"ferreteria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ProductRequest struct {
	SKU         string `json:"sku"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Price       string `json:"precio"`
	CategoryID  *uint  `json:"categoria_id"`
}

type CategoryRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// POST /api/admin/products
func CreateProductHandler(rec audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		// El SKU siempre se guarda canonicalizado en mayúsculas
		sku := strings.ToUpper(strings.TrimSpace(body.SKU))
		name := strings.TrimSpace(body.Name)
		if sku == "" || name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "sku y nombre son obligatorios")
		}

		price, err := decimal.NewFromString(body.Price)
		if err != nil || price.LessThanOrEqual(decimal.Zero) {
			return fiber.NewError(fiber.StatusBadRequest, "precio debe ser mayor que cero")
		}

		product := models.Product{
			SKU:         sku,
			Name:        name,
			Description: body.Description,
			Price:       price,
			CategoryID:  body.CategoryID,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "El SKU ya existe")
		}

		record(c, rec, audit.Entry{
			Actor:       actor,
			EntityType:  "product",
			EntityID:    product.ID,
			Action:      models.AuditActionCreate,
			Description: "Producto " + product.SKU + " creado",
			After:       productSnapshot(&product),
		})
		return c.Status(fiber.StatusCreated).JSON(product)
	}
}

// PUT /api/admin/products/:id
// Cambiar el precio aquí jamás toca pedidos históricos: las líneas guardan
// su propio precio congelado.
func UpdateProductHandler(rec audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		id := c.Params("id")
		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Producto no encontrado")
		}
		before := productSnapshot(&product)

		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		if body.SKU != "" {
			product.SKU = strings.ToUpper(strings.TrimSpace(body.SKU))
		}
		if body.Name != "" {
			product.Name = strings.TrimSpace(body.Name)
		}
		if body.Description != "" {
			product.Description = body.Description
		}
		if body.CategoryID != nil {
			product.CategoryID = body.CategoryID
		}
		if body.Price != "" {
			price, err := decimal.NewFromString(body.Price)
			if err != nil || price.LessThanOrEqual(decimal.Zero) {
				return fiber.NewError(fiber.StatusBadRequest, "precio debe ser mayor que cero")
			}
			product.Price = price
		}

		if err := database.DB.Save(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el producto")
		}

		record(c, rec, audit.Entry{
			Actor:       actor,
			EntityType:  "product",
			EntityID:    product.ID,
			Action:      models.AuditActionUpdate,
			Description: "Producto " + product.SKU + " actualizado",
			Before:      before,
			After:       productSnapshot(&product),
		})
		return c.JSON(product)
	}
}

func productSnapshot(p *models.Product) map[string]any {
	return map[string]any{
		"sku":          p.SKU,
		"nombre":       p.Name,
		"precio":       p.Price.StringFixed(2),
		"categoria_id": p.CategoryID,
	}
}

func record(c *fiber.Ctx, rec audit.Recorder, e audit.Entry) {
	if err := rec.Record(c.Context(), e); err != nil {
		l := logger.WithComponent("catalog")
		l.Warn().Err(err).
			Uint("entity_id", e.EntityID).
			Msg("no se pudo escribir el audit log")
	}
}

// GET /api/products?categoria_id=...&q=...
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Preload("Category").Order("name asc")
		if cid := c.Query("categoria_id"); cid != "" {
			q = q.Where("category_id = ?", cid)
		}
		if term := strings.TrimSpace(c.Query("q")); term != "" {
			q = q.Where("name ILIKE ? OR sku ILIKE ?", "%"+term+"%", "%"+strings.ToUpper(term)+"%")
		}

		var products []models.Product
		if err := q.Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los productos")
		}
		return c.JSON(products)
	}
}

// POST /api/admin/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "nombre es obligatorio")
		}

		category := models.Category{Name: name, Description: body.Description}
		if err := database.DB.Create(&category).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "La categoría ya existe")
		}
		return c.Status(fiber.StatusCreated).JSON(category)
	}
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.Category
		if err := database.DB.Order("name asc").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las categorías")
		}
		return c.JSON(categories)
	}
}
