package catalog

import (
	"strings"

	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type BranchRequest struct {
	Name    string `json:"nombre"`
	Address string `json:"direccion"`
	Phone   string `json:"telefono"`
}

// POST /api/admin/branches
func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "nombre es obligatorio")
		}

		branch := models.Branch{Name: name, Address: body.Address, Phone: body.Phone}
		if err := database.DB.Create(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "La sucursal ya existe")
		}
		return c.Status(fiber.StatusCreated).JSON(branch)
	}
}

// GET /api/branches
func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Order("name asc").Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las sucursales")
		}
		return c.JSON(branches)
	}
}
