package audit

import (
	"strconv"

	"ferreteria-backend/internal/database"
	"ferreteria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/audit-logs?entity_type=...&limit=...
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		q := database.DB.Model(&models.AuditLog{}).Order("id desc").Limit(limit)
		if et := c.Query("entity_type"); et != "" {
			q = q.Where("entity_type = ?", et)
		}
		if bid := c.Query("branch_id"); bid != "" {
			q = q.Where("branch_id = ?", bid)
		}

		var logs []models.AuditLog
		if err := q.Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los audit logs")
		}
		return c.JSON(logs)
	}
}
