package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"digistore/internal/services"
	"digistore/internal/storage"
)

// AdminHandler exposes the backup/restore back-office surface.
type AdminHandler struct {
	backup *services.BackupService
	log    *logrus.Entry
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(backup *services.BackupService, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		backup: backup,
		log:    log.WithField("handler", "admin"),
	}
}

// RegisterRoutes registers backup routes on the admin-guarded router.
func (h *AdminHandler) RegisterRoutes(admin fiber.Router) {
	admin.Get("/admin/backup", h.HandleExport)
	admin.Post("/admin/restore", h.HandleImport)
}

// HandleExport dumps products and orders as one JSON document.
func (h *AdminHandler) HandleExport(c *fiber.Ctx) error {
	data, err := h.backup.Export(c.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to export backup")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not export backup",
		})
	}
	return c.JSON(data)
}

// HandleImport replaces all products and orders with the uploaded backup.
func (h *AdminHandler) HandleImport(c *fiber.Ctx) error {
	var data storage.BackupData
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid backup document",
			"error":   err.Error(),
		})
	}

	if err := h.backup.Import(c.Context(), &data); err != nil {
		h.log.WithError(err).Error("failed to restore backup")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not restore backup",
		})
	}
	return c.JSON(fiber.Map{
		"message":  "Backup restored",
		"products": len(data.Products),
		"orders":   len(data.Orders),
	})
}
