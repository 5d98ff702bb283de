package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"Aegis/Models"
)

func GetSectors(c *fiber.Ctx) error {
	var sectors []Models.Sector
	if err := Models.DB.Find(&sectors).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch sectors"})
	}
	return c.JSON(sectors)
}

func CreateSector(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Sector name is required"})
	}

	sector := Models.Sector{Name: req.Name}
	if err := Models.DB.Create(&sector).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "A sector with this name already exists"})
	}
	return c.Status(fiber.StatusCreated).JSON(sector)
}
