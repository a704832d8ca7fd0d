package server

import (
	"time"

	"hemobank/internal/models"
	"hemobank/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddBloodUnitRequest is the inventory intake payload.
type AddBloodUnitRequest struct {
	BloodType   string     `json:"bloodType"`
	ExpiryDate  time.Time  `json:"expiryDate"`
	CollectedAt *time.Time `json:"collectedAt"`
}

// GetInventory lists the hospital's blood units, optionally filtered by
// bloodType and status query parameters.
func (s *Server) GetInventory(c *fiber.Ctx) error {
	hospitalID, _ := currentHospital(c)

	units, err := s.inventoryService.ListUnits(c.Context(), hospitalID,
		c.Query("bloodType"), models.UnitStatus(c.Query("status")))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"units": units,
		"total": len(units),
	})
}

// AddBloodUnit records a collected unit in the hospital's inventory.
func (s *Server) AddBloodUnit(c *fiber.Ctx) error {
	hospitalID, _ := currentHospital(c)

	var body AddBloodUnitRequest
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.AddUnitInput{
		HospitalID: hospitalID,
		BloodType:  body.BloodType,
		ExpiryDate: body.ExpiryDate,
	}
	if body.CollectedAt != nil {
		in.CollectedAt = *body.CollectedAt
	}

	unit, err := s.inventoryService.AddUnit(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Blood unit added to inventory",
		"unit":    unit,
	})
}
