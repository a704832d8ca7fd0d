package server

import (
	"hemobank/internal/models"
	"hemobank/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitRequestBody is the public donor-facing submission payload.
type SubmitRequestBody struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	BloodType string `json:"bloodType"`
	Location  string `json:"location"`
	Urgency   bool   `json:"urgency"`
}

// SubmitBloodRequest accepts a new blood request from the public form.
func (s *Server) SubmitBloodRequest(c *fiber.Ctx) error {
	var body SubmitRequestBody
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, err := s.requestService.SubmitRequest(c.Context(), service.SubmitRequestInput{
		Name:      body.Name,
		Email:     body.Email,
		BloodType: body.BloodType,
		Location:  body.Location,
		Urgency:   body.Urgency,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Blood request submitted successfully",
		"request": req,
	})
}

// GetRequestsByEmail lets a requester look up their own submissions.
func (s *Server) GetRequestsByEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email query parameter is required"))
	}

	requests, err := s.requestService.RequestsByEmail(c.Context(), email)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"requests": requests,
	})
}
