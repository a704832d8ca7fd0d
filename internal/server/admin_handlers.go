package server

import (
	"time"

	"hemobank/internal/models"
	"hemobank/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminTokenIssuer   = "hemobank-api"
	adminTokenAudience = "hemobank-admin"
	adminTokenTTL      = 2 * time.Hour
)

// AdminLoginRequest is the admin login payload.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HospitalUpsertRequest is the admin payload for creating or updating a hospital.
type HospitalUpsertRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
	City     string `json:"city"`
}

// AdminLogin authenticates an operator and issues a short-lived JWT.
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	admin, err := s.hospitalRepo.GetAdminByUsername(c.Context(), req.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if admin == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": admin.Username,
		"iss": adminTokenIssuer,
		"aud": adminTokenAudience,
		"iat": now.Unix(),
		"exp": now.Add(adminTokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Login successful",
		"token":   signed,
	})
}

// GetHospitals lists all registered hospitals.
func (s *Server) GetHospitals(c *fiber.Ctx) error {
	hospitals, err := s.hospitalRepo.List(c.Context())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"hospitals": hospitals,
	})
}

// CreateHospital registers a new hospital account.
func (s *Server) CreateHospital(c *fiber.Ctx) error {
	var body HospitalUpsertRequest
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if body.Username == "" || body.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and name are required"))
	}
	if err := validation.ValidatePassword(body.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	existing, err := s.hospitalRepo.GetByUsername(c.Context(), body.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("Username already taken"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	hospital := &models.Hospital{
		Username: body.Username,
		Name:     body.Name,
		Password: string(hashed),
		City:     body.City,
	}
	if err := s.hospitalRepo.Create(c.Context(), hospital); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Hospital created successfully",
		"hospital": hospital,
	})
}

// UpdateHospital updates a hospital's profile, and its password when provided.
func (s *Server) UpdateHospital(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body HospitalUpsertRequest
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	hospital, err := s.hospitalRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if hospital == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Hospital"))
	}

	if body.Name != "" {
		hospital.Name = body.Name
	}
	if body.City != "" {
		hospital.City = body.City
	}
	if body.Password != "" {
		if err := validation.ValidatePassword(body.Password); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		hospital.Password = string(hashed)
	}

	if err := s.hospitalRepo.Update(c.Context(), hospital); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":  "Hospital updated successfully",
		"hospital": hospital,
	})
}

// DeleteHospital removes a hospital account.
func (s *Server) DeleteHospital(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	hospital, err := s.hospitalRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if hospital == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Hospital"))
	}

	if err := s.hospitalRepo.Delete(c.Context(), id); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Hospital deleted successfully",
	})
}
