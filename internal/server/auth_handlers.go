package server

import (
	"time"

	"hemobank/internal/middleware"
	"hemobank/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HospitalLoginRequest is the hospital login payload.
type HospitalLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HospitalLogin authenticates a hospital and issues an opaque session token
// backed by Redis.
func (s *Server) HospitalLogin(c *fiber.Ctx) error {
	var req HospitalLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	hospital, err := s.hospitalRepo.GetByUsername(c.Context(), req.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if hospital == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hospital.Password), []byte(req.Password)); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fiber.ErrServiceUnavailable))
	}

	token := uuid.NewString()
	ttl := time.Duration(s.config.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.redis.Set(c.Context(), sessionKey(token),
		formatSession(hospital.ID, hospital.Username), ttl).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	middleware.Logger.InfoContext(c.UserContext(), "hospital logged in",
		"hospital", hospital.Username)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":  "Login successful",
		"token":    token,
		"hospital": hospital,
	})
}

// HospitalLogout revokes the current session token.
func (s *Server) HospitalLogout(c *fiber.Ctx) error {
	if token, ok := c.Locals("sessionToken").(string); ok && token != "" && s.redis != nil {
		s.redis.Del(c.Context(), sessionKey(token))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logout successful",
	})
}
