package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hemobank/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

const maxPaginationLimit = 100

// parsePagination extracts page and limit query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	page := c.QueryInt("page", 1)
	if page <= 0 {
		page = 1
	}

	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	return Pagination{
		Page:  page,
		Limit: limit,
	}
}

// filterParam reads a query filter, treating "all" the same as absent.
func filterParam(c *fiber.Ctx, name string) string {
	v := c.Query(name)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+strings.ToUpper(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// currentHospital reads the session identity placed in locals by HospitalAuthRequired.
func currentHospital(c *fiber.Ctx) (uint, string) {
	id, _ := c.Locals("hospitalID").(uint)
	username, _ := c.Locals("hospitalUsername").(string)
	return id, username
}

// respondServiceError maps a service error onto the HTTP response. AppError
// codes select the status; anything else is an internal error.
func respondServiceError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return models.RespondWithError(c, httpStatusFor(appErr.Code), appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func httpStatusFor(code string) int {
	switch code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	case "FORBIDDEN":
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

const sessionKeyPrefix = "hospital_session:"

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// formatSession encodes the session payload stored in Redis.
func formatSession(hospitalID uint, username string) string {
	return fmt.Sprintf("%d|%s", hospitalID, username)
}

// parseSession decodes the "id|username" session payload.
func parseSession(val string) (uint, string, bool) {
	parts := strings.SplitN(val, "|", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return uint(id), parts[1], true
}
