package server

import (
	"fmt"

	"hemobank/internal/models"
	"hemobank/internal/repository"
	"hemobank/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UpdateStatusRequest is the payload for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// FulfillRequest is the payload for inventory-backed fulfillment or reservation.
type FulfillRequest struct {
	BloodUnitIDs []uint `json:"bloodUnitIds"`
	Notes        string `json:"notes"`
}

// GetHospitalBloodRequests returns the requests visible to the hospital:
// those it has claimed plus unassigned ones, newest first.
func (s *Server) GetHospitalBloodRequests(c *fiber.Ctx) error {
	_, username := currentHospital(c)
	p := parsePagination(c, 20)

	in := repository.ListRequestsInput{
		Hospital:  username,
		Status:    models.RequestStatus(filterParam(c, "status")),
		BloodType: filterParam(c, "bloodType"),
		Page:      p.Page,
		Limit:     p.Limit,
	}
	if v := filterParam(c, "urgency"); v != "" {
		urgent := c.QueryBool("urgency")
		in.Urgency = &urgent
	}
	if in.Status != "" && !models.IsValidRequestStatus(in.Status) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid status filter"))
	}

	requests, total, err := s.requestService.ListForHospital(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"requests": requests,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	})
}

// GetUrgentBloodRequests returns pending urgent requests visible to the hospital.
func (s *Server) GetUrgentBloodRequests(c *fiber.Ctx) error {
	_, username := currentHospital(c)
	p := parsePagination(c, 50)

	urgent := true
	requests, total, err := s.requestService.ListForHospital(c.Context(), repository.ListRequestsInput{
		Hospital: username,
		Status:   models.RequestStatusPending,
		Urgency:  &urgent,
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"requests": requests,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	})
}

// GetBloodRequestStats returns per-status counts for the hospital's visible requests.
func (s *Server) GetBloodRequestStats(c *fiber.Ctx) error {
	_, username := currentHospital(c)

	stats, err := s.requestService.Stats(c.Context(), username)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// GetHospitalBloodRequest returns a single request if it is visible to the hospital.
func (s *Server) GetHospitalBloodRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	_, username := currentHospital(c)

	req, err := s.requestService.GetRequest(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if req == nil || !visibleTo(req, username) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Blood request"))
	}
	return c.Status(fiber.StatusOK).JSON(req)
}

// UpdateBloodRequestStatus moves a request through its lifecycle.
func (s *Server) UpdateBloodRequestStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	_, username := currentHospital(c)

	var body UpdateStatusRequest
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updated, err := s.requestService.UpdateStatus(c.Context(), service.UpdateStatusInput{
		RequestID: id,
		Status:    models.RequestStatus(body.Status),
		Hospital:  username,
		Notes:     body.Notes,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": fmt.Sprintf("Blood request %s successfully", body.Status),
		"request": updated,
	})
}

// AssignBloodRequest claims a request for the acting hospital.
func (s *Server) AssignBloodRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	_, username := currentHospital(c)

	var body UpdateStatusRequest
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updated, err := s.requestService.Assign(c.Context(), id, username, body.Notes)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Blood request assigned to hospital successfully",
		"request": updated,
	})
}

// FulfillBloodRequest consumes the named blood units and marks the request fulfilled.
func (s *Server) FulfillBloodRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	hospitalID, username := currentHospital(c)

	var body FulfillRequest
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updated, err := s.requestService.Fulfill(c.Context(), service.FulfillInput{
		RequestID:  id,
		UnitIDs:    body.BloodUnitIDs,
		HospitalID: hospitalID,
		Hospital:   username,
		Notes:      body.Notes,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"message":   "Blood request fulfilled successfully using hospital inventory",
		"unitsUsed": len(body.BloodUnitIDs),
		"request":   updated,
	})
}

// ReserveBloodUnits holds units for a request, best effort.
func (s *Server) ReserveBloodUnits(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	_, username := currentHospital(c)

	var body FulfillRequest
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	reserved, err := s.requestService.Reserve(c.Context(), service.ReserveInput{
		RequestID: id,
		UnitIDs:   body.BloodUnitIDs,
		Hospital:  username,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":       fmt.Sprintf("Successfully reserved %d blood unit(s)", len(reserved)),
		"reservedUnits": reserved,
		"requestId":     id,
	})
}

// ReleaseBloodUnits reverts a request's reserved units to Available.
func (s *Server) ReleaseBloodUnits(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	released, err := s.requestService.ReleaseReservations(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":       fmt.Sprintf("Released %d blood unit(s)", released),
		"releasedCount": released,
	})
}

// GetAvailableInventory lists the hospital's unexpired Available units matching
// the request's blood type.
func (s *Server) GetAvailableInventory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	hospitalID, _ := currentHospital(c)

	req, units, err := s.requestService.AvailableInventory(c.Context(), id, hospitalID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"request":        req,
		"availableUnits": units,
		"totalAvailable": len(units),
	})
}

// visibleTo reports whether the hospital may see the request: its own claims
// plus the unassigned pool.
func visibleTo(req *models.BloodRequest, hospital string) bool {
	return req.Hospital == nil || *req.Hospital == hospital
}
