// Package service implements the blood request and inventory workflows on top of the repositories.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hemobank/internal/models"
	"hemobank/internal/observability"
	"hemobank/internal/repository"
	"hemobank/internal/validation"
)

// RequestService coordinates blood request lifecycle operations: submission,
// triage, reservation, and inventory-backed fulfillment.
type RequestService struct {
	requestRepo repository.BloodRequestRepository
	unitRepo    repository.BloodUnitRepository
}

// NewRequestService creates a new request service.
func NewRequestService(requestRepo repository.BloodRequestRepository, unitRepo repository.BloodUnitRepository) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		unitRepo:    unitRepo,
	}
}

// SubmitRequestInput is the public submission payload.
type SubmitRequestInput struct {
	Name      string
	Email     string
	BloodType string
	Location  string
	Urgency   bool
}

// UpdateStatusInput carries a hospital's status change for a request.
type UpdateStatusInput struct {
	RequestID uint
	Status    models.RequestStatus
	Hospital  string
	Notes     string
}

// FulfillInput carries a hospital's inventory-backed fulfillment.
type FulfillInput struct {
	RequestID  uint
	UnitIDs    []uint
	HospitalID uint
	Hospital   string
	Notes      string
}

// ReserveInput carries a hospital's reservation of units for a request.
type ReserveInput struct {
	RequestID uint
	UnitIDs   []uint
	Hospital  string
}

func (s *RequestService) SubmitRequest(ctx context.Context, in SubmitRequestInput) (*models.BloodRequest, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if in.Name == "" || in.Location == "" {
		return nil, models.NewValidationError("Name and location are required")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateBloodType(in.BloodType); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	req := &models.BloodRequest{
		Name:      in.Name,
		Email:     in.Email,
		BloodType: in.BloodType,
		Location:  in.Location,
		Urgency:   in.Urgency,
		Status:    models.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	observability.RequestsSubmitted.WithLabelValues(req.BloodType).Inc()
	return req, nil
}

func (s *RequestService) GetRequest(ctx context.Context, id uint) (*models.BloodRequest, error) {
	return s.requestRepo.GetByID(ctx, id)
}

func (s *RequestService) RequestsByEmail(ctx context.Context, email string) ([]*models.BloodRequest, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return s.requestRepo.GetByEmail(ctx, email)
}

func (s *RequestService) ListForHospital(ctx context.Context, in repository.ListRequestsInput) ([]*models.BloodRequest, int64, error) {
	return s.requestRepo.ListForHospital(ctx, in)
}

func (s *RequestService) Stats(ctx context.Context, hospital string) (*models.RequestStats, error) {
	return s.requestRepo.Stats(ctx, hospital)
}

// UpdateStatus validates the target status and the lifecycle transition before
// persisting. Cancelling or declining a request releases any units still
// reserved for it.
func (s *RequestService) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*models.BloodRequest, error) {
	if !models.IsValidRequestStatus(in.Status) {
		return nil, models.NewValidationError(invalidStatusMessage())
	}

	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewNotFoundError("Blood request")
	}
	if !models.CanTransition(req.Status, in.Status) {
		return nil, models.NewValidationError(
			fmt.Sprintf("Cannot change status from %s to %s", req.Status, in.Status))
	}

	updated, err := s.requestRepo.UpdateStatus(ctx, in.RequestID, in.Status, in.Hospital, in.Notes)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, models.NewNotFoundError("Blood request")
	}

	if in.Status == models.RequestStatusCancelled || in.Status == models.RequestStatusDeclined {
		if _, releaseErr := s.unitRepo.Release(ctx, in.RequestID); releaseErr != nil {
			return nil, releaseErr
		}
	}

	observability.RequestStatusChanges.WithLabelValues(string(in.Status)).Inc()
	return updated, nil
}

// Assign claims a pending request for the acting hospital.
func (s *RequestService) Assign(ctx context.Context, requestID uint, hospital, notes string) (*models.BloodRequest, error) {
	if notes == "" {
		notes = "Assigned to " + hospital
	}
	return s.UpdateStatus(ctx, UpdateStatusInput{
		RequestID: requestID,
		Status:    models.RequestStatusApproved,
		Hospital:  hospital,
		Notes:     notes,
	})
}

// Fulfill consumes the given units for the request. Every unit must belong to
// the acting hospital; ownership is checked before any mutation so a foreign
// unit rejects the whole call with nothing consumed.
func (s *RequestService) Fulfill(ctx context.Context, in FulfillInput) (*models.BloodRequest, error) {
	if len(in.UnitIDs) == 0 {
		return nil, models.NewValidationError("Blood unit IDs are required")
	}

	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewNotFoundError("Blood request")
	}
	if !models.CanTransition(req.Status, models.RequestStatusFulfilled) {
		return nil, models.NewValidationError(
			fmt.Sprintf("Cannot fulfill a request with status %s", req.Status))
	}

	if err := s.verifyOwnership(ctx, in.UnitIDs, in.HospitalID); err != nil {
		return nil, err
	}

	if err := s.requestRepo.Fulfill(ctx, in.RequestID, in.UnitIDs, time.Now().UTC()); err != nil {
		// Conditional updates report which unit blocked the transaction; that
		// detail is safe to surface to the acting hospital.
		return nil, models.NewValidationError(err.Error())
	}

	notes := in.Notes
	if notes == "" {
		notes = "Fulfilled using hospital inventory"
	}
	updated, err := s.requestRepo.UpdateStatus(ctx, in.RequestID, models.RequestStatusFulfilled, in.Hospital, notes)
	if err != nil {
		return nil, err
	}

	observability.UnitsConsumed.Add(float64(len(in.UnitIDs)))
	observability.RequestStatusChanges.WithLabelValues(string(models.RequestStatusFulfilled)).Inc()
	return updated, nil
}

// verifyOwnership fetches the units concurrently and rejects the call when any
// unit is missing or owned by another hospital.
func (s *RequestService) verifyOwnership(ctx context.Context, unitIDs []uint, hospitalID uint) error {
	type fetched struct {
		unit *models.BloodUnit
		err  error
	}

	results := make([]fetched, len(unitIDs))
	var wg sync.WaitGroup
	for i, id := range unitIDs {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			unit, err := s.unitRepo.GetByID(ctx, id)
			results[i] = fetched{unit: unit, err: err}
		}(i, id)
	}
	wg.Wait()

	for _, res := range results {
		if res.err != nil {
			return res.err
		}
		if res.unit == nil || res.unit.HospitalID != hospitalID {
			return models.NewForbiddenError("Some blood units do not belong to your hospital")
		}
	}
	return nil
}

// Reserve holds units for the request, best effort: units that are no longer
// Available are skipped, and whatever subset was reserved marks the request
// approved. Zero reservations is an error and leaves the request untouched.
func (s *RequestService) Reserve(ctx context.Context, in ReserveInput) ([]*models.BloodUnit, error) {
	if len(in.UnitIDs) == 0 {
		return nil, models.NewValidationError("Blood unit IDs are required")
	}

	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewNotFoundError("Blood request")
	}
	if !models.CanTransition(req.Status, models.RequestStatusApproved) {
		return nil, models.NewValidationError(
			fmt.Sprintf("Cannot reserve units for a request with status %s", req.Status))
	}

	reserved, err := s.unitRepo.Reserve(ctx, in.UnitIDs, in.RequestID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(reserved) == 0 {
		return nil, models.NewValidationError("No blood units could be reserved (may already be reserved or unavailable)")
	}

	notes := fmt.Sprintf("Reserved %d blood unit(s) for fulfillment", len(reserved))
	if _, err := s.requestRepo.UpdateStatus(ctx, in.RequestID, models.RequestStatusApproved, in.Hospital, notes); err != nil {
		return nil, err
	}

	observability.UnitsReserved.Add(float64(len(reserved)))
	observability.RequestStatusChanges.WithLabelValues(string(models.RequestStatusApproved)).Inc()
	return reserved, nil
}

// AvailableInventory returns the request plus the hospital's unexpired
// Available units matching the request's blood type.
func (s *RequestService) AvailableInventory(ctx context.Context, requestID, hospitalID uint) (*models.BloodRequest, []*models.BloodUnit, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, models.NewNotFoundError("Blood request")
	}

	units, err := s.unitRepo.AvailableForRequest(ctx, hospitalID, req.BloodType, time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}
	return req, units, nil
}

// ReleaseReservations reverts the request's reserved units to Available.
func (s *RequestService) ReleaseReservations(ctx context.Context, requestID uint) (int64, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return 0, err
	}
	if req == nil {
		return 0, models.NewNotFoundError("Blood request")
	}
	return s.unitRepo.Release(ctx, requestID)
}

func invalidStatusMessage() string {
	parts := make([]string, len(models.ValidRequestStatuses))
	for i, s := range models.ValidRequestStatuses {
		parts[i] = string(s)
	}
	return "Invalid status. Must be one of: " + strings.Join(parts, ", ")
}
