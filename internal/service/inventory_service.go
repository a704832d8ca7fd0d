package service

import (
	"context"
	"time"

	"hemobank/internal/models"
	"hemobank/internal/repository"
	"hemobank/internal/validation"
)

// InventoryService manages a hospital's blood unit stock.
type InventoryService struct {
	unitRepo repository.BloodUnitRepository
}

func NewInventoryService(unitRepo repository.BloodUnitRepository) *InventoryService {
	return &InventoryService{unitRepo: unitRepo}
}

// AddUnitInput is an inventory intake payload.
type AddUnitInput struct {
	HospitalID  uint
	BloodType   string
	ExpiryDate  time.Time
	CollectedAt time.Time
}

// AddUnit records a freshly collected unit as Available.
func (s *InventoryService) AddUnit(ctx context.Context, in AddUnitInput) (*models.BloodUnit, error) {
	if err := validation.ValidateBloodType(in.BloodType); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.ExpiryDate.IsZero() {
		return nil, models.NewValidationError("Expiry date is required")
	}
	if !in.ExpiryDate.After(time.Now().UTC()) {
		return nil, models.NewValidationError("Expiry date must be in the future")
	}
	if in.CollectedAt.IsZero() {
		in.CollectedAt = time.Now().UTC()
	}

	unit := &models.BloodUnit{
		HospitalID:  in.HospitalID,
		BloodType:   in.BloodType,
		Status:      models.UnitStatusAvailable,
		ExpiryDate:  in.ExpiryDate,
		CollectedAt: in.CollectedAt,
	}
	if err := s.unitRepo.Create(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// ListUnits returns the hospital's units, optionally filtered by blood type
// and status. An unknown status filter is rejected rather than silently
// matching nothing.
func (s *InventoryService) ListUnits(ctx context.Context, hospitalID uint, bloodType string, status models.UnitStatus) ([]*models.BloodUnit, error) {
	if bloodType != "" {
		if err := validation.ValidateBloodType(bloodType); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if status != "" && !models.IsValidUnitStatus(status) {
		return nil, models.NewValidationError("Invalid unit status filter")
	}
	return s.unitRepo.ListForHospital(ctx, hospitalID, bloodType, status)
}

// ExpireOverdue sweeps Available units past their expiry date into Expired.
func (s *InventoryService) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.unitRepo.ExpireOverdue(ctx, time.Now().UTC())
}
