package repository

import (
	"context"
	"errors"
	"time"

	"hemobank/internal/models"
	"hemobank/internal/observability"

	"gorm.io/gorm"
)

// BloodUnitRepository defines the interface for blood inventory data operations
type BloodUnitRepository interface {
	Create(ctx context.Context, unit *models.BloodUnit) error
	GetByID(ctx context.Context, id uint) (*models.BloodUnit, error)
	ListForHospital(ctx context.Context, hospitalID uint, bloodType string, status models.UnitStatus) ([]*models.BloodUnit, error)
	AvailableForRequest(ctx context.Context, hospitalID uint, bloodType string, now time.Time) ([]*models.BloodUnit, error)
	Reserve(ctx context.Context, unitIDs []uint, requestID uint, now time.Time) ([]*models.BloodUnit, error)
	Release(ctx context.Context, requestID uint) (int64, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// bloodUnitRepository implements BloodUnitRepository
type bloodUnitRepository struct {
	db *gorm.DB
}

// NewBloodUnitRepository creates a new blood unit repository
func NewBloodUnitRepository(db *gorm.DB) BloodUnitRepository {
	return &bloodUnitRepository{db: db}
}

func (r *bloodUnitRepository) Create(ctx context.Context, unit *models.BloodUnit) error {
	defer observability.ObserveQuery("create", "blood_units", time.Now())
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *bloodUnitRepository) GetByID(ctx context.Context, id uint) (*models.BloodUnit, error) {
	var unit models.BloodUnit
	err := r.db.WithContext(ctx).First(&unit, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *bloodUnitRepository) ListForHospital(ctx context.Context, hospitalID uint, bloodType string, status models.UnitStatus) ([]*models.BloodUnit, error) {
	defer observability.ObserveQuery("list", "blood_units", time.Now())

	q := r.db.WithContext(ctx).Where("hospital_id = ?", hospitalID)
	if bloodType != "" {
		q = q.Where("blood_type = ?", bloodType)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var units []*models.BloodUnit
	err := q.Order("expiry_date ASC").Find(&units).Error
	return units, err
}

// AvailableForRequest returns the hospital's unexpired Available units of the
// given blood type. Expiry is enforced here, in the query predicate, so callers
// never see a unit whose expiry date has passed.
func (r *bloodUnitRepository) AvailableForRequest(ctx context.Context, hospitalID uint, bloodType string, now time.Time) ([]*models.BloodUnit, error) {
	defer observability.ObserveQuery("available", "blood_units", time.Now())

	var units []*models.BloodUnit
	err := r.db.WithContext(ctx).
		Where("hospital_id = ? AND blood_type = ? AND status = ? AND expiry_date > ?",
			hospitalID, bloodType, models.UnitStatusAvailable, now).
		Order("expiry_date ASC").
		Find(&units).Error
	return units, err
}

// Reserve attempts Available→Reserved for each listed unit and returns the
// subset actually reserved. Each unit is guarded by a conditional update on
// status, so a concurrent reservation of the same unit wins exactly once.
// Units already reserved, consumed, or expired are skipped, not rolled back.
func (r *bloodUnitRepository) Reserve(ctx context.Context, unitIDs []uint, requestID uint, now time.Time) ([]*models.BloodUnit, error) {
	defer observability.ObserveQuery("reserve", "blood_units", time.Now())

	var reservedIDs []uint
	for _, id := range unitIDs {
		res := r.db.WithContext(ctx).Model(&models.BloodUnit{}).
			Where("id = ? AND status = ? AND expiry_date > ?", id, models.UnitStatusAvailable, now).
			Updates(map[string]interface{}{
				"status":     models.UnitStatusReserved,
				"request_id": requestID,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			reservedIDs = append(reservedIDs, id)
		}
	}

	if len(reservedIDs) == 0 {
		return nil, nil
	}

	var units []*models.BloodUnit
	err := r.db.WithContext(ctx).Where("id IN ?", reservedIDs).Find(&units).Error
	return units, err
}

// Release reverts the request's Reserved units to Available and returns how
// many were released.
func (r *bloodUnitRepository) Release(ctx context.Context, requestID uint) (int64, error) {
	defer observability.ObserveQuery("release", "blood_units", time.Now())

	res := r.db.WithContext(ctx).Model(&models.BloodUnit{}).
		Where("request_id = ? AND status = ?", requestID, models.UnitStatusReserved).
		Updates(map[string]interface{}{
			"status":     models.UnitStatusAvailable,
			"request_id": nil,
		})
	return res.RowsAffected, res.Error
}

// ExpireOverdue flips past-expiry Available units to Expired.
func (r *bloodUnitRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	defer observability.ObserveQuery("expire", "blood_units", time.Now())

	res := r.db.WithContext(ctx).Model(&models.BloodUnit{}).
		Where("status = ? AND expiry_date <= ?", models.UnitStatusAvailable, now).
		Update("status", models.UnitStatusExpired)
	return res.RowsAffected, res.Error
}
