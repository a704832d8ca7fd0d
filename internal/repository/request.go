// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hemobank/internal/models"
	"hemobank/internal/observability"

	"gorm.io/gorm"
)

// ListRequestsInput holds filters and pagination for hospital request listing.
// Empty filter fields are ignored. Page is 1-based.
type ListRequestsInput struct {
	Hospital  string
	Status    models.RequestStatus
	BloodType string
	Urgency   *bool
	Page      int
	Limit     int
}

// BloodRequestRepository defines the interface for blood request data operations
type BloodRequestRepository interface {
	Create(ctx context.Context, req *models.BloodRequest) error
	GetByID(ctx context.Context, id uint) (*models.BloodRequest, error)
	GetByEmail(ctx context.Context, email string) ([]*models.BloodRequest, error)
	ListForHospital(ctx context.Context, in ListRequestsInput) ([]*models.BloodRequest, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.RequestStatus, hospital, notes string) (*models.BloodRequest, error)
	Stats(ctx context.Context, hospital string) (*models.RequestStats, error)
	Fulfill(ctx context.Context, id uint, unitIDs []uint, now time.Time) error
}

// bloodRequestRepository implements BloodRequestRepository
type bloodRequestRepository struct {
	db *gorm.DB
}

// NewBloodRequestRepository creates a new blood request repository
func NewBloodRequestRepository(db *gorm.DB) BloodRequestRepository {
	return &bloodRequestRepository{db: db}
}

func (r *bloodRequestRepository) Create(ctx context.Context, req *models.BloodRequest) error {
	defer observability.ObserveQuery("create", "blood_requests", time.Now())
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *bloodRequestRepository) GetByID(ctx context.Context, id uint) (*models.BloodRequest, error) {
	var req models.BloodRequest
	err := r.db.WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *bloodRequestRepository) GetByEmail(ctx context.Context, email string) ([]*models.BloodRequest, error) {
	var reqs []*models.BloodRequest
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// visibleTo scopes a query to the requests a hospital may act on: those it has
// claimed plus those not yet assigned to any hospital.
func visibleTo(db *gorm.DB, hospital string) *gorm.DB {
	return db.Where("hospital = ? OR hospital IS NULL", hospital)
}

func (r *bloodRequestRepository) ListForHospital(ctx context.Context, in ListRequestsInput) ([]*models.BloodRequest, int64, error) {
	defer observability.ObserveQuery("list", "blood_requests", time.Now())

	q := visibleTo(r.db.WithContext(ctx).Model(&models.BloodRequest{}), in.Hospital)
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}
	if in.BloodType != "" {
		q = q.Where("blood_type = ?", in.BloodType)
	}
	if in.Urgency != nil {
		q = q.Where("urgency = ?", *in.Urgency)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = 20
	}

	var reqs []*models.BloodRequest
	err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&reqs).Error
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *bloodRequestRepository) UpdateStatus(ctx context.Context, id uint, status models.RequestStatus, hospital, notes string) (*models.BloodRequest, error) {
	defer observability.ObserveQuery("update_status", "blood_requests", time.Now())

	var req models.BloodRequest
	err := r.db.WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	req.Status = status
	req.Hospital = &hospital
	req.Notes = notes
	if err := r.db.WithContext(ctx).Save(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *bloodRequestRepository) Stats(ctx context.Context, hospital string) (*models.RequestStats, error) {
	defer observability.ObserveQuery("stats", "blood_requests", time.Now())

	type statusCount struct {
		Status models.RequestStatus
		Count  int64
	}

	var rows []statusCount
	err := visibleTo(r.db.WithContext(ctx).Model(&models.BloodRequest{}), hospital).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &models.RequestStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.RequestStatusPending:
			stats.Pending = row.Count
		case models.RequestStatusApproved:
			stats.Approved = row.Count
		case models.RequestStatusDeclined:
			stats.Declined = row.Count
		case models.RequestStatusFulfilled:
			stats.Fulfilled = row.Count
		case models.RequestStatusCancelled:
			stats.Cancelled = row.Count
		}
	}

	err = visibleTo(r.db.WithContext(ctx).Model(&models.BloodRequest{}), hospital).
		Where("status = ? AND urgency = ?", models.RequestStatusPending, true).
		Count(&stats.UrgentPending).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Fulfill consumes the referenced units and marks the request fulfilled in a
// single transaction. Any unit that is expired, already used, or reserved for
// a different request aborts the whole transaction, so stock is never left
// partially consumed.
func (r *bloodRequestRepository) Fulfill(ctx context.Context, id uint, unitIDs []uint, now time.Time) error {
	defer observability.ObserveQuery("fulfill", "blood_requests", time.Now())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, unitID := range unitIDs {
			res := tx.Model(&models.BloodUnit{}).
				Where("id = ? AND status IN ? AND (request_id IS NULL OR request_id = ?) AND expiry_date > ?",
					unitID,
					[]models.UnitStatus{models.UnitStatusAvailable, models.UnitStatusReserved},
					id,
					now,
				).
				Updates(map[string]interface{}{
					"status":     models.UnitStatusUsed,
					"request_id": id,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("blood unit %d is not available for fulfillment", unitID)
			}
		}

		res := tx.Model(&models.BloodRequest{}).
			Where("id = ? AND status IN ?", id,
				[]models.RequestStatus{models.RequestStatusPending, models.RequestStatusApproved}).
			Update("status", models.RequestStatusFulfilled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("blood request %d not found or already finalized", id)
		}
		return nil
	})
}
