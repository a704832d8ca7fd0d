package repository

import (
	"context"
	"errors"

	"hemobank/internal/models"

	"gorm.io/gorm"
)

// HospitalRepository defines the interface for hospital account data operations
type HospitalRepository interface {
	Create(ctx context.Context, hospital *models.Hospital) error
	GetByID(ctx context.Context, id uint) (*models.Hospital, error)
	GetByUsername(ctx context.Context, username string) (*models.Hospital, error)
	List(ctx context.Context) ([]*models.Hospital, error)
	Update(ctx context.Context, hospital *models.Hospital) error
	Delete(ctx context.Context, id uint) error
	GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error)
}

// hospitalRepository implements HospitalRepository
type hospitalRepository struct {
	db *gorm.DB
}

// NewHospitalRepository creates a new hospital repository
func NewHospitalRepository(db *gorm.DB) HospitalRepository {
	return &hospitalRepository{db: db}
}

func (r *hospitalRepository) Create(ctx context.Context, hospital *models.Hospital) error {
	return r.db.WithContext(ctx).Create(hospital).Error
}

func (r *hospitalRepository) GetByID(ctx context.Context, id uint) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.db.WithContext(ctx).First(&hospital, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hospital, nil
}

func (r *hospitalRepository) GetByUsername(ctx context.Context, username string) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&hospital).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hospital, nil
}

func (r *hospitalRepository) List(ctx context.Context) ([]*models.Hospital, error) {
	var hospitals []*models.Hospital
	err := r.db.WithContext(ctx).Order("username ASC").Find(&hospitals).Error
	return hospitals, err
}

func (r *hospitalRepository) Update(ctx context.Context, hospital *models.Hospital) error {
	return r.db.WithContext(ctx).Save(hospital).Error
}

func (r *hospitalRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Hospital{}, id).Error
}

func (r *hospitalRepository) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
