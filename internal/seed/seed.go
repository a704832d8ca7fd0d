// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"hemobank/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumHospitals int
	NumRequests  int
	NumUnits     int
	ShouldClean  bool
}

var bloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// Seeder populates the database with demo hospitals, requests, and inventory.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// ClearAll removes all seeded rows. Order matters for foreign keys.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{
		&models.BloodUnit{},
		&models.BloodRequest{},
		&models.Hospital{},
		&models.AdminUser{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// Run seeds hospitals, blood requests, and inventory per the options.
// Every hospital account gets the password "password123".
func (s *Seeder) Run(opts Options) error {
	if opts.NumHospitals <= 0 {
		opts.NumHospitals = 5
	}
	if opts.NumRequests <= 0 {
		opts.NumRequests = 50
	}
	if opts.NumUnits <= 0 {
		opts.NumUnits = 100
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	hospitals := make([]*models.Hospital, 0, opts.NumHospitals)
	for i := 0; i < opts.NumHospitals; i++ {
		hospital := &models.Hospital{
			Username: fmt.Sprintf("%s-%d", gofakeit.Word(), i+1),
			Name:     gofakeit.Company() + " Hospital",
			Password: string(hashed),
			City:     gofakeit.City(),
		}
		if err := s.db.Create(hospital).Error; err != nil {
			return fmt.Errorf("create hospital: %w", err)
		}
		hospitals = append(hospitals, hospital)
	}
	log.Printf("Created %d hospitals", len(hospitals))

	admin := &models.AdminUser{Username: "admin", Password: string(hashed)}
	if err := s.db.Create(admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	statuses := models.ValidRequestStatuses
	for i := 0; i < opts.NumRequests; i++ {
		req := &models.BloodRequest{
			Name:      gofakeit.Name(),
			Email:     gofakeit.Email(),
			BloodType: bloodTypes[rand.Intn(len(bloodTypes))],
			Location:  gofakeit.City(),
			Urgency:   rand.Intn(4) == 0,
			Status:    statuses[rand.Intn(len(statuses))],
			CreatedAt: time.Now().Add(-time.Duration(rand.Intn(90*24)) * time.Hour),
		}
		if req.Status != models.RequestStatusPending {
			req.Hospital = &hospitals[rand.Intn(len(hospitals))].Username
		}
		if err := s.db.Create(req).Error; err != nil {
			return fmt.Errorf("create request: %w", err)
		}
	}
	log.Printf("Created %d blood requests", opts.NumRequests)

	for i := 0; i < opts.NumUnits; i++ {
		collected := time.Now().Add(-time.Duration(rand.Intn(35*24)) * time.Hour)
		unit := &models.BloodUnit{
			HospitalID:  hospitals[rand.Intn(len(hospitals))].ID,
			BloodType:   bloodTypes[rand.Intn(len(bloodTypes))],
			Status:      models.UnitStatusAvailable,
			ExpiryDate:  collected.Add(42 * 24 * time.Hour),
			CollectedAt: collected,
		}
		if err := s.db.Create(unit).Error; err != nil {
			return fmt.Errorf("create unit: %w", err)
		}
	}
	log.Printf("Created %d blood units", opts.NumUnits)

	return nil
}
