package seed

import (
	"testing"

	"hemobank/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Hospital{},
		&models.AdminUser{},
		&models.BloodRequest{},
		&models.BloodUnit{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func TestSeederRun(t *testing.T) {
	db := setupSeedTestDB(t)
	s := NewSeeder(db)

	if err := s.Run(Options{NumHospitals: 3, NumRequests: 10, NumUnits: 20}); err != nil {
		t.Fatalf("run seeder: %v", err)
	}

	var hospitals, requests, units int64
	db.Model(&models.Hospital{}).Count(&hospitals)
	db.Model(&models.BloodRequest{}).Count(&requests)
	db.Model(&models.BloodUnit{}).Count(&units)

	if hospitals != 3 {
		t.Fatalf("expected 3 hospitals, got %d", hospitals)
	}
	if requests != 10 {
		t.Fatalf("expected 10 requests, got %d", requests)
	}
	if units != 20 {
		t.Fatalf("expected 20 units, got %d", units)
	}

	// Non-pending requests must be assigned to a hospital.
	var unassigned int64
	db.Model(&models.BloodRequest{}).
		Where("status <> ? AND hospital IS NULL", models.RequestStatusPending).
		Count(&unassigned)
	if unassigned != 0 {
		t.Fatalf("expected all non-pending requests assigned, %d were not", unassigned)
	}
}

func TestSeederClearAll(t *testing.T) {
	db := setupSeedTestDB(t)
	s := NewSeeder(db)

	if err := s.Run(Options{NumHospitals: 2, NumRequests: 5, NumUnits: 5}); err != nil {
		t.Fatalf("run seeder: %v", err)
	}
	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	var count int64
	db.Model(&models.BloodRequest{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected empty table, got %d rows", count)
	}
}
