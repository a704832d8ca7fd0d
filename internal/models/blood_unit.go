package models

import "time"

// UnitStatus defines lifecycle states for a blood inventory unit.
type UnitStatus string

const (
	// UnitStatusAvailable indicates the unit can be reserved or consumed.
	UnitStatusAvailable UnitStatus = "Available"
	// UnitStatusReserved indicates the unit is held for a specific request.
	UnitStatusReserved UnitStatus = "Reserved"
	// UnitStatusUsed indicates the unit was consumed to fulfill a request.
	UnitStatusUsed UnitStatus = "Used"
	// UnitStatusExpired indicates the unit passed its expiry date unused.
	UnitStatusExpired UnitStatus = "Expired"
)

// IsValidUnitStatus reports whether s is a member of the unit status enum.
func IsValidUnitStatus(s UnitStatus) bool {
	switch s {
	case UnitStatusAvailable, UnitStatusReserved, UnitStatusUsed, UnitStatusExpired:
		return true
	}
	return false
}

// BloodUnit is a single unit of stored blood owned by exactly one hospital.
// RequestID is set while the unit is Reserved or Used for a request.
type BloodUnit struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	HospitalID  uint       `gorm:"not null;index" json:"hospital_id"`
	BloodType   string     `gorm:"size:3;not null;index" json:"blood_type"`
	Status      UnitStatus `gorm:"type:varchar(20);not null;default:'Available';index" json:"status"`
	RequestID   *uint      `gorm:"index" json:"request_id"`
	ExpiryDate  time.Time  `gorm:"not null;index" json:"expiry_date"`
	CollectedAt time.Time  `json:"collected_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
