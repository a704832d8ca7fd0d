package models

import "time"

// RequestStatus defines lifecycle states for public blood requests.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting hospital action.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved indicates a hospital has claimed the request.
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusDeclined indicates a hospital rejected the request.
	RequestStatusDeclined RequestStatus = "declined"
	// RequestStatusFulfilled indicates inventory was consumed for the request.
	RequestStatusFulfilled RequestStatus = "fulfilled"
	// RequestStatusCancelled indicates the request was withdrawn.
	RequestStatusCancelled RequestStatus = "cancelled"
)

// ValidRequestStatuses lists every accepted status value, in lifecycle order.
var ValidRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusDeclined,
	RequestStatusFulfilled,
	RequestStatusCancelled,
}

// IsValidRequestStatus reports whether s is a member of the status enum.
func IsValidRequestStatus(s RequestStatus) bool {
	for _, v := range ValidRequestStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CanTransition reports whether a request may move from one status to another.
// Transitions are one-way forward; cancellation is the only escape, and
// declined, fulfilled, and cancelled are terminal. Same-status updates are
// allowed so repeated reservations against an approved request stay idempotent.
func CanTransition(from, to RequestStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case RequestStatusPending:
		return to == RequestStatusApproved || to == RequestStatusDeclined ||
			to == RequestStatusFulfilled || to == RequestStatusCancelled
	case RequestStatusApproved:
		return to == RequestStatusFulfilled || to == RequestStatusCancelled
	default:
		return false
	}
}

// BloodRequest is a public request for blood, triaged by hospitals.
type BloodRequest struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Name      string        `gorm:"size:120;not null" json:"name"`
	Email     string        `gorm:"size:254;not null;index" json:"email"`
	BloodType string        `gorm:"size:3;not null;index" json:"blood_type"`
	Location  string        `gorm:"size:120;not null" json:"location"`
	Urgency   bool          `gorm:"not null;default:false;index" json:"urgency"`
	Status    RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Hospital  *string       `gorm:"size:60;index" json:"hospital"`
	Notes     string        `gorm:"type:text" json:"notes"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RequestStats holds per-status request counts for the hospital dashboard.
type RequestStats struct {
	Total         int64 `json:"total"`
	Pending       int64 `json:"pending"`
	Approved      int64 `json:"approved"`
	Declined      int64 `json:"declined"`
	Fulfilled     int64 `json:"fulfilled"`
	Cancelled     int64 `json:"cancelled"`
	UrgentPending int64 `json:"urgent_pending"`
}
