package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hemobank/internal/models"
	"hemobank/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestRepoStub is a stub for repository.BloodRequestRepository.
type requestRepoStub struct {
	createFn          func(context.Context, *models.BloodRequest) error
	getByIDFn         func(context.Context, uint) (*models.BloodRequest, error)
	getByEmailFn      func(context.Context, string) ([]*models.BloodRequest, error)
	listForHospitalFn func(context.Context, repository.ListRequestsInput) ([]*models.BloodRequest, int64, error)
	updateStatusFn    func(context.Context, uint, models.RequestStatus, string, string) (*models.BloodRequest, error)
	statsFn           func(context.Context, string) (*models.RequestStats, error)
	fulfillFn         func(context.Context, uint, []uint, time.Time) error
}

func (s *requestRepoStub) Create(ctx context.Context, req *models.BloodRequest) error {
	return s.createFn(ctx, req)
}
func (s *requestRepoStub) GetByID(ctx context.Context, id uint) (*models.BloodRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *requestRepoStub) GetByEmail(ctx context.Context, email string) ([]*models.BloodRequest, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *requestRepoStub) ListForHospital(ctx context.Context, in repository.ListRequestsInput) ([]*models.BloodRequest, int64, error) {
	return s.listForHospitalFn(ctx, in)
}
func (s *requestRepoStub) UpdateStatus(ctx context.Context, id uint, status models.RequestStatus, hospital, notes string) (*models.BloodRequest, error) {
	return s.updateStatusFn(ctx, id, status, hospital, notes)
}
func (s *requestRepoStub) Stats(ctx context.Context, hospital string) (*models.RequestStats, error) {
	return s.statsFn(ctx, hospital)
}
func (s *requestRepoStub) Fulfill(ctx context.Context, id uint, unitIDs []uint, now time.Time) error {
	return s.fulfillFn(ctx, id, unitIDs, now)
}

// unitRepoStub is a stub for repository.BloodUnitRepository.
type unitRepoStub struct {
	createFn              func(context.Context, *models.BloodUnit) error
	getByIDFn             func(context.Context, uint) (*models.BloodUnit, error)
	listForHospitalFn     func(context.Context, uint, string, models.UnitStatus) ([]*models.BloodUnit, error)
	availableForRequestFn func(context.Context, uint, string, time.Time) ([]*models.BloodUnit, error)
	reserveFn             func(context.Context, []uint, uint, time.Time) ([]*models.BloodUnit, error)
	releaseFn             func(context.Context, uint) (int64, error)
	expireOverdueFn       func(context.Context, time.Time) (int64, error)
}

func (s *unitRepoStub) Create(ctx context.Context, unit *models.BloodUnit) error {
	return s.createFn(ctx, unit)
}
func (s *unitRepoStub) GetByID(ctx context.Context, id uint) (*models.BloodUnit, error) {
	return s.getByIDFn(ctx, id)
}
func (s *unitRepoStub) ListForHospital(ctx context.Context, hospitalID uint, bloodType string, status models.UnitStatus) ([]*models.BloodUnit, error) {
	return s.listForHospitalFn(ctx, hospitalID, bloodType, status)
}
func (s *unitRepoStub) AvailableForRequest(ctx context.Context, hospitalID uint, bloodType string, now time.Time) ([]*models.BloodUnit, error) {
	return s.availableForRequestFn(ctx, hospitalID, bloodType, now)
}
func (s *unitRepoStub) Reserve(ctx context.Context, unitIDs []uint, requestID uint, now time.Time) ([]*models.BloodUnit, error) {
	return s.reserveFn(ctx, unitIDs, requestID, now)
}
func (s *unitRepoStub) Release(ctx context.Context, requestID uint) (int64, error) {
	return s.releaseFn(ctx, requestID)
}
func (s *unitRepoStub) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.expireOverdueFn(ctx, now)
}

func pendingRequest(id uint) *models.BloodRequest {
	return &models.BloodRequest{
		ID:        id,
		Name:      "Dana Rhee",
		Email:     "dana@example.com",
		BloodType: "O-",
		Location:  "Ward 4",
		Status:    models.RequestStatusPending,
	}
}

func TestSubmitRequest(t *testing.T) {
	var created *models.BloodRequest
	repo := &requestRepoStub{
		createFn: func(_ context.Context, req *models.BloodRequest) error {
			req.ID = 7
			created = req
			return nil
		},
	}
	svc := NewRequestService(repo, &unitRepoStub{})

	req, err := svc.SubmitRequest(context.Background(), SubmitRequestInput{
		Name:      "  Dana Rhee  ",
		Email:     "dana@example.com",
		BloodType: "O-",
		Location:  "Ward 4",
		Urgency:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), req.ID)
	assert.Equal(t, "Dana Rhee", created.Name)
	assert.Equal(t, models.RequestStatusPending, created.Status)
	assert.True(t, created.Urgency)
}

func TestSubmitRequestValidation(t *testing.T) {
	svc := NewRequestService(&requestRepoStub{}, &unitRepoStub{})

	cases := []struct {
		name string
		in   SubmitRequestInput
	}{
		{"missing name", SubmitRequestInput{Email: "a@b.com", BloodType: "A+", Location: "here"}},
		{"bad email", SubmitRequestInput{Name: "x", Email: "nope", BloodType: "A+", Location: "here"}},
		{"bad blood type", SubmitRequestInput{Name: "x", Email: "a@b.com", BloodType: "C+", Location: "here"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitRequest(context.Background(), tc.in)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewRequestService(&requestRepoStub{}, &unitRepoStub{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		RequestID: 1,
		Status:    models.RequestStatus("archived"),
		Hospital:  "mercy-general",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "Invalid status. Must be one of: pending, approved, declined, fulfilled, cancelled", appErr.Message)
}

func TestUpdateStatusRejectsBackwardTransition(t *testing.T) {
	req := pendingRequest(1)
	req.Status = models.RequestStatusFulfilled
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
	}
	svc := NewRequestService(repo, &unitRepoStub{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		RequestID: 1,
		Status:    models.RequestStatusPending,
		Hospital:  "mercy-general",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Message, "Cannot change status from fulfilled to pending")
}

func TestUpdateStatusSameStatusIsIdempotent(t *testing.T) {
	req := pendingRequest(1)
	req.Status = models.RequestStatusApproved
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		updateStatusFn: func(_ context.Context, _ uint, status models.RequestStatus, _, _ string) (*models.BloodRequest, error) {
			out := *req
			out.Status = status
			return &out, nil
		},
	}
	svc := NewRequestService(repo, &unitRepoStub{})

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		RequestID: 1,
		Status:    models.RequestStatusApproved,
		Hospital:  "mercy-general",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, updated.Status)
}

func TestUpdateStatusNotFound(t *testing.T) {
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return nil, nil },
	}
	svc := NewRequestService(repo, &unitRepoStub{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		RequestID: 99,
		Status:    models.RequestStatusApproved,
		Hospital:  "mercy-general",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestUpdateStatusCancelReleasesUnits(t *testing.T) {
	req := pendingRequest(3)
	req.Status = models.RequestStatusApproved
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		updateStatusFn: func(_ context.Context, _ uint, status models.RequestStatus, _, _ string) (*models.BloodRequest, error) {
			out := *req
			out.Status = status
			return &out, nil
		},
	}
	released := false
	units := &unitRepoStub{
		releaseFn: func(_ context.Context, requestID uint) (int64, error) {
			released = true
			assert.Equal(t, uint(3), requestID)
			return 2, nil
		},
	}
	svc := NewRequestService(repo, units)

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		RequestID: 3,
		Status:    models.RequestStatusCancelled,
		Hospital:  "mercy-general",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, updated.Status)
	assert.True(t, released)
}

func TestAssignDefaultsNote(t *testing.T) {
	req := pendingRequest(5)
	var gotNotes string
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		updateStatusFn: func(_ context.Context, _ uint, status models.RequestStatus, hospital, notes string) (*models.BloodRequest, error) {
			gotNotes = notes
			out := *req
			out.Status = status
			out.Hospital = &hospital
			return &out, nil
		},
	}
	svc := NewRequestService(repo, &unitRepoStub{})

	updated, err := svc.Assign(context.Background(), 5, "mercy-general", "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, updated.Status)
	assert.Equal(t, "Assigned to mercy-general", gotNotes)
}

func TestFulfillRejectsForeignUnit(t *testing.T) {
	req := pendingRequest(1)
	req.Status = models.RequestStatusApproved
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		fulfillFn: func(context.Context, uint, []uint, time.Time) error {
			t.Fatal("fulfill must not run when a unit belongs to another hospital")
			return nil
		},
	}
	units := &unitRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.BloodUnit, error) {
			owner := uint(1)
			if id == 12 {
				owner = 2
			}
			return &models.BloodUnit{ID: id, HospitalID: owner, Status: models.UnitStatusAvailable}, nil
		},
	}
	svc := NewRequestService(repo, units)

	_, err := svc.Fulfill(context.Background(), FulfillInput{
		RequestID:  1,
		UnitIDs:    []uint{11, 12},
		HospitalID: 1,
		Hospital:   "mercy-general",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Equal(t, "Some blood units do not belong to your hospital", appErr.Message)
}

func TestFulfillSuccess(t *testing.T) {
	req := pendingRequest(1)
	req.Status = models.RequestStatusApproved
	var fulfilledIDs []uint
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		fulfillFn: func(_ context.Context, _ uint, unitIDs []uint, _ time.Time) error {
			fulfilledIDs = unitIDs
			return nil
		},
		updateStatusFn: func(_ context.Context, _ uint, status models.RequestStatus, _, notes string) (*models.BloodRequest, error) {
			assert.Equal(t, "Fulfilled using hospital inventory", notes)
			out := *req
			out.Status = status
			out.Notes = notes
			return &out, nil
		},
	}
	units := &unitRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.BloodUnit, error) {
			return &models.BloodUnit{ID: id, HospitalID: 1, Status: models.UnitStatusAvailable}, nil
		},
	}
	svc := NewRequestService(repo, units)

	updated, err := svc.Fulfill(context.Background(), FulfillInput{
		RequestID:  1,
		UnitIDs:    []uint{11, 12},
		HospitalID: 1,
		Hospital:   "mercy-general",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusFulfilled, updated.Status)
	assert.Equal(t, []uint{11, 12}, fulfilledIDs)
}

func TestFulfillSurfacesRepositoryConflict(t *testing.T) {
	req := pendingRequest(1)
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		fulfillFn: func(context.Context, uint, []uint, time.Time) error {
			return errors.New("blood unit 11 is not available for fulfillment")
		},
	}
	units := &unitRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.BloodUnit, error) {
			return &models.BloodUnit{ID: id, HospitalID: 1, Status: models.UnitStatusUsed}, nil
		},
	}
	svc := NewRequestService(repo, units)

	_, err := svc.Fulfill(context.Background(), FulfillInput{
		RequestID:  1,
		UnitIDs:    []uint{11},
		HospitalID: 1,
		Hospital:   "mercy-general",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.True(t, strings.Contains(appErr.Message, "not available for fulfillment"))
}

func TestFulfillRequiresUnitIDs(t *testing.T) {
	svc := NewRequestService(&requestRepoStub{}, &unitRepoStub{})

	_, err := svc.Fulfill(context.Background(), FulfillInput{RequestID: 1, HospitalID: 1})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestReservePartialSuccess(t *testing.T) {
	req := pendingRequest(2)
	var gotNotes string
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		updateStatusFn: func(_ context.Context, _ uint, status models.RequestStatus, _, notes string) (*models.BloodRequest, error) {
			gotNotes = notes
			out := *req
			out.Status = status
			return &out, nil
		},
	}
	units := &unitRepoStub{
		reserveFn: func(_ context.Context, unitIDs []uint, requestID uint, _ time.Time) ([]*models.BloodUnit, error) {
			assert.Equal(t, uint(2), requestID)
			// Only the first of the requested units was still Available.
			return []*models.BloodUnit{{ID: unitIDs[0], Status: models.UnitStatusReserved}}, nil
		},
	}
	svc := NewRequestService(repo, units)

	reserved, err := svc.Reserve(context.Background(), ReserveInput{
		RequestID: 2,
		UnitIDs:   []uint{21, 22},
		Hospital:  "mercy-general",
	})
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, "Reserved 1 blood unit(s) for fulfillment", gotNotes)
}

func TestReserveNothingAvailable(t *testing.T) {
	req := pendingRequest(2)
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
		updateStatusFn: func(context.Context, uint, models.RequestStatus, string, string) (*models.BloodRequest, error) {
			t.Fatal("request must stay untouched when nothing was reserved")
			return nil, nil
		},
	}
	units := &unitRepoStub{
		reserveFn: func(context.Context, []uint, uint, time.Time) ([]*models.BloodUnit, error) {
			return nil, nil
		},
	}
	svc := NewRequestService(repo, units)

	_, err := svc.Reserve(context.Background(), ReserveInput{
		RequestID: 2,
		UnitIDs:   []uint{21},
		Hospital:  "mercy-general",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "No blood units could be reserved (may already be reserved or unavailable)", appErr.Message)
}

func TestReserveMissingRequest(t *testing.T) {
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return nil, nil },
	}
	svc := NewRequestService(repo, &unitRepoStub{})

	_, err := svc.Reserve(context.Background(), ReserveInput{RequestID: 44, UnitIDs: []uint{1}, Hospital: "mercy-general"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestAvailableInventoryUsesRequestBloodType(t *testing.T) {
	req := pendingRequest(9)
	repo := &requestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.BloodRequest, error) { return req, nil },
	}
	units := &unitRepoStub{
		availableForRequestFn: func(_ context.Context, hospitalID uint, bloodType string, _ time.Time) ([]*models.BloodUnit, error) {
			assert.Equal(t, uint(4), hospitalID)
			assert.Equal(t, "O-", bloodType)
			return []*models.BloodUnit{{ID: 1, BloodType: bloodType}}, nil
		},
	}
	svc := NewRequestService(repo, units)

	gotReq, gotUnits, err := svc.AvailableInventory(context.Background(), 9, 4)
	require.NoError(t, err)
	assert.Equal(t, req, gotReq)
	assert.Len(t, gotUnits, 1)
}
