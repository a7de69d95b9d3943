package service

import (
	"context"
	"sync"
	"testing"

	"fuelops/internal/model"
	"fuelops/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitFuelRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("creates a pending request", func(t *testing.T) {
		resp, err := f.requests.Submit(ctx, f.staff.ID.String(), SubmitFuelRequestDTO{
			TargetType:      model.TargetTypeVehicle,
			VehicleID:       f.vehicle.ID.String(),
			FuelTypeID:      f.fuelType.ID.String(),
			RequestedAmount: 50,
			RequestNote:     "patrol route",
		})
		require.NoError(t, err)

		assert.Equal(t, model.RequestStatusPending, resp.Status)
		assert.Equal(t, f.staff.ID.String(), resp.RequesterID)
		assert.Equal(t, 50.0, resp.RequestedAmount)
		assert.Nil(t, resp.ActedAmount)
		assert.Equal(t, f.vehicle.PlateNo, resp.VehiclePlateNo)
	})

	t.Run("generator requests carry no vehicle", func(t *testing.T) {
		resp, err := f.requests.Submit(ctx, f.staff.ID.String(), SubmitFuelRequestDTO{
			TargetType:      model.TargetTypeGenerator,
			FuelTypeID:      f.fuelType.ID.String(),
			RequestedAmount: 20,
		})
		require.NoError(t, err)
		assert.Nil(t, resp.VehicleID)
	})

	t.Run("rejects a vehicle id on generator requests", func(t *testing.T) {
		_, err := f.requests.Submit(ctx, f.staff.ID.String(), SubmitFuelRequestDTO{
			TargetType:      model.TargetTypeGenerator,
			VehicleID:       f.vehicle.ID.String(),
			FuelTypeID:      f.fuelType.ID.String(),
			RequestedAmount: 20,
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("requires a vehicle for vehicle requests", func(t *testing.T) {
		_, err := f.requests.Submit(ctx, f.staff.ID.String(), SubmitFuelRequestDTO{
			TargetType:      model.TargetTypeVehicle,
			FuelTypeID:      f.fuelType.ID.String(),
			RequestedAmount: 20,
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := f.requests.Submit(ctx, f.staff.ID.String(), SubmitFuelRequestDTO{
			TargetType:      model.TargetTypeGenerator,
			FuelTypeID:      f.fuelType.ID.String(),
			RequestedAmount: 0,
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("rejects unknown fuel types", func(t *testing.T) {
		_, err := f.requests.Submit(ctx, f.staff.ID.String(), SubmitFuelRequestDTO{
			TargetType:      model.TargetTypeGenerator,
			FuelTypeID:      "3f9c86b9-20dd-4f51-9f3e-111111111111",
			RequestedAmount: 20,
		})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("requires the request capability", func(t *testing.T) {
		_, err := f.requests.Submit(ctx, f.issuer.ID.String(), SubmitFuelRequestDTO{
			TargetType:      model.TargetTypeGenerator,
			FuelTypeID:      f.fuelType.ID.String(),
			RequestedAmount: 20,
		})
		assert.ErrorIs(t, err, apperror.ErrAuthorization)
	})
}

func TestActOnFuelRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("approve grants the requested amount", func(t *testing.T) {
		submitted := f.submitRequest(t, 50)

		resp, err := f.requests.Act(ctx, submitted.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
			Action: model.RequestActionApprove,
		})
		require.NoError(t, err)

		assert.Equal(t, model.RequestStatusApproved, resp.Status)
		require.NotNil(t, resp.ActedAmount)
		assert.Equal(t, 50.0, *resp.ActedAmount)
		require.NotNil(t, resp.ActedBy)
		assert.Equal(t, f.manager.ID.String(), *resp.ActedBy)
		assert.NotNil(t, resp.ActedAt)
	})

	t.Run("approve with modification grants the acted amount", func(t *testing.T) {
		submitted := f.submitRequest(t, 50)
		granted := 30.0

		resp, err := f.requests.Act(ctx, submitted.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
			Action:      model.RequestActionApproveWithModification,
			ActedAmount: &granted,
			ActionNote:  "partial stock",
		})
		require.NoError(t, err)

		assert.Equal(t, model.RequestStatusApproved, resp.Status)
		require.NotNil(t, resp.ActedAmount)
		assert.Equal(t, 30.0, *resp.ActedAmount)
		assert.Equal(t, 50.0, resp.RequestedAmount)
	})

	t.Run("modification requires an acted amount", func(t *testing.T) {
		submitted := f.submitRequest(t, 50)

		_, err := f.requests.Act(ctx, submitted.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
			Action: model.RequestActionApproveWithModification,
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("reject requires a note", func(t *testing.T) {
		submitted := f.submitRequest(t, 50)

		_, err := f.requests.Act(ctx, submitted.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
			Action: model.RequestActionReject,
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)

		resp, err := f.requests.Act(ctx, submitted.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
			Action:     model.RequestActionReject,
			ActionNote: "no allocation left this month",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusRejected, resp.Status)
		assert.Nil(t, resp.ActedAmount)
	})

	t.Run("a decided request cannot be acted on again", func(t *testing.T) {
		approved := f.approvedRequest(t, 40)

		_, err := f.requests.Act(ctx, approved.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
			Action:     model.RequestActionReject,
			ActionNote: "changed my mind",
		})
		assert.ErrorIs(t, err, apperror.ErrInvalidState)

		// First decision is untouched
		resp, err := f.requests.Get(ctx, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusApproved, resp.Status)
	})

	t.Run("requires the manage capability", func(t *testing.T) {
		submitted := f.submitRequest(t, 10)

		_, err := f.requests.Act(ctx, submitted.ID, f.issuer.ID.String(), ActOnFuelRequestDTO{
			Action: model.RequestActionApprove,
		})
		assert.ErrorIs(t, err, apperror.ErrAuthorization)
	})

	t.Run("admin may always decide", func(t *testing.T) {
		submitted := f.submitRequest(t, 10)

		resp, err := f.requests.Act(ctx, submitted.ID, f.admin.ID.String(), ActOnFuelRequestDTO{
			Action: model.RequestActionApprove,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusApproved, resp.Status)
	})
}

func TestCancelFuelRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("requester may cancel a pending request", func(t *testing.T) {
		submitted := f.submitRequest(t, 25)

		resp, err := f.requests.Cancel(ctx, submitted.ID, f.staff.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusCancelled, resp.Status)
	})

	t.Run("only the requester may cancel", func(t *testing.T) {
		submitted := f.submitRequest(t, 25)

		_, err := f.requests.Cancel(ctx, submitted.ID, f.manager.ID.String())
		assert.ErrorIs(t, err, apperror.ErrAuthorization)
	})

	t.Run("a decided request cannot be cancelled", func(t *testing.T) {
		approved := f.approvedRequest(t, 25)

		_, err := f.requests.Cancel(ctx, approved.ID, f.staff.ID.String())
		assert.ErrorIs(t, err, apperror.ErrInvalidState)
	})

	t.Run("a lost cancel race reports the winning status", func(t *testing.T) {
		submitted := f.submitRequest(t, 25)

		var wg sync.WaitGroup
		var actErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, actErr = f.requests.Act(ctx, submitted.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
				Action: model.RequestActionApprove,
			})
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = f.requests.Cancel(ctx, submitted.ID, f.staff.ID.String())
		}()
		wg.Wait()

		if cancelErr != nil {
			assert.ErrorIs(t, cancelErr, apperror.ErrInvalidState)
			assert.NotContains(t, cancelErr.Error(), model.RequestStatusPending)
		} else {
			assert.ErrorIs(t, actErr, apperror.ErrInvalidState)
			assert.NotContains(t, actErr.Error(), model.RequestStatusPending)
		}
	})
}

func TestConcurrentDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	submitted := f.submitRequest(t, 60)

	note := "stock exhausted"
	actions := []ActOnFuelRequestDTO{
		{Action: model.RequestActionApprove},
		{Action: model.RequestActionReject, ActionNote: note},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(actions))
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action ActOnFuelRequestDTO) {
			defer wg.Done()
			_, errs[i] = f.requests.Act(ctx, submitted.ID, f.manager.ID.String(), action)
		}(i, action)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, apperror.ErrInvalidState)
			lost++
		}
	}
	assert.Equal(t, 1, won, "exactly one decision must win")
	assert.Equal(t, 1, lost)

	resp, err := f.requests.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.RequestStatusPending, resp.Status)
}

func TestListFuelRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submitRequest(t, 10)
	approved := f.approvedRequest(t, 20)

	t.Run("filters by status", func(t *testing.T) {
		results, total, err := f.requests.List(ctx, FuelRequestFilter{Status: model.RequestStatusApproved})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, approved.ID, results[0].ID)
	})

	t.Run("scopes to the requester", func(t *testing.T) {
		_, total, err := f.requests.List(ctx, FuelRequestFilter{RequesterID: f.staff.ID.String()})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)

		_, total, err = f.requests.List(ctx, FuelRequestFilter{RequesterID: f.manager.ID.String()})
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)
	})
}
