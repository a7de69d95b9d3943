package service

import (
	"context"
	"testing"
	"time"

	"fuelops/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFuelSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stats := NewStatisticsService(f.db)

	// One reconciled request issuance (50 issued, 45 received), one still
	// open quota issuance (20), and one pending request.
	approved := f.approvedRequest(t, 50)
	record, err := f.records.Issue(ctx, f.issuer.ID.String(), IssueFuelDTO{
		RecordType:    model.RecordTypeRequest,
		FuelRequestID: approved.ID,
		IssuedAmount:  50,
	})
	require.NoError(t, err)
	_, err = f.records.Receive(ctx, record.ID, f.staff.ID.String(), ReceiveFuelDTO{ReceivedAmount: 45})
	require.NoError(t, err)

	_, err = f.records.Issue(ctx, f.issuer.ID.String(), IssueFuelDTO{
		RecordType:   model.RecordTypeQuota,
		VehicleID:    f.vehicle.ID.String(),
		FuelTypeID:   f.fuelType.ID.String(),
		ReceiverID:   f.staff.ID.String(),
		IssuedAmount: 20,
	})
	require.NoError(t, err)

	f.submitRequest(t, 10)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)

	summary, err := stats.GetFuelSummary(ctx, start, end)
	require.NoError(t, err)

	assert.Equal(t, 70.0, summary.TotalIssued)
	assert.Equal(t, 45.0, summary.TotalReceived)
	assert.Equal(t, 5.0, summary.Variance, "variance counts closed records only")
	assert.EqualValues(t, 1, summary.OpenRecords)
	assert.EqualValues(t, 1, summary.PendingRequests)

	require.Len(t, summary.PerFuelType, 1)
	assert.Equal(t, f.fuelType.Name, summary.PerFuelType[0].FuelTypeName)
	assert.Equal(t, 70.0, summary.PerFuelType[0].TotalIssued)
	assert.EqualValues(t, 2, summary.PerFuelType[0].RecordCount)

	t.Run("empty range", func(t *testing.T) {
		past, err := stats.GetFuelSummary(ctx, start.Add(-48*time.Hour), start.Add(-47*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, past.TotalIssued)
		assert.Zero(t, past.OpenRecords)
	})
}
