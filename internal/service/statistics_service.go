package service

import (
	"context"
	"time"

	"fuelops/internal/model"

	"gorm.io/gorm"
)

type StatisticsService interface {
	GetFuelSummary(ctx context.Context, startDate, endDate time.Time) (model.FuelSummaryResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetFuelSummary aggregates the issuance ledger over a time range: issued vs
// reconciled liters, per-fuel-type breakdown, and open work counters.
func (s *statisticsService) GetFuelSummary(ctx context.Context, startDate, endDate time.Time) (model.FuelSummaryResponse, error) {
	var response model.FuelSummaryResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	var totals struct {
		TotalIssued   float64
		TotalReceived float64
	}
	s.db.WithContext(ctx).Table("fuel_records").
		Select("COALESCE(SUM(issued_amount), 0) as total_issued, COALESCE(SUM(received_amount), 0) as total_received").
		Where("issued_at >= ? AND issued_at <= ?", startDate, endDate).
		Scan(&totals)
	response.TotalIssued = totals.TotalIssued
	response.TotalReceived = totals.TotalReceived

	// Variance only counts closed records: open ones have not shrunk yet
	var variance struct {
		Value float64
	}
	s.db.WithContext(ctx).Table("fuel_records").
		Select("COALESCE(SUM(issued_amount - received_amount), 0) as value").
		Where("received_at IS NOT NULL AND issued_at >= ? AND issued_at <= ?", startDate, endDate).
		Scan(&variance)
	response.Variance = variance.Value

	s.db.WithContext(ctx).Model(&model.FuelRecord{}).
		Where("received_at IS NULL AND issued_at >= ? AND issued_at <= ?", startDate, endDate).
		Count(&response.OpenRecords)

	s.db.WithContext(ctx).Model(&model.FuelRequest{}).
		Where("status = ?", model.RequestStatusPending).
		Count(&response.PendingRequests)

	var perType []model.FuelTypeTotals
	s.db.WithContext(ctx).Table("fuel_records").
		Select("fuel_types.id as fuel_type_id, fuel_types.name as fuel_type_name, COALESCE(SUM(fuel_records.issued_amount), 0) as total_issued, COALESCE(SUM(fuel_records.received_amount), 0) as total_received, COUNT(fuel_records.id) as record_count").
		Joins("JOIN fuel_types ON fuel_types.id = fuel_records.fuel_type_id").
		Where("fuel_records.issued_at >= ? AND fuel_records.issued_at <= ?", startDate, endDate).
		Group("fuel_types.id, fuel_types.name").
		Order("total_issued DESC").
		Scan(&perType)
	response.PerFuelType = perType

	return response, nil
}
