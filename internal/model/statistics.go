package model

import "time"

// FuelTypeTotals aggregates the issuance ledger per fuel type.
type FuelTypeTotals struct {
	FuelTypeID    string  `json:"fuel_type_id"`
	FuelTypeName  string  `json:"fuel_type_name"`
	TotalIssued   float64 `json:"total_issued"`
	TotalReceived float64 `json:"total_received"`
	RecordCount   int64   `json:"record_count"`
}

// FuelSummaryResponse is the aggregated view of issued vs reconciled fuel
// over a time range. Variance is issued minus received across closed records
// (shrinkage/spillage).
type FuelSummaryResponse struct {
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
	TotalIssued        float64          `json:"total_issued"`
	TotalReceived      float64          `json:"total_received"`
	Variance           float64          `json:"variance"`
	OpenRecords        int64            `json:"open_records"` // Issued but not yet received
	PendingRequests    int64            `json:"pending_requests"`
	PerFuelType        []FuelTypeTotals `json:"per_fuel_type"`
}
