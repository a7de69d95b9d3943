package repository

import (
	"context"

	"fuelops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FuelRecordFilter narrows issuance ledger listings.
type FuelRecordFilter struct {
	RecordType string     // REQUEST, QUOTA, EXTERNAL or empty for all
	ReceiverID *uuid.UUID // "mine" scoping: records the caller is designated to receive
	Open       bool       // Only records not yet received
	Page       int
	Limit      int
}

type FuelRecordRepository interface {
	Create(ctx context.Context, rec *model.FuelRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FuelRecord, error)
	List(ctx context.Context, filter FuelRecordFilter) ([]model.FuelRecord, int64, error)
	// ExistsForRequest reports whether any ledger entry already references the
	// given fuel request. Combined with the unique index on fuel_request_id it
	// makes REQUEST-typed issuance check-and-insert atomic inside a transaction.
	ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error)
	// MarkReceived applies fields to the record only while received_at is still
	// NULL. Returns false when the record was already reconciled.
	MarkReceived(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (bool, error)
}

type fuelRecordRepository struct {
	db *gorm.DB
}

func NewFuelRecordRepository(db *gorm.DB) FuelRecordRepository {
	return &fuelRecordRepository{db: db}
}

func (r *fuelRecordRepository) Create(ctx context.Context, rec *model.FuelRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *fuelRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FuelRecord, error) {
	var rec model.FuelRecord
	if err := GetDB(ctx, r.db).
		Preload("FuelRequest").
		Preload("FuelRequest.Requester").
		Preload("FuelType").
		Preload("Vehicle").
		Preload("Receiver").
		Preload("Issuer").
		First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *fuelRecordRepository) List(ctx context.Context, filter FuelRecordFilter) ([]model.FuelRecord, int64, error) {
	var records []model.FuelRecord
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.RecordType != "" {
			q = q.Where("record_type = ?", filter.RecordType)
		}
		if filter.ReceiverID != nil {
			// REQUEST records designate the linked request's requester
			q = q.Where(
				"receiver_id = ? OR fuel_request_id IN (SELECT id FROM fuel_requests WHERE requester_id = ?)",
				*filter.ReceiverID, *filter.ReceiverID,
			)
		}
		if filter.Open {
			q = q.Where("received_at IS NULL")
		}
		return q
	}

	if err := apply(db.Model(&model.FuelRecord{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Preload("FuelRequest").Preload("FuelRequest.Requester").Preload("FuelType").Preload("Vehicle").Preload("Receiver").Preload("Issuer")).
		Order("issued_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *fuelRecordRepository) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).
		Model(&model.FuelRecord{}).
		Where("fuel_request_id = ?", requestID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *fuelRecordRepository) MarkReceived(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.FuelRecord{}).
		Where("id = ? AND received_at IS NULL", id).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
