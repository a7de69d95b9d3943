package repository

import (
	"context"

	"fuelops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FuelRequestFilter narrows request listings.
type FuelRequestFilter struct {
	Status      string     // PENDING, APPROVED, REJECTED, CANCELLED or empty for all
	RequesterID *uuid.UUID // "mine" scoping
	Page        int
	Limit       int
}

type FuelRequestRepository interface {
	Create(ctx context.Context, req *model.FuelRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error)
	List(ctx context.Context, filter FuelRequestFilter) ([]model.FuelRequest, int64, error)
	// DecideIfPending applies fields to the request only while its status is
	// still PENDING. Returns false when another decision (or cancellation) won
	// the race, so no "read status then write" window exists.
	DecideIfPending(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (bool, error)
}

type fuelRequestRepository struct {
	db *gorm.DB
}

func NewFuelRequestRepository(db *gorm.DB) FuelRequestRepository {
	return &fuelRequestRepository{db: db}
}

func (r *fuelRequestRepository) Create(ctx context.Context, req *model.FuelRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *fuelRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error) {
	var req model.FuelRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *fuelRequestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error) {
	var req model.FuelRequest
	if err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Actor").
		Preload("Vehicle").
		Preload("FuelType").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *fuelRequestRepository) List(ctx context.Context, filter FuelRequestFilter) ([]model.FuelRequest, int64, error) {
	var requests []model.FuelRequest
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.RequesterID != nil {
			q = q.Where("requester_id = ?", *filter.RequesterID)
		}
		return q
	}

	if err := apply(db.Model(&model.FuelRequest{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Preload("Requester").Preload("Actor").Preload("Vehicle").Preload("FuelType")).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *fuelRequestRepository) DecideIfPending(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.FuelRequest{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
