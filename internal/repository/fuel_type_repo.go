package repository

import (
	"context"

	"fuelops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FuelTypeRepository interface {
	Create(ctx context.Context, fuelType *model.FuelType) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FuelType, error)
	ListActive(ctx context.Context) ([]model.FuelType, error)
}

type fuelTypeRepository struct {
	db *gorm.DB
}

func NewFuelTypeRepository(db *gorm.DB) FuelTypeRepository {
	return &fuelTypeRepository{db: db}
}

func (r *fuelTypeRepository) Create(ctx context.Context, fuelType *model.FuelType) error {
	return GetDB(ctx, r.db).Create(fuelType).Error
}

func (r *fuelTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FuelType, error) {
	var fuelType model.FuelType
	if err := GetDB(ctx, r.db).First(&fuelType, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &fuelType, nil
}

func (r *fuelTypeRepository) ListActive(ctx context.Context) ([]model.FuelType, error) {
	var fuelTypes []model.FuelType
	if err := GetDB(ctx, r.db).Where("is_active = ?", true).Order("name ASC").Find(&fuelTypes).Error; err != nil {
		return nil, err
	}
	return fuelTypes, nil
}
