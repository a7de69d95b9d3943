package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FuelType is reference data: a kind of fuel the depot dispenses (diesel,
// petrol, kerosene...). Amounts everywhere are liters.
type FuelType struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Unit      string         `gorm:"type:varchar(20);not null;default:'liter'" json:"unit"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (f *FuelType) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
