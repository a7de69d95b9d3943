package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is reference data for fleet vehicles that fuel can be requested for
// or issued to under a standing quota.
type Vehicle struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PlateNo    string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"plate_no"`
	Model      string         `gorm:"type:varchar(100)" json:"model"`
	FuelTypeID *uuid.UUID     `gorm:"type:uuid;index" json:"fuel_type_id"` // Preferred fuel, optional
	FuelType   *FuelType      `gorm:"foreignKey:FuelTypeID" json:"fuel_type,omitempty"`
	Unit       string         `gorm:"type:varchar(100)" json:"unit"` // Organizational unit the vehicle belongs to
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
