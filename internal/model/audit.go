package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// Request lifecycle actions
	ActionSubmitFuelRequest  = "SUBMIT_FUEL_REQUEST"
	ActionApproveFuelRequest = "APPROVE_FUEL_REQUEST"
	ActionRejectFuelRequest  = "REJECT_FUEL_REQUEST"
	ActionCancelFuelRequest  = "CANCEL_FUEL_REQUEST"

	// Issuance ledger actions
	ActionIssueFuel   = "ISSUE_FUEL"
	ActionReceiveFuel = "RECEIVE_FUEL"

	// Reference data actions
	ActionCreateFuelType = "CREATE_FUEL_TYPE"
	ActionCreateVehicle  = "CREATE_VEHICLE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
