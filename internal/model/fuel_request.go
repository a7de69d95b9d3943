package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FuelRequest status constants. PENDING is the only non-terminal status: a
// request is decided (or cancelled) exactly once and never re-enters PENDING.
const (
	RequestStatusPending   = "PENDING"
	RequestStatusApproved  = "APPROVED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCancelled = "CANCELLED"
)

// Manager actions on a pending request
const (
	RequestActionApprove                 = "APPROVE"
	RequestActionApproveWithModification = "APPROVE_WITH_MODIFICATION"
	RequestActionReject                  = "REJECT"
)

// Request target constants
const (
	TargetTypeVehicle   = "VEHICLE"
	TargetTypeGenerator = "GENERATOR"
)

// FuelRequest represents a citizen's ask for fuel, pending a manager decision.
// Rows are append-only: status, ActedBy/ActedAt/ActedAmount/ActionNote are
// written exactly once by the decision (or cancellation) and never reset.
type FuelRequest struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester       *User            `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	RequesterLevel  string           `gorm:"type:varchar(100)" json:"requester_level"` // Unit label snapshot, display only
	TargetType      string           `gorm:"type:varchar(20);not null" json:"target_type"` // VEHICLE, GENERATOR
	VehicleID       *uuid.UUID       `gorm:"type:uuid;index" json:"vehicle_id"`            // Set iff TargetType = VEHICLE
	Vehicle         *Vehicle         `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	FuelTypeID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"fuel_type_id"`
	FuelType        *FuelType        `gorm:"foreignKey:FuelTypeID" json:"fuel_type,omitempty"`
	RequestedAmount decimal.Decimal  `gorm:"type:decimal(12,3);not null" json:"requested_amount"`
	RequestNote     string           `gorm:"type:text" json:"request_note"`
	Status          string           `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ActedBy         *uuid.UUID       `gorm:"type:uuid" json:"acted_by"`
	Actor           *User            `gorm:"foreignKey:ActedBy" json:"actor,omitempty"`
	ActedAt         *time.Time       `json:"acted_at"`
	ActedAmount     *decimal.Decimal `gorm:"type:decimal(12,3)" json:"acted_amount"` // Granted liters, set on APPROVED only
	ActionNote      string           `gorm:"type:text" json:"action_note"`           // Required on REJECTED
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (r *FuelRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Decided reports whether the request has left PENDING.
func (r *FuelRequest) Decided() bool {
	return r.Status != RequestStatusPending
}
