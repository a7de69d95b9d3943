package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FuelRecord type constants. The type decides which reference fields are
// required at issuance (see service layer validation).
const (
	RecordTypeRequest  = "REQUEST"  // Disbursement against an approved FuelRequest
	RecordTypeQuota    = "QUOTA"    // Standing allocation to a vehicle/receiver
	RecordTypeExternal = "EXTERNAL" // Untracked disbursement, e.g. to a non-system party
)

// FuelRecord is an append-only issuance ledger entry. The unique index on
// FuelRequestID enforces at most one issuance per approved request even under
// concurrent issuers (NULLs for QUOTA/EXTERNAL do not collide).
type FuelRecord struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RecordType     string           `gorm:"type:varchar(20);not null;index" json:"record_type"`
	FuelRequestID  *uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"fuel_request_id"` // Set iff RecordType = REQUEST
	FuelRequest    *FuelRequest     `gorm:"foreignKey:FuelRequestID" json:"fuel_request,omitempty"`
	VehicleID      *uuid.UUID       `gorm:"type:uuid;index" json:"vehicle_id"`
	Vehicle        *Vehicle         `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	FuelTypeID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"fuel_type_id"`
	FuelType       *FuelType        `gorm:"foreignKey:FuelTypeID" json:"fuel_type,omitempty"`
	ReceiverID     *uuid.UUID       `gorm:"type:uuid;index" json:"receiver_id"` // Designated receiver; NULL for REQUEST (requester receives) and receiverless EXTERNAL
	Receiver       *User            `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	IssuedAmount   decimal.Decimal  `gorm:"type:decimal(12,3);not null" json:"issued_amount"`
	IssuedBy       uuid.UUID        `gorm:"type:uuid;not null;index" json:"issued_by"`
	Issuer         *User            `gorm:"foreignKey:IssuedBy" json:"issuer,omitempty"`
	IssuedAt       time.Time        `gorm:"not null" json:"issued_at"`
	ReceivedAmount *decimal.Decimal `gorm:"type:decimal(12,3)" json:"received_amount"`
	ReceivedBy     *uuid.UUID       `gorm:"type:uuid" json:"received_by"`
	ReceivedAt     *time.Time       `json:"received_at"` // Set iff ReceivedAmount is set, written atomically together
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (f *FuelRecord) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Received reports whether the reconciliation step has closed this entry.
func (f *FuelRecord) Received() bool {
	return f.ReceivedAt != nil
}

// DesignatedReceiver returns the user allowed to confirm receipt, or nil when
// the record has none (a receiverless EXTERNAL entry can never be received).
// For REQUEST records the linked request must be loaded.
func (f *FuelRecord) DesignatedReceiver() *uuid.UUID {
	if f.RecordType == RecordTypeRequest {
		if f.FuelRequest == nil {
			return nil
		}
		id := f.FuelRequest.RequesterID
		return &id
	}
	return f.ReceiverID
}
