package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fuelops/internal/model"
	"fuelops/internal/repository"
	ws "fuelops/internal/websocket"
	"fuelops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// IssueFuelDTO is the wire shape for all three record types. Which fields are
// required (and which are rejected) depends on RecordType; the service
// branches into per-type validation rather than accepting the superset.
type IssueFuelDTO struct {
	RecordType    string  `json:"record_type" binding:"required,oneof=REQUEST QUOTA EXTERNAL"`
	FuelRequestID string  `json:"fuel_request_id"`
	VehicleID     string  `json:"vehicle_id"`
	FuelTypeID    string  `json:"fuel_type_id"`
	ReceiverID    string  `json:"receiver_id"`
	IssuedAmount  float64 `json:"issued_amount" binding:"required"`
}

type ReceiveFuelDTO struct {
	ReceivedAmount float64 `json:"received_amount" binding:"required"`
}

type FuelRecordListFilter struct {
	RecordType string
	ReceiverID string // "mine" scoping
	Open       bool
	Page       int
	Limit      int
}

type FuelRecordResponse struct {
	ID                 string   `json:"id"`
	RecordType         string   `json:"record_type"`
	FuelRequestID      *string  `json:"fuel_request_id,omitempty"`
	VehicleID          *string  `json:"vehicle_id,omitempty"`
	VehiclePlateNo     string   `json:"vehicle_plate_no,omitempty"`
	FuelTypeID         string   `json:"fuel_type_id"`
	FuelTypeName       string   `json:"fuel_type_name,omitempty"`
	ReceiverID         *string  `json:"receiver_id,omitempty"`
	ReceiverName       string   `json:"receiver_name,omitempty"`
	IssuedAmount       float64  `json:"issued_amount"`
	IssuedBy           string   `json:"issued_by"`
	IssuerName         string   `json:"issuer_name,omitempty"`
	IssuedAt           string   `json:"issued_at"`
	ReceivedAmount     *float64 `json:"received_amount,omitempty"`
	ReceivedBy         *string  `json:"received_by,omitempty"`
	ReceivedAt         *string  `json:"received_at,omitempty"`
	OverApprovedAmount *float64 `json:"over_approved_amount,omitempty"` // Issued beyond the approved grant; informational, not blocked
}

// --- Interface ---

// FuelRecordService owns the issuance ledger and its reconciliation step.
// Records are append-only: Issue writes a row once, Receive closes it once.
type FuelRecordService interface {
	Issue(ctx context.Context, issuerID string, req IssueFuelDTO) (FuelRecordResponse, error)
	Receive(ctx context.Context, recordID, receiverID string, req ReceiveFuelDTO) (FuelRecordResponse, error)
	Get(ctx context.Context, recordID string) (FuelRecordResponse, error)
	List(ctx context.Context, filter FuelRecordListFilter) ([]FuelRecordResponse, int64, error)
}

type fuelRecordService struct {
	recordRepo   repository.FuelRecordRepository
	requestRepo  repository.FuelRequestRepository
	vehicleRepo  repository.VehicleRepository
	fuelTypeRepo repository.FuelTypeRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	gate         PermissionGate
	hub          *ws.Hub
}

func NewFuelRecordService(
	recordRepo repository.FuelRecordRepository,
	requestRepo repository.FuelRequestRepository,
	vehicleRepo repository.VehicleRepository,
	fuelTypeRepo repository.FuelTypeRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	gate PermissionGate,
	hub *ws.Hub,
) FuelRecordService {
	return &fuelRecordService{
		recordRepo:   recordRepo,
		requestRepo:  requestRepo,
		vehicleRepo:  vehicleRepo,
		fuelTypeRepo: fuelTypeRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		gate:         gate,
		hub:          hub,
	}
}

// --- Issue ---

func (s *fuelRecordService) Issue(ctx context.Context, issuerID string, req IssueFuelDTO) (FuelRecordResponse, error) {
	actorID, err := uuid.Parse(issuerID)
	if err != nil {
		return FuelRecordResponse{}, apperror.Validation("invalid issuer id: %v", err)
	}

	allowed, err := s.gate.HasCapability(ctx, actorID, model.PermFuelIssue)
	if err != nil {
		return FuelRecordResponse{}, err
	}
	if !allowed {
		return FuelRecordResponse{}, apperror.Authorization("missing capability %q", model.PermFuelIssue)
	}

	amount := decimal.NewFromFloat(req.IssuedAmount)
	if !amount.IsPositive() {
		return FuelRecordResponse{}, apperror.Validation("issued amount must be greater than zero")
	}

	record := model.FuelRecord{
		RecordType:   req.RecordType,
		IssuedAmount: amount,
		IssuedBy:     actorID,
		IssuedAt:     time.Now(),
	}
	var overApproved *decimal.Decimal

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		switch req.RecordType {
		case model.RecordTypeRequest:
			over, buildErr := s.buildRequestIssue(txCtx, &record, req)
			if buildErr != nil {
				return buildErr
			}
			overApproved = over
		case model.RecordTypeQuota:
			if buildErr := s.buildQuotaIssue(txCtx, &record, req); buildErr != nil {
				return buildErr
			}
		case model.RecordTypeExternal:
			if buildErr := s.buildExternalIssue(txCtx, &record, req); buildErr != nil {
				return buildErr
			}
		default:
			return apperror.Validation("unknown record type %q", req.RecordType)
		}

		if createErr := s.recordRepo.Create(txCtx, &record); createErr != nil {
			// A concurrent issuer may slip past the pre-check; the unique
			// index on fuel_request_id is the authoritative guard
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("fuel request %s has already been issued", req.FuelRequestID)
			}
			return createErr
		}

		return s.audit(txCtx, &actorID, model.ActionIssueFuel, record.ID.String(), map[string]interface{}{
			"record_type":   req.RecordType,
			"issued_amount": req.IssuedAmount,
		})
	})
	if err != nil {
		return FuelRecordResponse{}, err
	}

	s.broadcast("fuel_record.issued", map[string]interface{}{
		"record_id":     record.ID.String(),
		"record_type":   record.RecordType,
		"over_approved": overApproved != nil,
	})

	resp, err := s.Get(ctx, record.ID.String())
	if err != nil {
		return FuelRecordResponse{}, err
	}
	if overApproved != nil {
		v, _ := overApproved.Float64()
		resp.OverApprovedAmount = &v
	}
	return resp, nil
}

// buildRequestIssue validates a REQUEST-typed issuance and fills the record
// from the linked approved request. Returns the amount issued beyond the
// approved grant, if any.
func (s *fuelRecordService) buildRequestIssue(ctx context.Context, record *model.FuelRecord, req IssueFuelDTO) (*decimal.Decimal, error) {
	if req.FuelRequestID == "" {
		return nil, apperror.Validation("fuel request id is required for REQUEST records")
	}
	// Fuel type, vehicle and receiver come from the request, never the caller
	if req.FuelTypeID != "" || req.VehicleID != "" || req.ReceiverID != "" {
		return nil, apperror.Validation("fuel type, vehicle and receiver are derived from the request and must not be set")
	}

	requestID, err := uuid.Parse(req.FuelRequestID)
	if err != nil {
		return nil, apperror.Validation("invalid fuel request id: %v", err)
	}

	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, apperror.NotFound("fuel request %s not found", req.FuelRequestID)
	}
	if request.Status != model.RequestStatusApproved {
		return nil, apperror.InvalidState("fuel request is %s, only APPROVED requests can be issued", request.Status)
	}

	issued, err := s.recordRepo.ExistsForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if issued {
		return nil, apperror.Conflict("fuel request %s has already been issued", req.FuelRequestID)
	}

	record.FuelRequestID = &requestID
	record.FuelTypeID = request.FuelTypeID
	record.VehicleID = request.VehicleID
	// Receiver stays NULL: the request's requester is the designated receiver

	if request.ActedAmount != nil && record.IssuedAmount.GreaterThan(*request.ActedAmount) {
		over := record.IssuedAmount.Sub(*request.ActedAmount)
		return &over, nil
	}
	return nil, nil
}

func (s *fuelRecordService) buildQuotaIssue(ctx context.Context, record *model.FuelRecord, req IssueFuelDTO) error {
	if req.FuelRequestID != "" {
		return apperror.Validation("fuel request id must not be set for QUOTA records")
	}
	if req.VehicleID == "" || req.FuelTypeID == "" || req.ReceiverID == "" {
		return apperror.Validation("vehicle, fuel type and receiver are required for QUOTA records")
	}

	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return apperror.Validation("invalid vehicle id: %v", err)
	}
	if _, err := s.vehicleRepo.FindByID(ctx, vehicleID); err != nil {
		return apperror.NotFound("vehicle %s not found", req.VehicleID)
	}

	fuelTypeID, receiverID, err := s.resolveFuelTypeAndReceiver(ctx, req.FuelTypeID, req.ReceiverID)
	if err != nil {
		return err
	}

	record.VehicleID = &vehicleID
	record.FuelTypeID = fuelTypeID
	record.ReceiverID = receiverID
	return nil
}

func (s *fuelRecordService) buildExternalIssue(ctx context.Context, record *model.FuelRecord, req IssueFuelDTO) error {
	if req.FuelRequestID != "" {
		return apperror.Validation("fuel request id must not be set for EXTERNAL records")
	}
	if req.FuelTypeID == "" {
		return apperror.Validation("fuel type is required for EXTERNAL records")
	}

	receiverRef := req.ReceiverID
	fuelTypeID, receiverID, err := s.resolveFuelTypeAndReceiver(ctx, req.FuelTypeID, receiverRef)
	if err != nil {
		return err
	}

	if req.VehicleID != "" {
		vehicleID, parseErr := uuid.Parse(req.VehicleID)
		if parseErr != nil {
			return apperror.Validation("invalid vehicle id: %v", parseErr)
		}
		if _, err := s.vehicleRepo.FindByID(ctx, vehicleID); err != nil {
			return apperror.NotFound("vehicle %s not found", req.VehicleID)
		}
		record.VehicleID = &vehicleID
	}

	record.FuelTypeID = fuelTypeID
	record.ReceiverID = receiverID
	return nil
}

// resolveFuelTypeAndReceiver parses and resolves the fuel type (required) and
// receiver (optional when empty) references.
func (s *fuelRecordService) resolveFuelTypeAndReceiver(ctx context.Context, fuelTypeRef, receiverRef string) (uuid.UUID, *uuid.UUID, error) {
	fuelTypeID, err := uuid.Parse(fuelTypeRef)
	if err != nil {
		return uuid.Nil, nil, apperror.Validation("invalid fuel type id: %v", err)
	}
	if _, err := s.fuelTypeRepo.FindByID(ctx, fuelTypeID); err != nil {
		return uuid.Nil, nil, apperror.NotFound("fuel type %s not found", fuelTypeRef)
	}

	if receiverRef == "" {
		return fuelTypeID, nil, nil
	}

	receiverID, err := uuid.Parse(receiverRef)
	if err != nil {
		return uuid.Nil, nil, apperror.Validation("invalid receiver id: %v", err)
	}
	if _, err := s.userRepo.GetByID(ctx, receiverID.String()); err != nil {
		return uuid.Nil, nil, apperror.NotFound("receiver %s not found", receiverRef)
	}
	return fuelTypeID, &receiverID, nil
}

// --- Receive ---

func (s *fuelRecordService) Receive(ctx context.Context, recordID, receiverID string, req ReceiveFuelDTO) (FuelRecordResponse, error) {
	id, err := uuid.Parse(recordID)
	if err != nil {
		return FuelRecordResponse{}, apperror.Validation("invalid record id: %v", err)
	}
	actorID, err := uuid.Parse(receiverID)
	if err != nil {
		return FuelRecordResponse{}, apperror.Validation("invalid receiver id: %v", err)
	}

	amount := decimal.NewFromFloat(req.ReceivedAmount)
	if !amount.IsPositive() {
		return FuelRecordResponse{}, apperror.Validation("received amount must be greater than zero")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record, findErr := s.recordRepo.FindByID(txCtx, id)
		if findErr != nil {
			return apperror.NotFound("fuel record %s not found", recordID)
		}

		designated := record.DesignatedReceiver()
		if designated == nil {
			return apperror.InvalidState("fuel record has no designated receiver and cannot be received")
		}
		if *designated != actorID {
			return apperror.Authorization("only the designated receiver may confirm receipt")
		}

		if amount.GreaterThan(record.IssuedAmount) {
			issued, _ := record.IssuedAmount.Float64()
			return apperror.Validation("received amount %.3f exceeds issued amount %.3f", req.ReceivedAmount, issued)
		}

		// Written together: received_amount, received_by and received_at are
		// one atomic close of the ledger entry
		received, markErr := s.recordRepo.MarkReceived(txCtx, id, map[string]interface{}{
			"received_amount": amount,
			"received_by":     actorID,
			"received_at":     time.Now(),
		})
		if markErr != nil {
			return markErr
		}
		if !received {
			return apperror.InvalidState("fuel record has already been received")
		}

		return s.audit(txCtx, &actorID, model.ActionReceiveFuel, id.String(), map[string]interface{}{
			"received_amount": req.ReceivedAmount,
		})
	})
	if err != nil {
		return FuelRecordResponse{}, err
	}

	s.broadcast("fuel_record.received", map[string]interface{}{
		"record_id":   id.String(),
		"received_by": actorID.String(),
	})

	return s.Get(ctx, recordID)
}

// --- Queries ---

func (s *fuelRecordService) Get(ctx context.Context, recordID string) (FuelRecordResponse, error) {
	id, err := uuid.Parse(recordID)
	if err != nil {
		return FuelRecordResponse{}, apperror.Validation("invalid record id: %v", err)
	}
	record, err := s.recordRepo.FindByID(ctx, id)
	if err != nil {
		return FuelRecordResponse{}, apperror.NotFound("fuel record %s not found", recordID)
	}
	return toFuelRecordResponse(*record), nil
}

func (s *fuelRecordService) List(ctx context.Context, filter FuelRecordListFilter) ([]FuelRecordResponse, int64, error) {
	repoFilter := repository.FuelRecordFilter{
		RecordType: filter.RecordType,
		Open:       filter.Open,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.ReceiverID != "" {
		parsed, err := uuid.Parse(filter.ReceiverID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid receiver id: %v", err)
		}
		repoFilter.ReceiverID = &parsed
	}
	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}

	records, total, err := s.recordRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	result := make([]FuelRecordResponse, 0, len(records))
	for _, r := range records {
		result = append(result, toFuelRecordResponse(r))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *fuelRecordService) audit(ctx context.Context, userID *uuid.UUID, action, entityID string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:   userID,
		Action:   action,
		EntityID: entityID,
		Details:  string(payload),
	})
}

func (s *fuelRecordService) broadcast(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(event, data)
}

func toFuelRecordResponse(r model.FuelRecord) FuelRecordResponse {
	issued, _ := r.IssuedAmount.Float64()
	resp := FuelRecordResponse{
		ID:           r.ID.String(),
		RecordType:   r.RecordType,
		FuelTypeID:   r.FuelTypeID.String(),
		IssuedAmount: issued,
		IssuedBy:     r.IssuedBy.String(),
		IssuedAt:     r.IssuedAt.Format(time.RFC3339),
	}

	if r.FuelRequestID != nil {
		v := r.FuelRequestID.String()
		resp.FuelRequestID = &v
	}
	if r.VehicleID != nil {
		v := r.VehicleID.String()
		resp.VehicleID = &v
	}
	if r.Vehicle != nil {
		resp.VehiclePlateNo = r.Vehicle.PlateNo
	}
	if r.FuelType != nil {
		resp.FuelTypeName = r.FuelType.Name
	}
	if r.ReceiverID != nil {
		v := r.ReceiverID.String()
		resp.ReceiverID = &v
	}
	if r.Receiver != nil {
		resp.ReceiverName = r.Receiver.Username
	} else if r.FuelRequest != nil && r.FuelRequest.Requester != nil {
		resp.ReceiverName = r.FuelRequest.Requester.Username
	}
	if r.Issuer != nil {
		resp.IssuerName = r.Issuer.Username
	}
	if r.ReceivedAmount != nil {
		v, _ := r.ReceivedAmount.Float64()
		resp.ReceivedAmount = &v
	}
	if r.ReceivedBy != nil {
		v := r.ReceivedBy.String()
		resp.ReceivedBy = &v
	}
	if r.ReceivedAt != nil {
		v := r.ReceivedAt.Format(time.RFC3339)
		resp.ReceivedAt = &v
	}

	return resp
}
