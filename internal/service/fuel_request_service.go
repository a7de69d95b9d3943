package service

import (
	"context"
	"encoding/json"
	"time"

	"fuelops/internal/model"
	"fuelops/internal/repository"
	ws "fuelops/internal/websocket"
	"fuelops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SubmitFuelRequestDTO struct {
	TargetType      string  `json:"target_type" binding:"required,oneof=VEHICLE GENERATOR"`
	VehicleID       string  `json:"vehicle_id"`
	FuelTypeID      string  `json:"fuel_type_id" binding:"required"`
	RequestedAmount float64 `json:"requested_amount" binding:"required"`
	RequestNote     string  `json:"request_note"`
}

type ActOnFuelRequestDTO struct {
	Action      string   `json:"action" binding:"required,oneof=APPROVE APPROVE_WITH_MODIFICATION REJECT"`
	ActedAmount *float64 `json:"acted_amount"`
	ActionNote  string   `json:"action_note"`
}

type FuelRequestFilter struct {
	Status      string
	RequesterID string // "mine" scoping
	Page        int
	Limit       int
}

type FuelRequestResponse struct {
	ID              string  `json:"id"`
	RequesterID     string  `json:"requester_id"`
	RequesterName   string  `json:"requester_name"`
	RequesterLevel  string  `json:"requester_level"`
	TargetType      string  `json:"target_type"`
	VehicleID       *string `json:"vehicle_id,omitempty"`
	VehiclePlateNo  string  `json:"vehicle_plate_no,omitempty"`
	FuelTypeID      string  `json:"fuel_type_id"`
	FuelTypeName    string  `json:"fuel_type_name,omitempty"`
	RequestedAmount float64 `json:"requested_amount"`
	RequestNote     string  `json:"request_note,omitempty"`
	Status          string  `json:"status"`
	ActedBy         *string `json:"acted_by,omitempty"`
	ActorName       string  `json:"actor_name,omitempty"`
	ActedAt         *string `json:"acted_at,omitempty"`
	ActedAmount     *float64 `json:"acted_amount,omitempty"`
	ActionNote      string  `json:"action_note,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// --- Interface ---

// FuelRequestService owns the request approval state machine:
// PENDING -> APPROVED | REJECTED | CANCELLED, one transition, ever.
type FuelRequestService interface {
	Submit(ctx context.Context, requesterID string, req SubmitFuelRequestDTO) (FuelRequestResponse, error)
	Act(ctx context.Context, requestID, managerID string, req ActOnFuelRequestDTO) (FuelRequestResponse, error)
	Cancel(ctx context.Context, requestID, requesterID string) (FuelRequestResponse, error)
	Get(ctx context.Context, requestID string) (FuelRequestResponse, error)
	List(ctx context.Context, filter FuelRequestFilter) ([]FuelRequestResponse, int64, error)
}

type fuelRequestService struct {
	requestRepo  repository.FuelRequestRepository
	vehicleRepo  repository.VehicleRepository
	fuelTypeRepo repository.FuelTypeRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	gate         PermissionGate
	hub          *ws.Hub
}

func NewFuelRequestService(
	requestRepo repository.FuelRequestRepository,
	vehicleRepo repository.VehicleRepository,
	fuelTypeRepo repository.FuelTypeRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	gate PermissionGate,
	hub *ws.Hub,
) FuelRequestService {
	return &fuelRequestService{
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

// --- Implementation ---

func (s *fuelRequestService) Submit(ctx context.Context, requesterID string, req SubmitFuelRequestDTO) (FuelRequestResponse, error) {
	actorID, err := uuid.Parse(requesterID)
	if err != nil {
		return FuelRequestResponse{}, apperror.Validation("invalid requester id: %v", err)
	}

	if err := s.requireCapability(ctx, actorID, model.PermFuelRequest); err != nil {
		return FuelRequestResponse{}, err
	}

	amount := decimal.NewFromFloat(req.RequestedAmount)
	if !amount.IsPositive() {
		return FuelRequestResponse{}, apperror.Validation("requested amount must be greater than zero")
	}

	requester, err := s.userRepo.GetByID(ctx, actorID.String())
	if err != nil {
		return FuelRequestResponse{}, apperror.NotFound("requester not found")
	}

	fuelTypeID, err := uuid.Parse(req.FuelTypeID)
	if err != nil {
		return FuelRequestResponse{}, apperror.Validation("invalid fuel type id: %v", err)
	}
	if _, err := s.fuelTypeRepo.FindByID(ctx, fuelTypeID); err != nil {
		return FuelRequestResponse{}, apperror.NotFound("fuel type %s not found", req.FuelTypeID)
	}

	var vehicleID *uuid.UUID
	switch req.TargetType {
	case model.TargetTypeVehicle:
		if req.VehicleID == "" {
			return FuelRequestResponse{}, apperror.Validation("vehicle is required for VEHICLE requests")
		}
		parsed, parseErr := uuid.Parse(req.VehicleID)
		if parseErr != nil {
			return FuelRequestResponse{}, apperror.Validation("invalid vehicle id: %v", parseErr)
		}
		if _, err := s.vehicleRepo.FindByID(ctx, parsed); err != nil {
			return FuelRequestResponse{}, apperror.NotFound("vehicle %s not found", req.VehicleID)
		}
		vehicleID = &parsed
	case model.TargetTypeGenerator:
		if req.VehicleID != "" {
			return FuelRequestResponse{}, apperror.Validation("vehicle must not be set for GENERATOR requests")
		}
	default:
		return FuelRequestResponse{}, apperror.Validation("unknown target type %q", req.TargetType)
	}

	request := model.FuelRequest{
		RequesterID:     actorID,
		RequesterLevel:  requester.Unit,
		TargetType:      req.TargetType,
		VehicleID:       vehicleID,
		FuelTypeID:      fuelTypeID,
		RequestedAmount: amount,
		RequestNote:     req.RequestNote,
		Status:          model.RequestStatusPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requestRepo.Create(txCtx, &request); createErr != nil {
			return createErr
		}
		return s.audit(txCtx, &actorID, model.ActionSubmitFuelRequest, request.ID.String(), map[string]interface{}{
			"target_type":      req.TargetType,
			"fuel_type_id":     req.FuelTypeID,
			"requested_amount": req.RequestedAmount,
		})
	})
	if err != nil {
		return FuelRequestResponse{}, err
	}

	s.broadcast("fuel_request.submitted", map[string]interface{}{
		"request_id":   request.ID.String(),
		"requester_id": actorID.String(),
	})

	return s.Get(ctx, request.ID.String())
}

func (s *fuelRequestService) Act(ctx context.Context, requestID, managerID string, req ActOnFuelRequestDTO) (FuelRequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return FuelRequestResponse{}, apperror.Validation("invalid request id: %v", err)
	}
	actorID, err := uuid.Parse(managerID)
	if err != nil {
		return FuelRequestResponse{}, apperror.Validation("invalid manager id: %v", err)
	}

	if err := s.requireCapability(ctx, actorID, model.PermFuelManage); err != nil {
		return FuelRequestResponse{}, err
	}

	now := time.Now()
	fields := map[string]interface{}{
		"acted_by":    actorID,
		"acted_at":    now,
		"action_note": req.ActionNote,
	}

	var auditAction string
	switch req.Action {
	case model.RequestActionApprove:
		// Full grant: acted amount mirrors the requested amount
		fields["status"] = model.RequestStatusApproved
		auditAction = model.ActionApproveFuelRequest
	case model.RequestActionApproveWithModification:
		if req.ActedAmount == nil {
			return FuelRequestResponse{}, apperror.Validation("acted amount is required for %s", req.Action)
		}
		granted := decimal.NewFromFloat(*req.ActedAmount)
		if !granted.IsPositive() {
			return FuelRequestResponse{}, apperror.Validation("acted amount must be greater than zero")
		}
		// The granted amount may exceed the request; policy is the manager's
		fields["status"] = model.RequestStatusApproved
		fields["acted_amount"] = granted
		auditAction = model.ActionApproveFuelRequest
	case model.RequestActionReject:
		if req.ActionNote == "" {
			return FuelRequestResponse{}, apperror.Validation("a note explaining the rejection is required")
		}
		fields["status"] = model.RequestStatusRejected
		auditAction = model.ActionRejectFuelRequest
	default:
		return FuelRequestResponse{}, apperror.Validation("unknown action %q", req.Action)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.Action == model.RequestActionApprove {
			// Copy the requested amount inside the transaction so the grant
			// matches what the requester asked for at decision time
			current, findErr := s.requestRepo.FindByID(txCtx, id)
			if findErr != nil {
				return apperror.NotFound("fuel request %s not found", requestID)
			}
			fields["acted_amount"] = current.RequestedAmount
		}

		decided, decideErr := s.requestRepo.DecideIfPending(txCtx, id, fields)
		if decideErr != nil {
			return decideErr
		}
		if !decided {
			current, findErr := s.requestRepo.FindByID(txCtx, id)
			if findErr != nil {
				return apperror.NotFound("fuel request %s not found", requestID)
			}
			return apperror.InvalidState("fuel request is already %s", current.Status)
		}

		return s.audit(txCtx, &actorID, auditAction, id.String(), map[string]interface{}{
			"action":      req.Action,
			"action_note": req.ActionNote,
		})
	})
	if err != nil {
		return FuelRequestResponse{}, err
	}

	s.broadcast("fuel_request.decided", map[string]interface{}{
		"request_id": id.String(),
		"action":     req.Action,
		"acted_by":   actorID.String(),
	})

	return s.Get(ctx, requestID)
}

func (s *fuelRequestService) Cancel(ctx context.Context, requestID, requesterID string) (FuelRequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return FuelRequestResponse{}, apperror.Validation("invalid request id: %v", err)
	}
	actorID, err := uuid.Parse(requesterID)
	if err != nil {
		return FuelRequestResponse{}, apperror.Validation("invalid requester id: %v", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByID(txCtx, id)
		if findErr != nil {
			return apperror.NotFound("fuel request %s not found", requestID)
		}
		if request.RequesterID != actorID {
			return apperror.Authorization("only the original requester may cancel a request")
		}

		cancelled, cancelErr := s.requestRepo.DecideIfPending(txCtx, id, map[string]interface{}{
			"status":   model.RequestStatusCancelled,
			"acted_at": time.Now(),
		})
		if cancelErr != nil {
			return cancelErr
		}
		if !cancelled {
			current, findErr := s.requestRepo.FindByID(txCtx, id)
			if findErr != nil {
				return apperror.NotFound("fuel request %s not found", requestID)
			}
			return apperror.InvalidState("fuel request is already %s", current.Status)
		}

		return s.audit(txCtx, &actorID, model.ActionCancelFuelRequest, id.String(), nil)
	})
	if err != nil {
		return FuelRequestResponse{}, err
	}

	return s.Get(ctx, requestID)
}

func (s *fuelRequestService) Get(ctx context.Context, requestID string) (FuelRequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return FuelRequestResponse{}, apperror.Validation("invalid request id: %v", err)
	}
	request, err := s.requestRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return FuelRequestResponse{}, apperror.NotFound("fuel request %s not found", requestID)
	}
	return toFuelRequestResponse(*request), nil
}

func (s *fuelRequestService) List(ctx context.Context, filter FuelRequestFilter) ([]FuelRequestResponse, int64, error) {
	repoFilter := repository.FuelRequestFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.RequesterID != "" {
		parsed, err := uuid.Parse(filter.RequesterID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid requester id: %v", err)
		}
		repoFilter.RequesterID = &parsed
	}
	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}

	requests, total, err := s.requestRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	result := make([]FuelRequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toFuelRequestResponse(r))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *fuelRequestService) requireCapability(ctx context.Context, actorID uuid.UUID, code string) error {
	allowed, err := s.gate.HasCapability(ctx, actorID, code)
	if err != nil {
		return err
	}
	if !allowed {
		return apperror.Authorization("missing capability %q", code)
	}
	return nil
}

func (s *fuelRequestService) audit(ctx context.Context, userID *uuid.UUID, action, entityID string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:   userID,
		Action:   action,
		EntityID: entityID,
		Details:  string(payload),
	})
}

func (s *fuelRequestService) broadcast(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(event, data)
}

func toFuelRequestResponse(r model.FuelRequest) FuelRequestResponse {
	requested, _ := r.RequestedAmount.Float64()
	resp := FuelRequestResponse{
		ID:              r.ID.String(),
		RequesterID:     r.RequesterID.String(),
		RequesterLevel:  r.RequesterLevel,
		TargetType:      r.TargetType,
		FuelTypeID:      r.FuelTypeID.String(),
		RequestedAmount: requested,
		RequestNote:     r.RequestNote,
		Status:          r.Status,
		ActionNote:      r.ActionNote,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}

	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
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
	if r.ActedBy != nil {
		v := r.ActedBy.String()
		resp.ActedBy = &v
	}
	if r.Actor != nil {
		resp.ActorName = r.Actor.Username
	}
	if r.ActedAt != nil {
		v := r.ActedAt.Format(time.RFC3339)
		resp.ActedAt = &v
	}
	if r.ActedAmount != nil {
		v, _ := r.ActedAmount.Float64()
		resp.ActedAmount = &v
	}

	return resp
}
