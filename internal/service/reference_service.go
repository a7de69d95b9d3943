package service

import (
	"context"
	"encoding/json"

	"fuelops/internal/model"
	"fuelops/internal/repository"
	"fuelops/pkg/apperror"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateFuelTypeRequest struct {
	Name string `json:"name" binding:"required"`
	Unit string `json:"unit"`
}

type CreateVehicleRequest struct {
	PlateNo    string `json:"plate_no" binding:"required"`
	Model      string `json:"model"`
	FuelTypeID string `json:"fuel_type_id"`
	Unit       string `json:"unit"`
}

type FuelTypeResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	IsActive bool   `json:"is_active"`
}

type VehicleResponse struct {
	ID           string  `json:"id"`
	PlateNo      string  `json:"plate_no"`
	Model        string  `json:"model"`
	FuelTypeID   *string `json:"fuel_type_id,omitempty"`
	FuelTypeName string  `json:"fuel_type_name,omitempty"`
	Unit         string  `json:"unit"`
	IsActive     bool    `json:"is_active"`
}

type CatalogUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Unit     string `json:"unit"`
}

// --- Interface ---

// ReferenceService is the read-mostly catalog the fuel workflow draws its
// lookups from: fuel types, vehicles, and users for requester/receiver pickers.
type ReferenceService interface {
	ListFuelTypes(ctx context.Context) ([]FuelTypeResponse, error)
	CreateFuelType(ctx context.Context, userID string, req CreateFuelTypeRequest) (FuelTypeResponse, error)
	ListVehicles(ctx context.Context, page, limit int) ([]VehicleResponse, int64, error)
	GetVehicle(ctx context.Context, id string) (VehicleResponse, error)
	CreateVehicle(ctx context.Context, userID string, req CreateVehicleRequest) (VehicleResponse, error)
	ListUsersByRole(ctx context.Context, role string) ([]CatalogUserResponse, error)
}

type referenceService struct {
	fuelTypeRepo repository.FuelTypeRepository
	vehicleRepo  repository.VehicleRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewReferenceService(
	fuelTypeRepo repository.FuelTypeRepository,
	vehicleRepo repository.VehicleRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ReferenceService {
	return &referenceService{
		fuelTypeRepo: fuelTypeRepo,
		vehicleRepo:  vehicleRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *referenceService) ListFuelTypes(ctx context.Context) ([]FuelTypeResponse, error) {
	fuelTypes, err := s.fuelTypeRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]FuelTypeResponse, 0, len(fuelTypes))
	for _, f := range fuelTypes {
		res = append(res, toFuelTypeResponse(f))
	}
	return res, nil
}

func (s *referenceService) CreateFuelType(ctx context.Context, userID string, req CreateFuelTypeRequest) (FuelTypeResponse, error) {
	actorID, err := uuid.Parse(userID)
	if err != nil {
		return FuelTypeResponse{}, apperror.Validation("invalid user id: %v", err)
	}

	unit := req.Unit
	if unit == "" {
		unit = "liter"
	}
	fuelType := model.FuelType{
		Name:     req.Name,
		Unit:     unit,
		IsActive: true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.fuelTypeRepo.Create(txCtx, &fuelType); createErr != nil {
			return createErr
		}
		details, _ := json.Marshal(map[string]interface{}{"name": req.Name})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateFuelType,
			EntityID:   fuelType.ID.String(),
			EntityName: fuelType.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return FuelTypeResponse{}, err
	}

	return toFuelTypeResponse(fuelType), nil
}

func (s *referenceService) ListVehicles(ctx context.Context, page, limit int) ([]VehicleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	vehicles, total, err := s.vehicleRepo.List(ctx, true, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		res = append(res, toVehicleResponse(v))
	}
	return res, total, nil
}

func (s *referenceService) GetVehicle(ctx context.Context, id string) (VehicleResponse, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return VehicleResponse{}, apperror.Validation("invalid vehicle id: %v", err)
	}
	vehicle, err := s.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		return VehicleResponse{}, apperror.NotFound("vehicle %s not found", id)
	}
	return toVehicleResponse(*vehicle), nil
}

func (s *referenceService) CreateVehicle(ctx context.Context, userID string, req CreateVehicleRequest) (VehicleResponse, error) {
	actorID, err := uuid.Parse(userID)
	if err != nil {
		return VehicleResponse{}, apperror.Validation("invalid user id: %v", err)
	}

	vehicle := model.Vehicle{
		PlateNo:  req.PlateNo,
		Model:    req.Model,
		Unit:     req.Unit,
		IsActive: true,
	}
	if req.FuelTypeID != "" {
		fuelTypeID, parseErr := uuid.Parse(req.FuelTypeID)
		if parseErr != nil {
			return VehicleResponse{}, apperror.Validation("invalid fuel type id: %v", parseErr)
		}
		if _, err := s.fuelTypeRepo.FindByID(ctx, fuelTypeID); err != nil {
			return VehicleResponse{}, apperror.NotFound("fuel type %s not found", req.FuelTypeID)
		}
		vehicle.FuelTypeID = &fuelTypeID
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.vehicleRepo.Create(txCtx, &vehicle); createErr != nil {
			return createErr
		}
		details, _ := json.Marshal(map[string]interface{}{"plate_no": req.PlateNo})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateVehicle,
			EntityID:   vehicle.ID.String(),
			EntityName: vehicle.PlateNo,
			Details:    string(details),
		})
	})
	if err != nil {
		return VehicleResponse{}, err
	}

	return toVehicleResponse(vehicle), nil
}

func (s *referenceService) ListUsersByRole(ctx context.Context, role string) ([]CatalogUserResponse, error) {
	if role == "" {
		return nil, apperror.Validation("role query parameter is required")
	}

	users, err := s.userRepo.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	res := make([]CatalogUserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, CatalogUserResponse{
			ID:       u.ID.String(),
			Username: u.Username,
			Role:     u.Role,
			Unit:     u.Unit,
		})
	}
	return res, nil
}

// --- Helpers ---

func toFuelTypeResponse(f model.FuelType) FuelTypeResponse {
	return FuelTypeResponse{
		ID:       f.ID.String(),
		Name:     f.Name,
		Unit:     f.Unit,
		IsActive: f.IsActive,
	}
}

func toVehicleResponse(v model.Vehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:       v.ID.String(),
		PlateNo:  v.PlateNo,
		Model:    v.Model,
		Unit:     v.Unit,
		IsActive: v.IsActive,
	}
	if v.FuelTypeID != nil {
		id := v.FuelTypeID.String()
		resp.FuelTypeID = &id
	}
	if v.FuelType != nil {
		resp.FuelTypeName = v.FuelType.Name
	}
	return resp
}
