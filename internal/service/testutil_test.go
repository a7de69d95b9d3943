package service

import (
	"context"
	"fmt"
	"testing"

	"fuelops/internal/database"
	"fuelops/internal/model"
	"fuelops/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database. A single connection keeps the
// memory store alive for the whole test and serializes concurrent writers the
// way a real server's row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// fixture wires the full service stack over a test database with one seeded
// user per role plus a fuel type and a vehicle.
type fixture struct {
	db *gorm.DB

	gate     PermissionGate
	requests FuelRequestService
	records  FuelRecordService

	admin   *model.User
	manager *model.User
	issuer  *model.User
	staff   *model.User

	fuelType *model.FuelType
	vehicle  *model.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	fuelTypeRepo := repository.NewFuelTypeRepository(db)
	requestRepo := repository.NewFuelRequestRepository(db)
	recordRepo := repository.NewFuelRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	roleSvc := NewRoleService(roleRepo, db)
	require.NoError(t, roleSvc.SeedDefaultRolesAndPermissions(ctx))

	gate := NewPermissionGate(userRepo, roleRepo)

	f := &fixture{
		db:       db,
		gate:     gate,
		requests: NewFuelRequestService(requestRepo, vehicleRepo, fuelTypeRepo, userRepo, auditRepo, txManager, gate, nil),
		records:  NewFuelRecordService(recordRepo, requestRepo, vehicleRepo, fuelTypeRepo, userRepo, auditRepo, txManager, gate, nil),
	}

	f.admin = f.createUser(t, "admin1", model.RoleAdmin)
	f.manager = f.createUser(t, "manager1", model.RoleManager)
	f.issuer = f.createUser(t, "issuer1", model.RoleIssuer)
	f.staff = f.createUser(t, "staff1", model.RoleStaff)

	f.fuelType = &model.FuelType{Name: "Diesel", Unit: "liter", IsActive: true}
	require.NoError(t, db.Create(f.fuelType).Error)

	f.vehicle = &model.Vehicle{PlateNo: "29C-123.45", Model: "Hino 500", IsActive: true}
	require.NoError(t, db.Create(f.vehicle).Error)

	return f
}

func (f *fixture) createUser(t *testing.T, username, role string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Phone:    "0900000000",
		Password: "not-a-real-hash",
		Role:     role,
		Unit:     "Depot A",
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

// submitRequest files a vehicle request for the staff user and returns it.
func (f *fixture) submitRequest(t *testing.T, amount float64) FuelRequestResponse {
	t.Helper()
	resp, err := f.requests.Submit(context.Background(), f.staff.ID.String(), SubmitFuelRequestDTO{
		TargetType:      model.TargetTypeVehicle,
		VehicleID:       f.vehicle.ID.String(),
		FuelTypeID:      f.fuelType.ID.String(),
		RequestedAmount: amount,
	})
	require.NoError(t, err)
	return resp
}

// approvedRequest files and approves a request in one step.
func (f *fixture) approvedRequest(t *testing.T, amount float64) FuelRequestResponse {
	t.Helper()
	submitted := f.submitRequest(t, amount)
	decided, err := f.requests.Act(context.Background(), submitted.ID, f.manager.ID.String(), ActOnFuelRequestDTO{
		Action: model.RequestActionApprove,
	})
	require.NoError(t, err)
	return decided
}
