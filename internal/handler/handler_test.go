package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fuelops/internal/database"
	"fuelops/internal/model"
	"fuelops/internal/repository"
	"fuelops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB

	admin    *model.User
	manager  *model.User
	issuer   *model.User
	staff    *model.User
	fuelType *model.FuelType
	vehicle  *model.Vehicle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	fuelTypeRepo := repository.NewFuelTypeRepository(db)
	requestRepo := repository.NewFuelRequestRepository(db)
	recordRepo := repository.NewFuelRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	roleSvc := service.NewRoleService(roleRepo, db)
	require.NoError(t, roleSvc.SeedDefaultRolesAndPermissions(context.Background()))

	gate := service.NewPermissionGate(userRepo, roleRepo)
	requestSvc := service.NewFuelRequestService(requestRepo, vehicleRepo, fuelTypeRepo, userRepo, auditRepo, txManager, gate, nil)
	recordSvc := service.NewFuelRecordService(recordRepo, requestRepo, vehicleRepo, fuelTypeRepo, userRepo, auditRepo, txManager, gate, nil)
	referenceSvc := service.NewReferenceService(fuelTypeRepo, vehicleRepo, userRepo, auditRepo, txManager)
	auditSvc := service.NewAuditService(auditRepo)
	statsSvc := service.NewStatisticsService(db)
	userSvc := service.NewUserService(userRepo, db)

	router := gin.New()
	NewUserHandler(userSvc, gate).RegisterRoutes(router.Group(""))
	NewRoleHandler(roleSvc, gate).RegisterRoutes(router.Group(""))
	NewFuelRequestHandler(requestSvc, gate).RegisterRoutes(router.Group(""))
	NewFuelRecordHandler(recordSvc, statsSvc, gate).RegisterRoutes(router.Group(""))
	NewReferenceHandler(referenceSvc, gate).RegisterRoutes(router.Group(""))
	NewAuditHandler(auditSvc, gate).RegisterRoutes(router.Group(""))

	ts := &testServer{router: router, db: db}
	ts.admin = ts.createUser(t, "admin1", model.RoleAdmin)
	ts.manager = ts.createUser(t, "manager1", model.RoleManager)
	ts.issuer = ts.createUser(t, "issuer1", model.RoleIssuer)
	ts.staff = ts.createUser(t, "staff1", model.RoleStaff)

	ts.fuelType = &model.FuelType{Name: "Diesel", Unit: "liter", IsActive: true}
	require.NoError(t, db.Create(ts.fuelType).Error)
	ts.vehicle = &model.Vehicle{PlateNo: "30A-555.66", Model: "Ford Ranger", IsActive: true}
	require.NoError(t, db.Create(ts.vehicle).Error)

	return ts
}

func (ts *testServer) createUser(t *testing.T, username, role string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Phone:    "0900000000",
		Password: "irrelevant",
		Role:     role,
	}
	require.NoError(t, ts.db.Create(user).Error)
	return user
}

// tokenFor signs an access token the auth middleware accepts in tests, where
// JWT_SECRET is unset and the development fallback applies.
func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("default_super_secret_key"))
	require.NoError(t, err)
	return signed
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, user *model.User) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, user))
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestFuelRequestEndpoints(t *testing.T) {
	ts := newTestServer(t)

	submitBody := gin.H{
		"target_type":      model.TargetTypeVehicle,
		"vehicle_id":       ts.vehicle.ID.String(),
		"fuel_type_id":     ts.fuelType.ID.String(),
		"requested_amount": 50,
	}

	t.Run("requires authentication", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-requests", submitBody, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("requires the request capability", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-requests", submitBody, ts.issuer)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("submit, decide, and list", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-requests", submitBody, ts.staff)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		requestID := dataField(t, rec)["id"].(string)

		// Staff may not decide
		rec = ts.do(t, http.MethodPost, "/api/fuel-requests/"+requestID+"/actions", gin.H{"action": "APPROVE"}, ts.staff)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/fuel-requests/"+requestID+"/actions", gin.H{"action": "APPROVE"}, ts.manager)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, model.RequestStatusApproved, dataField(t, rec)["status"])

		// A second decision maps to 422
		rec = ts.do(t, http.MethodPost, "/api/fuel-requests/"+requestID+"/actions", gin.H{"action": "REJECT", "action_note": "late"}, ts.manager)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/fuel-requests?status=APPROVED", nil, ts.manager)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/fuel-requests/mine", nil, ts.staff)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-requests", gin.H{"target_type": "SPACESHIP"}, ts.staff)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFuelRecordEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// Approve a request to issue against
	rec := ts.do(t, http.MethodPost, "/api/fuel-requests", gin.H{
		"target_type":      model.TargetTypeVehicle,
		"vehicle_id":       ts.vehicle.ID.String(),
		"fuel_type_id":     ts.fuelType.ID.String(),
		"requested_amount": 40,
	}, ts.staff)
	require.Equal(t, http.StatusCreated, rec.Code)
	requestID := dataField(t, rec)["id"].(string)

	rec = ts.do(t, http.MethodPost, "/api/fuel-requests/"+requestID+"/actions", gin.H{"action": "APPROVE"}, ts.manager)
	require.Equal(t, http.StatusOK, rec.Code)

	issueBody := gin.H{
		"record_type":     model.RecordTypeRequest,
		"fuel_request_id": requestID,
		"issued_amount":   40,
	}

	t.Run("staff may not issue", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-records", issueBody, ts.staff)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var recordID string
	t.Run("issuer issues once", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-records", issueBody, ts.issuer)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		recordID = dataField(t, rec)["id"].(string)

		rec = ts.do(t, http.MethodPost, "/api/fuel-records", issueBody, ts.issuer)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("requester receives", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-records/"+recordID+"/receive", gin.H{"received_amount": 38.5}, ts.manager)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/fuel-records/"+recordID+"/receive", gin.H{"received_amount": 38.5}, ts.staff)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 38.5, dataField(t, rec)["received_amount"])
	})

	t.Run("managers and issuers may list the ledger", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/fuel-records", nil, ts.issuer)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/fuel-records", nil, ts.manager)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/fuel-records", nil, ts.staff)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("summary", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/fuel-records/summary", nil, ts.manager)
		require.Equal(t, http.StatusOK, rec.Code)
		data := dataField(t, rec)
		assert.Equal(t, 40.0, data["total_issued"])
	})
}

func TestCatalogAndAuditEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("catalog reads are open to all roles", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/fuel-types", nil, ts.staff)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/vehicles", nil, ts.issuer)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("catalog writes are admin only", func(t *testing.T) {
		body := gin.H{"name": "Petrol RON95"}
		rec := ts.do(t, http.MethodPost, "/api/fuel-types", body, ts.staff)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/fuel-types", body, ts.admin)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("audit trail records the workflow", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/fuel-requests", gin.H{
			"target_type":      model.TargetTypeGenerator,
			"fuel_type_id":     ts.fuelType.ID.String(),
			"requested_amount": 15,
		}, ts.staff)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/audits?action="+model.ActionSubmitFuelRequest, nil, ts.manager)
		require.Equal(t, http.StatusOK, rec.Code)
		var envelope struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.EqualValues(t, 1, envelope.Total)
	})

	t.Run("roles are admin only", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/roles", nil, ts.staff)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/roles", nil, ts.admin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
