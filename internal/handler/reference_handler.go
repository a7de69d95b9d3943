package handler

import (
	"net/http"

	"fuelops/internal/middleware"
	"fuelops/internal/service"
	"fuelops/pkg/pagination"
	"fuelops/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReferenceHandler struct {
	referenceService service.ReferenceService
	gate             middleware.CapabilityChecker
}

func NewReferenceHandler(referenceService service.ReferenceService, gate middleware.CapabilityChecker) *ReferenceHandler {
	return &ReferenceHandler{referenceService: referenceService, gate: gate}
}

func (h *ReferenceHandler) RegisterRoutes(router *gin.RouterGroup) {
	fuelTypes := router.Group("/api/fuel-types")
	{
		fuelTypes.GET("", middleware.RequirePermission(h.gate, "catalog.read"), h.ListFuelTypes)
		fuelTypes.POST("", middleware.RequirePermission(h.gate, "catalog.write"), h.CreateFuelType)
	}

	vehicles := router.Group("/api/vehicles")
	{
		vehicles.GET("", middleware.RequirePermission(h.gate, "catalog.read"), h.ListVehicles)
		vehicles.GET("/:id", middleware.RequirePermission(h.gate, "catalog.read"), h.GetVehicle)
		vehicles.POST("", middleware.RequirePermission(h.gate, "catalog.write"), h.CreateVehicle)
	}

	// Receiver/requester pickers for issuance forms
	router.GET("/api/catalog/users", middleware.RequirePermission(h.gate, "catalog.read"), h.ListUsersByRole)
}

// ListFuelTypes returns active fuel types
// @Summary      List fuel types
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.FuelTypeResponse}
// @Router       /api/fuel-types [get]
func (h *ReferenceHandler) ListFuelTypes(c *gin.Context) {
	fuelTypes, err := h.referenceService.ListFuelTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, fuelTypes))
}

// CreateFuelType adds a fuel type to the catalog
// @Summary      Create a fuel type
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateFuelTypeRequest  true  "Fuel type payload"
// @Success      201      {object}  response.Response{data=service.FuelTypeResponse}
// @Router       /api/fuel-types [post]
func (h *ReferenceHandler) CreateFuelType(c *gin.Context) {
	var req service.CreateFuelTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.referenceService.CreateFuelType(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListUsersByRole returns users holding a given role
// @Summary      List users by role
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        role  query     string  true  "Role name"
// @Success      200   {object}  response.Response{data=[]service.CatalogUserResponse}
// @Router       /api/catalog/users [get]
func (h *ReferenceHandler) ListUsersByRole(c *gin.Context) {
	role := c.Query("role")
	if role == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "role query parameter is required"))
		return
	}

	users, err := h.referenceService.ListUsersByRole(c.Request.Context(), role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, users))
}

// ListVehicles returns the vehicle catalog
// @Summary      List vehicles
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response
// @Router       /api/vehicles [get]
func (h *ReferenceHandler) ListVehicles(c *gin.Context) {
	params := pagination.Parse(c)

	vehicles, total, err := h.referenceService.ListVehicles(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   vehicles,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetVehicle returns one vehicle
// @Summary      Get a vehicle
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Vehicle ID"
// @Success      200  {object}  response.Response{data=service.VehicleResponse}
// @Router       /api/vehicles/{id} [get]
func (h *ReferenceHandler) GetVehicle(c *gin.Context) {
	result, err := h.referenceService.GetVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CreateVehicle adds a vehicle to the catalog
// @Summary      Create a vehicle
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateVehicleRequest  true  "Vehicle payload"
// @Success      201      {object}  response.Response{data=service.VehicleResponse}
// @Router       /api/vehicles [post]
func (h *ReferenceHandler) CreateVehicle(c *gin.Context) {
	var req service.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.referenceService.CreateVehicle(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}
