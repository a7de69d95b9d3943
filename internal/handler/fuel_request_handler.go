package handler

import (
	"net/http"

	"fuelops/internal/middleware"
	"fuelops/internal/model"
	"fuelops/internal/service"
	"fuelops/pkg/pagination"
	"fuelops/pkg/response"

	"github.com/gin-gonic/gin"
)

type FuelRequestHandler struct {
	requestService service.FuelRequestService
	gate           middleware.CapabilityChecker
}

func NewFuelRequestHandler(requestService service.FuelRequestService, gate middleware.CapabilityChecker) *FuelRequestHandler {
	return &FuelRequestHandler{requestService: requestService, gate: gate}
}

func (h *FuelRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/fuel-requests")
	{
		requests.POST("", middleware.RequirePermission(h.gate, model.PermFuelRequest), h.Submit)
		requests.GET("", middleware.RequirePermission(h.gate, model.PermFuelManage), h.List)
		requests.GET("/mine", middleware.RequireAuth(), h.ListMine)
		requests.GET("/:id", middleware.RequireAuth(), h.Get)
		requests.POST("/:id/actions", middleware.RequirePermission(h.gate, model.PermFuelManage), h.Act)
		// Cancellation is identity-gated in the service: requester only
		requests.POST("/:id/cancel", middleware.RequireAuth(), h.Cancel)
	}
}

// Submit creates a new pending fuel request
// @Summary      Submit a fuel request
// @Description  Creates a PENDING request for fuel for a vehicle or generator
// @Tags         fuel-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitFuelRequestDTO  true  "Request payload"
// @Success      201      {object}  response.Response{data=service.FuelRequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/fuel-requests [post]
func (h *FuelRequestHandler) Submit(c *gin.Context) {
	var req service.SubmitFuelRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Submit(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// Act decides a pending fuel request
// @Summary      Approve, modify or reject a fuel request
// @Tags         fuel-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Request ID"
// @Param        payload  body      service.ActOnFuelRequestDTO true  "Decision payload"
// @Success      200      {object}  response.Response{data=service.FuelRequestResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/fuel-requests/{id}/actions [post]
func (h *FuelRequestHandler) Act(c *gin.Context) {
	var req service.ActOnFuelRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Act(c.Request.Context(), c.Param("id"), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Cancel withdraws a pending request, requester only
// @Summary      Cancel a pending fuel request
// @Tags         fuel-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.FuelRequestResponse}
// @Router       /api/fuel-requests/{id}/cancel [post]
func (h *FuelRequestHandler) Cancel(c *gin.Context) {
	result, err := h.requestService.Cancel(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Get returns a single fuel request
// @Summary      Get a fuel request
// @Tags         fuel-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.FuelRequestResponse}
// @Router       /api/fuel-requests/{id} [get]
func (h *FuelRequestHandler) Get(c *gin.Context) {
	result, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// List returns fuel requests, optionally filtered by status
// @Summary      List fuel requests
// @Tags         fuel-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /api/fuel-requests [get]
func (h *FuelRequestHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.FuelRequestFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   requests,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// ListMine returns the caller's own fuel requests
// @Summary      List my fuel requests
// @Tags         fuel-requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/fuel-requests/mine [get]
func (h *FuelRequestHandler) ListMine(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.FuelRequestFilter{
		Status:      c.Query("status"),
		RequesterID: callerID(c),
		Page:        params.Page,
		Limit:       params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   requests,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
