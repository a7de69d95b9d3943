package handler

import (
	"net/http"
	"time"

	"fuelops/internal/middleware"
	"fuelops/internal/model"
	"fuelops/internal/service"
	"fuelops/pkg/pagination"
	"fuelops/pkg/response"

	"github.com/gin-gonic/gin"
)

type FuelRecordHandler struct {
	recordService service.FuelRecordService
	statsService  service.StatisticsService
	gate          middleware.CapabilityChecker
}

func NewFuelRecordHandler(recordService service.FuelRecordService, statsService service.StatisticsService, gate middleware.CapabilityChecker) *FuelRecordHandler {
	return &FuelRecordHandler{recordService: recordService, statsService: statsService, gate: gate}
}

func (h *FuelRecordHandler) RegisterRoutes(router *gin.RouterGroup) {
	records := router.Group("/api/fuel-records")
	{
		records.POST("", middleware.RequirePermission(h.gate, model.PermFuelIssue), h.Issue)
		records.GET("", middleware.RequireAnyPermission(h.gate, model.PermFuelIssue, model.PermFuelManage), h.List)
		records.GET("/mine", middleware.RequireAuth(), h.ListMine)
		records.GET("/summary", middleware.RequirePermission(h.gate, model.PermFuelManage), h.Summary)
		records.GET("/:id", middleware.RequireAuth(), h.Get)
		// Receipt is identity-gated in the service: designated receiver only
		records.POST("/:id/receive", middleware.RequireAuth(), h.Receive)
	}
}

// Issue creates an issuance record
// @Summary      Issue fuel
// @Description  Records a fuel issuance against a request, a quota, or an external order
// @Tags         fuel-records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.IssueFuelDTO  true  "Issuance payload"
// @Success      201      {object}  response.Response{data=service.FuelRecordResponse}
// @Failure      409      {object}  response.Response "Request already issued"
// @Router       /api/fuel-records [post]
func (h *FuelRecordHandler) Issue(c *gin.Context) {
	var req service.IssueFuelDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.recordService.Issue(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// Receive confirms receipt of an issued record
// @Summary      Confirm receipt of issued fuel
// @Tags         fuel-records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Record ID"
// @Param        payload  body      service.ReceiveFuelDTO  true  "Receipt payload"
// @Success      200      {object}  response.Response{data=service.FuelRecordResponse}
// @Failure      422      {object}  response.Response "Record already received"
// @Router       /api/fuel-records/{id}/receive [post]
func (h *FuelRecordHandler) Receive(c *gin.Context) {
	var req service.ReceiveFuelDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.recordService.Receive(c.Request.Context(), c.Param("id"), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Get returns a single fuel record
// @Summary      Get a fuel record
// @Tags         fuel-records
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response{data=service.FuelRecordResponse}
// @Router       /api/fuel-records/{id} [get]
func (h *FuelRecordHandler) Get(c *gin.Context) {
	result, err := h.recordService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// List returns fuel records with optional filters
// @Summary      List fuel records
// @Tags         fuel-records
// @Produce      json
// @Security     BearerAuth
// @Param        record_type  query     string  false  "Record type filter"
// @Param        open         query     bool    false  "Only records awaiting receipt"
// @Param        page         query     int     false  "Page"
// @Param        limit        query     int     false  "Page size"
// @Success      200          {object}  response.Response
// @Router       /api/fuel-records [get]
func (h *FuelRecordHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.FuelRecordListFilter{
		RecordType: c.Query("record_type"),
		Open:       c.Query("open") == "true",
		Page:       params.Page,
		Limit:      params.Limit,
	}

	records, total, err := h.recordService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   records,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// ListMine returns records the caller is designated to receive
// @Summary      List fuel records addressed to me
// @Tags         fuel-records
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/fuel-records/mine [get]
func (h *FuelRecordHandler) ListMine(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.FuelRecordListFilter{
		RecordType: c.Query("record_type"),
		ReceiverID: callerID(c),
		Open:       c.Query("open") == "true",
		Page:       params.Page,
		Limit:      params.Limit,
	}

	records, total, err := h.recordService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   records,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// Summary reports issuance and reconciliation aggregates over a date range
// @Summary      Fuel summary
// @Tags         fuel-records
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query  string  false  "Start date (RFC3339)"
// @Param        end_date    query  string  false  "End date (RFC3339)"
// @Success      200  {object}  response.Response{data=model.FuelSummaryResponse}
// @Router       /api/fuel-records/summary [get]
func (h *FuelRecordHandler) Summary(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := time.Now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	summary, err := h.statsService.GetFuelSummary(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
