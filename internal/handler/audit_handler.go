package handler

import (
	"net/http"

	"fuelops/internal/middleware"
	"fuelops/internal/service"
	"fuelops/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	gate         middleware.CapabilityChecker
}

func NewAuditHandler(auditService service.AuditService, gate middleware.CapabilityChecker) *AuditHandler {
	return &AuditHandler{auditService: auditService, gate: gate}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audits", middleware.RequirePermission(h.gate, "audit.read"), h.List)
}

// List returns the audit trail, newest first
// @Summary      List audit logs
// @Tags         audits
// @Produce      json
// @Security     BearerAuth
// @Param        action  query     string  false  "Action filter"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  response.Response
// @Router       /api/audits [get]
func (h *AuditHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("action"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   logs,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
