package handler

import (
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// AuditHandler 审计处理器
type AuditHandler struct {
	svc *service.AuditService
}

// NewAuditHandler 创建审计处理器
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List 查询审计事件
// GET /api/v1/audit-events
func (h *AuditHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	events, total, err := h.svc.List(c.Request.Context(),
		c.Query("entity_type"), c.Query("entity_id"), c.Query("user_id"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"items":     events,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
