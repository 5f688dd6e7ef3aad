package handler

import (
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// AccessHandler 授权处理器
type AccessHandler struct {
	svc *service.AccessService
}

// NewAccessHandler 创建授权处理器
func NewAccessHandler(svc *service.AccessService) *AccessHandler {
	return &AccessHandler{svc: svc}
}

// Grant 授予或更新授权
// POST /api/v1/access-grants
func (h *AccessHandler) Grant(c *gin.Context) {
	var req service.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	grant, err := h.svc.Grant(c.Request.Context(), GetActor(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, grant)
}

// Revoke 撤销授权
// DELETE /api/v1/access-grants/:id
func (h *AccessHandler) Revoke(c *gin.Context) {
	if err := h.svc.Revoke(c.Request.Context(), GetActor(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// List 查询授权记录
// GET /api/v1/access-grants
func (h *AccessHandler) List(c *gin.Context) {
	grants, err := h.svc.List(c.Request.Context(), GetActor(c),
		c.Query("entity_type"), c.Query("entity_id"), c.Query("user_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": grants})
}
