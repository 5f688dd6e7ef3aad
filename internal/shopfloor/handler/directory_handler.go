package handler

import (
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// DirectoryHandler 台账处理器:零件与机床
type DirectoryHandler struct {
	svc        *service.DirectoryService
	visibility *service.VisibilityService
}

// NewDirectoryHandler 创建台账处理器
func NewDirectoryHandler(svc *service.DirectoryService, visibility *service.VisibilityService) *DirectoryHandler {
	return &DirectoryHandler{svc: svc, visibility: visibility}
}

// ListParts 查询零件列表(按当前用户可见范围过滤)
// GET /api/v1/parts
func (h *DirectoryHandler) ListParts(c *gin.Context) {
	parts, err := h.visibility.ListParts(c.Request.Context(), GetActor(c), c.Query("status"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": parts})
}

// GetPart 获取零件(按当前用户可见范围解析,不可见按不存在处理)
// GET /api/v1/parts/:id
func (h *DirectoryHandler) GetPart(c *gin.Context) {
	part, err := h.visibility.GetPart(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, part)
}

// CreatePart 登记零件
// POST /api/v1/parts
func (h *DirectoryHandler) CreatePart(c *gin.Context) {
	var req service.CreatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	part, err := h.svc.CreatePart(c.Request.Context(), GetActor(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, part)
}

// UpdatePart 更新零件
// PUT /api/v1/parts/:id
func (h *DirectoryHandler) UpdatePart(c *gin.Context) {
	var req service.UpdatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	part, err := h.svc.UpdatePart(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, part)
}

// ListMachines 查询机床列表
// GET /api/v1/machines
func (h *DirectoryHandler) ListMachines(c *gin.Context) {
	machines, err := h.svc.ListMachines(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": machines})
}

// CreateMachine 登记机床
// POST /api/v1/machines
func (h *DirectoryHandler) CreateMachine(c *gin.Context) {
	var req service.CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	machine, err := h.svc.CreateMachine(c.Request.Context(), GetActor(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, machine)
}
