package handler

import (
	"fmt"
	"net/url"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// SpecificationHandler 规格单处理器
type SpecificationHandler struct {
	fulfillment *service.FulfillmentService
	visibility  *service.VisibilityService
	export      *service.ExportService
}

// NewSpecificationHandler 创建规格单处理器
func NewSpecificationHandler(
	fulfillment *service.FulfillmentService,
	visibility *service.VisibilityService,
	export *service.ExportService,
) *SpecificationHandler {
	return &SpecificationHandler{fulfillment: fulfillment, visibility: visibility, export: export}
}

// List 查询规格单列表(按当前用户可见范围过滤)
// GET /api/v1/specifications
func (h *SpecificationHandler) List(c *gin.Context) {
	specs, err := h.visibility.ListSpecifications(c.Request.Context(), GetActor(c),
		c.Query("status"), c.Query("customer"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": specs})
}

// Get 获取规格单详情
// GET /api/v1/specifications/:id
func (h *SpecificationHandler) Get(c *gin.Context) {
	spec, err := h.visibility.GetSpecification(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, spec)
}

// Create 创建规格单
// POST /api/v1/specifications
func (h *SpecificationHandler) Create(c *gin.Context) {
	var req service.CreateSpecificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	spec, err := h.fulfillment.CreateSpecification(c.Request.Context(), GetActor(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, spec)
}

// Update 更新规格单
// PUT /api/v1/specifications/:id
func (h *SpecificationHandler) Update(c *gin.Context) {
	var req service.UpdateSpecificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	spec, err := h.fulfillment.UpdateSpecification(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, spec)
}

// PublishRequest 发布开关请求
type PublishRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// Publish 切换发布状态
// POST /api/v1/specifications/:id/publish
func (h *SpecificationHandler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	spec, err := h.fulfillment.SetPublished(c.Request.Context(), GetActor(c), c.Param("id"), *req.Published)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, spec)
}

// Delete 删除规格单
// DELETE /api/v1/specifications/:id?cascade_parts=true
func (h *SpecificationHandler) Delete(c *gin.Context) {
	cascadeParts := c.Query("cascade_parts") == "true"
	if err := h.fulfillment.DeleteSpecification(c.Request.Context(), GetActor(c), c.Param("id"), cascadeParts); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// CreateItem 追加明细
// POST /api/v1/specifications/:id/items
func (h *SpecificationHandler) CreateItem(c *gin.Context) {
	var req service.SpecItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.fulfillment.CreateSpecItem(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, item)
}

// DeleteItem 删除明细
// DELETE /api/v1/spec-items/:id
func (h *SpecificationHandler) DeleteItem(c *gin.Context) {
	if err := h.fulfillment.DeleteSpecItem(c.Request.Context(), GetActor(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// UpdateItemProgress 手工覆盖明细进度
// PUT /api/v1/spec-items/:id/progress
func (h *SpecificationHandler) UpdateItemProgress(c *gin.Context) {
	var req service.UpdateItemProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.fulfillment.UpdateSpecItemProgress(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, item)
}

// Export 导出规格单进度
// GET /api/v1/specifications/:id/export
func (h *SpecificationHandler) Export(c *gin.Context) {
	f, filename, err := h.export.ExportSpecification(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出文件失败: "+err.Error())
	}
}
