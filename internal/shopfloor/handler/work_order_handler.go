package handler

import (
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// WorkOrderHandler 工单处理器
type WorkOrderHandler struct {
	svc        *service.WorkOrderService
	visibility *service.VisibilityService
}

// NewWorkOrderHandler 创建工单处理器
func NewWorkOrderHandler(svc *service.WorkOrderService, visibility *service.VisibilityService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, visibility: visibility}
}

// List 查询工单列表(按当前用户可见范围过滤)
// GET /api/v1/work-orders
func (h *WorkOrderHandler) List(c *gin.Context) {
	orders, err := h.visibility.ListWorkOrders(c.Request.Context(), GetActor(c),
		c.Query("status"), c.Query("machine_id"), c.Query("operator_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": orders})
}

// Get 获取工单(按当前用户可见范围解析,不可见按不存在处理)
// GET /api/v1/work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.visibility.GetWorkOrder(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// ListBySpecification 查询规格单下的工单(规格单不可见时按不存在处理)
// GET /api/v1/specifications/:id/work-orders
func (h *WorkOrderHandler) ListBySpecification(c *gin.Context) {
	orders, err := h.visibility.ListWorkOrdersBySpecification(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": orders})
}

// MachineQueue 查询机台当前队列(按当前用户可见范围过滤)
// GET /api/v1/machines/:id/queue
func (h *WorkOrderHandler) MachineQueue(c *gin.Context) {
	orders, err := h.visibility.MachineQueue(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": orders})
}

// Queue 排队
// POST /api/v1/work-orders/:id/queue
func (h *WorkOrderHandler) Queue(c *gin.Context) {
	var req service.QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	wo, err := h.svc.Queue(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Start 开工
// POST /api/v1/work-orders/:id/start
func (h *WorkOrderHandler) Start(c *gin.Context) {
	var req service.StartRequest
	// body 可为空
	_ = c.ShouldBindJSON(&req)

	wo, err := h.svc.Start(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Block 阻塞
// POST /api/v1/work-orders/:id/block
func (h *WorkOrderHandler) Block(c *gin.Context) {
	var req service.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	wo, err := h.svc.Block(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// ReportProgress 报工
// POST /api/v1/work-orders/:id/progress
func (h *WorkOrderHandler) ReportProgress(c *gin.Context) {
	var req service.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	wo, err := h.svc.ReportProgress(c.Request.Context(), GetActor(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Complete 完工
// POST /api/v1/work-orders/:id/complete
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	wo, err := h.svc.Complete(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Cancel 取消
// POST /api/v1/work-orders/:id/cancel
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	wo, err := h.svc.Cancel(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Backfill 为规格单补建工单
// POST /api/v1/specifications/:id/work-orders/backfill
func (h *WorkOrderHandler) Backfill(c *gin.Context) {
	created, err := h.svc.BackfillForSpecification(c.Request.Context(), GetActor(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": created, "created": len(created)})
}
