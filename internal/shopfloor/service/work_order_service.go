package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkOrderService 工单服务,承载工单状态机与机台队列管理。
type WorkOrderService struct {
	woRepo      *repository.WorkOrderRepository
	itemRepo    *repository.SpecItemRepository
	machineRepo *repository.MachineRepository
	progress    *ProgressService
	audit       *AuditService
	enabled     bool
	logger      *zap.Logger
}

// NewWorkOrderService 创建工单服务
func NewWorkOrderService(
	woRepo *repository.WorkOrderRepository,
	itemRepo *repository.SpecItemRepository,
	machineRepo *repository.MachineRepository,
	progress *ProgressService,
	audit *AuditService,
	enabled bool,
	logger *zap.Logger,
) *WorkOrderService {
	return &WorkOrderService{
		woRepo:      woRepo,
		itemRepo:    itemRepo,
		machineRepo: machineRepo,
		progress:    progress,
		audit:       audit,
		enabled:     enabled,
		logger:      logger,
	}
}

// QueueRequest 排队请求
type QueueRequest struct {
	MachineID string `json:"machine_id" binding:"required"`
	Position  *int   `json:"position"`
}

// StartRequest 开工请求
type StartRequest struct {
	OperatorID *string `json:"operator_id"`
}

// BlockRequest 阻塞请求
type BlockRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ProgressRequest 报工请求
type ProgressRequest struct {
	QtyGood  int `json:"qty_good"`
	QtyScrap int `json:"qty_scrap"`
}

// Queue 将工单排入指定机台队列。
// 未给出位置时追加到队尾;给出位置时插入该位置,其后的工单顺延。
func (s *WorkOrderService) Queue(ctx context.Context, actor Actor, id string, req *QueueRequest) (*entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Terminal() {
		return nil, domain.Invariantf("工单已处于终态 %s,不能再排队", wo.Status)
	}
	if wo.Status == entity.WOStatusInProgress {
		return nil, domain.Invariantf("加工中的工单不能重新排队")
	}

	if _, err := s.machineRepo.FindByID(ctx, req.MachineID); err != nil {
		return nil, domain.Validationf("machine_id", "机台不存在")
	}

	// 先从旧队列摘出
	prevMachine := ""
	if wo.Status == entity.WOStatusQueued && wo.MachineID != nil {
		prevMachine = *wo.MachineID
	}

	queued, err := s.woRepo.ListQueuedByMachine(ctx, req.MachineID)
	if err != nil {
		return nil, err
	}
	others := queued[:0:0]
	for _, q := range queued {
		if q.ID != id {
			others = append(others, q)
		}
	}

	// 摘出自身后先压实余队:同机台重排会留下空位,不压实则尾插重号
	for i := range others {
		want := i + 1
		if others[i].QueuePos == nil || *others[i].QueuePos != want {
			p := want
			others[i].QueuePos = &p
			if err := s.woRepo.Update(ctx, &others[i]); err != nil {
				return nil, err
			}
		}
	}

	pos := len(others) + 1
	if req.Position != nil {
		pos = *req.Position
		if pos < 1 {
			pos = 1
		}
		if pos > len(others)+1 {
			pos = len(others) + 1
		}
		// 目标位置之后的工单顺延
		for i := range others {
			if others[i].QueuePos != nil && *others[i].QueuePos >= pos {
				next := *others[i].QueuePos + 1
				others[i].QueuePos = &next
				if err := s.woRepo.Update(ctx, &others[i]); err != nil {
					return nil, err
				}
			}
		}
	}

	machineID := req.MachineID
	wo.Status = entity.WOStatusQueued
	wo.MachineID = &machineID
	wo.QueuePos = &pos
	wo.BlockReason = ""
	if err := s.woRepo.Update(ctx, wo); err != nil {
		return nil, err
	}

	// 换机台时压实旧队列
	if prevMachine != "" && prevMachine != req.MachineID {
		if err := s.compactQueue(ctx, prevMachine, id); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, actor, "work_order.queue", entity.AuditEntityWorkOrder, wo.ID, wo.PartID, map[string]interface{}{
		"machine_id": req.MachineID,
		"position":   pos,
	})

	return wo, s.recompute(ctx, wo)
}

// Start 开工。清除排队位并压实原队列,首次开工时记录开工时间。
func (s *WorkOrderService) Start(ctx context.Context, actor Actor, id string, req *StartRequest) (*entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Terminal() {
		return nil, domain.Invariantf("工单已处于终态 %s,不能开工", wo.Status)
	}

	prevMachine := ""
	if wo.Status == entity.WOStatusQueued && wo.MachineID != nil {
		prevMachine = *wo.MachineID
	}

	wo.Status = entity.WOStatusInProgress
	wo.QueuePos = nil
	wo.BlockReason = ""
	if req != nil && req.OperatorID != nil {
		wo.AssignedOperatorID = req.OperatorID
	}
	if wo.StartedAt == nil {
		now := time.Now()
		wo.StartedAt = &now
	}
	if err := s.woRepo.Update(ctx, wo); err != nil {
		return nil, err
	}

	if prevMachine != "" {
		if err := s.compactQueue(ctx, prevMachine, id); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, actor, "work_order.start", entity.AuditEntityWorkOrder, wo.ID, wo.PartID, nil)

	return wo, s.recompute(ctx, wo)
}

// Block 阻塞工单,原因原样保存。
func (s *WorkOrderService) Block(ctx context.Context, actor Actor, id string, req *BlockRequest) (*entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if req.Reason == "" {
		return nil, domain.Validationf("reason", "阻塞原因不能为空")
	}

	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Terminal() {
		return nil, domain.Invariantf("工单已处于终态 %s,不能阻塞", wo.Status)
	}

	prevMachine := ""
	if wo.Status == entity.WOStatusQueued && wo.MachineID != nil {
		prevMachine = *wo.MachineID
	}

	wo.Status = entity.WOStatusBlocked
	wo.BlockReason = req.Reason
	wo.QueuePos = nil
	if err := s.woRepo.Update(ctx, wo); err != nil {
		return nil, err
	}

	if prevMachine != "" {
		if err := s.compactQueue(ctx, prevMachine, id); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, actor, "work_order.block", entity.AuditEntityWorkOrder, wo.ID, wo.PartID, map[string]interface{}{
		"reason": req.Reason,
	})

	return wo, s.recompute(ctx, wo)
}

// ReportProgress 报工。累加合格数与报废数,达到计划数自动完工,
// 阻塞中的工单报工后自动恢复为加工中。
func (s *WorkOrderService) ReportProgress(ctx context.Context, actor Actor, id string, req *ProgressRequest) (*entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if req.QtyGood < 0 {
		return nil, domain.Validationf("qty_good", "数量不能为负")
	}
	if req.QtyScrap < 0 {
		return nil, domain.Validationf("qty_scrap", "数量不能为负")
	}

	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Terminal() {
		return nil, domain.Invariantf("工单已处于终态 %s,不能报工", wo.Status)
	}

	wo.QtyDone += req.QtyGood
	wo.QtyScrap += req.QtyScrap
	if wo.QtyDone < 0 {
		wo.QtyDone = 0
	}
	if wo.QtyScrap < 0 {
		wo.QtyScrap = 0
	}

	prevMachine := ""
	if wo.Status == entity.WOStatusQueued && wo.MachineID != nil {
		prevMachine = *wo.MachineID
	}

	switch {
	case wo.QtyPlan > 0 && wo.QtyDone >= wo.QtyPlan:
		wo.Status = entity.WOStatusDone
		wo.QueuePos = nil
		wo.BlockReason = ""
		now := time.Now()
		wo.CompletedAt = &now
		if wo.StartedAt == nil {
			wo.StartedAt = &now
		}
	case wo.Status == entity.WOStatusBlocked:
		wo.Status = entity.WOStatusInProgress
		wo.BlockReason = ""
		if wo.StartedAt == nil {
			now := time.Now()
			wo.StartedAt = &now
		}
		prevMachine = ""
	default:
		// 其余状态不因报工改变
		prevMachine = ""
	}

	if err := s.woRepo.Update(ctx, wo); err != nil {
		return nil, err
	}

	if prevMachine != "" {
		if err := s.compactQueue(ctx, prevMachine, id); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, actor, "work_order.progress", entity.AuditEntityWorkOrder, wo.ID, wo.PartID, map[string]interface{}{
		"qty_good":  req.QtyGood,
		"qty_scrap": req.QtyScrap,
		"qty_done":  wo.QtyDone,
	})

	return wo, s.recompute(ctx, wo)
}

// Complete 强制完工。完成数量补齐到计划数。
func (s *WorkOrderService) Complete(ctx context.Context, actor Actor, id string) (*entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Terminal() {
		return nil, domain.Invariantf("工单已处于终态 %s", wo.Status)
	}

	prevMachine := ""
	if wo.Status == entity.WOStatusQueued && wo.MachineID != nil {
		prevMachine = *wo.MachineID
	}

	wo.Status = entity.WOStatusDone
	if wo.QtyDone < wo.QtyPlan {
		wo.QtyDone = wo.QtyPlan
	}
	wo.QueuePos = nil
	wo.BlockReason = ""
	now := time.Now()
	wo.CompletedAt = &now
	if wo.StartedAt == nil {
		wo.StartedAt = &now
	}
	if err := s.woRepo.Update(ctx, wo); err != nil {
		return nil, err
	}

	if prevMachine != "" {
		if err := s.compactQueue(ctx, prevMachine, id); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, actor, "work_order.complete", entity.AuditEntityWorkOrder, wo.ID, wo.PartID, nil)

	return wo, s.recompute(ctx, wo)
}

// Cancel 取消工单。取消后的工单不再计入明细进度汇总。
func (s *WorkOrderService) Cancel(ctx context.Context, actor Actor, id string) (*entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Terminal() {
		return nil, domain.Invariantf("工单已处于终态 %s", wo.Status)
	}

	prevMachine := ""
	if wo.Status == entity.WOStatusQueued && wo.MachineID != nil {
		prevMachine = *wo.MachineID
	}

	wo.Status = entity.WOStatusCanceled
	wo.QueuePos = nil
	wo.BlockReason = ""
	if err := s.woRepo.Update(ctx, wo); err != nil {
		return nil, err
	}

	if prevMachine != "" {
		if err := s.compactQueue(ctx, prevMachine, id); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, actor, "work_order.cancel", entity.AuditEntityWorkOrder, wo.ID, wo.PartID, nil)

	return wo, s.recompute(ctx, wo)
}

// BackfillForSpecification 为规格单中尚无在途工单的自制明细补建积压工单。
func (s *WorkOrderService) BackfillForSpecification(ctx context.Context, actor Actor, specID string) ([]entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	items, err := s.itemRepo.ListBySpecification(ctx, specID)
	if err != nil {
		return nil, err
	}

	var created []entity.WorkOrder
	for _, item := range items {
		if item.ItemType != entity.ItemTypeMake || item.PartID == nil {
			continue
		}
		orders, err := s.woRepo.ListByItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		hasLive := false
		for _, o := range orders {
			if o.Status != entity.WOStatusCanceled {
				hasLive = true
				break
			}
		}
		if hasLive {
			continue
		}

		wo := &entity.WorkOrder{
			ID:              uuid.New().String(),
			SpecificationID: specID,
			SpecItemID:      item.ID,
			PartID:          *item.PartID,
			Status:          entity.WOStatusBacklog,
			QtyPlan:         item.QtyRequired,
			Priority:        entity.WOPriorityNormal,
			CreatedBy:       actor.ID,
		}
		if err := s.woRepo.Create(ctx, wo); err != nil {
			return nil, fmt.Errorf("创建工单失败: %w", err)
		}
		created = append(created, *wo)
	}

	if len(created) > 0 {
		s.audit.Record(ctx, actor, "work_order.backfill", entity.AuditEntitySpecification, specID, "", map[string]interface{}{
			"created": len(created),
		})
	}
	return created, nil
}

// compactQueue 压实机台队列,保持排队位从 1 起连续。
func (s *WorkOrderService) compactQueue(ctx context.Context, machineID, excludeID string) error {
	queued, err := s.woRepo.ListQueuedByMachine(ctx, machineID)
	if err != nil {
		return err
	}
	pos := 0
	for i := range queued {
		if queued[i].ID == excludeID {
			continue
		}
		pos++
		if queued[i].QueuePos == nil || *queued[i].QueuePos != pos {
			p := pos
			queued[i].QueuePos = &p
			if err := s.woRepo.Update(ctx, &queued[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// recompute 工单落库后联动刷新明细与规格单状态。
// 刷新失败不回滚工单本身,错误上抛由调用方呈现。
func (s *WorkOrderService) recompute(ctx context.Context, wo *entity.WorkOrder) error {
	if err := s.progress.SyncItemFromWorkOrders(ctx, wo.SpecItemID); err != nil {
		s.logger.Error("progress recompute failed",
			zap.String("work_order_id", wo.ID),
			zap.String("spec_item_id", wo.SpecItemID),
			zap.Error(err))
		return err
	}
	return nil
}
