package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"go.uber.org/zap"
)

// DeriveItemStatus 根据完成数量和阻塞标记推导明细状态。
// 已满足的明细不会因为残留的阻塞工单而回退为 blocked;
// 没有任何进度时阻塞工单也不改变明细状态,保持 open。
func DeriveItemStatus(qtyDone, qtyRequired int, hasBlocked bool) string {
	if qtyRequired > 0 && qtyDone >= qtyRequired {
		return entity.ItemStatusFulfilled
	}
	if qtyDone > 0 && hasBlocked {
		return entity.ItemStatusBlocked
	}
	if qtyDone > 0 {
		return entity.ItemStatusPartial
	}
	return entity.ItemStatusOpen
}

// AggregateWorkOrders 汇总明细下所有未取消工单的完成数量与阻塞标记。
func AggregateWorkOrders(orders []entity.WorkOrder) (qtyDone int, hasBlocked bool) {
	for _, wo := range orders {
		if wo.Status == entity.WOStatusCanceled {
			continue
		}
		qtyDone += wo.QtyDone
		if wo.Status == entity.WOStatusBlocked {
			hasBlocked = true
		}
	}
	return qtyDone, hasBlocked
}

// DeriveSpecStatus 根据明细集合推导规格单状态。
// closed 为单向状态:一旦满足关闭条件即不再自动回退,
// 空明细集合不会触发关闭。
func DeriveSpecStatus(spec *entity.Specification, items []entity.SpecItem) string {
	if len(items) > 0 {
		allSettled := true
		for _, it := range items {
			if it.Status != entity.ItemStatusFulfilled && it.Status != entity.ItemStatusCanceled {
				allSettled = false
				break
			}
		}
		if allSettled {
			return entity.SpecStatusClosed
		}
	}

	if spec.Status == entity.SpecStatusClosed {
		return entity.SpecStatusClosed
	}

	if spec.PublishedToOperators {
		return entity.SpecStatusActive
	}
	for _, it := range items {
		if it.QtyDone > 0 || it.Status == entity.ItemStatusPartial || it.Status == entity.ItemStatusBlocked {
			return entity.SpecStatusActive
		}
	}
	return spec.Status
}

// ProgressService 进度汇总服务,负责工单→明细→规格单的三级状态联动。
type ProgressService struct {
	specRepo *repository.SpecificationRepository
	itemRepo *repository.SpecItemRepository
	woRepo   *repository.WorkOrderRepository
	logger   *zap.Logger
}

// NewProgressService 创建进度汇总服务
func NewProgressService(
	specRepo *repository.SpecificationRepository,
	itemRepo *repository.SpecItemRepository,
	woRepo *repository.WorkOrderRepository,
	logger *zap.Logger,
) *ProgressService {
	return &ProgressService{specRepo: specRepo, itemRepo: itemRepo, woRepo: woRepo, logger: logger}
}

// SyncItemFromWorkOrders 由工单汇总刷新单条明细及其所属规格单的状态。
func (s *ProgressService) SyncItemFromWorkOrders(ctx context.Context, itemID string) error {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return &domain.RecomputeError{ItemID: itemID, Err: err}
	}

	orders, err := s.woRepo.ListByItem(ctx, itemID)
	if err != nil {
		return &domain.RecomputeError{ItemID: itemID, Err: err}
	}

	// 手工覆盖过进度的明细(无工单)保持原值
	if len(orders) > 0 {
		qtyDone, hasBlocked := AggregateWorkOrders(orders)
		item.QtyDone = qtyDone
		item.Status = DeriveItemStatus(qtyDone, item.QtyRequired, hasBlocked)
		if err := s.itemRepo.Update(ctx, item); err != nil {
			return &domain.RecomputeError{ItemID: itemID, Err: err}
		}
	}

	if err := s.RecomputeSpecification(ctx, item.SpecificationID); err != nil {
		return &domain.RecomputeError{ItemID: itemID, Err: err}
	}
	return nil
}

// RecomputeSpecification 重算规格单状态
func (s *ProgressService) RecomputeSpecification(ctx context.Context, specID string) error {
	spec, err := s.specRepo.FindByID(ctx, specID)
	if err != nil {
		return err
	}

	items, err := s.itemRepo.ListBySpecification(ctx, specID)
	if err != nil {
		return err
	}

	next := DeriveSpecStatus(spec, items)
	if next == spec.Status {
		return nil
	}

	spec.Status = next
	if err := s.specRepo.Update(ctx, spec); err != nil {
		return fmt.Errorf("更新规格单状态失败: %w", err)
	}

	s.logger.Info("specification status recomputed",
		zap.String("spec_id", spec.ID),
		zap.String("status", next))
	return nil
}

// ResyncAll 全量刷新:逐条明细由工单重新汇总,再重算各规格单状态。
// 供读侧快照加载前调用,配合 RefreshGate 合并并发触发。
func (s *ProgressService) ResyncAll(ctx context.Context) error {
	items, err := s.itemRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	touched := make(map[string]bool)
	for i := range items {
		item := &items[i]
		orders, err := s.woRepo.ListByItem(ctx, item.ID)
		if err != nil {
			return &domain.RecomputeError{ItemID: item.ID, Err: err}
		}
		if len(orders) == 0 {
			touched[item.SpecificationID] = true
			continue
		}
		qtyDone, hasBlocked := AggregateWorkOrders(orders)
		status := DeriveItemStatus(qtyDone, item.QtyRequired, hasBlocked)
		if qtyDone != item.QtyDone || status != item.Status {
			item.QtyDone = qtyDone
			item.Status = status
			if err := s.itemRepo.Update(ctx, item); err != nil {
				return &domain.RecomputeError{ItemID: item.ID, Err: err}
			}
		}
		touched[item.SpecificationID] = true
	}

	for specID := range touched {
		if err := s.RecomputeSpecification(ctx, specID); err != nil {
			return err
		}
	}
	return nil
}
