package service

import (
	"context"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
)

// VisibilityService 可见性解析服务。
// 每次读取都基于当前授权与发布状态重新推导,不做缓存;
// 读取前经 RefreshGate 合并触发一次全量进度刷新,
// 保证返回的快照不落后于最近一次写入。
type VisibilityService struct {
	specRepo  *repository.SpecificationRepository
	itemRepo  *repository.SpecItemRepository
	woRepo    *repository.WorkOrderRepository
	grantRepo *repository.AccessGrantRepository
	partRepo  *repository.PartRepository
	progress  *ProgressService
	gate      *RefreshGate
	enabled   bool
}

// NewVisibilityService 创建可见性解析服务
func NewVisibilityService(
	specRepo *repository.SpecificationRepository,
	itemRepo *repository.SpecItemRepository,
	woRepo *repository.WorkOrderRepository,
	grantRepo *repository.AccessGrantRepository,
	partRepo *repository.PartRepository,
	progress *ProgressService,
	enabled bool,
) *VisibilityService {
	return &VisibilityService{
		specRepo:  specRepo,
		itemRepo:  itemRepo,
		woRepo:    woRepo,
		grantRepo: grantRepo,
		partRepo:  partRepo,
		progress:  progress,
		gate:      NewRefreshGate(),
		enabled:   enabled,
	}
}

func (s *VisibilityService) refresh(ctx context.Context) error {
	return s.gate.Do(func() error {
		return s.progress.ResyncAll(ctx)
	})
}

// ListSpecifications 按主体权限返回可见的规格单
func (s *VisibilityService) ListSpecifications(ctx context.Context, actor Actor, status, customer string) ([]entity.Specification, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	filters := make(map[string]string)
	if status != "" {
		filters["status"] = status
	}
	if customer != "" {
		filters["customer"] = customer
	}
	specs, err := s.specRepo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := VisibleSpecifications(actor, grants, specs)
	if out == nil {
		out = []entity.Specification{}
	}
	return out, nil
}

// GetSpecification 按主体权限返回单个规格单及其明细
func (s *VisibilityService) GetSpecification(ctx context.Context, actor Actor, id string) (*entity.Specification, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	spec, err := s.specRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	visible := VisibleSpecifications(actor, grants, []entity.Specification{*spec})
	if len(visible) == 0 {
		// 不可见与不存在对外同样呈现,避免泄露规格单编号
		return nil, domain.NotFoundf("规格单")
	}

	items, err := s.itemRepo.ListBySpecification(ctx, id)
	if err != nil {
		return nil, err
	}
	spec.Items = items
	return spec, nil
}

// GetWorkOrder 按主体权限返回单个工单。不可见与不存在同样按不存在处理。
func (s *VisibilityService) GetWorkOrder(ctx context.Context, actor Actor, id string) (*entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	spec, err := s.specRepo.FindByID(ctx, wo.SpecificationID)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(VisibleWorkOrders(actor, grants, []entity.Specification{*spec}, []entity.WorkOrder{*wo})) == 0 {
		return nil, domain.NotFoundf("工单")
	}
	return wo, nil
}

// ListWorkOrdersBySpecification 返回可见规格单下的工单,规格单不可见时按不存在处理。
func (s *VisibilityService) ListWorkOrdersBySpecification(ctx context.Context, actor Actor, specID string) ([]entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	spec, err := s.specRepo.FindByID(ctx, specID)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(VisibleSpecifications(actor, grants, []entity.Specification{*spec})) == 0 {
		return nil, domain.NotFoundf("规格单")
	}

	orders, err := s.woRepo.ListBySpecification(ctx, specID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []entity.WorkOrder{}
	}
	return orders, nil
}

// MachineQueue 按主体权限返回机台排队中的工单
func (s *VisibilityService) MachineQueue(ctx context.Context, actor Actor, machineID string) ([]entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	orders, err := s.woRepo.ListQueuedByMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}
	specs, err := s.specRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := VisibleWorkOrders(actor, grants, specs, orders)
	if out == nil {
		out = []entity.WorkOrder{}
	}
	return out, nil
}

// GetPart 按主体权限返回单个零件。不可见与不存在同样按不存在处理。
func (s *VisibilityService) GetPart(ctx context.Context, actor Actor, id string) (*entity.Part, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	part, err := s.partRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	specs, err := s.specRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(VisibleParts(actor, grants, specs, items, []entity.Part{*part})) == 0 {
		return nil, domain.NotFoundf("零件")
	}
	return part, nil
}

// ListWorkOrders 按主体权限返回可见的工单
func (s *VisibilityService) ListWorkOrders(ctx context.Context, actor Actor, status, machineID, operatorID string) ([]entity.WorkOrder, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	filters := make(map[string]string)
	if status != "" {
		filters["status"] = status
	}
	if machineID != "" {
		filters["machine_id"] = machineID
	}
	if operatorID != "" {
		filters["operator_id"] = operatorID
	}
	orders, err := s.woRepo.ListAll(ctx, filters)
	if err != nil {
		return nil, err
	}
	specs, err := s.specRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := VisibleWorkOrders(actor, grants, specs, orders)
	if out == nil {
		out = []entity.WorkOrder{}
	}
	return out, nil
}

// ListParts 按主体权限返回可见的零件
func (s *VisibilityService) ListParts(ctx context.Context, actor Actor, status string) ([]entity.Part, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	parts, err := s.partRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if status != "" {
		filtered := parts[:0:0]
		for _, p := range parts {
			if p.Status == status {
				filtered = append(filtered, p)
			}
		}
		parts = filtered
	}
	specs, err := s.specRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := VisibleParts(actor, grants, specs, items, parts)
	if out == nil {
		out = []entity.Part{}
	}
	return out, nil
}
