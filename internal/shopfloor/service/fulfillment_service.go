package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FulfillmentService 规格单履约服务:规格单与明细的全生命周期,
// 含创建级联、删除级联与发布开关。
type FulfillmentService struct {
	db        *gorm.DB
	specRepo  *repository.SpecificationRepository
	itemRepo  *repository.SpecItemRepository
	woRepo    *repository.WorkOrderRepository
	partRepo  *repository.PartRepository
	grantRepo *repository.AccessGrantRepository
	progress  *ProgressService
	audit     *AuditService
	enabled   bool
	logger    *zap.Logger
}

// NewFulfillmentService 创建规格单履约服务
func NewFulfillmentService(
	db *gorm.DB,
	repos *repository.Repositories,
	progress *ProgressService,
	audit *AuditService,
	enabled bool,
	logger *zap.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		db:        db,
		specRepo:  repos.Specification,
		itemRepo:  repos.SpecItem,
		woRepo:    repos.WorkOrder,
		partRepo:  repos.Part,
		grantRepo: repos.AccessGrant,
		progress:  progress,
		audit:     audit,
		enabled:   enabled,
		logger:    logger,
	}
}

// SpecItemInput 明细录入
type SpecItemInput struct {
	ItemType    string  `json:"item_type" binding:"required"`
	PartID      *string `json:"part_id"`
	Description string  `json:"description"`
	QtyRequired int     `json:"qty_required"`
	UOM         string  `json:"uom"`
	Comment     string  `json:"comment"`
}

// CreateSpecificationRequest 创建规格单请求
type CreateSpecificationRequest struct {
	Number               string          `json:"number" binding:"required"`
	Customer             string          `json:"customer"`
	Deadline             *time.Time      `json:"deadline"`
	Note                 string          `json:"note"`
	PublishedToOperators bool            `json:"published_to_operators"`
	Items                []SpecItemInput `json:"items"`
}

// UpdateSpecificationRequest 更新规格单请求
type UpdateSpecificationRequest struct {
	Number   *string    `json:"number"`
	Customer *string    `json:"customer"`
	Deadline *time.Time `json:"deadline"`
	Note     *string    `json:"note"`
	Status   *string    `json:"status"`
}

// UpdateItemProgressRequest 明细进度覆盖请求
type UpdateItemProgressRequest struct {
	QtyDone *int    `json:"qty_done"`
	Status  *string `json:"status"`
}

func (s *FulfillmentService) validateItemInput(ctx context.Context, in *SpecItemInput) error {
	if in.ItemType != entity.ItemTypeMake && in.ItemType != entity.ItemTypeCoop {
		return domain.Validationf("item_type", "明细类型必须是 make 或 coop")
	}
	if in.QtyRequired <= 0 {
		return domain.Validationf("qty_required", "需求数量必须大于 0")
	}
	if in.ItemType == entity.ItemTypeMake {
		if in.PartID == nil || *in.PartID == "" {
			return domain.Validationf("part_id", "自制明细必须关联零件")
		}
		if _, err := s.partRepo.FindByID(ctx, *in.PartID); err != nil {
			return domain.Validationf("part_id", "零件不存在")
		}
	}
	return nil
}

// CreateSpecification 创建规格单。明细与自制件工单在同一事务内级联创建,
// 任一步失败则全部回滚。
func (s *FulfillmentService) CreateSpecification(ctx context.Context, actor Actor, req *CreateSpecificationRequest) (*entity.Specification, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if strings.TrimSpace(req.Number) == "" {
		return nil, domain.Validationf("number", "编号不能为空")
	}
	if existing, err := s.specRepo.FindByNumber(ctx, req.Number); err == nil && existing != nil {
		return nil, domain.Validationf("number", "编号已存在")
	}
	for i := range req.Items {
		if err := s.validateItemInput(ctx, &req.Items[i]); err != nil {
			return nil, err
		}
	}

	spec := &entity.Specification{
		ID:                   uuid.New().String(),
		Number:               strings.TrimSpace(req.Number),
		Customer:             req.Customer,
		Deadline:             req.Deadline,
		Note:                 req.Note,
		Status:               entity.SpecStatusDraft,
		PublishedToOperators: req.PublishedToOperators,
		CreatedBy:            actor.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(spec).Error; err != nil {
			return fmt.Errorf("创建规格单失败: %w", err)
		}
		for i := range req.Items {
			in := &req.Items[i]
			item := &entity.SpecItem{
				ID:              uuid.New().String(),
				SpecificationID: spec.ID,
				LineNo:          i + 1,
				ItemType:        in.ItemType,
				PartID:          in.PartID,
				Description:     in.Description,
				QtyRequired:     in.QtyRequired,
				UOM:             in.UOM,
				Comment:         in.Comment,
				Status:          entity.ItemStatusOpen,
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("创建规格单明细失败: %w", err)
			}
			if in.ItemType == entity.ItemTypeMake && in.PartID != nil {
				wo := &entity.WorkOrder{
					ID:              uuid.New().String(),
					SpecificationID: spec.ID,
					SpecItemID:      item.ID,
					PartID:          *in.PartID,
					Status:          entity.WOStatusBacklog,
					QtyPlan:         in.QtyRequired,
					Priority:        entity.WOPriorityNormal,
					CreatedBy:       actor.ID,
				}
				if err := tx.Create(wo).Error; err != nil {
					return fmt.Errorf("创建工单失败: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 级联已提交,重算失败原样上报
	if err := s.progress.RecomputeSpecification(ctx, spec.ID); err != nil {
		s.logger.Error("recompute after create failed", zap.String("spec_id", spec.ID), zap.Error(err))
		return nil, &domain.RecomputeError{SpecID: spec.ID, Err: err}
	}

	s.audit.Record(ctx, actor, "specification.create", entity.AuditEntitySpecification, spec.ID, spec.Number, map[string]interface{}{
		"items": len(req.Items),
	})

	return s.specRepo.FindByID(ctx, spec.ID)
}

// UpdateSpecification 更新规格单抬头字段。显式传入的状态优先生效,
// 之后仍会走一次状态重算。
func (s *FulfillmentService) UpdateSpecification(ctx context.Context, actor Actor, id string, req *UpdateSpecificationRequest) (*entity.Specification, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	spec, err := s.specRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Number != nil {
		number := strings.TrimSpace(*req.Number)
		if number == "" {
			return nil, domain.Validationf("number", "编号不能为空")
		}
		if number != spec.Number {
			if existing, err := s.specRepo.FindByNumber(ctx, number); err == nil && existing != nil {
				return nil, domain.Validationf("number", "编号已存在")
			}
			spec.Number = number
		}
	}
	if req.Customer != nil {
		spec.Customer = *req.Customer
	}
	if req.Deadline != nil {
		spec.Deadline = req.Deadline
	}
	if req.Note != nil {
		spec.Note = *req.Note
	}
	if req.Status != nil {
		switch *req.Status {
		case entity.SpecStatusDraft, entity.SpecStatusActive, entity.SpecStatusClosed:
			spec.Status = *req.Status
		default:
			return nil, domain.Validationf("status", "非法状态")
		}
	}

	if err := s.specRepo.Update(ctx, spec); err != nil {
		return nil, fmt.Errorf("更新规格单失败: %w", err)
	}
	if err := s.progress.RecomputeSpecification(ctx, spec.ID); err != nil {
		s.logger.Error("recompute after update failed", zap.String("spec_id", spec.ID), zap.Error(err))
		return nil, &domain.RecomputeError{SpecID: spec.ID, Err: err}
	}

	s.audit.Record(ctx, actor, "specification.update", entity.AuditEntitySpecification, spec.ID, spec.Number, nil)
	return s.specRepo.FindByID(ctx, spec.ID)
}

// SetPublished 切换规格单对操作工的发布状态。发布会把草稿推进为执行中。
func (s *FulfillmentService) SetPublished(ctx context.Context, actor Actor, id string, published bool) (*entity.Specification, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	spec, err := s.specRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	spec.PublishedToOperators = published
	if published && spec.Status == entity.SpecStatusDraft {
		spec.Status = entity.SpecStatusActive
	}
	if err := s.specRepo.Update(ctx, spec); err != nil {
		return nil, fmt.Errorf("更新规格单失败: %w", err)
	}

	s.audit.Record(ctx, actor, "specification.publish", entity.AuditEntitySpecification, spec.ID, spec.Number, map[string]interface{}{
		"published": published,
	})
	return spec, nil
}

// DeleteSpecification 删除规格单:明细、工单与相关授权一并删除;
// cascadeParts 为真时连带删除不再被其他地方引用的零件。
func (s *FulfillmentService) DeleteSpecification(ctx context.Context, actor Actor, id string, cascadeParts bool) error {
	if !s.enabled {
		return domain.ErrUnsupported
	}

	spec, err := s.specRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	items, err := s.itemRepo.ListBySpecification(ctx, id)
	if err != nil {
		return err
	}
	orders, err := s.woRepo.ListBySpecification(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, wo := range orders {
			if err := tx.Where("entity_type = ? AND entity_id = ?", entity.GrantEntityWorkOrder, wo.ID).
				Delete(&entity.AccessGrant{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("entity_type = ? AND entity_id = ?", entity.GrantEntitySpecification, id).
			Delete(&entity.AccessGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("specification_id = ?", id).Delete(&entity.WorkOrder{}).Error; err != nil {
			return err
		}
		if err := tx.Where("specification_id = ?", id).Delete(&entity.SpecItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.Specification{}, "id = ?", id).Error; err != nil {
			return err
		}

		if cascadeParts {
			for _, item := range items {
				if item.PartID == nil {
					continue
				}
				partID := *item.PartID
				var itemRefs int64
				if err := tx.Model(&entity.SpecItem{}).Where("part_id = ?", partID).Count(&itemRefs).Error; err != nil {
					return err
				}
				var woRefs int64
				if err := tx.Model(&entity.WorkOrder{}).Where("part_id = ?", partID).Count(&woRefs).Error; err != nil {
					return err
				}
				if itemRefs > 0 || woRefs > 0 {
					continue
				}
				if err := tx.Where("entity_type = ? AND entity_id = ?", entity.GrantEntityPart, partID).
					Delete(&entity.AccessGrant{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&entity.Part{}, "id = ?", partID).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("删除规格单失败: %w", err)
	}

	s.audit.Record(ctx, actor, "specification.delete", entity.AuditEntitySpecification, id, spec.Number, map[string]interface{}{
		"cascade_parts": cascadeParts,
	})
	return nil
}

// CreateSpecItem 向已有规格单追加明细,行号接在当前最大行号之后。
// 追加的明细不自动建工单,由补单命令统一生成。
func (s *FulfillmentService) CreateSpecItem(ctx context.Context, actor Actor, specID string, in *SpecItemInput) (*entity.SpecItem, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	spec, err := s.specRepo.FindByID(ctx, specID)
	if err != nil {
		return nil, err
	}
	if err := s.validateItemInput(ctx, in); err != nil {
		return nil, err
	}

	maxLine, err := s.itemRepo.MaxLineNo(ctx, specID)
	if err != nil {
		return nil, err
	}

	item := &entity.SpecItem{
		ID:              uuid.New().String(),
		SpecificationID: specID,
		LineNo:          maxLine + 1,
		ItemType:        in.ItemType,
		PartID:          in.PartID,
		Description:     in.Description,
		QtyRequired:     in.QtyRequired,
		UOM:             in.UOM,
		Comment:         in.Comment,
		Status:          entity.ItemStatusOpen,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("创建规格单明细失败: %w", err)
	}

	if err := s.progress.RecomputeSpecification(ctx, specID); err != nil {
		s.logger.Error("recompute after item create failed", zap.String("spec_id", specID), zap.Error(err))
		return nil, &domain.RecomputeError{SpecID: specID, Err: err}
	}

	s.audit.Record(ctx, actor, "spec_item.create", entity.AuditEntitySpecItem, item.ID, spec.Number, map[string]interface{}{
		"line_no": item.LineNo,
	})
	return item, nil
}

// DeleteSpecItem 删除明细及其工单,剩余明细行号重排保持连续。
// 若明细关联的零件已有生产进展且无其他明细引用,删除会被拒绝,
// 避免零件悬空失联。
func (s *FulfillmentService) DeleteSpecItem(ctx context.Context, actor Actor, itemID string) error {
	if !s.enabled {
		return domain.ErrUnsupported
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return err
	}

	if item.PartID != nil {
		otherRefs, err := s.itemRepo.CountByPart(ctx, *item.PartID, itemID)
		if err != nil {
			return err
		}
		if otherRefs == 0 {
			part, err := s.partRepo.FindByID(ctx, *item.PartID)
			if err == nil && (part.QtyDone > 0 || part.Status != entity.PartStatusNotStarted) {
				return domain.Invariantf("零件 %s 已有生产进展且仅由该明细引用,不能删除", part.Code)
			}
		}
	}

	specID := item.SpecificationID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []entity.WorkOrder
		if err := tx.Where("spec_item_id = ?", itemID).Find(&orders).Error; err != nil {
			return err
		}
		for _, wo := range orders {
			if err := tx.Where("entity_type = ? AND entity_id = ?", entity.GrantEntityWorkOrder, wo.ID).
				Delete(&entity.AccessGrant{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("spec_item_id = ?", itemID).Delete(&entity.WorkOrder{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.SpecItem{}, "id = ?", itemID).Error; err != nil {
			return err
		}

		// 行号重排
		var remaining []entity.SpecItem
		if err := tx.Where("specification_id = ?", specID).Order("line_no ASC").Find(&remaining).Error; err != nil {
			return err
		}
		for i := range remaining {
			if remaining[i].LineNo != i+1 {
				if err := tx.Model(&entity.SpecItem{}).Where("id = ?", remaining[i].ID).
					Update("line_no", i+1).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("删除规格单明细失败: %w", err)
	}

	if err := s.progress.RecomputeSpecification(ctx, specID); err != nil {
		s.logger.Error("recompute after item delete failed", zap.String("spec_id", specID), zap.Error(err))
		return &domain.RecomputeError{SpecID: specID, Err: err}
	}

	s.audit.Record(ctx, actor, "spec_item.delete", entity.AuditEntitySpecItem, itemID, "", nil)
	return nil
}

// UpdateSpecItemProgress 手工覆盖明细进度,用于无工单的外协明细。
// 未显式给出状态时按数量推导。
func (s *FulfillmentService) UpdateSpecItemProgress(ctx context.Context, actor Actor, itemID string, req *UpdateItemProgressRequest) (*entity.SpecItem, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if req.QtyDone != nil {
		if *req.QtyDone < 0 {
			return nil, domain.Validationf("qty_done", "数量不能为负")
		}
		item.QtyDone = *req.QtyDone
	}
	if req.Status != nil {
		if !entity.ValidItemStatus(*req.Status) {
			return nil, domain.Validationf("status", "非法状态")
		}
		item.Status = *req.Status
	} else {
		item.Status = DeriveItemStatus(item.QtyDone, item.QtyRequired, false)
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("更新规格单明细失败: %w", err)
	}
	if err := s.progress.RecomputeSpecification(ctx, item.SpecificationID); err != nil {
		s.logger.Error("recompute after progress override failed", zap.String("spec_id", item.SpecificationID), zap.Error(err))
		return nil, &domain.RecomputeError{SpecID: item.SpecificationID, Err: err}
	}

	s.audit.Record(ctx, actor, "spec_item.progress", entity.AuditEntitySpecItem, item.ID, "", map[string]interface{}{
		"qty_done": item.QtyDone,
		"status":   item.Status,
	})
	return item, nil
}
