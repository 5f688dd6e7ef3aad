package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"gorm.io/gorm"
)

// WorkOrderRepository 工单仓库
type WorkOrderRepository struct {
	db *gorm.DB
}

// NewWorkOrderRepository 创建工单仓库
func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// FindByID 根据ID查找工单
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("work order")
		}
		return nil, err
	}
	return &wo, nil
}

// Create 创建工单
func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

// Update 更新工单
func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

// ListByItem 行项的全部工单
func (r *WorkOrderRepository) ListByItem(ctx context.Context, itemID string) ([]entity.WorkOrder, error) {
	var orders []entity.WorkOrder
	err := r.db.WithContext(ctx).
		Where("spec_item_id = ?", itemID).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// ListBySpecification 规格单的工单，按队列位置排序（未排队的排在最后）
func (r *WorkOrderRepository) ListBySpecification(ctx context.Context, specID string) ([]entity.WorkOrder, error) {
	var orders []entity.WorkOrder
	err := r.db.WithContext(ctx).
		Where("specification_id = ?", specID).
		Order("queue_pos ASC NULLS LAST, created_at ASC").
		Find(&orders).Error
	return orders, err
}

// ListQueuedByMachine 某机床当前排队中的工单，按位置升序
func (r *WorkOrderRepository) ListQueuedByMachine(ctx context.Context, machineID string) ([]entity.WorkOrder, error) {
	var orders []entity.WorkOrder
	err := r.db.WithContext(ctx).
		Where("machine_id = ? AND status = ?", machineID, entity.WOStatusQueued).
		Order("queue_pos ASC").
		Find(&orders).Error
	return orders, err
}

// ListAll 全部工单（可见性过滤在 service 层做）
func (r *WorkOrderRepository) ListAll(ctx context.Context, filters map[string]string) ([]entity.WorkOrder, error) {
	var orders []entity.WorkOrder

	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if machineID := filters["machine_id"]; machineID != "" {
		query = query.Where("machine_id = ?", machineID)
	}
	if operatorID := filters["operator_id"]; operatorID != "" {
		query = query.Where("assigned_operator_id = ?", operatorID)
	}

	err := query.Order("created_at DESC").Find(&orders).Error
	return orders, err
}
