package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"gorm.io/gorm"
)

// SpecItemRepository 规格单行项仓库
type SpecItemRepository struct {
	db *gorm.DB
}

// NewSpecItemRepository 创建行项仓库
func NewSpecItemRepository(db *gorm.DB) *SpecItemRepository {
	return &SpecItemRepository{db: db}
}

// FindByID 根据ID查找行项
func (r *SpecItemRepository) FindByID(ctx context.Context, id string) (*entity.SpecItem, error) {
	var item entity.SpecItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("spec item")
		}
		return nil, err
	}
	return &item, nil
}

// Create 创建行项
func (r *SpecItemRepository) Create(ctx context.Context, item *entity.SpecItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新行项
func (r *SpecItemRepository) Update(ctx context.Context, item *entity.SpecItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// ListBySpecification 按行号顺序返回规格单的行项
func (r *SpecItemRepository) ListBySpecification(ctx context.Context, specID string) ([]entity.SpecItem, error) {
	var items []entity.SpecItem
	err := r.db.WithContext(ctx).
		Where("specification_id = ?", specID).
		Order("line_no ASC").
		Find(&items).Error
	return items, err
}

// ListAll 全部行项（可见性过滤在 service 层做）
func (r *SpecItemRepository) ListAll(ctx context.Context) ([]entity.SpecItem, error) {
	var items []entity.SpecItem
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// MaxLineNo 规格单内当前最大行号，无行项时返回0
func (r *SpecItemRepository) MaxLineNo(ctx context.Context, specID string) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&entity.SpecItem{}).
		Select("MAX(line_no)").
		Where("specification_id = ?", specID).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// CountByPart 引用某零件的行项数，excludeID 可排除一条
func (r *SpecItemRepository) CountByPart(ctx context.Context, partID, excludeID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&entity.SpecItem{}).
		Where("part_id = ?", partID)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}
