package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"gorm.io/gorm"
)

// SpecificationRepository 规格单仓库
type SpecificationRepository struct {
	db *gorm.DB
}

// NewSpecificationRepository 创建规格单仓库
func NewSpecificationRepository(db *gorm.DB) *SpecificationRepository {
	return &SpecificationRepository{db: db}
}

// FindByID 根据ID查找规格单
func (r *SpecificationRepository) FindByID(ctx context.Context, id string) (*entity.Specification, error) {
	var spec entity.Specification
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&spec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("specification")
		}
		return nil, err
	}
	return &spec, nil
}

// FindByNumber 按单号查找
func (r *SpecificationRepository) FindByNumber(ctx context.Context, number string) (*entity.Specification, error) {
	var spec entity.Specification
	err := r.db.WithContext(ctx).
		Where("number = ?", number).
		First(&spec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("specification")
		}
		return nil, err
	}
	return &spec, nil
}

// Create 创建规格单
func (r *SpecificationRepository) Create(ctx context.Context, spec *entity.Specification) error {
	return r.db.WithContext(ctx).Create(spec).Error
}

// Update 更新规格单
func (r *SpecificationRepository) Update(ctx context.Context, spec *entity.Specification) error {
	return r.db.WithContext(ctx).Save(spec).Error
}

// List 规格单列表，按创建时间倒序
func (r *SpecificationRepository) List(ctx context.Context, filters map[string]string) ([]entity.Specification, error) {
	var specs []entity.Specification

	query := r.db.WithContext(ctx).Model(&entity.Specification{})
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if customer := filters["customer"]; customer != "" {
		query = query.Where("customer ILIKE ?", "%"+customer+"%")
	}

	err := query.Order("created_at DESC").Find(&specs).Error
	return specs, err
}
