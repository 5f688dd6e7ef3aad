package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"gorm.io/gorm"
)

// AccessGrantRepository 授权仓库
type AccessGrantRepository struct {
	db *gorm.DB
}

// NewAccessGrantRepository 创建授权仓库
func NewAccessGrantRepository(db *gorm.DB) *AccessGrantRepository {
	return &AccessGrantRepository{db: db}
}

// FindByID 根据ID查找授权
func (r *AccessGrantRepository) FindByID(ctx context.Context, id string) (*entity.AccessGrant, error) {
	var grant entity.AccessGrant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("access grant")
		}
		return nil, err
	}
	return &grant, nil
}

// FindByTuple 按 (entity_type, entity_id, user_id) 查找，不存在时返回 nil
func (r *AccessGrantRepository) FindByTuple(ctx context.Context, entityType, entityID, userID string) (*entity.AccessGrant, error) {
	var grant entity.AccessGrant
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND user_id = ?", entityType, entityID, userID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

// Create 创建授权
func (r *AccessGrantRepository) Create(ctx context.Context, grant *entity.AccessGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

// Update 更新授权
func (r *AccessGrantRepository) Update(ctx context.Context, grant *entity.AccessGrant) error {
	return r.db.WithContext(ctx).Save(grant).Error
}

// Delete 删除授权
func (r *AccessGrantRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.AccessGrant{}).Error
}

// List 授权列表，支持按对象类型/对象/用户过滤
func (r *AccessGrantRepository) List(ctx context.Context, filters map[string]string) ([]entity.AccessGrant, error) {
	var grants []entity.AccessGrant

	query := r.db.WithContext(ctx).Model(&entity.AccessGrant{})
	if entityType := filters["entity_type"]; entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID := filters["entity_id"]; entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}
	if userID := filters["user_id"]; userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	err := query.Order("created_at DESC").Find(&grants).Error
	return grants, err
}

// ListByUser 某用户持有的全部授权（可见性推导用）
func (r *AccessGrantRepository) ListByUser(ctx context.Context, userID string) ([]entity.AccessGrant, error) {
	var grants []entity.AccessGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&grants).Error
	return grants, err
}
