package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("user")
		}
		return nil, err
	}
	return &user, nil
}

// FindByUsername 按用户名查找活跃用户
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("user")
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// ListActive 活跃用户列表
func (r *UserRepository) ListActive(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

// AuditEventRepository 审计事件仓库
type AuditEventRepository struct {
	db *gorm.DB
}

// NewAuditEventRepository 创建审计事件仓库
func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

// Create 写入审计事件
func (r *AuditEventRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// List 审计事件列表（分页）
func (r *AuditEventRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AuditEvent, int64, error) {
	var events []entity.AuditEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.AuditEvent{})
	if entityType := filters["entity_type"]; entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID := filters["entity_id"]; entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}
	if action := filters["action"]; action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&events).Error

	return events, total, err
}
