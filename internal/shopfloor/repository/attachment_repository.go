package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"gorm.io/gorm"
)

// AttachmentRepository 附件仓库
type AttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository 创建附件仓库
func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// FindByID 根据ID查找附件
func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entity.Attachment, error) {
	var att entity.Attachment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&att).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("attachment")
		}
		return nil, err
	}
	return &att, nil
}

// Create 创建附件
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	return r.db.WithContext(ctx).Create(att).Error
}

// Delete 删除附件
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Attachment{}, "id = ?", id).Error
}

// ListByEntity 查询实体下的附件
func (r *AttachmentRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]entity.Attachment, error) {
	var atts []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&atts).Error
	return atts, err
}
