package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"gorm.io/gorm"
)

// PartRepository 零件仓库
type PartRepository struct {
	db *gorm.DB
}

// NewPartRepository 创建零件仓库
func NewPartRepository(db *gorm.DB) *PartRepository {
	return &PartRepository{db: db}
}

// FindByID 根据ID查找零件
func (r *PartRepository) FindByID(ctx context.Context, id string) (*entity.Part, error) {
	var part entity.Part
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("part")
		}
		return nil, err
	}
	return &part, nil
}

// Create 创建零件
func (r *PartRepository) Create(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

// Update 更新零件
func (r *PartRepository) Update(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Save(part).Error
}

// List 零件列表
func (r *PartRepository) List(ctx context.Context) ([]entity.Part, error) {
	var parts []entity.Part
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&parts).Error
	return parts, err
}

// MachineRepository 机床仓库
type MachineRepository struct {
	db *gorm.DB
}

// NewMachineRepository 创建机床仓库
func NewMachineRepository(db *gorm.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

// FindByID 根据ID查找机床
func (r *MachineRepository) FindByID(ctx context.Context, id string) (*entity.Machine, error) {
	var machine entity.Machine
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&machine).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("machine")
		}
		return nil, err
	}
	return &machine, nil
}

// Create 创建机床
func (r *MachineRepository) Create(ctx context.Context, machine *entity.Machine) error {
	return r.db.WithContext(ctx).Create(machine).Error
}

// List 活跃机床列表
func (r *MachineRepository) List(ctx context.Context) ([]entity.Machine, error) {
	var machines []entity.Machine
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("department ASC, name ASC").
		Find(&machines).Error
	return machines, err
}
