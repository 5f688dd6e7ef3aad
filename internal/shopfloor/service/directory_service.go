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
)

// DirectoryService 台账服务:零件与机床的登记和维护
type DirectoryService struct {
	partRepo    *repository.PartRepository
	machineRepo *repository.MachineRepository
	audit       *AuditService
}

// NewDirectoryService 创建台账服务
func NewDirectoryService(partRepo *repository.PartRepository, machineRepo *repository.MachineRepository, audit *AuditService) *DirectoryService {
	return &DirectoryService{partRepo: partRepo, machineRepo: machineRepo, audit: audit}
}

// CreatePartRequest 零件登记请求
type CreatePartRequest struct {
	Code        string     `json:"code" binding:"required"`
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	QtyPlan     int        `json:"qty_plan"`
	Deadline    *time.Time `json:"deadline"`
}

// UpdatePartRequest 零件更新请求
type UpdatePartRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	QtyPlan     *int       `json:"qty_plan"`
	QtyDone     *int       `json:"qty_done"`
	Status      *string    `json:"status"`
	Deadline    *time.Time `json:"deadline"`
}

// CreateMachineRequest 机床登记请求
type CreateMachineRequest struct {
	Name       string `json:"name" binding:"required"`
	Code       string `json:"code"`
	Department string `json:"department" binding:"required"`
}

// CreatePart 登记零件
func (s *DirectoryService) CreatePart(ctx context.Context, actor Actor, req *CreatePartRequest) (*entity.Part, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, domain.Validationf("code", "编码不能为空")
	}
	if req.QtyPlan < 0 {
		return nil, domain.Validationf("qty_plan", "数量不能为负")
	}

	part := &entity.Part{
		ID:          uuid.New().String(),
		Code:        strings.TrimSpace(req.Code),
		Name:        req.Name,
		Description: req.Description,
		QtyPlan:     req.QtyPlan,
		Status:      entity.PartStatusNotStarted,
		Deadline:    req.Deadline,
	}
	if err := s.partRepo.Create(ctx, part); err != nil {
		return nil, fmt.Errorf("创建零件失败: %w", err)
	}

	s.audit.Record(ctx, actor, "part.create", entity.AuditEntityPart, part.ID, part.Code, nil)
	return part, nil
}

// UpdatePart 更新零件
func (s *DirectoryService) UpdatePart(ctx context.Context, actor Actor, id string, req *UpdatePartRequest) (*entity.Part, error) {
	part, err := s.partRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		part.Name = *req.Name
	}
	if req.Description != nil {
		part.Description = *req.Description
	}
	if req.QtyPlan != nil {
		if *req.QtyPlan < 0 {
			return nil, domain.Validationf("qty_plan", "数量不能为负")
		}
		part.QtyPlan = *req.QtyPlan
	}
	if req.QtyDone != nil {
		if *req.QtyDone < 0 {
			return nil, domain.Validationf("qty_done", "数量不能为负")
		}
		part.QtyDone = *req.QtyDone
	}
	if req.Status != nil {
		switch *req.Status {
		case entity.PartStatusNotStarted, entity.PartStatusInProgress, entity.PartStatusDone:
			part.Status = *req.Status
		default:
			return nil, domain.Validationf("status", "非法状态")
		}
	}
	if req.Deadline != nil {
		part.Deadline = req.Deadline
	}

	if err := s.partRepo.Update(ctx, part); err != nil {
		return nil, fmt.Errorf("更新零件失败: %w", err)
	}

	s.audit.Record(ctx, actor, "part.update", entity.AuditEntityPart, part.ID, part.Code, nil)
	return part, nil
}

// ListMachines 查询机床列表
func (s *DirectoryService) ListMachines(ctx context.Context) ([]entity.Machine, error) {
	return s.machineRepo.List(ctx)
}

// CreateMachine 登记机床
func (s *DirectoryService) CreateMachine(ctx context.Context, actor Actor, req *CreateMachineRequest) (*entity.Machine, error) {
	machine := &entity.Machine{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Code:       req.Code,
		Department: req.Department,
		IsActive:   true,
	}
	if err := s.machineRepo.Create(ctx, machine); err != nil {
		return nil, fmt.Errorf("创建机床失败: %w", err)
	}

	s.audit.Record(ctx, actor, "machine.create", "machine", machine.ID, machine.Name, nil)
	return machine, nil
}
