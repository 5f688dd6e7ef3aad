package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/google/uuid"
)

// AccessService 授权服务:按 (实体类型, 实体, 用户) 三元组管理操作工的
// 定向可见授权。同一三元组重复授予只更新权限级别,不产生重复记录。
type AccessService struct {
	grantRepo *repository.AccessGrantRepository
	specRepo  *repository.SpecificationRepository
	woRepo    *repository.WorkOrderRepository
	partRepo  *repository.PartRepository
	userRepo  *repository.UserRepository
	audit     *AuditService
	enabled   bool
}

// NewAccessService 创建授权服务
func NewAccessService(repos *repository.Repositories, audit *AuditService, enabled bool) *AccessService {
	return &AccessService{
		grantRepo: repos.AccessGrant,
		specRepo:  repos.Specification,
		woRepo:    repos.WorkOrder,
		partRepo:  repos.Part,
		userRepo:  repos.User,
		audit:     audit,
		enabled:   enabled,
	}
}

// GrantRequest 授权请求
type GrantRequest struct {
	EntityType string `json:"entity_type" binding:"required"`
	EntityID   string `json:"entity_id" binding:"required"`
	UserID     string `json:"user_id" binding:"required"`
	Permission string `json:"permission" binding:"required"`
}

func (s *AccessService) ensureEntityExists(ctx context.Context, entityType, entityID string) error {
	switch entityType {
	case entity.GrantEntitySpecification:
		_, err := s.specRepo.FindByID(ctx, entityID)
		return err
	case entity.GrantEntityWorkOrder:
		_, err := s.woRepo.FindByID(ctx, entityID)
		return err
	case entity.GrantEntityPart:
		_, err := s.partRepo.FindByID(ctx, entityID)
		return err
	default:
		return domain.Validationf("entity_type", "非法实体类型")
	}
}

// Grant 授予或更新授权。规格单授权走路由层的授权权限点,
// 工单与零件的定向授权额外要求规格单管理权限。
func (s *AccessService) Grant(ctx context.Context, actor Actor, req *GrantRequest) (*entity.AccessGrant, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if !entity.ValidGrantEntityType(req.EntityType) {
		return nil, domain.Validationf("entity_type", "非法实体类型")
	}
	if req.EntityType != entity.GrantEntitySpecification && !actor.CanManage() {
		return nil, domain.PermissionDenied(entity.PermManageSpecifications)
	}
	if !entity.ValidGrantPermission(req.Permission) {
		return nil, domain.Validationf("permission", "非法权限级别")
	}
	if err := s.ensureEntityExists(ctx, req.EntityType, req.EntityID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	existing, err := s.grantRepo.FindByTuple(ctx, req.EntityType, req.EntityID, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Permission = req.Permission
		existing.CreatedBy = actor.ID
		if err := s.grantRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("更新授权失败: %w", err)
		}
		s.audit.Record(ctx, actor, "access.grant", entity.AuditEntityAccessGrant, existing.ID, "", map[string]interface{}{
			"entity_type": req.EntityType,
			"entity_id":   req.EntityID,
			"user_id":     req.UserID,
			"permission":  req.Permission,
		})
		return existing, nil
	}

	grant := &entity.AccessGrant{
		ID:         uuid.New().String(),
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		UserID:     req.UserID,
		Permission: req.Permission,
		CreatedBy:  actor.ID,
	}
	if err := s.grantRepo.Create(ctx, grant); err != nil {
		return nil, fmt.Errorf("创建授权失败: %w", err)
	}

	s.audit.Record(ctx, actor, "access.grant", entity.AuditEntityAccessGrant, grant.ID, "", map[string]interface{}{
		"entity_type": req.EntityType,
		"entity_id":   req.EntityID,
		"user_id":     req.UserID,
		"permission":  req.Permission,
	})
	return grant, nil
}

// Revoke 撤销授权
func (s *AccessService) Revoke(ctx context.Context, actor Actor, id string) error {
	if !s.enabled {
		return domain.ErrUnsupported
	}

	grant, err := s.grantRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.grantRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("撤销授权失败: %w", err)
	}

	s.audit.Record(ctx, actor, "access.revoke", entity.AuditEntityAccessGrant, id, "", map[string]interface{}{
		"entity_type": grant.EntityType,
		"entity_id":   grant.EntityID,
		"user_id":     grant.UserID,
	})
	return nil
}

// List 查询授权记录。没有规格单查看/管理/授权权限的主体(操作工)
// 只能看到授予自己的记录。
func (s *AccessService) List(ctx context.Context, actor Actor, entityType, entityID, userID string) ([]entity.AccessGrant, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if !actor.CanManage() && !actor.CanView() && !entity.HasPermission(actor.Role, entity.PermGrantSpecAccess) {
		userID = actor.ID
	}
	filters := make(map[string]string)
	if entityType != "" {
		filters["entity_type"] = entityType
	}
	if entityID != "" {
		filters["entity_id"] = entityID
	}
	if userID != "" {
		filters["user_id"] = userID
	}
	return s.grantRepo.List(ctx, filters)
}
