package service

import (
	"context"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService 审计服务。写入失败只记日志,不影响业务操作本身。
type AuditService struct {
	repo   *repository.AuditEventRepository
	logger *zap.Logger
}

// NewAuditService 创建审计服务
func NewAuditService(repo *repository.AuditEventRepository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Record 记录一条审计事件
func (s *AuditService) Record(ctx context.Context, actor Actor, action, entityType, entityID, entityName string, details map[string]interface{}) {
	event := &entity.AuditEvent{
		ID:         uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		EntityName: entityName,
		UserID:     actor.ID,
		UserName:   actor.Name,
		Details:    details,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Warn("audit event write failed",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// List 查询审计事件
func (s *AuditService) List(ctx context.Context, entityType, entityID, userID string, page, pageSize int) ([]entity.AuditEvent, int64, error) {
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
	return s.repo.List(ctx, page, pageSize, filters)
}
