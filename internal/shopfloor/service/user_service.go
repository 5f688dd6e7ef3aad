package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/google/uuid"
)

// UserService 用户服务
type UserService struct {
	repo  *repository.UserRepository
	audit *AuditService
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository, audit *AuditService) *UserService {
	return &UserService{repo: repo, audit: audit}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Email    string `json:"email"`
}

var validRoles = map[string]bool{
	entity.RoleAdmin:         true,
	entity.RoleDirector:      true,
	entity.RoleChiefEngineer: true,
	entity.RoleShopHead:      true,
	entity.RoleSupply:        true,
	entity.RoleMaster:        true,
	entity.RoleOperator:      true,
}

// Create 创建用户
func (s *UserService) Create(ctx context.Context, actor Actor, req *CreateUserRequest) (*entity.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, domain.Validationf("username", "用户名不能为空")
	}
	if len(req.Password) < 6 {
		return nil, domain.Validationf("password", "密码至少 6 位")
	}
	if !validRoles[req.Role] {
		return nil, domain.Validationf("role", "非法角色")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		Email:        req.Email,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.audit.Record(ctx, actor, "user.create", entity.AuditEntityUser, user.ID, user.Username, map[string]interface{}{
		"role": user.Role,
	})
	return user, nil
}

// ListActive 获取所有活跃用户
func (s *UserService) ListActive(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListActive(ctx)
}

// Get 获取用户
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}
