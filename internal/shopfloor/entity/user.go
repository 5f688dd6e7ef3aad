package entity

import (
	"time"
)

// Role 用户角色
const (
	RoleAdmin         = "admin"
	RoleDirector      = "director"
	RoleChiefEngineer = "chief_engineer"
	RoleShopHead      = "shop_head"
	RoleSupply        = "supply"
	RoleMaster        = "master"
	RoleOperator      = "operator"
)

// Permission 权限点
const (
	PermManageSpecifications = "canManageSpecifications"
	PermViewSpecifications   = "canViewSpecifications"
	PermGrantSpecAccess      = "canGrantSpecificationAccess"
	PermManageWorkOrders     = "canManageWorkOrders"
	PermReportProgress       = "canReportProgress"
	PermManageUsers          = "canManageUsers"
	PermDeleteData           = "canDeleteData"
	PermViewAudit            = "canViewAudit"
)

// User 用户
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Username     string    `json:"username" gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Role         string    `json:"role" gorm:"size:50;not null;index"`
	Email        string    `json:"email" gorm:"size:255"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// rolePermissions 角色权限矩阵。operator 没有 canViewSpecifications：
// 它只能看到被授权或已发布的规格单，见 service 的可见性推导。
var rolePermissions = map[string]map[string]bool{
	RoleAdmin: {
		PermManageSpecifications: true,
		PermViewSpecifications:   true,
		PermGrantSpecAccess:      true,
		PermManageWorkOrders:     true,
		PermReportProgress:       true,
		PermManageUsers:          true,
		PermDeleteData:           true,
		PermViewAudit:            true,
	},
	RoleDirector: {
		PermManageSpecifications: true,
		PermViewSpecifications:   true,
		PermGrantSpecAccess:      true,
		PermManageWorkOrders:     true,
		PermReportProgress:       true,
		PermViewAudit:            true,
	},
	RoleChiefEngineer: {
		PermViewSpecifications: true,
		PermManageWorkOrders:   true,
		PermReportProgress:     true,
	},
	RoleShopHead: {
		PermManageSpecifications: true,
		PermViewSpecifications:   true,
		PermGrantSpecAccess:      true,
		PermManageWorkOrders:     true,
		PermReportProgress:       true,
	},
	RoleSupply: {
		PermViewSpecifications: true,
		PermReportProgress:     true,
	},
	RoleMaster: {
		PermViewSpecifications: true,
		PermManageWorkOrders:   true,
		PermReportProgress:     true,
	},
	RoleOperator: {
		PermReportProgress: true,
	},
}

// HasPermission 检查角色是否持有某权限点
func HasPermission(role, permission string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[permission]
}

// PermissionsForRole 返回角色的全部权限点（JWT perms claim 用）
func PermissionsForRole(role string) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(perms))
	for p, granted := range perms {
		if granted {
			out = append(out, p)
		}
	}
	return out
}
