package entity

import (
	"time"
)

// GrantEntityType 授权对象类型
const (
	GrantEntitySpecification = "specification"
	GrantEntityWorkOrder     = "work_order"
	GrantEntityPart          = "part"
)

// GrantPermission 授权级别
const (
	GrantPermissionView   = "view"
	GrantPermissionReport = "report"
	GrantPermissionManage = "manage"
)

// AccessGrant 点状授权：一个用户对一个实体的一条权限记录。
// (entity_type, entity_id, user_id) 唯一，重复授权就地覆盖 permission。
type AccessGrant struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	EntityType string    `json:"entity_type" gorm:"size:30;not null;uniqueIndex:idx_grant_tuple"`
	EntityID   string    `json:"entity_id" gorm:"size:36;not null;uniqueIndex:idx_grant_tuple"`
	UserID     string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_grant_tuple"`
	Permission string    `json:"permission" gorm:"size:20;not null;default:view"`
	CreatedBy  string    `json:"created_by" gorm:"size:36;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AccessGrant) TableName() string {
	return "access_grants"
}

// ValidGrantEntityType 校验授权对象类型取值
func ValidGrantEntityType(s string) bool {
	switch s {
	case GrantEntitySpecification, GrantEntityWorkOrder, GrantEntityPart:
		return true
	}
	return false
}

// ValidGrantPermission 校验授权级别取值
func ValidGrantPermission(s string) bool {
	switch s {
	case GrantPermissionView, GrantPermissionReport, GrantPermissionManage:
		return true
	}
	return false
}
