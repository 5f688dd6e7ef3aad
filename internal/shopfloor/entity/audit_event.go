package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// 审计实体类型
const (
	AuditEntitySpecification = "specification"
	AuditEntitySpecItem      = "spec_item"
	AuditEntityWorkOrder     = "work_order"
	AuditEntityPart          = "part"
	AuditEntityAccessGrant   = "access_grant"
	AuditEntityUser          = "user"
)

// AuditEvent 审计事件：记录谁在何时对哪个实体做了什么
type AuditEvent struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Action     string    `json:"action" gorm:"size:64;not null;index"`
	EntityType string    `json:"entity_type" gorm:"size:30;not null;index"`
	EntityID   string    `json:"entity_id" gorm:"size:36;not null;index"`
	EntityName string    `json:"entity_name" gorm:"size:255"`
	UserID     string    `json:"user_id" gorm:"size:36;not null;index"`
	UserName   string    `json:"user_name" gorm:"size:255"`
	Details    JSONB     `json:"details,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
