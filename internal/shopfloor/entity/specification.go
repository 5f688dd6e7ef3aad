package entity

import (
	"time"
)

// SpecificationStatus 订货规格单状态
const (
	SpecStatusDraft  = "draft"
	SpecStatusActive = "active"
	SpecStatusClosed = "closed"
)

// SpecItemType 行项类型：自制 / 外协
const (
	ItemTypeMake = "make"
	ItemTypeCoop = "coop"
)

// SpecItemStatus 行项状态
const (
	ItemStatusOpen      = "open"
	ItemStatusPartial   = "partial"
	ItemStatusFulfilled = "fulfilled"
	ItemStatusBlocked   = "blocked"
	ItemStatusCanceled  = "canceled"
)

// Specification 客户订货规格单
type Specification struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:36"`
	Number               string     `json:"number" gorm:"size:120;not null;uniqueIndex"`
	Customer             string     `json:"customer" gorm:"size:255"`
	Deadline             *time.Time `json:"deadline"`
	Note                 string     `json:"note" gorm:"type:text"`
	Status               string     `json:"status" gorm:"size:20;not null;default:draft;index"`
	PublishedToOperators bool       `json:"published_to_operators" gorm:"not null;default:false"`
	CreatedBy            string     `json:"created_by" gorm:"size:36;not null;index"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Items []SpecItem `json:"items,omitempty" gorm:"foreignKey:SpecificationID"`
}

func (Specification) TableName() string {
	return "specifications"
}

// SpecItem 规格单行项。line_no 在单内保持稠密 1..N；
// make 行项的 qty_done/status 由工单聚合派生，coop 行项只通过人工覆盖更新。
type SpecItem struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	SpecificationID string    `json:"specification_id" gorm:"size:36;not null;index"`
	LineNo          int       `json:"line_no" gorm:"not null"`
	ItemType        string    `json:"item_type" gorm:"size:20;not null;index"`
	PartID          *string   `json:"part_id" gorm:"size:36;index"`
	Description     string    `json:"description" gorm:"type:text;not null"`
	QtyRequired     int       `json:"qty_required" gorm:"not null"`
	QtyDone         int       `json:"qty_done" gorm:"not null;default:0"`
	UOM             string    `json:"uom" gorm:"size:20;not null;default:pcs"`
	Comment         string    `json:"comment" gorm:"type:text"`
	Status          string    `json:"status" gorm:"size:20;not null;default:open;index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (SpecItem) TableName() string {
	return "spec_items"
}

// ValidItemStatus 校验行项状态取值（人工覆盖用）
func ValidItemStatus(s string) bool {
	switch s {
	case ItemStatusOpen, ItemStatusPartial, ItemStatusFulfilled, ItemStatusBlocked, ItemStatusCanceled:
		return true
	}
	return false
}
