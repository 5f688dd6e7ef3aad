package entity

import (
	"time"
)

// WorkOrderStatus 工单状态
const (
	WOStatusBacklog    = "backlog"
	WOStatusQueued     = "queued"
	WOStatusInProgress = "in_progress"
	WOStatusBlocked    = "blocked"
	WOStatusDone       = "done"
	WOStatusCanceled   = "canceled"
)

// WorkOrderPriority 工单优先级
const (
	WOPriorityLow    = "low"
	WOPriorityNormal = "normal"
	WOPriorityHigh   = "high"
)

// WorkOrder 机加工单：make 行项派生的在制单元，排入某台机床的队列执行。
// MachineID/QueuePos 只在 queued 后有意义；BlockReason 只在 blocked 期间有值；
// CompletedAt 当且仅当 status=done 时有值。
type WorkOrder struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:36"`
	SpecificationID    string     `json:"specification_id" gorm:"size:36;not null;index"`
	SpecItemID         string     `json:"spec_item_id" gorm:"size:36;not null;index"`
	PartID             string     `json:"part_id" gorm:"size:36;not null;index"`
	MachineID          *string    `json:"machine_id" gorm:"size:36;index"`
	AssignedOperatorID *string    `json:"assigned_operator_id" gorm:"size:36;index"`
	Status             string     `json:"status" gorm:"size:20;not null;default:backlog;index"`
	QueuePos           *int       `json:"queue_pos"`
	QtyPlan            int        `json:"qty_plan" gorm:"not null"`
	QtyDone            int        `json:"qty_done" gorm:"not null;default:0"`
	QtyScrap           int        `json:"qty_scrap" gorm:"not null;default:0"`
	Priority           string     `json:"priority" gorm:"size:10;not null;default:normal"`
	BlockReason        string     `json:"block_reason" gorm:"type:text"`
	StartedAt          *time.Time `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedBy          string     `json:"created_by" gorm:"size:36;not null"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// Terminal 是否处于终态
func (w *WorkOrder) Terminal() bool {
	return w.Status == WOStatusDone || w.Status == WOStatusCanceled
}
