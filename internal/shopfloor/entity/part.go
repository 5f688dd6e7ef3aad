package entity

import (
	"time"
)

// PartStatus 零件状态
const (
	PartStatusNotStarted = "not_started"
	PartStatusInProgress = "in_progress"
	PartStatusDone       = "done"
)

// Part 零件台账：make 行项引用的制造对象，也用于孤儿清理判定
type Part struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Code        string     `json:"code" gorm:"size:100;not null;index"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	Description string     `json:"description" gorm:"type:text"`
	QtyPlan     int        `json:"qty_plan" gorm:"not null"`
	QtyDone     int        `json:"qty_done" gorm:"not null;default:0"`
	Status      string     `json:"status" gorm:"size:20;not null;default:not_started;index"`
	Deadline    *time.Time `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Part) TableName() string {
	return "parts"
}

// Machine 机床
type Machine struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Name       string    `json:"name" gorm:"size:255;not null"`
	Code       string    `json:"code" gorm:"size:100"`
	Department string    `json:"department" gorm:"size:50;not null;index"`
	IsActive   bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Machine) TableName() string {
	return "machines"
}
