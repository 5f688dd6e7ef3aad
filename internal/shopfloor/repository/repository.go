package repository

import (
	"gorm.io/gorm"
)

// Repositories 仓库集合
type Repositories struct {
	Specification *SpecificationRepository
	SpecItem      *SpecItemRepository
	WorkOrder     *WorkOrderRepository
	AccessGrant   *AccessGrantRepository
	Part          *PartRepository
	Machine       *MachineRepository
	User          *UserRepository
	AuditEvent    *AuditEventRepository
	Attachment    *AttachmentRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Specification: NewSpecificationRepository(db),
		SpecItem:      NewSpecItemRepository(db),
		WorkOrder:     NewWorkOrderRepository(db),
		AccessGrant:   NewAccessGrantRepository(db),
		Part:          NewPartRepository(db),
		Machine:       NewMachineRepository(db),
		User:          NewUserRepository(db),
		AuditEvent:    NewAuditEventRepository(db),
		Attachment:    NewAttachmentRepository(db),
	}
}
