package entity

import (
	"time"
)

// Attachment 附件:挂在规格单、工单或零件上的图纸、照片等文件,
// 文件本体存 MinIO,这里只存对象路径与元数据。
type Attachment struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	EntityType string    `json:"entity_type" gorm:"size:30;not null;index:idx_attachment_entity"`
	EntityID   string    `json:"entity_id" gorm:"size:36;not null;index:idx_attachment_entity"`
	FileName   string    `json:"file_name" gorm:"size:255;not null"`
	ObjectName string    `json:"object_name" gorm:"size:512;not null"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type" gorm:"size:100"`
	UploadedBy string    `json:"uploaded_by" gorm:"size:36;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}
