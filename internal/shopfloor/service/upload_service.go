package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// UploadService 附件服务。文件本体存 MinIO,路径用随机对象名,
// 原始文件名只保留在元数据里。
type UploadService struct {
	attRepo     *repository.AttachmentRepository
	minioClient *minio.Client
	bucket      string
	enabled     bool
}

// NewUploadService 创建附件服务
func NewUploadService(attRepo *repository.AttachmentRepository, minioClient *minio.Client, bucket string, enabled bool) *UploadService {
	return &UploadService{attRepo: attRepo, minioClient: minioClient, bucket: bucket, enabled: enabled}
}

// sanitizeFileName 清洗原始文件名:去掉路径部分和控制字符,
// 防止展示侧被注入路径或换行。
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// Upload 上传附件并挂到指定实体上
func (s *UploadService) Upload(ctx context.Context, actor Actor, entityType, entityID string, reader io.Reader, fileName string, fileSize int64, contentType string) (*entity.Attachment, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	if s.minioClient == nil {
		return nil, fmt.Errorf("对象存储未配置")
	}
	switch entityType {
	case entity.AuditEntitySpecification, entity.AuditEntityWorkOrder, entity.AuditEntityPart:
	default:
		return nil, domain.Validationf("entity_type", "非法实体类型")
	}

	fileName = sanitizeFileName(fileName)
	objectName := fmt.Sprintf("attachments/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	_, err := s.minioClient.PutObject(ctx, s.bucket, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	att := &entity.Attachment{
		ID:         uuid.New().String(),
		EntityType: entityType,
		EntityID:   entityID,
		FileName:   fileName,
		ObjectName: objectName,
		FileSize:   fileSize,
		MimeType:   contentType,
		UploadedBy: actor.ID,
	}
	if err := s.attRepo.Create(ctx, att); err != nil {
		return nil, fmt.Errorf("创建附件记录失败: %w", err)
	}
	return att, nil
}

// List 查询实体下的附件
func (s *UploadService) List(ctx context.Context, entityType, entityID string) ([]entity.Attachment, error) {
	if !s.enabled {
		return nil, domain.ErrUnsupported
	}
	return s.attRepo.ListByEntity(ctx, entityType, entityID)
}

// DownloadURL 生成带时效的下载链接
func (s *UploadService) DownloadURL(ctx context.Context, id string) (string, error) {
	if !s.enabled {
		return "", domain.ErrUnsupported
	}
	if s.minioClient == nil {
		return "", fmt.Errorf("对象存储未配置")
	}

	att, err := s.attRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
	u, err := s.minioClient.PresignedGetObject(ctx, s.bucket, att.ObjectName, 15*time.Minute, params)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

// Delete 删除附件记录及对象
func (s *UploadService) Delete(ctx context.Context, id string) error {
	if !s.enabled {
		return domain.ErrUnsupported
	}

	att, err := s.attRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if s.minioClient != nil {
		if err := s.minioClient.RemoveObject(ctx, s.bucket, att.ObjectName, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove object: %w", err)
		}
	}
	return s.attRepo.Delete(ctx, id)
}
