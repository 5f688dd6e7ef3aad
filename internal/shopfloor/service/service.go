package service

import (
	"github.com/bitfantasy/shopfloor/internal/config"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth        *AuthService
	User        *UserService
	Fulfillment *FulfillmentService
	WorkOrder   *WorkOrderService
	Access      *AccessService
	Visibility  *VisibilityService
	Progress    *ProgressService
	Directory   *DirectoryService
	Upload      *UploadService
	Export      *ExportService
	Audit       *AuditService
}

// NewServices 创建服务集合。各业务域按部署能力开关挂载:
// 关闭的能力在服务层即答复"当前部署不支持"。
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio client init failed, uploads disabled", zap.Error(err))
			minioClient = nil
		}
	}

	audit := NewAuditService(repos.AuditEvent, logger)
	progress := NewProgressService(repos.Specification, repos.SpecItem, repos.WorkOrder, logger)

	caps := cfg.Capabilities
	return &Services{
		Auth:        NewAuthService(repos.User, rdb, cfg),
		User:        NewUserService(repos.User, audit),
		Fulfillment: NewFulfillmentService(db, repos, progress, audit, caps.Specifications, logger),
		WorkOrder:   NewWorkOrderService(repos.WorkOrder, repos.SpecItem, repos.Machine, progress, audit, caps.WorkOrders, logger),
		Access:      NewAccessService(repos, audit, caps.AccessGrants),
		Visibility:  NewVisibilityService(repos.Specification, repos.SpecItem, repos.WorkOrder, repos.AccessGrant, repos.Part, progress, caps.Specifications),
		Progress:    progress,
		Directory:   NewDirectoryService(repos.Part, repos.Machine, audit),
		Upload:      NewUploadService(repos.Attachment, minioClient, cfg.MinIO.Bucket, caps.Uploads),
		Export:      NewExportService(repos, caps.Exports),
		Audit:       audit,
	}
}
