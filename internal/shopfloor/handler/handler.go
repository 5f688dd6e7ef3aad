package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/domain"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Auth          *AuthHandler
	User          *UserHandler
	Specification *SpecificationHandler
	WorkOrder     *WorkOrderHandler
	Access        *AccessHandler
	Directory     *DirectoryHandler
	Upload        *UploadHandler
	Audit         *AuditHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:          NewAuthHandler(svc.Auth),
		User:          NewUserHandler(svc.User),
		Specification: NewSpecificationHandler(svc.Fulfillment, svc.Visibility, svc.Export),
		WorkOrder:     NewWorkOrderHandler(svc.WorkOrder, svc.Visibility),
		Access:        NewAccessHandler(svc.Access),
		Directory:     NewDirectoryHandler(svc.Directory, svc.Visibility),
		Upload:        NewUploadHandler(svc.Upload),
		Audit:         NewAuditHandler(svc.Audit),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 状态冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// Unsupported 能力未启用响应。与 404 区分:资源路径存在,
// 只是当前部署没有开启这块能力。
func Unsupported(c *gin.Context, message string) {
	Error(c, 50100, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError 按领域错误类型映射HTTP响应
func HandleError(c *gin.Context, err error) {
	var recomputeErr *domain.RecomputeError
	switch {
	// 汇总失败要先于哨兵错误匹配:包裹的 not found 不能把已生效的写入伪装成 404
	case errors.As(err, &recomputeErr):
		Error(c, 50010, "操作已保存,进度汇总失败: "+recomputeErr.Error())
	case domain.IsValidation(err):
		BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnsupported):
		Unsupported(c, "当前部署不支持该能力")
	case errors.Is(err, domain.ErrNotFound):
		NotFound(c, err.Error())
	case domain.IsPermission(err):
		Forbidden(c, err.Error())
	case domain.IsInvariant(err):
		Conflict(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetActor 从上下文构造访问主体
func GetActor(c *gin.Context) service.Actor {
	name, _ := c.Get("user_name")
	role, _ := c.Get("role")
	actor := service.Actor{ID: GetUserID(c)}
	if s, ok := name.(string); ok {
		actor.Name = s
	}
	if s, ok := role.(string); ok {
		actor.Role = s
	}
	return actor
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
