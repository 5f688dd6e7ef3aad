package handler

import (
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// UploadHandler 附件处理器
type UploadHandler struct {
	svc *service.UploadService
}

// NewUploadHandler 创建附件处理器
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload 上传附件
// POST /api/v1/attachments (multipart: file, entity_type, entity_id)
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少文件: "+err.Error())
		return
	}
	entityType := c.PostForm("entity_type")
	entityID := c.PostForm("entity_id")
	if entityType == "" || entityID == "" {
		BadRequest(c, "entity_type 和 entity_id 不能为空")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "读取文件失败: "+err.Error())
		return
	}
	defer file.Close()

	att, err := h.svc.Upload(c.Request.Context(), GetActor(c), entityType, entityID,
		file, fileHeader.Filename, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, att)
}

// List 查询实体下的附件
// GET /api/v1/attachments?entity_type=&entity_id=
func (h *UploadHandler) List(c *gin.Context) {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" || entityID == "" {
		BadRequest(c, "entity_type 和 entity_id 不能为空")
		return
	}

	atts, err := h.svc.List(c.Request.Context(), entityType, entityID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": atts})
}

// Download 获取下载链接
// GET /api/v1/attachments/:id/download
func (h *UploadHandler) Download(c *gin.Context) {
	u, err := h.svc.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"url": u})
}

// Delete 删除附件
// DELETE /api/v1/attachments/:id
func (h *UploadHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}
