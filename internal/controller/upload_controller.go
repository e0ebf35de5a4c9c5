package controller

import (
	"strconv"

	"course_market_backend/internal/service"
	"course_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UploadController struct {
	UploadService *service.UploadService
}

func NewUploadController(uploadService *service.UploadService) *UploadController {
	return &UploadController{UploadService: uploadService}
}

// CreateVideoUpload godoc
// @Summary 申请视频直传凭据
// @Description 向视频托管方申请直传 URL，前端自行上传后用 uploadId 挂载到课时
// @Tags 上传
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.DirectUpload}
// @Router /api/instructor/uploads/video [post]
func (c *UploadController) CreateVideoUpload(ctx *gin.Context) {
	upload, err := c.UploadService.CreateVideoUpload(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, upload)
}

// UploadVideoChunk godoc
// @Summary 分块上传视频
// @Description 服务端中转的分块上传。最后一块到齐后合并、探测元数据并推给托管方，
// @Description 返回可挂载的草稿视频
// @Tags 上传
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   chunk formData file true "分块数据"
// @Param   chunkNumber formData int true "分块序号（从1开始）"
// @Param   totalChunks formData int true "总块数"
// @Param   identifier formData string true "上传会话标识"
// @Param   filename formData string true "原始文件名"
// @Param   title formData string false "视频标题"
// @Success 200 {object} util.Response
// @Router /api/instructor/uploads/video/chunk [post]
func (c *UploadController) UploadVideoChunk(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	chunkFile, err := ctx.FormFile("chunk")
	if err != nil {
		util.BadRequest(ctx, "chunk is required")
		return
	}
	chunkNumber, err := strconv.Atoi(ctx.PostForm("chunkNumber"))
	if err != nil || chunkNumber < 1 {
		util.BadRequest(ctx, "invalid chunkNumber")
		return
	}
	totalChunks, err := strconv.Atoi(ctx.PostForm("totalChunks"))
	if err != nil || totalChunks < 1 {
		util.BadRequest(ctx, "invalid totalChunks")
		return
	}
	identifier := ctx.PostForm("identifier")
	filename := ctx.PostForm("filename")
	if identifier == "" || filename == "" {
		util.BadRequest(ctx, "identifier and filename are required")
		return
	}

	progress, video, err := c.UploadService.UploadVideoChunk(
		ctx.Request.Context(), chunkFile, chunkNumber, totalChunks,
		identifier, filename, claims.UserID, ctx.PostForm("title"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"progress": progress,
		"video":    video,
	})
}

// GetUploadProgress godoc
// @Summary 查询分块上传进度
// @Tags 上传
// @Produce  json
// @Security ApiKeyAuth
// @Param   identifier path string true "上传会话标识"
// @Success 200 {object} util.Response{data=model.UploadProgress}
// @Failure 400 {object} util.Response "进度不存在或已过期"
// @Router /api/instructor/uploads/video/progress/{identifier} [get]
func (c *UploadController) GetUploadProgress(ctx *gin.Context) {
	identifier := ctx.Param("identifier")
	if identifier == "" {
		util.BadRequest(ctx, "identifier is required")
		return
	}

	progress, err := c.UploadService.GetUploadProgress(identifier)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// UploadThumbnail godoc
// @Summary 上传课程封面
// @Tags 上传
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "封面图片"
// @Success 200 {object} util.Response{data=object}
// @Router /api/instructor/uploads/thumbnail [post]
func (c *UploadController) UploadThumbnail(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	url, err := c.UploadService.UploadThumbnail(ctx.Request.Context(), file)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
