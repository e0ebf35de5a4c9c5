package controller

import (
	"course_market_backend/internal/service"
	"course_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// DraftController 草稿工作流的 HTTP 入口，全部挂在讲师路由组下
type DraftController struct {
	DraftService  *service.DraftService
	UploadService *service.UploadService
}

func NewDraftController(draftService *service.DraftService, uploadService *service.UploadService) *DraftController {
	return &DraftController{
		DraftService:  draftService,
		UploadService: uploadService,
	}
}

// GetOrCreate godoc
// @Summary 物化草稿
// @Description 返回课程的草稿，没有则以已发布内容为底稿创建一份；重复调用幂等
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.CourseDraft}
// @Router /api/instructor/courses/{id}/draft [post]
func (c *DraftController) GetOrCreate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	draft, err := c.DraftService.GetOrCreateDraft(courseID, claims.UserID, claims.Role)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, draft)
}

// Get godoc
// @Summary 读取草稿树
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.DraftView}
// @Failure 404 {object} util.Response "草稿不存在"
// @Router /api/instructor/courses/{id}/draft [get]
func (c *DraftController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.DraftService.GetDraft(courseID, claims.UserID, claims.Role)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Status godoc
// @Summary 查询草稿审核状态
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.DraftStatusView}
// @Failure 404 {object} util.Response "草稿不存在"
// @Router /api/instructor/courses/{id}/draft/status [get]
func (c *DraftController) Status(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	status, err := c.DraftService.GetDraftStatus(courseID, claims.UserID, claims.Role)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// UpdateMetadata godoc
// @Summary 修改草稿元数据
// @Description 只更新请求里出现的字段，nil 字段保持已发布值
// @Tags 草稿
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.DraftMetadataInput true "元数据覆盖值"
// @Success 200 {object} util.Response{data=model.CourseDraft}
// @Router /api/instructor/courses/{id}/draft/metadata [put]
func (c *DraftController) UpdateMetadata(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input service.DraftMetadataInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	draft, err := c.DraftService.UpdateMetadata(courseID, claims.UserID, claims.Role, &input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, draft)
}

// AddSection godoc
// @Summary 新增草稿章节
// @Tags 草稿
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.SectionInput true "章节"
// @Success 201 {object} util.Response{data=model.DraftSection}
// @Router /api/instructor/courses/{id}/draft/sections [post]
func (c *DraftController) AddSection(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input service.SectionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	section, err := c.DraftService.AddSection(courseID, claims.UserID, claims.Role, &input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Created(ctx, section)
}

// UpdateSection godoc
// @Summary 修改草稿章节
// @Tags 草稿
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   sectionId path int true "草稿章节ID"
// @Param   body body service.SectionInput true "章节"
// @Success 200 {object} util.Response{data=model.DraftSection}
// @Router /api/instructor/courses/{id}/draft/sections/{sectionId} [put]
func (c *DraftController) UpdateSection(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	sectionID, ok := parseID(ctx, "sectionId")
	if !ok {
		return
	}

	var input service.SectionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	section, err := c.DraftService.UpdateSection(courseID, claims.UserID, claims.Role, sectionID, &input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, section)
}

// DeleteSection godoc
// @Summary 删除草稿章节
// @Description 章节从草稿树缺席后，对应已发布章节会在发布时被删除
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   sectionId path int true "草稿章节ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/courses/{id}/draft/sections/{sectionId} [delete]
func (c *DraftController) DeleteSection(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	sectionID, ok := parseID(ctx, "sectionId")
	if !ok {
		return
	}

	if err := c.DraftService.DeleteSection(ctx.Request.Context(), courseID, claims.UserID, claims.Role, sectionID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// AddLesson godoc
// @Summary 新增草稿课时
// @Tags 草稿
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   sectionId path int true "草稿章节ID"
// @Param   body body service.LessonInput true "课时"
// @Success 201 {object} util.Response{data=model.DraftLesson}
// @Router /api/instructor/courses/{id}/draft/sections/{sectionId}/lessons [post]
func (c *DraftController) AddLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	sectionID, ok := parseID(ctx, "sectionId")
	if !ok {
		return
	}

	var input service.LessonInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.DraftService.AddLesson(courseID, claims.UserID, claims.Role, sectionID, &input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 修改草稿课时
// @Tags 草稿
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "草稿课时ID"
// @Param   body body service.LessonInput true "课时"
// @Success 200 {object} util.Response{data=model.DraftLesson}
// @Router /api/instructor/courses/{id}/draft/lessons/{lessonId} [put]
func (c *DraftController) UpdateLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := parseID(ctx, "lessonId")
	if !ok {
		return
	}

	var input service.LessonInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.DraftService.UpdateLesson(courseID, claims.UserID, claims.Role, lessonID, &input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除草稿课时
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "草稿课时ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/courses/{id}/draft/lessons/{lessonId} [delete]
func (c *DraftController) DeleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := parseID(ctx, "lessonId")
	if !ok {
		return
	}

	if err := c.DraftService.DeleteLesson(ctx.Request.Context(), courseID, claims.UserID, claims.Role, lessonID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type AttachVideoRequest struct {
	UploadID string `json:"uploadId" binding:"required"`
	Title    string `json:"title"`
}

// AttachVideo godoc
// @Summary 挂载课时视频
// @Description 直传完成后用 uploadId 换取托管方资产并挂到课时上；
// @Description 被替换掉的草稿视频资产立即进入清理
// @Tags 草稿
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "草稿课时ID"
// @Param   body body AttachVideoRequest true "上传凭据"
// @Success 200 {object} util.Response{data=model.DraftVideo}
// @Router /api/instructor/courses/{id}/draft/lessons/{lessonId}/video [put]
func (c *DraftController) AttachVideo(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := parseID(ctx, "lessonId")
	if !ok {
		return
	}

	var req AttachVideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.UploadService.ResolveVideoUpload(ctx.Request.Context(), req.UploadID, claims.UserID, req.Title)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	video, err = c.DraftService.AttachVideo(ctx.Request.Context(), courseID, claims.UserID, claims.Role, lessonID, video)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, video)
}

// AttachMaterial godoc
// @Summary 上传并挂载课时资料
// @Tags 草稿
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "草稿课时ID"
// @Param   file formData file true "资料文件"
// @Success 200 {object} util.Response{data=model.DraftMaterial}
// @Router /api/instructor/courses/{id}/draft/lessons/{lessonId}/material [put]
func (c *DraftController) AttachMaterial(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := parseID(ctx, "lessonId")
	if !ok {
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	material, err := c.UploadService.UploadMaterial(ctx.Request.Context(), file)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	material, err = c.DraftService.AttachMaterial(ctx.Request.Context(), courseID, claims.UserID, claims.Role, lessonID, material)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, material)
}

// UpsertQuiz godoc
// @Summary 写入课时测验
// @Tags 草稿
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "草稿课时ID"
// @Param   body body service.QuizInput true "测验题目"
// @Success 200 {object} util.Response{data=model.DraftQuiz}
// @Router /api/instructor/courses/{id}/draft/lessons/{lessonId}/quiz [put]
func (c *DraftController) UpsertQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := parseID(ctx, "lessonId")
	if !ok {
		return
	}

	var input service.QuizInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.DraftService.UpsertQuiz(courseID, claims.UserID, claims.Role, lessonID, &input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// DetachContent godoc
// @Summary 摘除课时内容
// @Description 摘掉当前挂着的视频/资料/测验后课时才能换内容类型
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   lessonId path int true "课时ID"
// @Success 200 {object} util.Response{data=model.DraftLesson}
// @Failure 404 {object} util.Response "课时没有内容"
// @Router /api/instructor/courses/{id}/draft/lessons/{lessonId}/content [delete]
func (c *DraftController) DetachContent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := parseID(ctx, "lessonId")
	if !ok {
		return
	}

	lesson, err := c.DraftService.DetachContent(ctx.Request.Context(), courseID, claims.UserID, claims.Role, lessonID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// Submit godoc
// @Summary 提交草稿审核
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.CourseDraft}
// @Failure 409 {object} util.Response "草稿已在审核中或已通过"
// @Router /api/instructor/courses/{id}/draft/submit [post]
func (c *DraftController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	draft, err := c.DraftService.SubmitDraft(courseID, claims.UserID, claims.Role)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, draft)
}

// Cancel godoc
// @Summary 丢弃草稿
// @Description 删除整棵草稿树，草稿里新上传、从未发布的资产进入清理
// @Tags 草稿
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "审批中的草稿不能丢弃"
// @Router /api/instructor/courses/{id}/draft [delete]
func (c *DraftController) Cancel(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.DraftService.CancelDraft(ctx.Request.Context(), courseID, claims.UserID, claims.Role); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
