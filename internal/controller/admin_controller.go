package controller

import (
	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/service"
	"course_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 管理员审核与运维入口
type AdminController struct {
	ReviewService  *service.ReviewService
	CleanupService *service.CleanupService
	OrphanRepo     *repository.OrphanAssetRepository
}

func NewAdminController(reviewService *service.ReviewService, cleanupService *service.CleanupService, orphanRepo *repository.OrphanAssetRepository) *AdminController {
	return &AdminController{
		ReviewService:  reviewService,
		CleanupService: cleanupService,
		OrphanRepo:     orphanRepo,
	}
}

// ListPending godoc
// @Summary 待审核草稿列表
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.PendingReview}
// @Router /api/admin/reviews [get]
func (c *AdminController) ListPending(ctx *gin.Context) {
	items, err := c.ReviewService.ListPending()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// Approve godoc
// @Summary 审核通过
// @Description 通过后草稿合并进已发布课程树，草稿消亡。
// @Description 并发的重复审批只有一个会生效
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ApproveResult}
// @Failure 409 {object} util.Response "草稿不在待审状态"
// @Router /api/admin/reviews/{courseId}/approve [post]
func (c *AdminController) Approve(ctx *gin.Context) {
	courseID, ok := parseID(ctx, "courseId")
	if !ok {
		return
	}

	result, err := c.ReviewService.Approve(ctx.Request.Context(), courseID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject godoc
// @Summary 驳回草稿
// @Description 理由可不填，缺省时记录默认理由
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Param   body body RejectRequest false "驳回理由"
// @Success 200 {object} util.Response{data=model.CourseDraft}
// @Router /api/admin/reviews/{courseId}/reject [post]
func (c *AdminController) Reject(ctx *gin.Context) {
	courseID, ok := parseID(ctx, "courseId")
	if !ok {
		return
	}

	var req RejectRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	draft, err := c.ReviewService.Reject(courseID, req.Reason)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, draft)
}

// OrphanStats godoc
// @Summary 孤儿资产统计
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/orphans [get]
func (c *AdminController) OrphanStats(ctx *gin.Context) {
	pending, err := c.OrphanRepo.CountByStatus(model.OrphanStatusPending)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	failed, err := c.OrphanRepo.CountByStatus(model.OrphanStatusFailed)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	deleted, err := c.OrphanRepo.CountByStatus(model.OrphanStatusDeleted)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"pending": pending,
		"failed":  failed,
		"deleted": deleted,
	})
}

// RetryOrphans godoc
// @Summary 立即重试孤儿资产清理
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/orphans/retry [post]
func (c *AdminController) RetryOrphans(ctx *gin.Context) {
	deleted := c.CleanupService.RetryParked(ctx.Request.Context(), 100)
	util.Success(ctx, gin.H{"deleted": deleted})
}
