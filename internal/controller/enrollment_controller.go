package controller

import (
	"strconv"

	"course_market_backend/internal/service"
	"course_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// Enroll godoc
// @Summary 购买课程
// @Description 钱包扣款购课，免费课直接选课
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Order}
// @Failure 409 {object} util.Response "已选过该课程或余额不足"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	order, err := c.EnrollmentService.Enroll(claims.UserID, courseID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, order)
}

type TopUpRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// TopUp godoc
// @Summary 钱包充值
// @Tags 选课
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body TopUpRequest true "充值金额"
// @Success 200 {object} util.Response
// @Router /api/wallet/topup [post]
func (c *EnrollmentController) TopUp(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req TopUpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.EnrollmentService.TopUp(claims.UserID, req.Amount); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MyCourses godoc
// @Summary 我的课程（学生）
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/my/courses [get]
func (c *EnrollmentController) MyCourses(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	items, total, err := c.EnrollmentService.MyCourses(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// MyOrders godoc
// @Summary 我的订单
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/my/orders [get]
func (c *EnrollmentController) MyOrders(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	orders, total, err := c.EnrollmentService.MyOrders(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: orders, Total: total, Page: page, Limit: limit})
}

// LessonContent godoc
// @Summary 课时内容分发
// @Description 视频返回带签名的播放地址，资料返回下载地址，测验返回题目。
// @Description 免费试看课时无需选课
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonContentView}
// @Failure 403 {object} util.Response "未选课"
// @Router /api/lessons/{id}/content [get]
func (c *EnrollmentController) LessonContent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	lessonID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.EnrollmentService.GetLessonContent(claims.UserID, claims.Role, lessonID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
