package controller

import (
	"course_market_backend/internal/model"
	"course_market_backend/internal/service"
	"course_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// Create godoc
// @Summary 创建课程
// @Description 讲师建课，新课程处于草稿状态，内容通过草稿工作流编辑
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateCourseInput true "课程元数据"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/instructor/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.CreateCourseInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(claims.UserID, &input)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// Update godoc
// @Summary 修改未发布课程的元数据
// @Description 仅限尚未发布的课程，已发布课程的元数据修改走草稿覆盖值
// @Tags 讲师
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.UpdateCourseInput true "元数据"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 409 {object} util.Response "课程已发布"
// @Router /api/instructor/courses/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input service.UpdateCourseInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.UpdateCourse(courseID, claims.UserID, claims.Role, &input)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// ListMine godoc
// @Summary 我的课程（讲师）
// @Tags 讲师
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.InstructorCourse}
// @Router /api/instructor/courses [get]
func (c *CourseController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	courses, err := c.CourseService.ListMine(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// Curriculum godoc
// @Summary 已发布课程树（讲师）
// @Description 讲师查看自己课程当前已发布的章节课时结构
// @Tags 讲师
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/courses/{id}/curriculum [get]
func (c *CourseController) Curriculum(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	course, curriculum, err := c.CourseService.GetCurriculum(courseID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if claims.Role != model.Admin && course.InstructorID != claims.UserID {
		util.Forbidden(ctx)
		return
	}

	util.Success(ctx, gin.H{
		"course":   course,
		"sections": curriculum,
	})
}
