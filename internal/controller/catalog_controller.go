package controller

import (
	"strconv"

	"course_market_backend/internal/repository"
	"course_market_backend/internal/service"
	"course_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	CatalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{CatalogService: catalogService}
}

// List godoc
// @Summary 课程目录
// @Description 检索已上架课程，支持关键词、分类、难度过滤与排序
// @Tags 目录
// @Produce  json
// @Param   keyword query string false "标题/简介关键词"
// @Param   category query string false "分类"
// @Param   level query string false "难度" Enums(beginner, intermediate, advanced)
// @Param   sort query string false "排序" Enums(newest, price_asc, price_desc, popular)
// @Param   page query int false "页码"
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/catalog/courses [get]
func (c *CatalogController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	q := repository.CatalogQuery{
		Keyword:  ctx.Query("keyword"),
		Category: ctx.Query("category"),
		Level:    ctx.Query("level"),
		Sort:     ctx.Query("sort"),
		Page:     page,
		Limit:    limit,
	}

	courses, total, err := c.CatalogService.List(q)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  courses,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	})
}

// Detail godoc
// @Summary 课程详情
// @Description 公开的课程详情与大纲，大纲只含标题和时长，不暴露内容资产
// @Tags 目录
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response "课程不存在或未上架"
// @Router /api/catalog/courses/{id} [get]
func (c *CatalogController) Detail(ctx *gin.Context) {
	courseID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.CatalogService.GetDetail(courseID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
