package controller

import (
	"errors"
	"strconv"

	"course_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// respondServiceError 把业务错误翻译成 HTTP 状态码
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrDraftNotFound),
		errors.Is(err, util.ErrSectionNotFound),
		errors.Is(err, util.ErrLessonNotFound),
		errors.Is(err, util.ErrContentNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrDraftNotEditable),
		errors.Is(err, util.ErrDraftNotPending),
		errors.Is(err, util.ErrDraftAlreadyPending),
		errors.Is(err, util.ErrDraftAlreadyApproved),
		errors.Is(err, util.ErrDraftNotCancelable),
		errors.Is(err, util.ErrCourseAlreadyPublished),
		errors.Is(err, util.ErrAlreadyEnrolled),
		errors.Is(err, util.ErrInsufficientBalance):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrNotEnrolled):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrContentTypeMismatch),
		errors.Is(err, util.ErrInvalidVideoExt),
		errors.Is(err, util.ErrInvalidMaterialExt),
		errors.Is(err, util.ErrUploadProgressMissing):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
