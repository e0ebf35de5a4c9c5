package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")

	ErrCourseNotFound         = errors.New("course not found")
	ErrCourseNotApproved      = errors.New("course not approved")
	ErrCourseAlreadyPublished = errors.New("published course is edited through its draft")
	ErrSectionNotFound        = errors.New("section not found")
	ErrLessonNotFound         = errors.New("lesson not found")
	ErrContentNotFound        = errors.New("content not found")

	ErrDraftNotFound        = errors.New("draft not found")
	ErrDraftNotEditable     = errors.New("draft is not editable")
	ErrDraftNotPending      = errors.New("draft is not pending review")
	ErrDraftAlreadyPending  = errors.New("draft already pending review")
	ErrDraftAlreadyApproved = errors.New("draft already approved")
	ErrDraftNotCancelable   = errors.New("draft cannot be canceled in its current status")

	ErrAlreadyEnrolled       = errors.New("already enrolled in this course")
	ErrInsufficientBalance   = errors.New("insufficient wallet balance")
	ErrNotEnrolled           = errors.New("not enrolled in this course")
	ErrContentTypeMismatch   = errors.New("lesson content type mismatch")
	ErrInvalidVideoExt       = errors.New("视频格式不支持")
	ErrInvalidMaterialExt    = errors.New("资料文件格式不支持")
	ErrUploadProgressMissing = errors.New("upload progress not found")
)
