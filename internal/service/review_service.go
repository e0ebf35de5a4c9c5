package service

import (
	"context"
	"errors"
	"time"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"
	"course_market_backend/pkg/logger"
	"course_market_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReviewService 管理员审核：待审列表、通过（触发发布合并）、驳回。
// 通过操作用条件更新抢占 approving 中间态，两个管理员同时点通过
// 只有一个会真正执行合并。
type ReviewService struct {
	DraftRepo  *repository.DraftRepository
	CourseRepo *repository.CourseRepository
	Reconcile  *ReconcileService
	Cleanup    *CleanupService
}

func NewReviewService(
	draftRepo *repository.DraftRepository,
	courseRepo *repository.CourseRepository,
	reconcile *ReconcileService,
	cleanup *CleanupService,
) *ReviewService {
	return &ReviewService{
		DraftRepo:  draftRepo,
		CourseRepo: courseRepo,
		Reconcile:  reconcile,
		Cleanup:    cleanup,
	}
}

// PendingReview 待审条目：草稿加所属课程
type PendingReview struct {
	Draft  model.CourseDraft `json:"draft"`
	Course *model.Course     `json:"course,omitempty"`
}

func (s *ReviewService) ListPending() ([]PendingReview, error) {
	drafts, err := s.DraftRepo.FindByStatus(model.DraftStatusPending)
	if err != nil {
		return nil, err
	}
	items := make([]PendingReview, 0, len(drafts))
	for i := range drafts {
		item := PendingReview{Draft: drafts[i]}
		if course, err := s.CourseRepo.FindByID(drafts[i].CourseID); err == nil {
			item.Course = course
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *ReviewService) findPendingDraft(courseID uint) (*model.CourseDraft, error) {
	draft, err := s.DraftRepo.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDraftNotFound
		}
		return nil, err
	}
	return draft, nil
}

// ApproveResult 审批通过的回执：合并规模与孤儿资产清理计数
type ApproveResult struct {
	Status                     model.DraftStatus `json:"status"`
	ApprovedAt                 time.Time         `json:"approvedAt"`
	SectionsProcessed          int               `json:"sectionsProcessed"`
	OrphanedVideoAssetsDeleted int               `json:"orphanedVideoAssetsDeleted"`
	OrphanedFilesDeleted       int               `json:"orphanedFilesDeleted"`
}

// Approve 审核通过：pending -> approving -> 合并 -> 草稿消亡。
// 合并失败时草稿回到 pending，可以再次审批。
func (s *ReviewService) Approve(ctx context.Context, courseID uint) (*ApproveResult, error) {
	draft, err := s.findPendingDraft(courseID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.DraftRepo.TransitionStatus(draft.ID, model.DraftStatusPending, model.DraftStatusApproving, nil)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// 并发审批或状态已变化，本次不执行
		return nil, util.ErrDraftNotPending
	}

	merged, err := s.Reconcile.Reconcile(draft.ID)
	if err != nil {
		monitoring.ReconcileCounter.WithLabelValues("failed").Inc()
		logger.Log.Error("发布合并失败，草稿回到待审",
			zap.Uint("draftId", draft.ID),
			zap.Uint("courseId", courseID),
			zap.Error(err))
		if _, restoreErr := s.DraftRepo.TransitionStatus(draft.ID, model.DraftStatusApproving, model.DraftStatusPending, nil); restoreErr != nil {
			logger.Log.Error("恢复草稿待审状态失败", zap.Uint("draftId", draft.ID), zap.Error(restoreErr))
		}
		return nil, err
	}

	monitoring.ReconcileCounter.WithLabelValues("success").Inc()
	logger.Log.Info("课程修订发布",
		zap.Uint("draftId", draft.ID),
		zap.Uint("courseId", courseID),
		zap.Int("sections", merged.SectionsProcessed),
		zap.Int("orphans", len(merged.Orphans)))

	// 事务已提交，远端资产清理尽力而为
	cleaned := s.Cleanup.CleanOrphans(ctx, merged.Orphans)
	return &ApproveResult{
		Status:                     model.DraftStatusApproved,
		ApprovedAt:                 time.Now(),
		SectionsProcessed:          merged.SectionsProcessed,
		OrphanedVideoAssetsDeleted: cleaned.VideoAssetsDeleted,
		OrphanedFilesDeleted:       cleaned.FilesDeleted,
	}, nil
}

// Reject 驳回：pending -> rejected，草稿保留可继续编辑。理由可缺省
func (s *ReviewService) Reject(courseID uint, reason string) (*model.CourseDraft, error) {
	draft, err := s.findPendingDraft(courseID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "内容不符合发布要求"
	}

	now := time.Now()
	ok, err := s.DraftRepo.TransitionStatus(draft.ID, model.DraftStatusPending, model.DraftStatusRejected, map[string]interface{}{
		"rejected_at":      &now,
		"rejection_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrDraftNotPending
	}

	// 从未上架的课程随草稿一并驳回
	course, err := s.CourseRepo.FindByID(courseID)
	if err == nil && course.Status == model.CourseStatusPending {
		course.Status = model.CourseStatusRejected
		course.RejectionReason = reason
		if err := s.CourseRepo.Save(course); err != nil {
			logger.Log.Error("更新课程驳回状态失败", zap.Uint("courseId", courseID), zap.Error(err))
		}
	}
	return s.DraftRepo.FindByID(draft.ID)
}
