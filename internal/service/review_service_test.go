package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"

	"gorm.io/gorm"
)

func newReviewFixture(db *gorm.DB) (*ReviewService, *fakeVideoHost, *fakeStorageProvider) {
	cleanup, host, storage := newCleanupFixture(db)
	svc := NewReviewService(
		repository.NewDraftRepository(db),
		repository.NewCourseRepository(db),
		NewReconcileService(db),
		cleanup,
	)
	return svc, host, storage
}

// seedPendingDraft 搭一份待审草稿：已发布视频课被草稿里的新视频替换
func seedPendingDraft(t *testing.T, db *gorm.DB, draftSvc *DraftService) (*model.Course, *model.CourseDraft) {
	t.Helper()
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	seedVideoLesson(t, db, section.ID, "视频课", "asset-old")

	if _, err := draftSvc.GetOrCreateDraft(course.ID, instructor.ID, model.Instructor); err != nil {
		t.Fatalf("GetOrCreateDraft: %v", err)
	}
	view, err := draftSvc.GetDraft(course.ID, instructor.ID, model.Instructor)
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if _, err := draftSvc.AttachVideo(context.Background(), course.ID, instructor.ID, model.Instructor,
		view.Sections[0].Lessons[0].ID, &model.DraftVideo{Title: "新视频", AssetID: "asset-new"}); err != nil {
		t.Fatalf("AttachVideo: %v", err)
	}
	draft, err := draftSvc.SubmitDraft(course.ID, instructor.ID, model.Instructor)
	if err != nil {
		t.Fatalf("SubmitDraft: %v", err)
	}
	return course, draft
}

func TestApprovePublishesAndCleansOrphans(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	review, host, _ := newReviewFixture(db)

	course, _ := seedPendingDraft(t, db, draftSvc)

	result, err := review.Approve(context.Background(), course.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if result.Status != model.DraftStatusApproved || result.ApprovedAt.IsZero() {
		t.Fatalf("approve result = %+v, want approved with timestamp", result)
	}
	if result.SectionsProcessed != 1 {
		t.Fatalf("sectionsProcessed = %d, want 1", result.SectionsProcessed)
	}
	if result.OrphanedVideoAssetsDeleted != 1 || result.OrphanedFilesDeleted != 0 {
		t.Fatalf("orphan counts = %d videos / %d files, want 1/0",
			result.OrphanedVideoAssetsDeleted, result.OrphanedFilesDeleted)
	}

	// 被替换的旧资产在事务提交后被清理
	deleted := host.deletedAssets()
	if len(deleted) != 1 || deleted[0] != "asset-old" {
		t.Fatalf("deleted assets = %v, want [asset-old]", deleted)
	}
	if n := countRows(t, db, &model.CourseDraft{}); n != 0 {
		t.Fatalf("course_drafts rows = %d, want 0", n)
	}
	var gotCourse model.Course
	if err := db.First(&gotCourse, course.ID).Error; err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if gotCourse.Status != model.CourseStatusApproved {
		t.Fatalf("course status = %q, want approved", gotCourse.Status)
	}
}

func TestApproveClaimIsExclusive(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	_, draft := seedPendingDraft(t, db, draftSvc)
	repo := repository.NewDraftRepository(db)

	claimed, err := repo.TransitionStatus(draft.ID, model.DraftStatusPending, model.DraftStatusApproving, nil)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	claimed, err = repo.TransitionStatus(draft.ID, model.DraftStatusPending, model.DraftStatusApproving, nil)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatalf("second claim must lose")
	}
}

func TestConcurrentApproveOnlyOneWins(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	review, _, _ := newReviewFixture(db)

	course, _ := seedPendingDraft(t, db, draftSvc)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = review.Approve(context.Background(), course.ID)
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range results {
		if err == nil {
			success++
		}
	}
	if success != 1 {
		t.Fatalf("successes = %d (errors: %v), want exactly 1", success, results)
	}
	if n := countRows(t, db, &model.CourseDraft{}); n != 0 {
		t.Fatalf("course_drafts rows = %d, want 0", n)
	}
	// 合并只发生一次：已发布视频恰好一行
	if n := countRows(t, db, &model.Video{}); n != 1 {
		t.Fatalf("videos rows = %d, want 1", n)
	}
}

func TestApproveFailureRestoresPending(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	review, _, _ := newReviewFixture(db)

	_, draft := seedPendingDraft(t, db, draftSvc)

	// 课程行缺失时合并必然失败，草稿须回到 pending 供再次审批
	if err := db.Unscoped().Delete(&model.Course{}, draft.CourseID).Error; err != nil {
		t.Fatalf("drop course: %v", err)
	}

	if _, err := review.Approve(context.Background(), draft.CourseID); err == nil {
		t.Fatalf("Approve should fail when reconcile errors")
	}

	got, err := repository.NewDraftRepository(db).FindByID(draft.ID)
	if err != nil {
		t.Fatalf("reload draft: %v", err)
	}
	if got.Status != model.DraftStatusPending {
		t.Fatalf("draft status = %q, want pending after failed merge", got.Status)
	}
}

func TestRejectKeepsDraftEditable(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	review, _, _ := newReviewFixture(db)

	course, draft := seedPendingDraft(t, db, draftSvc)

	if _, err := review.Reject(course.ID, "示例代码缺失"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	got, err := repository.NewDraftRepository(db).FindByID(draft.ID)
	if err != nil {
		t.Fatalf("reload draft: %v", err)
	}
	if got.Status != model.DraftStatusRejected {
		t.Fatalf("draft status = %q, want rejected", got.Status)
	}
	if got.RejectionReason != "示例代码缺失" || got.RejectedAt == nil {
		t.Fatalf("rejection not recorded: reason=%q at=%v", got.RejectionReason, got.RejectedAt)
	}

	// 草稿保留，讲师可以继续编辑
	if n := countRows(t, db, &model.CourseDraft{}); n != 1 {
		t.Fatalf("course_drafts rows = %d, want 1", n)
	}
}

func TestRejectNonPendingDraft(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	review, _, _ := newReviewFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	if _, err := draftSvc.GetOrCreateDraft(course.ID, instructor.ID, model.Instructor); err != nil {
		t.Fatalf("GetOrCreateDraft: %v", err)
	}

	if _, err := review.Reject(course.ID, "理由"); !errors.Is(err, util.ErrDraftNotPending) {
		t.Fatalf("err = %v, want ErrDraftNotPending", err)
	}
}

func TestRejectWithoutReasonRecordsDefault(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	review, _, _ := newReviewFixture(db)

	course, _ := seedPendingDraft(t, db, draftSvc)

	draft, err := review.Reject(course.ID, "")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if draft.Status != model.DraftStatusRejected {
		t.Fatalf("draft status = %q, want rejected", draft.Status)
	}
	if draft.RejectionReason == "" {
		t.Fatalf("empty reason must be defaulted")
	}
	if draft.RejectedAt == nil {
		t.Fatalf("rejected_at not stamped")
	}
}

func TestListPendingOrderedBySubmission(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	review, _, _ := newReviewFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	older := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	newer := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)

	for _, c := range []*model.Course{older, newer} {
		if _, err := draftSvc.GetOrCreateDraft(c.ID, instructor.ID, model.Instructor); err != nil {
			t.Fatalf("GetOrCreateDraft: %v", err)
		}
	}
	// 先后提交，列表按提交时间先进先出
	if _, err := draftSvc.SubmitDraft(older.ID, instructor.ID, model.Instructor); err != nil {
		t.Fatalf("submit older: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := draftSvc.SubmitDraft(newer.ID, instructor.ID, model.Instructor); err != nil {
		t.Fatalf("submit newer: %v", err)
	}

	items, err := review.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("pending items = %d, want 2", len(items))
	}
	if items[0].Draft.CourseID != older.ID || items[1].Draft.CourseID != newer.ID {
		t.Fatalf("pending order = [%d %d], want [%d %d]",
			items[0].Draft.CourseID, items[1].Draft.CourseID, older.ID, newer.ID)
	}
	if items[0].Course == nil || items[0].Course.ID != older.ID {
		t.Fatalf("pending item missing course")
	}
}
