package service

import (
	"context"
	"testing"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"

	"gorm.io/gorm"
)

// materializeDraft 用服务自身的物化逻辑生成草稿，返回草稿文档
func materializeDraft(t *testing.T, db *gorm.DB, svc *DraftService, courseID, userID uint) *model.CourseDraft {
	t.Helper()
	draft, err := svc.GetOrCreateDraft(courseID, userID, model.Instructor)
	if err != nil {
		t.Fatalf("GetOrCreateDraft: %v", err)
	}
	return draft
}

func TestReconcilePublishesNewTree(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusPending, 0)
	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)

	// 草稿里从零搭出一棵树，并覆盖课程元数据
	title := "上线标题"
	price := 199.0
	if _, err := draftSvc.UpdateMetadata(course.ID, instructor.ID, model.Instructor, &DraftMetadataInput{
		Title: &title,
		Price: &price,
	}); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	section, err := draftSvc.AddSection(course.ID, instructor.ID, model.Instructor, &SectionInput{Title: "第一章", Order: 1})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	lesson, err := draftSvc.AddLesson(course.ID, instructor.ID, model.Instructor, section.ID, &LessonInput{
		Title: "第一课", Order: 1, ContentType: model.ContentVideo,
	})
	if err != nil {
		t.Fatalf("AddLesson: %v", err)
	}
	dv := &model.DraftVideo{DraftLessonID: lesson.ID, ChangeType: model.ChangeTypeNew, Title: "第一课", AssetID: "asset-1", PlaybackID: "play-1", Duration: 300}
	if err := db.Create(dv).Error; err != nil {
		t.Fatalf("create draft video: %v", err)
	}
	if err := db.Model(lesson).Update("draft_video_id", dv.ID).Error; err != nil {
		t.Fatalf("link draft video: %v", err)
	}

	result, err := reconcile.Reconcile(draft.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Orphans) != 0 {
		t.Fatalf("orphans = %v, want none", result.Orphans)
	}
	if result.SectionsProcessed != 1 {
		t.Fatalf("sectionsProcessed = %d, want 1", result.SectionsProcessed)
	}

	var gotCourse model.Course
	if err := db.First(&gotCourse, course.ID).Error; err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if gotCourse.Status != model.CourseStatusApproved {
		t.Fatalf("course status = %q, want approved", gotCourse.Status)
	}
	if gotCourse.Title != title || gotCourse.Price != price {
		t.Fatalf("overrides not applied: title=%q price=%v", gotCourse.Title, gotCourse.Price)
	}
	if gotCourse.PublishedAt == nil {
		t.Fatalf("published_at not set")
	}

	sections, err := repository.NewSectionRepository(db).FindByCourse(course.ID)
	if err != nil || len(sections) != 1 {
		t.Fatalf("published sections: err=%v len=%d", err, len(sections))
	}
	lessons, err := repository.NewLessonRepository(db).FindBySection(sections[0].ID)
	if err != nil || len(lessons) != 1 {
		t.Fatalf("published lessons: err=%v len=%d", err, len(lessons))
	}
	if lessons[0].VideoID == nil {
		t.Fatalf("lesson video pointer not set")
	}
	video, err := repository.NewContentRepository(db).FindVideoByID(*lessons[0].VideoID)
	if err != nil || video.AssetID != "asset-1" {
		t.Fatalf("published video: err=%v asset=%q", err, video.AssetID)
	}
	if video.LessonID == nil || *video.LessonID != lessons[0].ID {
		t.Fatalf("video lesson index = %v, want %d", video.LessonID, lessons[0].ID)
	}

	// 草稿整棵消亡
	if n := countRows(t, db, &model.CourseDraft{}); n != 0 {
		t.Fatalf("course_drafts rows = %d, want 0", n)
	}
	if n := countRows(t, db, &model.DraftVideo{}); n != 0 {
		t.Fatalf("draft_videos rows = %d, want 0", n)
	}
}

func TestReconcileDeletionByOmission(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	keepSection := seedSection(t, db, course.ID, "保留章", 1)
	seedVideoLesson(t, db, keepSection.ID, "保留课", "asset-keep")
	dropSection := seedSection(t, db, course.ID, "删除章", 2)
	seedVideoLesson(t, db, dropSection.ID, "删除课", "asset-drop")
	seedMaterialLesson(t, db, dropSection.ID, "删除资料课", "courseMaterial/drop.pdf")

	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)

	// 把第二章从草稿树移除：发布时它在草稿中缺席，对应已发布行应被删除
	view, err := draftSvc.GetDraft(course.ID, instructor.ID, model.Instructor)
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	var dropDraftSectionID uint
	for _, s := range view.Sections {
		if s.PublishedSectionID != nil && *s.PublishedSectionID == dropSection.ID {
			dropDraftSectionID = s.ID
		}
	}
	if dropDraftSectionID == 0 {
		t.Fatalf("draft copy of drop section not found")
	}
	if err := repository.NewDraftRepository(db).DeleteSectionCascade(dropDraftSectionID); err != nil {
		t.Fatalf("remove draft section: %v", err)
	}

	result, err := reconcile.Reconcile(draft.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// 被省略行引用的远端资产全部成为孤儿
	gotAssets := map[string]bool{}
	for _, o := range result.Orphans {
		gotAssets[o.RemoteID] = true
	}
	if !gotAssets["asset-drop"] || !gotAssets["courseMaterial/drop.pdf"] || len(result.Orphans) != 2 {
		t.Fatalf("orphans = %v, want asset-drop and courseMaterial/drop.pdf", result.Orphans)
	}

	sections, _ := repository.NewSectionRepository(db).FindByCourse(course.ID)
	if len(sections) != 1 || sections[0].ID != keepSection.ID {
		t.Fatalf("surviving sections = %v, want only %d", sections, keepSection.ID)
	}
	if n := countRows(t, db, &model.Lesson{}); n != 1 {
		t.Fatalf("lessons rows = %d, want 1", n)
	}
	if n := countRows(t, db, &model.Video{}); n != 1 {
		t.Fatalf("videos rows = %d, want 1", n)
	}
	if n := countRows(t, db, &model.Material{}); n != 0 {
		t.Fatalf("materials rows = %d, want 0", n)
	}
}

func TestReconcileUpdatesExistingRowsInPlace(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "旧章名", 1)
	lesson, video := seedVideoLesson(t, db, section.ID, "旧课名", "asset-keep")

	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)
	view, _ := draftSvc.GetDraft(course.ID, instructor.ID, model.Instructor)
	ds := view.Sections[0]
	if _, err := draftSvc.UpdateSection(course.ID, instructor.ID, model.Instructor, ds.ID, &SectionInput{Title: "新章名", Order: 1}); err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	if _, err := draftSvc.UpdateLesson(course.ID, instructor.ID, model.Instructor, ds.Lessons[0].ID, &LessonInput{
		Title: "新课名", Order: 1, ContentType: model.ContentVideo,
	}); err != nil {
		t.Fatalf("UpdateLesson: %v", err)
	}

	result, err := reconcile.Reconcile(draft.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Orphans) != 0 {
		t.Fatalf("orphans = %v, want none", result.Orphans)
	}

	// 同一批行被原地更新：ID 不变，资产保留
	var gotSection model.Section
	if err := db.First(&gotSection, section.ID).Error; err != nil {
		t.Fatalf("section %d gone: %v", section.ID, err)
	}
	if gotSection.Title != "新章名" {
		t.Fatalf("section title = %q, want 新章名", gotSection.Title)
	}
	var gotLesson model.Lesson
	if err := db.First(&gotLesson, lesson.ID).Error; err != nil {
		t.Fatalf("lesson %d gone: %v", lesson.ID, err)
	}
	if gotLesson.Title != "新课名" {
		t.Fatalf("lesson title = %q, want 新课名", gotLesson.Title)
	}
	if gotLesson.VideoID == nil || *gotLesson.VideoID != video.ID {
		t.Fatalf("lesson video pointer = %v, want %d", gotLesson.VideoID, video.ID)
	}
}

func TestReconcileReplacedContentOrphansOldAsset(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	lesson, oldVideo := seedVideoLesson(t, db, section.ID, "视频课", "asset-old")

	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)
	view, _ := draftSvc.GetDraft(course.ID, instructor.ID, model.Instructor)
	draftLessonID := view.Sections[0].Lessons[0].ID

	// 换视频：草稿行不带 PublishedVideoID，发布时旧行被替换
	if _, err := draftSvc.AttachVideo(context.Background(), course.ID, instructor.ID, model.Instructor, draftLessonID, &model.DraftVideo{
		Title:   "新视频",
		AssetID: "asset-new",
	}); err != nil {
		t.Fatalf("AttachVideo: %v", err)
	}

	result, err := reconcile.Reconcile(draft.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Orphans) != 1 || result.Orphans[0].RemoteID != "asset-old" {
		t.Fatalf("orphans = %v, want [asset-old]", result.Orphans)
	}

	var gotLesson model.Lesson
	if err := db.First(&gotLesson, lesson.ID).Error; err != nil {
		t.Fatalf("reload lesson: %v", err)
	}
	if gotLesson.VideoID == nil || *gotLesson.VideoID == oldVideo.ID {
		t.Fatalf("lesson still points at old video: %v", gotLesson.VideoID)
	}
	newVideo, err := repository.NewContentRepository(db).FindVideoByID(*gotLesson.VideoID)
	if err != nil || newVideo.AssetID != "asset-new" {
		t.Fatalf("replacement video: err=%v asset=%q", err, newVideo.AssetID)
	}
	// 旧行已删除
	if _, err := repository.NewContentRepository(db).FindVideoByID(oldVideo.ID); err == nil {
		t.Fatalf("old video row should be deleted")
	}
}

func TestReconcileRetrySafeWhenPublishedRowMissing(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	seedVideoLesson(t, db, section.ID, "视频课", "asset-1")

	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)

	// 模拟上一次合并中途失败后的重试：已发布行已不在，但草稿行仍带旧引用
	if err := db.Unscoped().Where("course_id = ?", course.ID).Delete(&model.Section{}).Error; err != nil {
		t.Fatalf("drop published section: %v", err)
	}
	if err := db.Unscoped().Where("1 = 1").Delete(&model.Lesson{}).Error; err != nil {
		t.Fatalf("drop published lessons: %v", err)
	}

	if _, err := reconcile.Reconcile(draft.ID); err != nil {
		t.Fatalf("Reconcile retry: %v", err)
	}

	sections, _ := repository.NewSectionRepository(db).FindByCourse(course.ID)
	if len(sections) != 1 {
		t.Fatalf("sections recreated = %d, want 1", len(sections))
	}
	lessons, _ := repository.NewLessonRepository(db).FindBySection(sections[0].ID)
	if len(lessons) != 1 {
		t.Fatalf("lessons recreated = %d, want 1", len(lessons))
	}
	if lessons[0].VideoID == nil {
		t.Fatalf("recreated lesson missing video pointer")
	}
}

func TestReconcileLessonMovedBetweenSections(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	sectionA := seedSection(t, db, course.ID, "甲章", 1)
	sectionB := seedSection(t, db, course.ID, "乙章", 2)
	lesson, _ := seedVideoLesson(t, db, sectionA.ID, "搬家课", "asset-move")

	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)
	view, _ := draftSvc.GetDraft(course.ID, instructor.ID, model.Instructor)

	var draftSectionB, draftLessonID uint
	for _, s := range view.Sections {
		if s.PublishedSectionID != nil && *s.PublishedSectionID == sectionB.ID {
			draftSectionB = s.ID
		}
		for _, l := range s.Lessons {
			if l.PublishedLessonID != nil && *l.PublishedLessonID == lesson.ID {
				draftLessonID = l.ID
			}
		}
	}
	// 把课时挪到乙章
	if err := db.Model(&model.DraftLesson{}).Where("id = ?", draftLessonID).
		Update("draft_section_id", draftSectionB).Error; err != nil {
		t.Fatalf("move draft lesson: %v", err)
	}

	result, err := reconcile.Reconcile(draft.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Orphans) != 0 {
		t.Fatalf("orphans = %v, want none", result.Orphans)
	}

	var gotLesson model.Lesson
	if err := db.First(&gotLesson, lesson.ID).Error; err != nil {
		t.Fatalf("moved lesson gone: %v", err)
	}
	if gotLesson.SectionID != sectionB.ID {
		t.Fatalf("lesson section = %d, want %d", gotLesson.SectionID, sectionB.ID)
	}
}

func TestReconcileContentTypeSwapKeepsLessonIdentity(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	lesson, oldVideo := seedVideoLesson(t, db, section.ID, "视频课", "asset-old")

	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)
	view, _ := draftSvc.GetDraft(course.ID, instructor.ID, model.Instructor)
	draftLessonID := view.Sections[0].Lessons[0].ID

	// 视频课换成测验课：先摘内容，再改类型，再挂测验
	if _, err := draftSvc.DetachContent(context.Background(), course.ID, instructor.ID, model.Instructor, draftLessonID); err != nil {
		t.Fatalf("DetachContent: %v", err)
	}
	if _, err := draftSvc.UpdateLesson(course.ID, instructor.ID, model.Instructor, draftLessonID, &LessonInput{
		Title: "测验课", Order: 1, ContentType: model.ContentQuiz,
	}); err != nil {
		t.Fatalf("UpdateLesson: %v", err)
	}
	if _, err := draftSvc.UpsertQuiz(course.ID, instructor.ID, model.Instructor, draftLessonID, &QuizInput{
		Title:     "随堂测验",
		Questions: []model.QuizQuestion{{Question: "1+1", Options: []string{"1", "2"}, Answer: 1}},
	}); err != nil {
		t.Fatalf("UpsertQuiz: %v", err)
	}

	result, err := reconcile.Reconcile(draft.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// 旧视频资产在发布时才成为孤儿（已发布行此前仍需要它）
	if len(result.Orphans) != 1 || result.Orphans[0].RemoteID != "asset-old" {
		t.Fatalf("orphans = %v, want [asset-old]", result.Orphans)
	}

	// 换的是内容，不是课时本身：已发布课时 ID 不变
	var gotLesson model.Lesson
	if err := db.First(&gotLesson, lesson.ID).Error; err != nil {
		t.Fatalf("lesson %d gone after swap: %v", lesson.ID, err)
	}
	if gotLesson.ContentType != model.ContentQuiz {
		t.Fatalf("content type = %q, want quiz", gotLesson.ContentType)
	}
	if gotLesson.VideoID != nil {
		t.Fatalf("video pointer not cleared: %v", gotLesson.VideoID)
	}
	if gotLesson.QuizID == nil {
		t.Fatalf("quiz pointer not set")
	}
	if _, err := repository.NewContentRepository(db).FindVideoByID(oldVideo.ID); err == nil {
		t.Fatalf("old video row should be deleted")
	}
}

func TestReconcileInPlaceAssetSwapOrphansOldAsset(t *testing.T) {
	db := newTestDB(t)
	draftSvc, _, _ := newDraftFixture(db)
	reconcile := NewReconcileService(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	lesson, video := seedVideoLesson(t, db, section.ID, "视频课", "asset-old")

	draft := materializeDraft(t, db, draftSvc, course.ID, instructor.ID)

	// 草稿行仍指向已发布视频行，但远端资产被换掉了
	if err := db.Model(&model.DraftVideo{}).Where("published_video_id = ?", video.ID).
		Updates(map[string]interface{}{"asset_id": "asset-new", "playback_id": "play-new"}).Error; err != nil {
		t.Fatalf("swap draft asset: %v", err)
	}

	result, err := reconcile.Reconcile(draft.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Orphans) != 1 || result.Orphans[0].RemoteID != "asset-old" {
		t.Fatalf("orphans = %v, want [asset-old]", result.Orphans)
	}

	// 行被原地更新，课时指针不变
	got, err := repository.NewContentRepository(db).FindVideoByID(video.ID)
	if err != nil {
		t.Fatalf("video row gone: %v", err)
	}
	if got.AssetID != "asset-new" || got.PlaybackID != "play-new" {
		t.Fatalf("video not updated in place: asset=%q playback=%q", got.AssetID, got.PlaybackID)
	}
	var gotLesson model.Lesson
	if err := db.First(&gotLesson, lesson.ID).Error; err != nil {
		t.Fatalf("reload lesson: %v", err)
	}
	if gotLesson.VideoID == nil || *gotLesson.VideoID != video.ID {
		t.Fatalf("lesson video pointer = %v, want %d", gotLesson.VideoID, video.ID)
	}
}

