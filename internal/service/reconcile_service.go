package service

import (
	"errors"
	"time"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"

	"gorm.io/gorm"
)

// ReconcileService 发布合并：审批通过时把草稿树合并进已发布课程树。
// 合并规则：
//   - 带 PublishedXID 的草稿行按 ID 更新对应已发布行，已发布行缺失时重建（可重试）
//   - 不带 PublishedXID 的草稿行创建新的已发布行
//   - 已发布行在草稿树中缺席即删除，缺席是唯一的删除信号
//
// 整个合并在一个数据库事务内完成，被删除行引用的远端资产收集后
// 由调用方在事务提交后清理。
type ReconcileService struct {
	DB *gorm.DB
}

func NewReconcileService(db *gorm.DB) *ReconcileService {
	return &ReconcileService{DB: db}
}

// ReconcileResult 一次合并的结果：处理的章节数和待清理的孤儿资产引用
type ReconcileResult struct {
	SectionsProcessed int
	Orphans           []OrphanRef
}

// Reconcile 执行一次合并
func (s *ReconcileService) Reconcile(draftID uint) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		r := &reconciler{
			draftRepo:   repository.NewDraftRepository(tx),
			courseRepo:  repository.NewCourseRepository(tx),
			sectionRepo: repository.NewSectionRepository(tx),
			lessonRepo:  repository.NewLessonRepository(tx),
			contentRepo: repository.NewContentRepository(tx),
		}
		var err error
		result, err = r.run(draftID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type reconciler struct {
	draftRepo   *repository.DraftRepository
	courseRepo  *repository.CourseRepository
	sectionRepo *repository.SectionRepository
	lessonRepo  *repository.LessonRepository
	contentRepo *repository.ContentRepository

	orphans []OrphanRef

	keptSections map[uint]bool // 草稿树引用到的已发布章节 ID
	keptLessons  map[uint]bool
}

func (r *reconciler) run(draftID uint) (*ReconcileResult, error) {
	draft, err := r.draftRepo.FindByID(draftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDraftNotFound
		}
		return nil, err
	}
	course, err := r.courseRepo.FindByID(draft.CourseID)
	if err != nil {
		return nil, err
	}

	r.keptSections = make(map[uint]bool)
	r.keptLessons = make(map[uint]bool)

	// 1. 自上而下合并草稿树
	draftSections, err := r.draftRepo.FindSections(draft.ID)
	if err != nil {
		return nil, err
	}
	for i := range draftSections {
		if err := r.mergeSection(course.ID, &draftSections[i]); err != nil {
			return nil, err
		}
	}

	// 2. 缺席即删除：草稿树没引用到的已发布行全部清除
	if err := r.pruneOmitted(course.ID); err != nil {
		return nil, err
	}

	// 3. 应用课程元数据的草稿覆盖值并上架
	r.applyCourseOverrides(course, draft)
	now := time.Now()
	course.Status = model.CourseStatusApproved
	course.PublishedAt = &now
	course.RejectionReason = ""
	if err := r.courseRepo.Save(course); err != nil {
		return nil, err
	}

	// 4. 合并完成，草稿消亡
	if err := r.draftRepo.DeleteCascade(draft.ID); err != nil {
		return nil, err
	}

	return &ReconcileResult{SectionsProcessed: len(draftSections), Orphans: r.orphans}, nil
}

func (r *reconciler) applyCourseOverrides(course *model.Course, draft *model.CourseDraft) {
	if draft.Title != nil {
		course.Title = *draft.Title
	}
	if draft.ShortDescription != nil {
		course.ShortDescription = *draft.ShortDescription
	}
	if draft.Description != nil {
		course.Description = *draft.Description
	}
	if draft.Category != nil {
		course.Category = *draft.Category
	}
	if draft.Level != nil {
		course.Level = *draft.Level
	}
	if draft.Language != nil {
		course.Language = *draft.Language
	}
	if draft.Price != nil {
		course.Price = *draft.Price
	}
	if draft.Thumbnail != nil {
		course.Thumbnail = *draft.Thumbnail
	}
	if draft.Objectives != nil {
		course.Objectives = draft.Objectives
	}
	if draft.Requirements != nil {
		course.Requirements = draft.Requirements
	}
}

// mergeSection 合并单个草稿章节：按 PublishedSectionID 更新或新建
func (r *reconciler) mergeSection(courseID uint, ds *model.DraftSection) error {
	var section *model.Section
	if ds.PublishedSectionID != nil {
		existing, err := r.sectionRepo.FindByID(*ds.PublishedSectionID)
		if err == nil {
			section = existing
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		// 已发布行缺失时走新建分支，保证合并可重试
	}

	if section == nil {
		section = &model.Section{CourseID: courseID}
		section.Title = ds.Title
		section.Order = ds.Order
		if err := r.sectionRepo.Create(section); err != nil {
			return err
		}
	} else {
		section.Title = ds.Title
		section.Order = ds.Order
		if err := r.sectionRepo.Save(section); err != nil {
			return err
		}
	}
	r.keptSections[section.ID] = true

	draftLessons, err := r.draftRepo.FindLessons(ds.ID)
	if err != nil {
		return err
	}
	for i := range draftLessons {
		if err := r.mergeLesson(section.ID, &draftLessons[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *reconciler) mergeLesson(sectionID uint, dl *model.DraftLesson) error {
	var lesson *model.Lesson
	if dl.PublishedLessonID != nil {
		existing, err := r.lessonRepo.FindByID(*dl.PublishedLessonID)
		if err == nil {
			lesson = existing
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if lesson == nil {
		lesson = &model.Lesson{SectionID: sectionID}
		if err := r.copyLessonFields(lesson, dl); err != nil {
			return err
		}
		if err := r.lessonRepo.Create(lesson); err != nil {
			return err
		}
	} else {
		lesson.SectionID = sectionID
		if err := r.copyLessonFields(lesson, dl); err != nil {
			return err
		}
	}

	// 记住合并前的内容指针，换内容时旧行要删、旧资产要清
	oldVideoID, oldMaterialID, oldQuizID := lesson.VideoID, lesson.MaterialID, lesson.QuizID

	if err := r.mergeContent(lesson, dl); err != nil {
		return err
	}
	if err := r.lessonRepo.Save(lesson); err != nil {
		return err
	}

	if oldVideoID != nil && (lesson.VideoID == nil || *lesson.VideoID != *oldVideoID) {
		if err := r.dropVideo(*oldVideoID); err != nil {
			return err
		}
	}
	if oldMaterialID != nil && (lesson.MaterialID == nil || *lesson.MaterialID != *oldMaterialID) {
		if err := r.dropMaterial(*oldMaterialID); err != nil {
			return err
		}
	}
	if oldQuizID != nil && (lesson.QuizID == nil || *lesson.QuizID != *oldQuizID) {
		if err := r.contentRepo.DeleteQuiz(*oldQuizID); err != nil {
			return err
		}
	}

	r.keptLessons[lesson.ID] = true
	return nil
}

func (r *reconciler) copyLessonFields(lesson *model.Lesson, dl *model.DraftLesson) error {
	lesson.Title = dl.Title
	lesson.Order = dl.Order
	lesson.Description = dl.Description
	lesson.Duration = dl.Duration
	lesson.IsFreePreview = dl.IsFreePreview
	lesson.ContentType = dl.ContentType
	return nil
}

// mergeContent 合并课时内容行并维护课时上的正向指针。
// 课时指针是唯一事实，内容行上的 LessonID 只作查询索引回填。
func (r *reconciler) mergeContent(lesson *model.Lesson, dl *model.DraftLesson) error {
	switch dl.ContentType {
	case model.ContentVideo:
		if dl.DraftVideoID == nil {
			lesson.VideoID = nil
			return nil
		}
		dv, err := r.draftRepo.FindVideoByID(*dl.DraftVideoID)
		if err != nil {
			return err
		}
		video, err := r.upsertVideo(lesson, dv)
		if err != nil {
			return err
		}
		lesson.VideoID = &video.ID
		lesson.MaterialID = nil
		lesson.QuizID = nil
	case model.ContentMaterial:
		if dl.DraftMaterialID == nil {
			lesson.MaterialID = nil
			return nil
		}
		dm, err := r.draftRepo.FindMaterialByID(*dl.DraftMaterialID)
		if err != nil {
			return err
		}
		material, err := r.upsertMaterial(lesson, dm)
		if err != nil {
			return err
		}
		lesson.MaterialID = &material.ID
		lesson.VideoID = nil
		lesson.QuizID = nil
	case model.ContentQuiz:
		if dl.DraftQuizID == nil {
			lesson.QuizID = nil
			return nil
		}
		dq, err := r.draftRepo.FindQuizByID(*dl.DraftQuizID)
		if err != nil {
			return err
		}
		quiz, err := r.upsertQuiz(lesson, dq)
		if err != nil {
			return err
		}
		lesson.QuizID = &quiz.ID
		lesson.VideoID = nil
		lesson.MaterialID = nil
	}
	return nil
}

func (r *reconciler) upsertVideo(lesson *model.Lesson, dv *model.DraftVideo) (*model.Video, error) {
	if dv.PublishedVideoID != nil {
		existing, err := r.contentRepo.FindVideoByID(*dv.PublishedVideoID)
		if err == nil {
			// 远端资产被换掉时旧资产成为孤儿
			if existing.AssetID != "" && existing.AssetID != dv.AssetID {
				r.orphans = append(r.orphans, OrphanRef{Kind: model.OrphanVideoAsset, RemoteID: existing.AssetID})
			}
			existing.LessonID = &lesson.ID
			existing.Title = dv.Title
			existing.OwnerID = dv.OwnerID
			existing.AssetID = dv.AssetID
			existing.PlaybackID = dv.PlaybackID
			existing.UploadID = dv.UploadID
			existing.Duration = dv.Duration
			existing.Status = dv.Status
			existing.Description = dv.Description
			existing.AspectRatio = dv.AspectRatio
			existing.Resolution = dv.Resolution
			return existing, r.contentRepo.SaveVideo(existing)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	video := &model.Video{
		LessonID:    &lesson.ID,
		Title:       dv.Title,
		OwnerID:     dv.OwnerID,
		AssetID:     dv.AssetID,
		PlaybackID:  dv.PlaybackID,
		UploadID:    dv.UploadID,
		Duration:    dv.Duration,
		Status:      dv.Status,
		Description: dv.Description,
		AspectRatio: dv.AspectRatio,
		Resolution:  dv.Resolution,
	}
	return video, r.contentRepo.CreateVideo(video)
}

func (r *reconciler) upsertMaterial(lesson *model.Lesson, dm *model.DraftMaterial) (*model.Material, error) {
	if dm.PublishedMaterialID != nil {
		existing, err := r.contentRepo.FindMaterialByID(*dm.PublishedMaterialID)
		if err == nil {
			if existing.FileKey != "" && existing.FileKey != dm.FileKey {
				r.orphans = append(r.orphans, OrphanRef{Kind: model.OrphanFile, RemoteID: existing.FileKey, ResourceKind: util.ResourceKindMaterial})
			}
			existing.LessonID = &lesson.ID
			existing.FileKey = dm.FileKey
			existing.FileName = dm.FileName
			existing.Extension = dm.Extension
			existing.Size = dm.Size
			existing.IsTemporary = false
			return existing, r.contentRepo.SaveMaterial(existing)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	material := &model.Material{
		LessonID:    &lesson.ID,
		FileKey:     dm.FileKey,
		FileName:    dm.FileName,
		Extension:   dm.Extension,
		Size:        dm.Size,
		IsTemporary: false,
	}
	return material, r.contentRepo.CreateMaterial(material)
}

func (r *reconciler) upsertQuiz(lesson *model.Lesson, dq *model.DraftQuiz) (*model.Quiz, error) {
	if dq.PublishedQuizID != nil {
		existing, err := r.contentRepo.FindQuizByID(*dq.PublishedQuizID)
		if err == nil {
			existing.LessonID = &lesson.ID
			existing.Title = dq.Title
			existing.Questions = dq.Questions
			return existing, r.contentRepo.SaveQuiz(existing)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	quiz := &model.Quiz{
		LessonID:  &lesson.ID,
		Title:     dq.Title,
		Questions: dq.Questions,
	}
	return quiz, r.contentRepo.CreateQuiz(quiz)
}

// pruneOmitted 删除草稿树没引用到的已发布章节与课时
func (r *reconciler) pruneOmitted(courseID uint) error {
	sections, err := r.sectionRepo.FindByCourse(courseID)
	if err != nil {
		return err
	}
	for i := range sections {
		section := sections[i]
		lessons, err := r.lessonRepo.FindBySection(section.ID)
		if err != nil {
			return err
		}
		for j := range lessons {
			if r.keptLessons[lessons[j].ID] {
				continue
			}
			if err := r.dropLesson(&lessons[j]); err != nil {
				return err
			}
		}
		if !r.keptSections[section.ID] {
			if err := r.sectionRepo.Delete(section.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *reconciler) dropLesson(lesson *model.Lesson) error {
	if lesson.VideoID != nil {
		if err := r.dropVideo(*lesson.VideoID); err != nil {
			return err
		}
	}
	if lesson.MaterialID != nil {
		if err := r.dropMaterial(*lesson.MaterialID); err != nil {
			return err
		}
	}
	if lesson.QuizID != nil {
		if err := r.contentRepo.DeleteQuiz(*lesson.QuizID); err != nil {
			return err
		}
	}
	return r.lessonRepo.Delete(lesson.ID)
}

func (r *reconciler) dropVideo(videoID uint) error {
	video, err := r.contentRepo.FindVideoByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if video.AssetID != "" {
		r.orphans = append(r.orphans, OrphanRef{Kind: model.OrphanVideoAsset, RemoteID: video.AssetID})
	}
	return r.contentRepo.DeleteVideo(video.ID)
}

func (r *reconciler) dropMaterial(materialID uint) error {
	material, err := r.contentRepo.FindMaterialByID(materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if material.FileKey != "" {
		r.orphans = append(r.orphans, OrphanRef{Kind: model.OrphanFile, RemoteID: material.FileKey, ResourceKind: util.ResourceKindMaterial})
	}
	return r.contentRepo.DeleteMaterial(material.ID)
}
