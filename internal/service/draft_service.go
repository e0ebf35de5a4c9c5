package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"
	"course_market_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DraftService 草稿工作流：物化、编辑、提交、取消。
// 每门课程同一时间至多一份草稿，物化是幂等的 get-or-create。
type DraftService struct {
	DraftRepo   *repository.DraftRepository
	CourseRepo  *repository.CourseRepository
	SectionRepo *repository.SectionRepository
	LessonRepo  *repository.LessonRepository
	ContentRepo *repository.ContentRepository
	Cleanup     *CleanupService
}

func NewDraftService(
	draftRepo *repository.DraftRepository,
	courseRepo *repository.CourseRepository,
	sectionRepo *repository.SectionRepository,
	lessonRepo *repository.LessonRepository,
	contentRepo *repository.ContentRepository,
	cleanup *CleanupService,
) *DraftService {
	return &DraftService{
		DraftRepo:   draftRepo,
		CourseRepo:  courseRepo,
		SectionRepo: sectionRepo,
		LessonRepo:  lessonRepo,
		ContentRepo: contentRepo,
		Cleanup:     cleanup,
	}
}

// DraftView 对外展示的草稿树
type DraftView struct {
	Draft    *model.CourseDraft  `json:"draft"`
	Sections []DraftSectionView  `json:"sections"`
}

type DraftSectionView struct {
	model.DraftSection
	Lessons []DraftLessonView `json:"lessons"`
}

type DraftLessonView struct {
	model.DraftLesson
	Video    *model.DraftVideo    `json:"video,omitempty"`
	Material *model.DraftMaterial `json:"material,omitempty"`
	Quiz     *model.DraftQuiz     `json:"quiz,omitempty"`
}

func (s *DraftService) checkOwner(courseID, userID uint, role model.UserRole) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if role != model.Admin && course.InstructorID != userID {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

// GetOrCreateDraft 物化草稿：已有草稿直接返回，否则把已发布课程树
// 深拷贝成一份可编辑副本。重复调用不会产生第二份草稿。
func (s *DraftService) GetOrCreateDraft(courseID, userID uint, role model.UserRole) (*model.CourseDraft, error) {
	if _, err := s.checkOwner(courseID, userID, role); err != nil {
		return nil, err
	}

	draft, err := s.DraftRepo.FindByCourse(courseID)
	if err == nil {
		return draft, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var created *model.CourseDraft
	err = s.DraftRepo.DB.Transaction(func(tx *gorm.DB) error {
		draftRepo := repository.NewDraftRepository(tx)
		sectionRepo := repository.NewSectionRepository(tx)
		lessonRepo := repository.NewLessonRepository(tx)
		contentRepo := repository.NewContentRepository(tx)

		d := &model.CourseDraft{CourseID: courseID, Status: model.DraftStatusDraft}
		if err := draftRepo.Create(d); err != nil {
			return err
		}

		sections, err := sectionRepo.FindByCourse(courseID)
		if err != nil {
			return err
		}
		for i := range sections {
			sec := sections[i]
			ds := &model.DraftSection{
				DraftID:            d.ID,
				PublishedSectionID: &sec.ID,
				ChangeType:         model.ChangeTypeUnchanged,
				Title:              sec.Title,
				Order:              sec.Order,
			}
			if err := draftRepo.CreateSection(ds); err != nil {
				return err
			}

			lessons, err := lessonRepo.FindBySection(sec.ID)
			if err != nil {
				return err
			}
			for j := range lessons {
				lesson := lessons[j]
				dl := &model.DraftLesson{
					DraftSectionID:    ds.ID,
					PublishedLessonID: &lesson.ID,
					ChangeType:        model.ChangeTypeUnchanged,
					Title:             lesson.Title,
					Order:             lesson.Order,
					Description:       lesson.Description,
					Duration:          lesson.Duration,
					IsFreePreview:     lesson.IsFreePreview,
					ContentType:       lesson.ContentType,
				}
				if err := draftRepo.CreateLesson(dl); err != nil {
					return err
				}

				switch {
				case lesson.VideoID != nil:
					video, err := contentRepo.FindVideoByID(*lesson.VideoID)
					if err != nil {
						return err
					}
					dv := &model.DraftVideo{
						DraftLessonID:    dl.ID,
						PublishedVideoID: &video.ID,
						ChangeType:       model.ChangeTypeUnchanged,
						Title:            video.Title,
						OwnerID:          video.OwnerID,
						AssetID:          video.AssetID,
						PlaybackID:       video.PlaybackID,
						UploadID:         video.UploadID,
						Duration:         video.Duration,
						Status:           video.Status,
						Description:      video.Description,
						AspectRatio:      video.AspectRatio,
						Resolution:       video.Resolution,
					}
					if err := draftRepo.CreateVideo(dv); err != nil {
						return err
					}
					dl.DraftVideoID = &dv.ID
				case lesson.MaterialID != nil:
					material, err := contentRepo.FindMaterialByID(*lesson.MaterialID)
					if err != nil {
						return err
					}
					dm := &model.DraftMaterial{
						DraftLessonID:       dl.ID,
						PublishedMaterialID: &material.ID,
						ChangeType:          model.ChangeTypeUnchanged,
						FileKey:             material.FileKey,
						FileName:            material.FileName,
						Extension:           material.Extension,
						Size:                material.Size,
						IsTemporary:         false,
					}
					if err := draftRepo.CreateMaterial(dm); err != nil {
						return err
					}
					dl.DraftMaterialID = &dm.ID
				case lesson.QuizID != nil:
					quiz, err := contentRepo.FindQuizByID(*lesson.QuizID)
					if err != nil {
						return err
					}
					dq := &model.DraftQuiz{
						DraftLessonID:   dl.ID,
						PublishedQuizID: &quiz.ID,
						ChangeType:      model.ChangeTypeUnchanged,
						Title:           quiz.Title,
						Questions:       quiz.Questions,
					}
					if err := draftRepo.CreateQuiz(dq); err != nil {
						return err
					}
					dl.DraftQuizID = &dq.ID
				}
				if err := draftRepo.SaveLesson(dl); err != nil {
					return err
				}
			}
		}

		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetDraft 返回完整草稿树。approving 属于审批过程的内部中间态，对外展示为 pending
func (s *DraftService) GetDraft(courseID, userID uint, role model.UserRole) (*DraftView, error) {
	if _, err := s.checkOwner(courseID, userID, role); err != nil {
		return nil, err
	}

	draft, err := s.DraftRepo.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDraftNotFound
		}
		return nil, err
	}
	if draft.Status == model.DraftStatusApproving {
		draft.Status = model.DraftStatusPending
	}

	view := &DraftView{Draft: draft, Sections: []DraftSectionView{}}
	sections, err := s.DraftRepo.FindSections(draft.ID)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		sv := DraftSectionView{DraftSection: sections[i], Lessons: []DraftLessonView{}}
		lessons, err := s.DraftRepo.FindLessons(sections[i].ID)
		if err != nil {
			return nil, err
		}
		for j := range lessons {
			lv := DraftLessonView{DraftLesson: lessons[j]}
			if lessons[j].DraftVideoID != nil {
				if v, err := s.DraftRepo.FindVideoByID(*lessons[j].DraftVideoID); err == nil {
					lv.Video = v
				}
			}
			if lessons[j].DraftMaterialID != nil {
				if m, err := s.DraftRepo.FindMaterialByID(*lessons[j].DraftMaterialID); err == nil {
					lv.Material = m
				}
			}
			if lessons[j].DraftQuizID != nil {
				if q, err := s.DraftRepo.FindQuizByID(*lessons[j].DraftQuizID); err == nil {
					lv.Quiz = q
				}
			}
			sv.Lessons = append(sv.Lessons, lv)
		}
		view.Sections = append(view.Sections, sv)
	}
	return view, nil
}

// DraftStatusView 草稿状态摘要，供轮询用
type DraftStatusView struct {
	Status          model.DraftStatus `json:"status"`
	SubmittedAt     *time.Time        `json:"submittedAt,omitempty"`
	RejectedAt      *time.Time        `json:"rejectedAt,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
}

func (s *DraftService) GetDraftStatus(courseID, userID uint, role model.UserRole) (*DraftStatusView, error) {
	if _, err := s.checkOwner(courseID, userID, role); err != nil {
		return nil, err
	}
	draft, err := s.DraftRepo.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDraftNotFound
		}
		return nil, err
	}
	status := draft.Status
	if status == model.DraftStatusApproving {
		status = model.DraftStatusPending
	}
	return &DraftStatusView{
		Status:          status,
		SubmittedAt:     draft.SubmittedAt,
		RejectedAt:      draft.RejectedAt,
		RejectionReason: draft.RejectionReason,
	}, nil
}

// editableDraft 校验草稿可编辑。被驳回的草稿再次编辑时回到 draft 状态
func (s *DraftService) editableDraft(courseID, userID uint, role model.UserRole) (*model.CourseDraft, error) {
	if _, err := s.checkOwner(courseID, userID, role); err != nil {
		return nil, err
	}
	draft, err := s.DraftRepo.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDraftNotFound
		}
		return nil, err
	}
	switch draft.Status {
	case model.DraftStatusDraft:
	case model.DraftStatusRejected:
		draft.Status = model.DraftStatusDraft
		draft.RejectedAt = nil
		draft.RejectionReason = ""
		if err := s.DraftRepo.Save(draft); err != nil {
			return nil, err
		}
	default:
		return nil, util.ErrDraftNotEditable
	}
	return draft, nil
}

// DraftMetadataInput 课程元数据的草稿覆盖值，nil 字段不修改
type DraftMetadataInput struct {
	Title            *string         `json:"title"`
	ShortDescription *string         `json:"shortDescription"`
	Description      *string         `json:"description"`
	Category         *string         `json:"category"`
	Level            *string         `json:"level"`
	Language         *string         `json:"language"`
	Price            *float64        `json:"price"`
	Thumbnail        *string         `json:"thumbnail"`
	Objectives       json.RawMessage `json:"objectives"`
	Requirements     json.RawMessage `json:"requirements"`
}

func (s *DraftService) UpdateMetadata(courseID, userID uint, role model.UserRole, input *DraftMetadataInput) (*model.CourseDraft, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		draft.Title = input.Title
	}
	if input.ShortDescription != nil {
		draft.ShortDescription = input.ShortDescription
	}
	if input.Description != nil {
		draft.Description = input.Description
	}
	if input.Category != nil {
		draft.Category = input.Category
	}
	if input.Level != nil {
		draft.Level = input.Level
	}
	if input.Language != nil {
		draft.Language = input.Language
	}
	if input.Price != nil {
		draft.Price = input.Price
	}
	if input.Thumbnail != nil {
		draft.Thumbnail = input.Thumbnail
	}
	if input.Objectives != nil {
		draft.Objectives = input.Objectives
	}
	if input.Requirements != nil {
		draft.Requirements = input.Requirements
	}
	if err := s.DraftRepo.Save(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

type SectionInput struct {
	Title string `json:"title" binding:"required"`
	Order int    `json:"order"`
}

func (s *DraftService) AddSection(courseID, userID uint, role model.UserRole, input *SectionInput) (*model.DraftSection, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	section := &model.DraftSection{
		DraftID:    draft.ID,
		ChangeType: model.ChangeTypeNew,
		Title:      input.Title,
		Order:      input.Order,
	}
	if err := s.DraftRepo.CreateSection(section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *DraftService) sectionInDraft(draftID, sectionID uint) (*model.DraftSection, error) {
	section, err := s.DraftRepo.FindSectionByID(sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSectionNotFound
		}
		return nil, err
	}
	if section.DraftID != draftID {
		return nil, util.ErrSectionNotFound
	}
	return section, nil
}

func (s *DraftService) UpdateSection(courseID, userID uint, role model.UserRole, sectionID uint, input *SectionInput) (*model.DraftSection, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	section, err := s.sectionInDraft(draft.ID, sectionID)
	if err != nil {
		return nil, err
	}
	section.Title = input.Title
	section.Order = input.Order
	if section.ChangeType == model.ChangeTypeUnchanged {
		section.ChangeType = model.ChangeTypeModified
	}
	if err := s.DraftRepo.SaveSection(section); err != nil {
		return nil, err
	}
	return section, nil
}

// DeleteSection 从草稿树移除章节。从此刻起该章节在草稿中缺席，
// 发布时会按缺席即删除处理已发布对应物；草稿里新上传的资产立即进入清理。
func (s *DraftService) DeleteSection(ctx context.Context, courseID, userID uint, role model.UserRole, sectionID uint) error {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return err
	}
	section, err := s.sectionInDraft(draft.ID, sectionID)
	if err != nil {
		return err
	}

	orphans, err := s.collectDraftOnlyAssets(section.ID)
	if err != nil {
		return err
	}
	if err := s.DraftRepo.DeleteSectionCascade(section.ID); err != nil {
		return err
	}
	s.Cleanup.CleanOrphans(ctx, orphans)
	return nil
}

type LessonInput struct {
	Title         string              `json:"title" binding:"required"`
	Order         int                 `json:"order"`
	Description   string              `json:"description"`
	IsFreePreview bool                `json:"isFreePreview"`
	ContentType   model.LessonContent `json:"contentType" binding:"required"`
}

func (s *DraftService) AddLesson(courseID, userID uint, role model.UserRole, sectionID uint, input *LessonInput) (*model.DraftLesson, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	if _, err := s.sectionInDraft(draft.ID, sectionID); err != nil {
		return nil, err
	}
	lesson := &model.DraftLesson{
		DraftSectionID: sectionID,
		ChangeType:     model.ChangeTypeNew,
		Title:          input.Title,
		Order:          input.Order,
		Description:    input.Description,
		IsFreePreview:  input.IsFreePreview,
		ContentType:    input.ContentType,
	}
	if err := s.DraftRepo.CreateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *DraftService) lessonInDraft(draftID, lessonID uint) (*model.DraftLesson, error) {
	lesson, err := s.DraftRepo.FindLessonByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	if _, err := s.sectionInDraft(draftID, lesson.DraftSectionID); err != nil {
		return nil, util.ErrLessonNotFound
	}
	return lesson, nil
}

func (s *DraftService) UpdateLesson(courseID, userID uint, role model.UserRole, lessonID uint, input *LessonInput) (*model.DraftLesson, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	lesson, err := s.lessonInDraft(draft.ID, lessonID)
	if err != nil {
		return nil, err
	}
	if input.ContentType != lesson.ContentType && (lesson.DraftVideoID != nil || lesson.DraftMaterialID != nil || lesson.DraftQuizID != nil) {
		return nil, util.ErrContentTypeMismatch
	}
	lesson.Title = input.Title
	lesson.Order = input.Order
	lesson.Description = input.Description
	lesson.IsFreePreview = input.IsFreePreview
	lesson.ContentType = input.ContentType
	if lesson.ChangeType == model.ChangeTypeUnchanged {
		lesson.ChangeType = model.ChangeTypeModified
	}
	if err := s.DraftRepo.SaveLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *DraftService) DeleteLesson(ctx context.Context, courseID, userID uint, role model.UserRole, lessonID uint) error {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return err
	}
	lesson, err := s.lessonInDraft(draft.ID, lessonID)
	if err != nil {
		return err
	}

	orphans, err := s.collectLessonDraftOnlyAssets(lesson)
	if err != nil {
		return err
	}
	if err := s.DraftRepo.DeleteLessonCascade(lesson.ID); err != nil {
		return err
	}
	s.Cleanup.CleanOrphans(ctx, orphans)
	return nil
}

// AttachVideo 把已上传的草稿视频挂到课时上。课时原有的草稿专属视频资产进入清理
func (s *DraftService) AttachVideo(ctx context.Context, courseID, userID uint, role model.UserRole, lessonID uint, video *model.DraftVideo) (*model.DraftVideo, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	lesson, err := s.lessonInDraft(draft.ID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.ContentType != model.ContentVideo {
		return nil, util.ErrContentTypeMismatch
	}

	var orphans []OrphanRef
	if lesson.DraftVideoID != nil {
		if old, err := s.DraftRepo.FindVideoByID(*lesson.DraftVideoID); err == nil {
			if old.PublishedVideoID == nil && old.AssetID != "" {
				orphans = append(orphans, OrphanRef{Kind: model.OrphanVideoAsset, RemoteID: old.AssetID})
			}
			if err := s.DraftRepo.DeleteVideo(old.ID); err != nil {
				return nil, err
			}
		}
	}

	video.DraftLessonID = lesson.ID
	video.ChangeType = model.ChangeTypeNew
	if err := s.DraftRepo.CreateVideo(video); err != nil {
		return nil, err
	}

	lesson.DraftVideoID = &video.ID
	lesson.Duration = video.Duration
	if lesson.ChangeType == model.ChangeTypeUnchanged {
		lesson.ChangeType = model.ChangeTypeModified
	}
	if err := s.DraftRepo.SaveLesson(lesson); err != nil {
		return nil, err
	}

	s.Cleanup.CleanOrphans(ctx, orphans)
	return video, nil
}

// AttachMaterial 把已上传的资料文件挂到课时上
func (s *DraftService) AttachMaterial(ctx context.Context, courseID, userID uint, role model.UserRole, lessonID uint, material *model.DraftMaterial) (*model.DraftMaterial, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	lesson, err := s.lessonInDraft(draft.ID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.ContentType != model.ContentMaterial {
		return nil, util.ErrContentTypeMismatch
	}

	var orphans []OrphanRef
	if lesson.DraftMaterialID != nil {
		if old, err := s.DraftRepo.FindMaterialByID(*lesson.DraftMaterialID); err == nil {
			if old.PublishedMaterialID == nil && old.FileKey != "" {
				orphans = append(orphans, OrphanRef{Kind: model.OrphanFile, RemoteID: old.FileKey, ResourceKind: util.ResourceKindMaterial})
			}
			if err := s.DraftRepo.DeleteMaterial(old.ID); err != nil {
				return nil, err
			}
		}
	}

	material.DraftLessonID = lesson.ID
	material.ChangeType = model.ChangeTypeNew
	if err := s.DraftRepo.CreateMaterial(material); err != nil {
		return nil, err
	}

	lesson.DraftMaterialID = &material.ID
	if lesson.ChangeType == model.ChangeTypeUnchanged {
		lesson.ChangeType = model.ChangeTypeModified
	}
	if err := s.DraftRepo.SaveLesson(lesson); err != nil {
		return nil, err
	}

	s.Cleanup.CleanOrphans(ctx, orphans)
	return material, nil
}

type QuizInput struct {
	Title     string               `json:"title"`
	Questions []model.QuizQuestion `json:"questions" binding:"required"`
}

// UpsertQuiz 创建或覆盖课时测验。测验无外部资产，可以原地改写
func (s *DraftService) UpsertQuiz(courseID, userID uint, role model.UserRole, lessonID uint, input *QuizInput) (*model.DraftQuiz, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	lesson, err := s.lessonInDraft(draft.ID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.ContentType != model.ContentQuiz {
		return nil, util.ErrContentTypeMismatch
	}

	questions, err := json.Marshal(input.Questions)
	if err != nil {
		return nil, err
	}

	if lesson.DraftQuizID != nil {
		quiz, err := s.DraftRepo.FindQuizByID(*lesson.DraftQuizID)
		if err != nil {
			return nil, err
		}
		quiz.Title = input.Title
		quiz.Questions = questions
		if quiz.ChangeType == model.ChangeTypeUnchanged {
			quiz.ChangeType = model.ChangeTypeModified
		}
		if err := s.DraftRepo.SaveQuiz(quiz); err != nil {
			return nil, err
		}
		if lesson.ChangeType == model.ChangeTypeUnchanged {
			lesson.ChangeType = model.ChangeTypeModified
			if err := s.DraftRepo.SaveLesson(lesson); err != nil {
				return nil, err
			}
		}
		return quiz, nil
	}

	quiz := &model.DraftQuiz{
		DraftLessonID: lesson.ID,
		ChangeType:    model.ChangeTypeNew,
		Title:         input.Title,
		Questions:     questions,
	}
	if err := s.DraftRepo.CreateQuiz(quiz); err != nil {
		return nil, err
	}
	lesson.DraftQuizID = &quiz.ID
	if lesson.ChangeType == model.ChangeTypeUnchanged {
		lesson.ChangeType = model.ChangeTypeModified
	}
	if err := s.DraftRepo.SaveLesson(lesson); err != nil {
		return nil, err
	}
	return quiz, nil
}

// DetachContent 摘除课时上挂着的内容行。摘掉后课时才能换内容类型，
// 草稿专属的远端资产随之进入清理
func (s *DraftService) DetachContent(ctx context.Context, courseID, userID uint, role model.UserRole, lessonID uint) (*model.DraftLesson, error) {
	draft, err := s.editableDraft(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	lesson, err := s.lessonInDraft(draft.ID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.DraftVideoID == nil && lesson.DraftMaterialID == nil && lesson.DraftQuizID == nil {
		return nil, util.ErrContentNotFound
	}

	orphans, err := s.collectLessonDraftOnlyAssets(lesson)
	if err != nil {
		return nil, err
	}
	if lesson.DraftVideoID != nil {
		if err := s.DraftRepo.DeleteVideo(*lesson.DraftVideoID); err != nil {
			return nil, err
		}
		lesson.DraftVideoID = nil
		lesson.Duration = 0
	}
	if lesson.DraftMaterialID != nil {
		if err := s.DraftRepo.DeleteMaterial(*lesson.DraftMaterialID); err != nil {
			return nil, err
		}
		lesson.DraftMaterialID = nil
	}
	if lesson.DraftQuizID != nil {
		if err := s.DraftRepo.DeleteQuiz(*lesson.DraftQuizID); err != nil {
			return nil, err
		}
		lesson.DraftQuizID = nil
	}
	if lesson.ChangeType == model.ChangeTypeUnchanged {
		lesson.ChangeType = model.ChangeTypeModified
	}
	if err := s.DraftRepo.SaveLesson(lesson); err != nil {
		return nil, err
	}

	s.Cleanup.CleanOrphans(ctx, orphans)
	return lesson, nil
}

// SubmitDraft 提交审核：draft -> pending
func (s *DraftService) SubmitDraft(courseID, userID uint, role model.UserRole) (*model.CourseDraft, error) {
	course, err := s.checkOwner(courseID, userID, role)
	if err != nil {
		return nil, err
	}
	draft, err := s.DraftRepo.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDraftNotFound
		}
		return nil, err
	}

	switch draft.Status {
	case model.DraftStatusPending, model.DraftStatusApproving:
		return nil, util.ErrDraftAlreadyPending
	case model.DraftStatusApproved:
		return nil, util.ErrDraftAlreadyApproved
	case model.DraftStatusRejected:
		// 重新提交前先回到 draft，提交本身只从 draft 出发
		ok, err := s.DraftRepo.TransitionStatus(draft.ID, model.DraftStatusRejected, model.DraftStatusDraft, map[string]interface{}{
			"rejected_at":      nil,
			"rejection_reason": "",
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrDraftAlreadyPending
		}
	}

	now := time.Now()
	ok, err := s.DraftRepo.TransitionStatus(draft.ID, model.DraftStatusDraft, model.DraftStatusPending, map[string]interface{}{
		"submitted_at":     &now,
		"rejected_at":      nil,
		"rejection_reason": "",
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrDraftAlreadyPending
	}

	// 首次提交的课程随草稿一并进入待审
	if course.Status == model.CourseStatusDraft || course.Status == model.CourseStatusRejected {
		course.Status = model.CourseStatusPending
		if err := s.CourseRepo.Save(course); err != nil {
			logger.Log.Error("更新课程待审状态失败", zap.Uint("courseId", course.ID), zap.Error(err))
		}
	}

	return s.DraftRepo.FindByID(draft.ID)
}

// CancelDraft 丢弃草稿。草稿里新上传、从未发布过的资产成为孤儿，立即进入清理
func (s *DraftService) CancelDraft(ctx context.Context, courseID, userID uint, role model.UserRole) error {
	if _, err := s.checkOwner(courseID, userID, role); err != nil {
		return err
	}
	draft, err := s.DraftRepo.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrDraftNotFound
		}
		return err
	}
	// 已提交的草稿不能取消，避免抽走正在审核中的内容
	if draft.Status != model.DraftStatusDraft && draft.Status != model.DraftStatusRejected {
		return util.ErrDraftNotCancelable
	}

	orphans, err := s.collectDraftTreeOnlyAssets(draft.ID)
	if err != nil {
		return err
	}
	if err := s.DraftRepo.DeleteCascade(draft.ID); err != nil {
		return err
	}
	s.Cleanup.CleanOrphans(ctx, orphans)
	return nil
}

// collectDraftTreeOnlyAssets 收集整棵草稿树中草稿专属的远端资产
// （PublishedXID 为 nil，即尚未被任何已发布行引用）
func (s *DraftService) collectDraftTreeOnlyAssets(draftID uint) ([]OrphanRef, error) {
	var orphans []OrphanRef
	videos, err := s.DraftRepo.FindVideosByDraft(draftID)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		if videos[i].PublishedVideoID == nil && videos[i].AssetID != "" {
			orphans = append(orphans, OrphanRef{Kind: model.OrphanVideoAsset, RemoteID: videos[i].AssetID})
		}
	}
	materials, err := s.DraftRepo.FindMaterialsByDraft(draftID)
	if err != nil {
		return nil, err
	}
	for i := range materials {
		if materials[i].PublishedMaterialID == nil && materials[i].FileKey != "" {
			orphans = append(orphans, OrphanRef{Kind: model.OrphanFile, RemoteID: materials[i].FileKey, ResourceKind: util.ResourceKindMaterial})
		}
	}
	return orphans, nil
}

func (s *DraftService) collectDraftOnlyAssets(sectionID uint) ([]OrphanRef, error) {
	var orphans []OrphanRef
	lessons, err := s.DraftRepo.FindLessons(sectionID)
	if err != nil {
		return nil, err
	}
	for i := range lessons {
		refs, err := s.collectLessonDraftOnlyAssets(&lessons[i])
		if err != nil {
			return nil, err
		}
		orphans = append(orphans, refs...)
	}
	return orphans, nil
}

func (s *DraftService) collectLessonDraftOnlyAssets(lesson *model.DraftLesson) ([]OrphanRef, error) {
	var orphans []OrphanRef
	if lesson.DraftVideoID != nil {
		if v, err := s.DraftRepo.FindVideoByID(*lesson.DraftVideoID); err == nil {
			if v.PublishedVideoID == nil && v.AssetID != "" {
				orphans = append(orphans, OrphanRef{Kind: model.OrphanVideoAsset, RemoteID: v.AssetID})
			}
		}
	}
	if lesson.DraftMaterialID != nil {
		if m, err := s.DraftRepo.FindMaterialByID(*lesson.DraftMaterialID); err == nil {
			if m.PublishedMaterialID == nil && m.FileKey != "" {
				orphans = append(orphans, OrphanRef{Kind: model.OrphanFile, RemoteID: m.FileKey, ResourceKind: util.ResourceKindMaterial})
			}
		}
	}
	return orphans, nil
}
