package service

import (
	"encoding/json"
	"errors"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"

	"gorm.io/gorm"
)

// CourseService 讲师侧的课程管理。课程内容只能通过草稿工作流修改，
// 这里只负责建课、列表和已发布树的读取。
type CourseService struct {
	CourseRepo  *repository.CourseRepository
	SectionRepo *repository.SectionRepository
	LessonRepo  *repository.LessonRepository
	ContentRepo *repository.ContentRepository
	DraftRepo   *repository.DraftRepository
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	sectionRepo *repository.SectionRepository,
	lessonRepo *repository.LessonRepository,
	contentRepo *repository.ContentRepository,
	draftRepo *repository.DraftRepository,
) *CourseService {
	return &CourseService{
		CourseRepo:  courseRepo,
		SectionRepo: sectionRepo,
		LessonRepo:  lessonRepo,
		ContentRepo: contentRepo,
		DraftRepo:   draftRepo,
	}
}

type CreateCourseInput struct {
	Title            string          `json:"title" binding:"required"`
	ShortDescription string          `json:"shortDescription"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Level            string          `json:"level"`
	Language         string          `json:"language"`
	Price            float64         `json:"price"`
	Objectives       json.RawMessage `json:"objectives"`
	Requirements     json.RawMessage `json:"requirements"`
}

// CreateCourse 建课。新课程处于 draft 状态，同时物化一份空草稿供编辑
func (s *CourseService) CreateCourse(instructorID uint, input *CreateCourseInput) (*model.Course, error) {
	course := &model.Course{
		InstructorID:     instructorID,
		Title:            input.Title,
		ShortDescription: input.ShortDescription,
		Description:      input.Description,
		Category:         input.Category,
		Level:            input.Level,
		Language:         input.Language,
		Price:            input.Price,
		Objectives:       input.Objectives,
		Requirements:     input.Requirements,
		Status:           model.CourseStatusDraft,
	}
	if course.Level == "" {
		course.Level = model.CourseLevelBeginner
	}

	err := s.CourseRepo.DB.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewCourseRepository(tx).Create(course); err != nil {
			return err
		}
		return repository.NewDraftRepository(tx).Create(&model.CourseDraft{
			CourseID: course.ID,
			Status:   model.DraftStatusDraft,
		})
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// UpdateCourseInput 未发布课程的元数据更新，nil 字段不修改
type UpdateCourseInput struct {
	Title            *string         `json:"title"`
	ShortDescription *string         `json:"shortDescription"`
	Description      *string         `json:"description"`
	Category         *string         `json:"category"`
	Level            *string         `json:"level"`
	Language         *string         `json:"language"`
	Price            *float64        `json:"price"`
	Objectives       json.RawMessage `json:"objectives"`
	Requirements     json.RawMessage `json:"requirements"`
}

// UpdateCourse 直接修改课程元数据。仅限未发布课程，
// 发布后的元数据修改走草稿覆盖值
func (s *CourseService) UpdateCourse(courseID, instructorID uint, role model.UserRole, input *UpdateCourseInput) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.InstructorID != instructorID && role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	if course.Status == model.CourseStatusApproved {
		return nil, util.ErrCourseAlreadyPublished
	}

	if input.Title != nil {
		course.Title = *input.Title
	}
	if input.ShortDescription != nil {
		course.ShortDescription = *input.ShortDescription
	}
	if input.Description != nil {
		course.Description = *input.Description
	}
	if input.Category != nil {
		course.Category = *input.Category
	}
	if input.Level != nil {
		course.Level = *input.Level
	}
	if input.Language != nil {
		course.Language = *input.Language
	}
	if input.Price != nil {
		course.Price = *input.Price
	}
	if input.Objectives != nil {
		course.Objectives = input.Objectives
	}
	if input.Requirements != nil {
		course.Requirements = input.Requirements
	}
	if err := s.CourseRepo.Save(course); err != nil {
		return nil, err
	}
	return course, nil
}

// InstructorCourse 讲师课程列表条目，附带当前草稿状态
type InstructorCourse struct {
	model.Course
	DraftStatus *model.DraftStatus `json:"draftStatus,omitempty"`
}

func (s *CourseService) ListMine(instructorID uint) ([]InstructorCourse, error) {
	courses, err := s.CourseRepo.FindByInstructor(instructorID)
	if err != nil {
		return nil, err
	}
	items := make([]InstructorCourse, 0, len(courses))
	for i := range courses {
		item := InstructorCourse{Course: courses[i]}
		if draft, err := s.DraftRepo.FindByCourse(courses[i].ID); err == nil {
			status := draft.Status
			if status == model.DraftStatusApproving {
				status = model.DraftStatusPending
			}
			item.DraftStatus = &status
		}
		items = append(items, item)
	}
	return items, nil
}

// CurriculumSection 已发布课程树的章节视图
type CurriculumSection struct {
	model.Section
	Lessons []model.Lesson `json:"lessons"`
}

// GetCurriculum 读取已发布课程树（不含内容行，内容按课时单独取）
func (s *CourseService) GetCurriculum(courseID uint) (*model.Course, []CurriculumSection, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrCourseNotFound
		}
		return nil, nil, err
	}

	sections, err := s.SectionRepo.FindByCourse(courseID)
	if err != nil {
		return nil, nil, err
	}
	curriculum := make([]CurriculumSection, 0, len(sections))
	for i := range sections {
		lessons, err := s.LessonRepo.FindBySection(sections[i].ID)
		if err != nil {
			return nil, nil, err
		}
		curriculum = append(curriculum, CurriculumSection{Section: sections[i], Lessons: lessons})
	}
	return course, curriculum, nil
}

// ResolveLessonCourse 由课时定位所属课程
func (s *CourseService) ResolveLessonCourse(lessonID uint) (*model.Lesson, *model.Course, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrLessonNotFound
		}
		return nil, nil, err
	}
	section, err := s.SectionRepo.FindByID(lesson.SectionID)
	if err != nil {
		return nil, nil, err
	}
	course, err := s.CourseRepo.FindByID(section.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return lesson, course, nil
}
