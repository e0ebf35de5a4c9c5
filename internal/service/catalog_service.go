package service

import (
	"errors"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"

	"gorm.io/gorm"
)

// CatalogService 面向学生的课程目录：检索、详情大纲。
// 只暴露已上架课程，大纲不携带任何资产引用。
type CatalogService struct {
	CourseRepo  *repository.CourseRepository
	SectionRepo *repository.SectionRepository
	LessonRepo  *repository.LessonRepository
	UserRepo    *repository.UserRepository
}

func NewCatalogService(
	courseRepo *repository.CourseRepository,
	sectionRepo *repository.SectionRepository,
	lessonRepo *repository.LessonRepository,
	userRepo *repository.UserRepository,
) *CatalogService {
	return &CatalogService{
		CourseRepo:  courseRepo,
		SectionRepo: sectionRepo,
		LessonRepo:  lessonRepo,
		UserRepo:    userRepo,
	}
}

func (s *CatalogService) List(q repository.CatalogQuery) ([]model.Course, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
	return s.CourseRepo.FindApproved(q)
}

// OutlineLesson 公开大纲里的课时：只有标题、时长和是否免费试看
type OutlineLesson struct {
	ID            uint                `json:"id"`
	Title         string              `json:"title"`
	Order         int                 `json:"order"`
	Duration      float64             `json:"duration"`
	IsFreePreview bool                `json:"isFreePreview"`
	ContentType   model.LessonContent `json:"contentType"`
}

type OutlineSection struct {
	ID      uint            `json:"id"`
	Title   string          `json:"title"`
	Order   int             `json:"order"`
	Lessons []OutlineLesson `json:"lessons"`
}

type CourseDetail struct {
	Course      *model.Course    `json:"course"`
	Instructor  *model.User      `json:"instructor,omitempty"`
	LessonCount int64            `json:"lessonCount"`
	Outline     []OutlineSection `json:"outline"`
}

// GetDetail 公开课程详情。未上架课程对外不存在
func (s *CatalogService) GetDetail(courseID uint) (*CourseDetail, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.Status != model.CourseStatusApproved {
		return nil, util.ErrCourseNotFound
	}

	detail := &CourseDetail{Course: course, Outline: []OutlineSection{}}
	if instructor, err := s.UserRepo.FindByID(course.InstructorID); err == nil {
		instructor.Balance = 0 // 讲师余额不对外
		detail.Instructor = instructor
	}

	detail.LessonCount, _ = s.LessonRepo.CountByCourse(courseID)

	sections, err := s.SectionRepo.FindByCourse(courseID)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		os := OutlineSection{ID: sections[i].ID, Title: sections[i].Title, Order: sections[i].Order, Lessons: []OutlineLesson{}}
		lessons, err := s.LessonRepo.FindBySection(sections[i].ID)
		if err != nil {
			return nil, err
		}
		for j := range lessons {
			os.Lessons = append(os.Lessons, OutlineLesson{
				ID:            lessons[j].ID,
				Title:         lessons[j].Title,
				Order:         lessons[j].Order,
				Duration:      lessons[j].Duration,
				IsFreePreview: lessons[j].IsFreePreview,
				ContentType:   lessons[j].ContentType,
			})
		}
		detail.Outline = append(detail.Outline, os)
	}
	return detail, nil
}
