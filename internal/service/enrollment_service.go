package service

import (
	"errors"
	"fmt"
	"time"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"
	"course_market_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnrollmentService 选课与内容访问：钱包购课、我的课程、课时内容分发
type EnrollmentService struct {
	EnrollRepo  *repository.EnrollmentRepository
	CourseRepo  *repository.CourseRepository
	UserRepo    *repository.UserRepository
	ContentRepo *repository.ContentRepository
	Courses     *CourseService
	VideoHost   *VideoHostService
	Storage     *StorageService
}

func NewEnrollmentService(
	enrollRepo *repository.EnrollmentRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	contentRepo *repository.ContentRepository,
	courses *CourseService,
	videoHost *VideoHostService,
	storage *StorageService,
) *EnrollmentService {
	return &EnrollmentService{
		EnrollRepo:  enrollRepo,
		CourseRepo:  courseRepo,
		UserRepo:    userRepo,
		ContentRepo: contentRepo,
		Courses:     courses,
		VideoHost:   videoHost,
		Storage:     storage,
	}
}

// Enroll 钱包购课。扣款、订单、选课记录在一个事务内完成
func (s *EnrollmentService) Enroll(userID, courseID uint) (*model.Order, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.Status != model.CourseStatusApproved {
		return nil, util.ErrCourseNotApproved
	}

	enrolled, err := s.EnrollRepo.Exists(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, util.ErrAlreadyEnrolled
	}

	order := &model.Order{
		OrderNo:  time.Now().Format("20060102150405") + "-" + uuid.NewString()[:8],
		UserID:   userID,
		CourseID: courseID,
		Amount:   course.Price,
		Status:   model.OrderStatusPaid,
	}

	err = s.EnrollRepo.DB.Transaction(func(tx *gorm.DB) error {
		userRepo := repository.NewUserRepository(tx)
		enrollRepo := repository.NewEnrollmentRepository(tx)

		if course.Price > 0 {
			rows, err := userRepo.DeductBalance(userID, course.Price)
			if err != nil {
				return err
			}
			if rows == 0 {
				return util.ErrInsufficientBalance
			}
		}
		if err := enrollRepo.CreateOrder(order); err != nil {
			return err
		}
		if err := enrollRepo.Create(&model.Enrollment{
			UserID:     userID,
			CourseID:   courseID,
			PricePaid:  course.Price,
			EnrolledAt: time.Now(),
		}); err != nil {
			return err
		}
		return repository.NewCourseRepository(tx).IncrementEnrollment(courseID)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("购课成功",
		zap.Uint("userId", userID),
		zap.Uint("courseId", courseID),
		zap.String("orderNo", order.OrderNo))
	return order, nil
}

func (s *EnrollmentService) TopUp(userID uint, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("invalid top-up amount: %.2f", amount)
	}
	return s.UserRepo.AddBalance(userID, amount)
}

// EnrolledCourse 我的课程条目
type EnrolledCourse struct {
	Enrollment model.Enrollment `json:"enrollment"`
	Course     *model.Course    `json:"course,omitempty"`
}

func (s *EnrollmentService) MyCourses(userID uint, page, limit int) ([]EnrolledCourse, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	enrollments, total, err := s.EnrollRepo.FindByUser(userID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	items := make([]EnrolledCourse, 0, len(enrollments))
	for i := range enrollments {
		item := EnrolledCourse{Enrollment: enrollments[i]}
		if course, err := s.CourseRepo.FindByID(enrollments[i].CourseID); err == nil {
			item.Course = course
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (s *EnrollmentService) MyOrders(userID uint, page, limit int) ([]model.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.EnrollRepo.FindOrdersByUser(userID, page, limit)
}

// LessonContentView 课时内容分发结果。视频给带签名的播放地址，
// 资料给下载地址，测验给题目本体。
type LessonContentView struct {
	Lesson      *model.Lesson `json:"lesson"`
	PlaybackURL string        `json:"playbackUrl,omitempty"`
	DownloadURL string        `json:"downloadUrl,omitempty"`
	Quiz        *model.Quiz   `json:"quiz,omitempty"`
}

// GetLessonContent 访问规则：免费试看课时人人可看，
// 其余需要选课，讲师本人和管理员不受限制。
func (s *EnrollmentService) GetLessonContent(userID uint, role model.UserRole, lessonID uint) (*LessonContentView, error) {
	lesson, course, err := s.Courses.ResolveLessonCourse(lessonID)
	if err != nil {
		return nil, err
	}

	if !lesson.IsFreePreview && role != model.Admin && course.InstructorID != userID {
		enrolled, err := s.EnrollRepo.Exists(userID, course.ID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, util.ErrNotEnrolled
		}
	}

	view := &LessonContentView{Lesson: lesson}
	switch lesson.ContentType {
	case model.ContentVideo:
		if lesson.VideoID == nil {
			return nil, util.ErrContentNotFound
		}
		video, err := s.ContentRepo.FindVideoByID(*lesson.VideoID)
		if err != nil {
			return nil, util.ErrContentNotFound
		}
		view.PlaybackURL, err = s.VideoHost.SignPlaybackURL(video.PlaybackID)
		if err != nil {
			return nil, err
		}
	case model.ContentMaterial:
		if lesson.MaterialID == nil {
			return nil, util.ErrContentNotFound
		}
		material, err := s.ContentRepo.FindMaterialByID(*lesson.MaterialID)
		if err != nil {
			return nil, util.ErrContentNotFound
		}
		view.DownloadURL = s.Storage.GetURL(material.FileKey)
	case model.ContentQuiz:
		if lesson.QuizID == nil {
			return nil, util.ErrContentNotFound
		}
		quiz, err := s.ContentRepo.FindQuizByID(*lesson.QuizID)
		if err != nil {
			return nil, util.ErrContentNotFound
		}
		view.Quiz = quiz
	}
	return view, nil
}
