package repository

import (
	"course_market_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) Save(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	return r.DB.Model(&model.Course{}).Where("id = ?", id).Updates(updates).Error
}

func (r *CourseRepository) FindByInstructor(instructorID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("instructor_id = ?", instructorID).
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

// CatalogQuery 目录检索条件
type CatalogQuery struct {
	Keyword  string
	Category string
	Level    string
	Sort     string // newest / price_asc / price_desc / popular
	Page     int
	Limit    int
}

// FindApproved 检索已上架课程，支持关键词/分类/难度过滤与排序分页
func (r *CourseRepository) FindApproved(q CatalogQuery) ([]model.Course, int64, error) {
	db := r.DB.Model(&model.Course{}).Where("status = ?", model.CourseStatusApproved)

	if q.Keyword != "" {
		like := "%" + q.Keyword + "%"
		db = db.Where("title LIKE ? OR short_description LIKE ?", like, like)
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.Level != "" {
		db = db.Where("level = ?", q.Level)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.Sort {
	case "price_asc":
		db = db.Order("price ASC")
	case "price_desc":
		db = db.Order("price DESC")
	case "popular":
		db = db.Order("enrollment_count DESC")
	default:
		db = db.Order("published_at DESC")
	}

	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	var courses []model.Course
	err := db.Offset((q.Page - 1) * q.Limit).Limit(q.Limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) IncrementEnrollment(id uint) error {
	return r.DB.Model(&model.Course{}).
		Where("id = ?", id).
		Update("enrollment_count", gorm.Expr("enrollment_count + 1")).
		Error
}
