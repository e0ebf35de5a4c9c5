package repository

import (
	"course_market_backend/internal/model"

	"gorm.io/gorm"
)

type SectionRepository struct {
	DB *gorm.DB
}

func NewSectionRepository(db *gorm.DB) *SectionRepository {
	return &SectionRepository{DB: db}
}

func (r *SectionRepository) Create(section *model.Section) error {
	return r.DB.Create(section).Error
}

func (r *SectionRepository) FindByID(id uint) (*model.Section, error) {
	var section model.Section
	err := r.DB.First(&section, id).Error
	return &section, err
}

// FindByCourse 按 order 升序返回课程章节
func (r *SectionRepository) FindByCourse(courseID uint) ([]model.Section, error) {
	var sections []model.Section
	err := r.DB.Where("course_id = ?", courseID).
		Order("sort_order ASC").
		Find(&sections).Error
	return sections, err
}

func (r *SectionRepository) Save(section *model.Section) error {
	return r.DB.Save(section).Error
}

func (r *SectionRepository) Delete(id uint) error {
	return r.DB.Unscoped().Delete(&model.Section{}, id).Error
}
