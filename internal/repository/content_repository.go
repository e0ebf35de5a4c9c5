package repository

import (
	"course_market_backend/internal/model"

	"gorm.io/gorm"
)

// ContentRepository 管理已发布课时的三类内容行（视频/资料/测验）
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) CreateVideo(video *model.Video) error {
	return r.DB.Create(video).Error
}

func (r *ContentRepository) FindVideoByID(id uint) (*model.Video, error) {
	var video model.Video
	err := r.DB.First(&video, id).Error
	return &video, err
}

func (r *ContentRepository) SaveVideo(video *model.Video) error {
	return r.DB.Save(video).Error
}

func (r *ContentRepository) DeleteVideo(id uint) error {
	return r.DB.Unscoped().Delete(&model.Video{}, id).Error
}

func (r *ContentRepository) CreateMaterial(material *model.Material) error {
	return r.DB.Create(material).Error
}

func (r *ContentRepository) FindMaterialByID(id uint) (*model.Material, error) {
	var material model.Material
	err := r.DB.First(&material, id).Error
	return &material, err
}

func (r *ContentRepository) SaveMaterial(material *model.Material) error {
	return r.DB.Save(material).Error
}

func (r *ContentRepository) DeleteMaterial(id uint) error {
	return r.DB.Unscoped().Delete(&model.Material{}, id).Error
}

func (r *ContentRepository) CreateQuiz(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *ContentRepository) FindQuizByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.First(&quiz, id).Error
	return &quiz, err
}

func (r *ContentRepository) SaveQuiz(quiz *model.Quiz) error {
	return r.DB.Save(quiz).Error
}

func (r *ContentRepository) DeleteQuiz(id uint) error {
	return r.DB.Unscoped().Delete(&model.Quiz{}, id).Error
}
