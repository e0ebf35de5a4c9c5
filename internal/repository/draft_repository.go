package repository

import (
	"course_market_backend/internal/model"

	"gorm.io/gorm"
)

// DraftRepository 管理草稿文档及其全部子集合
type DraftRepository struct {
	DB *gorm.DB
}

func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{DB: db}
}

func (r *DraftRepository) Create(draft *model.CourseDraft) error {
	return r.DB.Create(draft).Error
}

func (r *DraftRepository) FindByCourse(courseID uint) (*model.CourseDraft, error) {
	var draft model.CourseDraft
	err := r.DB.Where("course_id = ?", courseID).First(&draft).Error
	return &draft, err
}

func (r *DraftRepository) FindByID(id uint) (*model.CourseDraft, error) {
	var draft model.CourseDraft
	err := r.DB.First(&draft, id).Error
	return &draft, err
}

func (r *DraftRepository) Save(draft *model.CourseDraft) error {
	return r.DB.Save(draft).Error
}

func (r *DraftRepository) FindByStatus(status model.DraftStatus) ([]model.CourseDraft, error) {
	var drafts []model.CourseDraft
	err := r.DB.Where("status = ?", status).
		Order("submitted_at ASC").
		Find(&drafts).Error
	return drafts, err
}

// TransitionStatus 条件状态迁移（check-and-set）。只有当前状态等于 from 时才更新，
// 返回是否真正发生了迁移，供调用方串行化并发审批。
func (r *DraftRepository) TransitionStatus(draftID uint, from, to model.DraftStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	res := r.DB.Model(&model.CourseDraft{}).
		Where("id = ? AND status = ?", draftID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteCascade 删除草稿文档及其全部子行（章节/课时/视频/资料/测验）
func (r *DraftRepository) DeleteCascade(draftID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		lessonIDs := tx.Model(&model.DraftLesson{}).
			Select("id").
			Where("draft_section_id IN (?)", tx.Model(&model.DraftSection{}).Select("id").Where("draft_id = ?", draftID))

		if err := tx.Unscoped().Where("draft_lesson_id IN (?)", lessonIDs).Delete(&model.DraftVideo{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_lesson_id IN (?)", lessonIDs).Delete(&model.DraftMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_lesson_id IN (?)", lessonIDs).Delete(&model.DraftQuiz{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().
			Where("draft_section_id IN (?)", tx.Model(&model.DraftSection{}).Select("id").Where("draft_id = ?", draftID)).
			Delete(&model.DraftLesson{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_id = ?", draftID).Delete(&model.DraftSection{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.CourseDraft{}, draftID).Error
	})
}

// ---- 草稿章节 ----

func (r *DraftRepository) CreateSection(section *model.DraftSection) error {
	return r.DB.Create(section).Error
}

func (r *DraftRepository) FindSectionByID(id uint) (*model.DraftSection, error) {
	var section model.DraftSection
	err := r.DB.First(&section, id).Error
	return &section, err
}

// FindSections 按 order 升序返回草稿章节
func (r *DraftRepository) FindSections(draftID uint) ([]model.DraftSection, error) {
	var sections []model.DraftSection
	err := r.DB.Where("draft_id = ?", draftID).
		Order("sort_order ASC").
		Find(&sections).Error
	return sections, err
}

func (r *DraftRepository) SaveSection(section *model.DraftSection) error {
	return r.DB.Save(section).Error
}

// DeleteSectionCascade 删除草稿章节及其课时与内容行
func (r *DraftRepository) DeleteSectionCascade(sectionID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		lessonIDs := tx.Model(&model.DraftLesson{}).Select("id").Where("draft_section_id = ?", sectionID)

		if err := tx.Unscoped().Where("draft_lesson_id IN (?)", lessonIDs).Delete(&model.DraftVideo{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_lesson_id IN (?)", lessonIDs).Delete(&model.DraftMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_lesson_id IN (?)", lessonIDs).Delete(&model.DraftQuiz{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_section_id = ?", sectionID).Delete(&model.DraftLesson{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.DraftSection{}, sectionID).Error
	})
}

// ---- 草稿课时 ----

func (r *DraftRepository) CreateLesson(lesson *model.DraftLesson) error {
	return r.DB.Create(lesson).Error
}

func (r *DraftRepository) FindLessonByID(id uint) (*model.DraftLesson, error) {
	var lesson model.DraftLesson
	err := r.DB.First(&lesson, id).Error
	return &lesson, err
}

// FindLessons 按 order 升序返回章节下的草稿课时
func (r *DraftRepository) FindLessons(sectionID uint) ([]model.DraftLesson, error) {
	var lessons []model.DraftLesson
	err := r.DB.Where("draft_section_id = ?", sectionID).
		Order("sort_order ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *DraftRepository) SaveLesson(lesson *model.DraftLesson) error {
	return r.DB.Save(lesson).Error
}

// DeleteLessonCascade 删除草稿课时及其内容行
func (r *DraftRepository) DeleteLessonCascade(lessonID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("draft_lesson_id = ?", lessonID).Delete(&model.DraftVideo{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_lesson_id = ?", lessonID).Delete(&model.DraftMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("draft_lesson_id = ?", lessonID).Delete(&model.DraftQuiz{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.DraftLesson{}, lessonID).Error
	})
}

// ---- 草稿内容行 ----

func (r *DraftRepository) CreateVideo(video *model.DraftVideo) error {
	return r.DB.Create(video).Error
}

func (r *DraftRepository) FindVideoByID(id uint) (*model.DraftVideo, error) {
	var video model.DraftVideo
	err := r.DB.First(&video, id).Error
	return &video, err
}

func (r *DraftRepository) FindVideoByLesson(lessonID uint) (*model.DraftVideo, error) {
	var video model.DraftVideo
	err := r.DB.Where("draft_lesson_id = ?", lessonID).First(&video).Error
	return &video, err
}

func (r *DraftRepository) SaveVideo(video *model.DraftVideo) error {
	return r.DB.Save(video).Error
}

func (r *DraftRepository) DeleteVideo(id uint) error {
	return r.DB.Unscoped().Delete(&model.DraftVideo{}, id).Error
}

func (r *DraftRepository) CreateMaterial(material *model.DraftMaterial) error {
	return r.DB.Create(material).Error
}

func (r *DraftRepository) FindMaterialByID(id uint) (*model.DraftMaterial, error) {
	var material model.DraftMaterial
	err := r.DB.First(&material, id).Error
	return &material, err
}

func (r *DraftRepository) FindMaterialByLesson(lessonID uint) (*model.DraftMaterial, error) {
	var material model.DraftMaterial
	err := r.DB.Where("draft_lesson_id = ?", lessonID).First(&material).Error
	return &material, err
}

func (r *DraftRepository) SaveMaterial(material *model.DraftMaterial) error {
	return r.DB.Save(material).Error
}

func (r *DraftRepository) DeleteMaterial(id uint) error {
	return r.DB.Unscoped().Delete(&model.DraftMaterial{}, id).Error
}

func (r *DraftRepository) CreateQuiz(quiz *model.DraftQuiz) error {
	return r.DB.Create(quiz).Error
}

func (r *DraftRepository) FindQuizByID(id uint) (*model.DraftQuiz, error) {
	var quiz model.DraftQuiz
	err := r.DB.First(&quiz, id).Error
	return &quiz, err
}

func (r *DraftRepository) FindQuizByLesson(lessonID uint) (*model.DraftQuiz, error) {
	var quiz model.DraftQuiz
	err := r.DB.Where("draft_lesson_id = ?", lessonID).First(&quiz).Error
	return &quiz, err
}

func (r *DraftRepository) SaveQuiz(quiz *model.DraftQuiz) error {
	return r.DB.Save(quiz).Error
}

func (r *DraftRepository) DeleteQuiz(id uint) error {
	return r.DB.Unscoped().Delete(&model.DraftQuiz{}, id).Error
}

// FindVideosByDraft 返回草稿树下全部视频行（取消草稿时收集待清理资产用）
func (r *DraftRepository) FindVideosByDraft(draftID uint) ([]model.DraftVideo, error) {
	var videos []model.DraftVideo
	err := r.DB.Where("draft_lesson_id IN (?)",
		r.DB.Model(&model.DraftLesson{}).Select("id").Where("draft_section_id IN (?)",
			r.DB.Model(&model.DraftSection{}).Select("id").Where("draft_id = ?", draftID))).
		Find(&videos).Error
	return videos, err
}

// FindMaterialsByDraft 返回草稿树下全部资料行
func (r *DraftRepository) FindMaterialsByDraft(draftID uint) ([]model.DraftMaterial, error) {
	var materials []model.DraftMaterial
	err := r.DB.Where("draft_lesson_id IN (?)",
		r.DB.Model(&model.DraftLesson{}).Select("id").Where("draft_section_id IN (?)",
			r.DB.Model(&model.DraftSection{}).Select("id").Where("draft_id = ?", draftID))).
		Find(&materials).Error
	return materials, err
}
