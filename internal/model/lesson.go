package model

// LessonContent 课时内容类型，video/material/quiz 三选一
type LessonContent string

const (
	ContentVideo    LessonContent = "video"
	ContentMaterial LessonContent = "material"
	ContentQuiz     LessonContent = "quiz"
)

// Lesson 已发布课时。VideoID/MaterialID/QuizID 至多一个非空，
// 且必须与 ContentType 一致；内容行上的 LessonID 只是查询索引，
// 课时上的正向指针才是唯一事实。
// swagger:model Lesson
type Lesson struct {
	BaseModel
	SectionID     uint          `gorm:"index;not null" json:"sectionId"`
	Title         string        `gorm:"size:255;not null" json:"title"`
	Order         int           `gorm:"column:sort_order;default:0" json:"order"`
	Description   string        `gorm:"type:text" json:"description"`
	Duration      float64       `gorm:"default:0" json:"duration"`
	IsFreePreview bool          `gorm:"default:false" json:"isFreePreview"`
	ContentType   LessonContent `gorm:"size:20" json:"contentType"`
	VideoID       *uint         `json:"videoId,omitempty"`
	MaterialID    *uint         `json:"materialId,omitempty"`
	QuizID        *uint         `json:"quizId,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}
