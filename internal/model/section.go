package model

// Section 已发布课程的章节
// swagger:model Section
type Section struct {
	BaseModel
	CourseID uint   `gorm:"index;not null" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Order    int    `gorm:"column:sort_order;default:0" json:"order"`

	Lessons []Lesson `gorm:"foreignKey:SectionID" json:"lessons,omitempty"`
}

func (Section) TableName() string {
	return "sections"
}
