package model

// Material 已发布课时的资料文件，FileKey 归文件托管方所有
// swagger:model Material
type Material struct {
	BaseModel
	LessonID    *uint  `gorm:"index" json:"lessonId,omitempty"`
	FileKey     string `gorm:"size:256;index" json:"fileKey"`
	FileName    string `gorm:"size:255" json:"fileName"`
	Extension   string `gorm:"size:20" json:"extension"`
	Size        int64  `gorm:"default:0" json:"size"`
	IsTemporary bool   `gorm:"default:false" json:"isTemporary"`
}

func (Material) TableName() string {
	return "materials"
}
