package model

// Video 已发布课时的视频内容，AssetID/PlaybackID 归视频托管方所有
// swagger:model Video
type Video struct {
	BaseModel
	LessonID    *uint   `gorm:"index" json:"lessonId,omitempty"`
	Title       string  `gorm:"size:255" json:"title"`
	OwnerID     uint    `gorm:"index" json:"ownerId"`
	AssetID     string  `gorm:"size:128;index" json:"assetId"`
	PlaybackID  string  `gorm:"size:128" json:"playbackId"`
	UploadID    string  `gorm:"size:128" json:"uploadId"`
	Duration    float64 `gorm:"default:0" json:"duration"`
	Status      string  `gorm:"size:50" json:"status"`
	Description string  `gorm:"type:text" json:"description"`
	AspectRatio string  `gorm:"size:20" json:"aspectRatio"`
	Resolution  string  `gorm:"size:20" json:"resolution"`
}

func (Video) TableName() string {
	return "videos"
}
