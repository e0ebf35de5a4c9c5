package model

import (
	"encoding/json"
	"time"
)

// DraftStatus 草稿审批状态机：draft -> pending -> approved / rejected。
// approving 是 approve 过程中的短暂中间态，用条件更新抢占，防止并发重复合并；
// 对外展示时视同 pending。
type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "draft"
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusApproving DraftStatus = "approving"
	DraftStatusApproved  DraftStatus = "approved"
	DraftStatusRejected  DraftStatus = "rejected"
)

// DraftChangeType 草稿行相对已发布版本的变更分类。
// 删除不设标记，以“草稿树中缺席”为唯一删除信号。
type DraftChangeType string

const (
	ChangeTypeNew       DraftChangeType = "new"
	ChangeTypeModified  DraftChangeType = "modified"
	ChangeTypeUnchanged DraftChangeType = "unchanged"
)

// CourseDraft 课程的可编辑工作副本，每门课程同一时间至多一份
// swagger:model CourseDraft
type CourseDraft struct {
	BaseModel
	CourseID        uint        `gorm:"uniqueIndex;not null" json:"courseId"`
	Status          DraftStatus `gorm:"size:20;default:'draft';index" json:"status"`
	SubmittedAt     *time.Time  `json:"submittedAt,omitempty"`
	ApprovedAt      *time.Time  `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time  `json:"rejectedAt,omitempty"`
	RejectionReason string      `gorm:"size:512" json:"rejectionReason,omitempty"`

	// 课程元数据的草稿覆盖值：nil 表示不修改对应已发布字段
	Title            *string         `gorm:"size:255" json:"title,omitempty"`
	ShortDescription *string         `gorm:"size:512" json:"shortDescription,omitempty"`
	Description      *string         `gorm:"type:text" json:"description,omitempty"`
	Category         *string         `gorm:"size:100" json:"category,omitempty"`
	Level            *string         `gorm:"size:20" json:"level,omitempty"`
	Language         *string         `gorm:"size:10" json:"language,omitempty"`
	Price            *float64        `json:"price,omitempty"`
	Thumbnail        *string         `gorm:"size:512" json:"thumbnail,omitempty"`
	Objectives       json.RawMessage `gorm:"type:json" json:"objectives,omitempty"`
	Requirements     json.RawMessage `gorm:"type:json" json:"requirements,omitempty"`

	Sections []DraftSection `gorm:"foreignKey:DraftID" json:"sections,omitempty"`
}

func (CourseDraft) TableName() string {
	return "course_drafts"
}

// swagger:model DraftSection
type DraftSection struct {
	BaseModel
	DraftID            uint            `gorm:"index;not null" json:"draftId"`
	PublishedSectionID *uint           `gorm:"index" json:"publishedSectionId,omitempty"` // nil 表示草稿新增
	ChangeType         DraftChangeType `gorm:"size:20;default:'unchanged'" json:"changeType"`
	Title              string          `gorm:"size:255;not null" json:"title"`
	Order              int             `gorm:"column:sort_order;default:0" json:"order"`

	Lessons []DraftLesson `gorm:"foreignKey:DraftSectionID" json:"lessons,omitempty"`
}

func (DraftSection) TableName() string {
	return "draft_sections"
}

// swagger:model DraftLesson
type DraftLesson struct {
	BaseModel
	DraftSectionID    uint            `gorm:"index;not null" json:"draftSectionId"`
	PublishedLessonID *uint           `gorm:"index" json:"publishedLessonId,omitempty"`
	ChangeType        DraftChangeType `gorm:"size:20;default:'unchanged'" json:"changeType"`
	Title             string          `gorm:"size:255;not null" json:"title"`
	Order             int             `gorm:"column:sort_order;default:0" json:"order"`
	Description       string          `gorm:"type:text" json:"description"`
	Duration          float64         `gorm:"default:0" json:"duration"`
	IsFreePreview     bool            `gorm:"default:false" json:"isFreePreview"`
	ContentType       LessonContent   `gorm:"size:20" json:"contentType"`
	DraftVideoID      *uint           `json:"draftVideoId,omitempty"`
	DraftMaterialID   *uint           `json:"draftMaterialId,omitempty"`
	DraftQuizID       *uint           `json:"draftQuizId,omitempty"`
}

func (DraftLesson) TableName() string {
	return "draft_lessons"
}

// swagger:model DraftVideo
type DraftVideo struct {
	BaseModel
	DraftLessonID    uint            `gorm:"index;not null" json:"draftLessonId"`
	PublishedVideoID *uint           `gorm:"index" json:"publishedVideoId,omitempty"`
	ChangeType       DraftChangeType `gorm:"size:20;default:'unchanged'" json:"changeType"`
	Title            string          `gorm:"size:255" json:"title"`
	OwnerID          uint            `gorm:"index" json:"ownerId"`
	AssetID          string          `gorm:"size:128;index" json:"assetId"` // 视频托管方资产ID
	PlaybackID       string          `gorm:"size:128" json:"playbackId"`
	UploadID         string          `gorm:"size:128" json:"uploadId"`
	Duration         float64         `gorm:"default:0" json:"duration"`
	Status           string          `gorm:"size:50" json:"status"`
	Description      string          `gorm:"type:text" json:"description"`
	AspectRatio      string          `gorm:"size:20" json:"aspectRatio"`
	Resolution       string          `gorm:"size:20" json:"resolution"`
}

func (DraftVideo) TableName() string {
	return "draft_videos"
}

// swagger:model DraftMaterial
type DraftMaterial struct {
	BaseModel
	DraftLessonID       uint            `gorm:"index;not null" json:"draftLessonId"`
	PublishedMaterialID *uint           `gorm:"index" json:"publishedMaterialId,omitempty"`
	ChangeType          DraftChangeType `gorm:"size:20;default:'unchanged'" json:"changeType"`
	FileKey             string          `gorm:"size:256;index" json:"fileKey"` // 文件托管方对象键
	FileName            string          `gorm:"size:255" json:"fileName"`
	Extension           string          `gorm:"size:20" json:"extension"`
	Size                int64           `gorm:"default:0" json:"size"`
	IsTemporary         bool            `gorm:"default:true" json:"isTemporary"` // 尚未关联到已发布课时
}

func (DraftMaterial) TableName() string {
	return "draft_materials"
}

// swagger:model DraftQuiz
type DraftQuiz struct {
	BaseModel
	DraftLessonID   uint            `gorm:"index;not null" json:"draftLessonId"`
	PublishedQuizID *uint           `gorm:"index" json:"publishedQuizId,omitempty"`
	ChangeType      DraftChangeType `gorm:"size:20;default:'unchanged'" json:"changeType"`
	Title           string          `gorm:"size:255" json:"title"`
	Questions       json.RawMessage `gorm:"type:json" json:"questions"` // 内嵌题目数组，无外部资产
}

func (DraftQuiz) TableName() string {
	return "draft_quizzes"
}
