package model

import (
	"encoding/json"
	"time"
)

// CourseStatus 课程自身的审核状态（与草稿状态是两个独立概念：
// 课程状态描述课程是否上架，草稿状态描述一次修订的审批进度）
type CourseStatus string

const (
	CourseStatusDraft    CourseStatus = "draft"
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusApproved CourseStatus = "approved"
	CourseStatusRejected CourseStatus = "rejected"
)

const (
	CourseLevelBeginner     = "beginner"
	CourseLevelIntermediate = "intermediate"
	CourseLevelAdvanced     = "advanced"
)

// swagger:model Course
type Course struct {
	BaseModel
	InstructorID     uint            `gorm:"index;not null" json:"instructorId"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	ShortDescription string          `gorm:"size:512" json:"shortDescription"`
	Description      string          `gorm:"type:text" json:"description"`
	Category         string          `gorm:"size:100;index" json:"category"`
	Level            string          `gorm:"size:20;default:'beginner'" json:"level"`
	Language         string          `gorm:"size:10;default:'zh'" json:"language"`
	Price            float64         `gorm:"default:0" json:"price"`
	Thumbnail        string          `gorm:"size:512" json:"thumbnail"`
	Objectives       json.RawMessage `gorm:"type:json" json:"objectives"`   // 学习目标数组
	Requirements     json.RawMessage `gorm:"type:json" json:"requirements"` // 先修要求数组
	Status           CourseStatus    `gorm:"size:20;default:'draft';index" json:"status"`
	PublishedAt      *time.Time      `json:"publishedAt,omitempty"`
	RejectionReason  string          `gorm:"size:512" json:"rejectionReason,omitempty"`
	EnrollmentCount  int             `gorm:"default:0" json:"enrollmentCount"`
}

func (Course) TableName() string {
	return "courses"
}
