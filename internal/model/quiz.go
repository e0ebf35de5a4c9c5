package model

import "encoding/json"

// Quiz 已发布课时的测验，题目内嵌存储，无外部资产
// swagger:model Quiz
type Quiz struct {
	BaseModel
	LessonID  *uint           `gorm:"index" json:"lessonId,omitempty"`
	Title     string          `gorm:"size:255" json:"title"`
	Questions json.RawMessage `gorm:"type:json" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 题目结构（内嵌在 Quiz.Questions 中）
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
	Points   int      `json:"points"`
}
