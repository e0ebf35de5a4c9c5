package model

import "time"

// Enrollment 选课记录，同一学生同一课程唯一
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID     uint      `gorm:"uniqueIndex:idx_user_course;not null" json:"userId"`
	CourseID   uint      `gorm:"uniqueIndex:idx_user_course;not null" json:"courseId"`
	PricePaid  float64   `gorm:"default:0" json:"pricePaid"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type OrderStatus string

const (
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusRefunded OrderStatus = "refunded"
)

// Order 购买流水，钱包扣款的记账凭证
// swagger:model Order
type Order struct {
	BaseModel
	OrderNo  string      `gorm:"size:64;uniqueIndex;not null" json:"orderNo"`
	UserID   uint        `gorm:"index;not null" json:"userId"`
	CourseID uint        `gorm:"index;not null" json:"courseId"`
	Amount   float64     `gorm:"default:0" json:"amount"`
	Status   OrderStatus `gorm:"size:20;default:'paid'" json:"status"`
}

func (Order) TableName() string {
	return "orders"
}
