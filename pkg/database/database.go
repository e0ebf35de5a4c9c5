package database

import (
	"course_market_backend/internal/config"
	"course_market_backend/internal/model"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedDefaults(db)

	return db, nil
}

// Migrate 建表/同步表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Section{},
		&model.Lesson{},
		&model.Video{},
		&model.Material{},
		&model.Quiz{},
		&model.CourseDraft{},
		&model.DraftSection{},
		&model.DraftLesson{},
		&model.DraftVideo{},
		&model.DraftMaterial{},
		&model.DraftQuiz{},
		&model.Enrollment{},
		&model.Order{},
		&model.OrphanAsset{},
	)
}

// seedDefaults 首次启动时写入默认管理员账号
func seedDefaults(db *gorm.DB) {
	var count int64
	db.Model(&model.User{}).Where("role = ?", model.Admin).Count(&count)
	if count > 0 {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123456"), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	admin := &model.User{
		Name:     "平台管理员",
		Email:    "admin@course-market.local",
		Password: string(hashed),
		Role:     model.Admin,
	}
	if err := db.Create(admin).Error; err == nil {
		log.Println("Default admin account created: admin@course-market.local")
	}
}
