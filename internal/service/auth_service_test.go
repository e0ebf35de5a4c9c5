package service

import (
	"errors"
	"testing"
	"time"

	"course_market_backend/internal/config"
	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"

	"gorm.io/gorm"
)

func newAuthFixture(db *gorm.DB) *AuthService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(repository.NewUserRepository(db), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthFixture(db)

	user := &model.User{Name: "张三", Email: "zhangsan@example.com", Password: "secret123", Role: model.Instructor}
	if err := svc.Register(user); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Password == "secret123" {
		t.Fatalf("password stored in plaintext")
	}

	token, err := svc.Login("zhangsan@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := util.ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.Instructor {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := svc.Login("zhangsan@example.com", "wrong"); err == nil {
		t.Fatalf("wrong password should fail")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthFixture(db)

	if err := svc.Register(&model.User{Name: "a", Email: "dup@example.com", Password: "x"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := svc.Register(&model.User{Name: "b", Email: "dup@example.com", Password: "y"})
	if !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("err = %v, want ErrEmailRegistered", err)
	}
}

func TestRegisterNeverGrantsAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthFixture(db)

	user := &model.User{Name: "sneaky", Email: "sneaky@example.com", Password: "x", Role: model.Admin}
	if err := svc.Register(user); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != model.Student {
		t.Fatalf("role = %q, want student", user.Role)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthFixture(db)

	user := &model.User{Name: "c", Email: "disabled@example.com", Password: "secret123"}
	if err := svc.Register(user); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := db.Model(user).Update("disabled", true).Error; err != nil {
		t.Fatalf("disable account: %v", err)
	}
	if _, err := svc.Login("disabled@example.com", "secret123"); err == nil {
		t.Fatalf("disabled account should not log in")
	}
}
