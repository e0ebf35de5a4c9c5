package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"course_market_backend/internal/config"
	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"

	"gorm.io/gorm"
)

func newEnrollmentFixture(db *gorm.DB) *EnrollmentService {
	courseSvc := NewCourseService(
		repository.NewCourseRepository(db),
		repository.NewSectionRepository(db),
		repository.NewLessonRepository(db),
		repository.NewContentRepository(db),
		repository.NewDraftRepository(db),
	)
	videoHost := NewVideoHostService(newFakeVideoHost(), config.VideoHostConfig{
		BaseURL:     "http://video.test",
		SigningKey:  "test-signing-key",
		PlaybackTTL: time.Hour,
	})
	return NewEnrollmentService(
		repository.NewEnrollmentRepository(db),
		repository.NewCourseRepository(db),
		repository.NewUserRepository(db),
		repository.NewContentRepository(db),
		courseSvc,
		videoHost,
		&StorageService{Provider: newFakeStorage()},
	)
}

func TestEnrollDeductsBalanceAndCreatesOrder(t *testing.T) {
	db := newTestDB(t)
	svc := newEnrollmentFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	student := seedUser(t, db, model.Student)
	if err := db.Model(student).Update("balance", 100.0).Error; err != nil {
		t.Fatalf("fund student: %v", err)
	}
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 60)

	order, err := svc.Enroll(student.ID, course.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if order.Amount != 60 || order.Status != model.OrderStatusPaid {
		t.Fatalf("order = %+v", order)
	}
	if order.OrderNo == "" {
		t.Fatalf("order number missing")
	}

	var gotStudent model.User
	if err := db.First(&gotStudent, student.ID).Error; err != nil {
		t.Fatalf("reload student: %v", err)
	}
	if gotStudent.Balance != 40 {
		t.Fatalf("balance = %v, want 40", gotStudent.Balance)
	}

	enrolled, err := repository.NewEnrollmentRepository(db).Exists(student.ID, course.ID)
	if err != nil || !enrolled {
		t.Fatalf("enrollment missing: err=%v enrolled=%v", err, enrolled)
	}

	var gotCourse model.Course
	if err := db.First(&gotCourse, course.ID).Error; err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if gotCourse.EnrollmentCount != 1 {
		t.Fatalf("enrollment count = %d, want 1", gotCourse.EnrollmentCount)
	}
}

func TestEnrollInsufficientBalanceRollsBack(t *testing.T) {
	db := newTestDB(t)
	svc := newEnrollmentFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	student := seedUser(t, db, model.Student)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 60)

	if _, err := svc.Enroll(student.ID, course.ID); !errors.Is(err, util.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	// 事务整体回滚：不留订单也不留选课记录
	if n := countRows(t, db, &model.Order{}); n != 0 {
		t.Fatalf("orders rows = %d, want 0", n)
	}
	if n := countRows(t, db, &model.Enrollment{}); n != 0 {
		t.Fatalf("enrollments rows = %d, want 0", n)
	}
}

func TestEnrollFreeCourseSkipsDeduction(t *testing.T) {
	db := newTestDB(t)
	svc := newEnrollmentFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	student := seedUser(t, db, model.Student)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)

	order, err := svc.Enroll(student.ID, course.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if order.Amount != 0 {
		t.Fatalf("order amount = %v, want 0", order.Amount)
	}
}

func TestEnrollGuards(t *testing.T) {
	db := newTestDB(t)
	svc := newEnrollmentFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	student := seedUser(t, db, model.Student)
	pending := seedCourse(t, db, instructor.ID, model.CourseStatusPending, 0)
	free := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)

	// 未上架课程不能购买
	if _, err := svc.Enroll(student.ID, pending.ID); !errors.Is(err, util.ErrCourseNotApproved) {
		t.Fatalf("err = %v, want ErrCourseNotApproved", err)
	}
	if _, err := svc.Enroll(student.ID, free.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	// 重复购买
	if _, err := svc.Enroll(student.ID, free.ID); !errors.Is(err, util.ErrAlreadyEnrolled) {
		t.Fatalf("err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestGetLessonContentAccessControl(t *testing.T) {
	db := newTestDB(t)
	svc := newEnrollmentFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	student := seedUser(t, db, model.Student)
	outsider := seedUser(t, db, model.Student)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	paidLesson, video := seedVideoLesson(t, db, section.ID, "付费课", "asset-paid")
	freeLesson, _ := seedVideoLesson(t, db, section.ID, "试看课", "asset-free")
	if err := db.Model(freeLesson).Update("is_free_preview", true).Error; err != nil {
		t.Fatalf("mark free preview: %v", err)
	}

	// 未选课学生拿不到付费内容
	if _, err := svc.GetLessonContent(outsider.ID, model.Student, paidLesson.ID); !errors.Is(err, util.ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}
	// 免费试看人人可看
	if _, err := svc.GetLessonContent(outsider.ID, model.Student, freeLesson.ID); err != nil {
		t.Fatalf("free preview: %v", err)
	}
	// 讲师本人与管理员不受限
	if _, err := svc.GetLessonContent(instructor.ID, model.Instructor, paidLesson.ID); err != nil {
		t.Fatalf("instructor access: %v", err)
	}
	admin := seedUser(t, db, model.Admin)
	if _, err := svc.GetLessonContent(admin.ID, model.Admin, paidLesson.ID); err != nil {
		t.Fatalf("admin access: %v", err)
	}

	// 选课后可看，播放地址带签名令牌
	if _, err := svc.Enroll(student.ID, course.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	view, err := svc.GetLessonContent(student.ID, model.Student, paidLesson.ID)
	if err != nil {
		t.Fatalf("enrolled access: %v", err)
	}
	wantPrefix := "http://video.test/playback/" + video.PlaybackID + ".m3u8?token="
	if !strings.HasPrefix(view.PlaybackURL, wantPrefix) {
		t.Fatalf("playback url = %q, want prefix %q", view.PlaybackURL, wantPrefix)
	}
	if len(view.PlaybackURL) == len(wantPrefix) {
		t.Fatalf("playback token missing")
	}
}

func TestGetLessonContentByType(t *testing.T) {
	db := newTestDB(t)
	svc := newEnrollmentFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	materialLesson, material := seedMaterialLesson(t, db, section.ID, "资料课", "courseMaterial/notes.pdf")
	quizLesson, quiz := seedQuizLesson(t, db, section.ID, "测验课")

	view, err := svc.GetLessonContent(instructor.ID, model.Instructor, materialLesson.ID)
	if err != nil {
		t.Fatalf("material content: %v", err)
	}
	if view.DownloadURL != "http://files.test/"+material.FileKey {
		t.Fatalf("download url = %q", view.DownloadURL)
	}

	view, err = svc.GetLessonContent(instructor.ID, model.Instructor, quizLesson.ID)
	if err != nil {
		t.Fatalf("quiz content: %v", err)
	}
	if view.Quiz == nil || view.Quiz.ID != quiz.ID {
		t.Fatalf("quiz = %+v, want id %d", view.Quiz, quiz.ID)
	}
}

func TestTopUpValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newEnrollmentFixture(db)
	student := seedUser(t, db, model.Student)

	if err := svc.TopUp(student.ID, -5); err == nil {
		t.Fatalf("negative top-up should fail")
	}
	if err := svc.TopUp(student.ID, 50); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	var got model.User
	if err := db.First(&got, student.ID).Error; err != nil {
		t.Fatalf("reload student: %v", err)
	}
	if got.Balance != 50 {
		t.Fatalf("balance = %v, want 50", got.Balance)
	}
}
