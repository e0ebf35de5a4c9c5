package service

import (
	"errors"
	"testing"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/util"

	"gorm.io/gorm"
)

func newCatalogFixture(db *gorm.DB) *CatalogService {
	return NewCatalogService(
		repository.NewCourseRepository(db),
		repository.NewSectionRepository(db),
		repository.NewLessonRepository(db),
		repository.NewUserRepository(db),
	)
}

func TestCatalogListsOnlyApprovedCourses(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	approved := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 10)
	seedCourse(t, db, instructor.ID, model.CourseStatusDraft, 10)
	seedCourse(t, db, instructor.ID, model.CourseStatusPending, 10)

	courses, total, err := svc.List(repository.CatalogQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(courses) != 1 || courses[0].ID != approved.ID {
		t.Fatalf("list = %d courses (total %d), want only the approved one", len(courses), total)
	}
}

func TestCatalogFilters(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	goCourse := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 30)
	if err := db.Model(goCourse).Updates(map[string]interface{}{
		"title": "Go 从入门到进阶", "category": "programming", "level": model.CourseLevelIntermediate,
	}).Error; err != nil {
		t.Fatalf("update course: %v", err)
	}
	artCourse := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 10)
	if err := db.Model(artCourse).Updates(map[string]interface{}{
		"title": "素描基础", "category": "art",
	}).Error; err != nil {
		t.Fatalf("update course: %v", err)
	}

	courses, _, err := svc.List(repository.CatalogQuery{Keyword: "Go"})
	if err != nil || len(courses) != 1 || courses[0].ID != goCourse.ID {
		t.Fatalf("keyword filter: err=%v courses=%v", err, courses)
	}
	courses, _, err = svc.List(repository.CatalogQuery{Category: "art"})
	if err != nil || len(courses) != 1 || courses[0].ID != artCourse.ID {
		t.Fatalf("category filter: err=%v courses=%v", err, courses)
	}
	courses, _, err = svc.List(repository.CatalogQuery{Level: model.CourseLevelIntermediate})
	if err != nil || len(courses) != 1 || courses[0].ID != goCourse.ID {
		t.Fatalf("level filter: err=%v courses=%v", err, courses)
	}
	courses, _, err = svc.List(repository.CatalogQuery{Sort: "price_asc"})
	if err != nil || len(courses) != 2 || courses[0].ID != artCourse.ID {
		t.Fatalf("price sort: err=%v courses=%v", err, courses)
	}
}

func TestCatalogDetailHidesUnapprovedAndAssets(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogFixture(db)

	instructor := seedUser(t, db, model.Instructor)
	if err := db.Model(instructor).Update("balance", 1234.0).Error; err != nil {
		t.Fatalf("fund instructor: %v", err)
	}
	hidden := seedCourse(t, db, instructor.ID, model.CourseStatusPending, 0)
	course := seedCourse(t, db, instructor.ID, model.CourseStatusApproved, 0)
	section := seedSection(t, db, course.ID, "章节", 1)
	seedVideoLesson(t, db, section.ID, "视频课", "asset-secret")

	// 未上架课程对外不存在
	if _, err := svc.GetDetail(hidden.ID); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("err = %v, want ErrCourseNotFound", err)
	}

	detail, err := svc.GetDetail(course.ID)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if detail.LessonCount != 1 {
		t.Fatalf("lesson count = %d, want 1", detail.LessonCount)
	}
	if len(detail.Outline) != 1 || len(detail.Outline[0].Lessons) != 1 {
		t.Fatalf("outline = %+v", detail.Outline)
	}
	// 大纲只给标题与时长，不泄露资产引用；讲师余额不对外
	if detail.Outline[0].Lessons[0].Title != "视频课" {
		t.Fatalf("outline lesson = %+v", detail.Outline[0].Lessons[0])
	}
	if detail.Instructor == nil || detail.Instructor.Balance != 0 {
		t.Fatalf("instructor balance leaked: %+v", detail.Instructor)
	}
}
