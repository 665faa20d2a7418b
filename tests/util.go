package testutil

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dripfeed/core"
	"github.com/trezcool/dripfeed/core/course"
	"github.com/trezcool/dripfeed/storage/database/dummy"
)

// Anchor is the reference date of the fixtures: a Monday.
var Anchor = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func NewConfig() *core.Config {
	return &core.Config{
		AppName:         "Dripfeed",
		Env:             "TEST",
		TestMode:        true,
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://localhost:3000",
		FromEmail:       "Dripfeed <noreply@test.cd>",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
		Drip: core.DripConfig{DefaultFreeChapterCount: 1},
	}
}

func NewValidator() (*validator.Validate, func(err error) error) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, func(err error) error { return core.TranslateValidationErrors(err, translator) }
}

// NewCourseRepository returns a course repository on a fresh in-memory DB.
func NewCourseRepository(t *testing.T) *dummydb.CourseRepository {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return dummydb.NewCourseRepository(db)
}

// CreateCourse stores a drip course owned by ownerID with 2 chapters of 2 lessons each:
//
//	ch1: l1 (day 0), l2 (day 3)
//	ch2: l3 (day 7, previous_lesson), l4 (day 14)
func CreateCourse(t *testing.T, repo *dummydb.CourseRepository, ownerID string, dripEnabled bool) course.Course {
	t.Helper()
	c, err := repo.InsertCourse(course.Course{
		OwnerID:          ownerID,
		Title:            "Go in Practice",
		IsDripEnabled:    dripEnabled,
		DripIntervalUnit: course.IntervalWeekly,
		DripCount:        1,
		Price:            49,
		Currency:         "USD",
		PricingType:      course.PricingOneTime,
		Chapters: []course.Chapter{
			{
				Title: "Basics", OrderIndex: 0,
				Lessons: []course.Lesson{
					{Title: "Hello", OrderIndex: 0, DripDelay: 0, DripBasis: course.BasisCourseStart},
					{Title: "Types", OrderIndex: 1, DripDelay: 3, DripBasis: course.BasisCourseStart, IsLocked: true},
				},
			},
			{
				Title: "Concurrency", OrderIndex: 1,
				Lessons: []course.Lesson{
					{Title: "Goroutines", OrderIndex: 0, DripDelay: 7, DripBasis: course.BasisPreviousLesson, IsLocked: true},
					{Title: "Channels", OrderIndex: 1, DripDelay: 14, DripBasis: course.BasisCourseStart, IsLocked: true},
				},
			},
		},
		CreatedAt: Anchor,
		UpdatedAt: Anchor,
	})
	if err != nil {
		t.Fatalf("InsertCourse() failed: %v", err)
	}
	return c
}

func CreateEnrollment(
	t *testing.T,
	repo *dummydb.CourseRepository,
	c course.Course,
	learnerID string,
	status course.EnrollmentStatus,
	enrolledAt time.Time,
) course.Enrollment {
	t.Helper()
	return repo.InsertEnrollment(course.Enrollment{
		CourseID:     c.ID,
		LearnerID:    learnerID,
		LearnerName:  "Learner " + learnerID,
		LearnerEmail: learnerID + "@test.cd",
		Status:       status,
		EnrolledAt:   enrolledAt,
	})
}

// LessonIDs returns the course lesson ids in release order.
func LessonIDs(c course.Course) []string {
	var ids []string
	for _, l := range c.Lessons() {
		ids = append(ids, l.ID)
	}
	return ids
}
