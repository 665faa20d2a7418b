package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/dripfeed/core/course"
)

// CourseRepository is an in-memory course.Repository.
type CourseRepository struct {
	db   *DB
	inTx bool // the course table is already locked by RunInTx
}

var _ course.Repository = (*CourseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (repo *CourseRepository) rLock() {
	if !repo.inTx {
		repo.db.course.RLock()
	}
}

func (repo *CourseRepository) rUnlock() {
	if !repo.inTx {
		repo.db.course.RUnlock()
	}
}

func (repo *CourseRepository) lock() {
	if !repo.inTx {
		repo.db.course.Lock()
	}
}

func (repo *CourseRepository) unlock() {
	if !repo.inTx {
		repo.db.course.Unlock()
	}
}

// InsertCourse stores c, generating the missing course, chapter & lesson ids.
func (repo *CourseRepository) InsertCourse(c course.Course) (course.Course, error) {
	if err := c.CheckOrder(); err != nil {
		return course.Course{}, err
	}
	repo.lock()
	defer repo.unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c = copyCourse(c)
	for i := range c.Chapters {
		ch := &c.Chapters[i]
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}
		ch.CourseID = c.ID
		for j := range ch.Lessons {
			l := &ch.Lessons[j]
			if l.ID == "" {
				l.ID = uuid.NewString()
			}
			if l.DripBasis == "" {
				l.DripBasis = course.BasisCourseStart
			}
			l.ChapterID = ch.ID
		}
	}
	repo.db.course.table[c.ID] = &c
	return repo.get(c), nil
}

// InsertEnrollment stores enr, generating its id if missing.
func (repo *CourseRepository) InsertEnrollment(enr course.Enrollment) course.Enrollment {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if enr.ID == "" {
		enr.ID = uuid.NewString()
	}
	if enr.Status == "" {
		enr.Status = course.EnrollmentActive
	}
	repo.db.enrollment.table[enr.ID] = &enr
	return enr
}

// get returns a copy of c in release order.
func (repo *CourseRepository) get(c course.Course) course.Course {
	cp := copyCourse(c)
	cp.Sort()
	return cp
}

func (repo *CourseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.rLock()
	defer repo.rUnlock()

	if c, ok := repo.db.course.table[id]; ok {
		return repo.get(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *CourseRepository) QueryDripCourses(_ context.Context) ([]course.Course, error) {
	repo.rLock()
	defer repo.rUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.course.table {
		if c.IsDripEnabled {
			courses = append(courses, repo.get(*c))
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].ID < courses[j].ID
		}
		return courses[i].CreatedAt.Before(courses[j].CreatedAt)
	})
	return courses, nil
}

func (repo *CourseRepository) queryEnrollments(filter course.EnrollmentFilter) []course.Enrollment {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollment.table {
		if filter.Match(*enr) {
			enrollments = append(enrollments, *enr)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].EnrolledAt.Equal(enrollments[j].EnrolledAt) {
			return enrollments[i].ID < enrollments[j].ID
		}
		return enrollments[i].EnrolledAt.Before(enrollments[j].EnrolledAt)
	})
	return enrollments
}

func (repo *CourseRepository) GetEnrollment(_ context.Context, filter course.EnrollmentFilter) (course.Enrollment, error) {
	enrollments := repo.queryEnrollments(filter)
	if len(enrollments) == 0 {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	return enrollments[0], nil
}

func (repo *CourseRepository) QueryEnrollments(_ context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	return repo.queryEnrollments(filter), nil
}

func (repo *CourseRepository) UpdateCourseDripFields(_ context.Context, id string, fields course.DripFields) (course.Course, error) {
	repo.lock()
	defer repo.unlock()

	c, ok := repo.db.course.table[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	c.IsDripEnabled = fields.IsDripEnabled
	c.DripIntervalUnit = fields.DripIntervalUnit
	c.DripCount = fields.DripCount
	c.UpdatedAt = fields.UpdatedAt
	return repo.get(*c), nil
}

// findLesson returns the lesson with the given id, nil if c has none.
func findLesson(c *course.Course, id string) *course.Lesson {
	for i := range c.Chapters {
		for j := range c.Chapters[i].Lessons {
			if c.Chapters[i].Lessons[j].ID == id {
				return &c.Chapters[i].Lessons[j]
			}
		}
	}
	return nil
}

func (repo *CourseRepository) BatchUpdateLessonDrip(_ context.Context, courseID string, settings []course.LessonDripSetting) error {
	repo.lock()
	defer repo.unlock()

	c, ok := repo.db.course.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	// all or nothing
	for _, s := range settings {
		if findLesson(c, s.LessonID) == nil {
			return errors.Wrapf(course.ErrLessonNotFound, "lesson %s", s.LessonID)
		}
	}
	for _, s := range settings {
		l := findLesson(c, s.LessonID)
		l.DripDelay = s.Days
		l.DripBasis = s.Basis
	}
	return nil
}

func (repo *CourseRepository) SetLessonsLocked(_ context.Context, courseID string, unlocked []string) error {
	repo.lock()
	defer repo.unlock()

	c, ok := repo.db.course.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	free := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		if findLesson(c, id) == nil {
			return errors.Wrapf(course.ErrLessonNotFound, "lesson %s", id)
		}
		free[id] = true
	}
	for i := range c.Chapters {
		for j := range c.Chapters[i].Lessons {
			l := &c.Chapters[i].Lessons[j]
			l.IsLocked = !free[l.ID]
		}
	}
	return nil
}

func (repo *CourseRepository) UpdateCoursePricing(_ context.Context, id string, fields course.PricingFields) (course.Course, error) {
	repo.lock()
	defer repo.unlock()

	c, ok := repo.db.course.table[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	c.Price = fields.Price
	c.Currency = fields.Currency
	c.PricingType = fields.PricingType
	c.AllowInstallments = fields.AllowInstallments
	c.AllowSubscriptions = fields.AllowSubscriptions
	c.FreePreviewChapterCount = nil
	if fields.FreePreviewChapterCount != nil {
		n := *fields.FreePreviewChapterCount
		c.FreePreviewChapterCount = &n
	}
	c.UpdatedAt = fields.UpdatedAt
	return repo.get(*c), nil
}

// RunInTx locks the course table for the whole of fn, restoring it if fn fails.
func (repo *CourseRepository) RunInTx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}

	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	snap := repo.db.course.snapshot()
	err := fn(&CourseRepository{db: repo.db, inTx: true})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		repo.db.course.table = snap
		return err
	}
	return nil
}
