package dummydb_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dripfeed/core/course"
	"github.com/trezcool/dripfeed/tests"
)

func TestCourseRepository_InsertCourse(t *testing.T) {
	repo := testutil.NewCourseRepository(t)

	c := testutil.CreateCourse(t, repo, "coach", true)
	require.NotEmpty(t, c.ID)
	require.Len(t, c.Chapters, 2)
	for _, ch := range c.Chapters {
		assert.NotEmpty(t, ch.ID)
		assert.Equal(t, c.ID, ch.CourseID)
		for _, l := range ch.Lessons {
			assert.NotEmpty(t, l.ID)
			assert.Equal(t, ch.ID, l.ChapterID)
		}
	}

	// returned courses are copies
	c.Chapters[0].Lessons[0].DripDelay = 99
	stored, err := repo.GetCourse(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Chapters[0].Lessons[0].DripDelay)
}

func TestCourseRepository_GetCourse(t *testing.T) {
	repo := testutil.NewCourseRepository(t)
	ctx := context.Background()

	c, err := repo.InsertCourse(course.Course{
		OwnerID: "coach",
		Chapters: []course.Chapter{
			{ID: "b", OrderIndex: 2, Lessons: []course.Lesson{{ID: "b2", OrderIndex: 1}, {ID: "b1", OrderIndex: 0}}},
			{ID: "a", OrderIndex: 1},
		},
	})
	require.NoError(t, err)

	got, err := repo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Chapters[0].ID)
	assert.Equal(t, []string{"b1", "b2"}, testutil.LessonIDs(got))
	assert.Equal(t, course.BasisCourseStart, got.Chapters[1].Lessons[0].DripBasis)

	_, err = repo.GetCourse(ctx, "nope")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestCourseRepository_InsertCourse_order(t *testing.T) {
	repo := testutil.NewCourseRepository(t)

	tests := []struct {
		name     string
		chapters []course.Chapter
		wantErr  error
	}{
		{
			name:     "duplicate chapter index",
			chapters: []course.Chapter{{Title: "a", OrderIndex: 0}, {Title: "b", OrderIndex: 0}},
			wantErr:  course.ErrDuplicateOrder,
		},
		{
			name: "duplicate lesson index",
			chapters: []course.Chapter{
				{Title: "a", OrderIndex: 0, Lessons: []course.Lesson{{OrderIndex: 1}, {OrderIndex: 1}}},
			},
			wantErr: course.ErrDuplicateOrder,
		},
		{
			name: "same lesson index in different chapters",
			chapters: []course.Chapter{
				{Title: "a", OrderIndex: 0, Lessons: []course.Lesson{{OrderIndex: 0}}},
				{Title: "b", OrderIndex: 1, Lessons: []course.Lesson{{OrderIndex: 0}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.InsertCourse(course.Course{OwnerID: "coach", Chapters: tt.chapters})
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("InsertCourse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCourseRepository_Enrollments(t *testing.T) {
	repo := testutil.NewCourseRepository(t)
	ctx := context.Background()

	c := testutil.CreateCourse(t, repo, "coach", true)
	e2 := testutil.CreateEnrollment(t, repo, c, "l2", course.EnrollmentActive, testutil.Anchor.Add(time.Hour))
	e1 := testutil.CreateEnrollment(t, repo, c, "l1", course.EnrollmentActive, testutil.Anchor)
	testutil.CreateEnrollment(t, repo, c, "l3", course.EnrollmentPending, testutil.Anchor)

	got, err := repo.QueryEnrollments(ctx, course.EnrollmentFilter{CourseID: c.ID, Status: course.EnrollmentActive})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, e1.ID, got[0].ID)
	assert.Equal(t, e2.ID, got[1].ID)

	enr, err := repo.GetEnrollment(ctx, course.EnrollmentFilter{CourseID: c.ID, LearnerID: "l2"})
	require.NoError(t, err)
	assert.Equal(t, e2.ID, enr.ID)

	_, err = repo.GetEnrollment(ctx, course.EnrollmentFilter{CourseID: c.ID, LearnerID: "l3", Status: course.EnrollmentActive})
	assert.Equal(t, course.ErrEnrollmentNotFound, errors.Cause(err))
}

func TestCourseRepository_BatchUpdateLessonDrip(t *testing.T) {
	repo := testutil.NewCourseRepository(t)
	ctx := context.Background()

	c := testutil.CreateCourse(t, repo, "coach", true)
	ids := testutil.LessonIDs(c)

	err := repo.BatchUpdateLessonDrip(ctx, c.ID, []course.LessonDripSetting{
		{LessonID: ids[0], Days: 4, Basis: course.BasisCourseStart},
		{LessonID: "nope", Days: 4, Basis: course.BasisCourseStart},
	})
	assert.Equal(t, course.ErrLessonNotFound, errors.Cause(err))

	stored, err := repo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Lessons()[0].DripDelay, "nothing applied")

	err = repo.BatchUpdateLessonDrip(ctx, "nope", nil)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestCourseRepository_RunInTx(t *testing.T) {
	repo := testutil.NewCourseRepository(t)
	ctx := context.Background()

	c := testutil.CreateCourse(t, repo, "coach", true)
	ids := testutil.LessonIDs(c)
	failure := errors.New("boom")

	err := repo.RunInTx(ctx, func(tx course.Repository) error {
		if _, err := tx.UpdateCoursePricing(ctx, c.ID, course.PricingFields{Price: 1, PricingType: course.PricingRecurring}); err != nil {
			return err
		}
		if err := tx.SetLessonsLocked(ctx, c.ID, ids); err != nil {
			return err
		}
		return failure
	})
	assert.Equal(t, failure, err)

	stored, err := repo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 49.0, stored.Price, "rolled back")
	assert.Equal(t, course.PricingOneTime, stored.PricingType)
	assert.True(t, stored.Lessons()[1].IsLocked)

	err = repo.RunInTx(ctx, func(tx course.Repository) error {
		_, err := tx.UpdateCoursePricing(ctx, c.ID, course.PricingFields{Price: 1, Currency: "USD", PricingType: course.PricingRecurring})
		return err
	})
	require.NoError(t, err)
	stored, err = repo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.Price, "committed")

	// cancelled contexts roll back
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = repo.RunInTx(cctx, func(tx course.Repository) error {
		_, err := tx.UpdateCoursePricing(ctx, c.ID, course.PricingFields{Price: 2})
		return err
	})
	assert.Equal(t, context.Canceled, err)
	stored, err = repo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.Price)
}
