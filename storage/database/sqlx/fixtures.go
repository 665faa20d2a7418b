package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dripfeed/core/course"
)

// InsertCourse stores c with its content tree, generating the missing ids.
// Courses are authored elsewhere: this serves seeding & tests.
func (repo *CourseRepository) InsertCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if err := c.CheckOrder(); err != nil {
		return course.Course{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	err := repo.RunInTx(ctx, func(r course.Repository) error {
		tx := r.(*CourseRepository)

		q := `INSERT INTO course (id, owner_id, title, is_drip_enabled, drip_interval_unit, drip_count, price, currency,
			pricing_type, allow_installments, allow_subscriptions, free_preview_chapter_count, created_at, updated_at)
			VALUES (:id, :owner_id, :title, :is_drip_enabled, :drip_interval_unit, :drip_count, :price, :currency,
			:pricing_type, :allow_installments, :allow_subscriptions, :free_preview_chapter_count, :created_at, :updated_at)`
		row := courseRow{
			ID:                      c.ID,
			OwnerID:                 c.OwnerID,
			Title:                   c.Title,
			IsDripEnabled:           c.IsDripEnabled,
			DripIntervalUnit:        string(c.DripIntervalUnit),
			DripCount:               c.DripCount,
			Price:                   c.Price,
			Currency:                c.Currency,
			PricingType:             string(c.PricingType),
			AllowInstallments:       c.AllowInstallments,
			AllowSubscriptions:      c.AllowSubscriptions,
			FreePreviewChapterCount: null.IntFromPtr(c.FreePreviewChapterCount),
			CreatedAt:               c.CreatedAt,
			UpdatedAt:               c.UpdatedAt,
		}
		if row.DripIntervalUnit == "" {
			row.DripIntervalUnit = string(course.IntervalWeekly)
		}
		if row.PricingType == "" {
			row.PricingType = string(course.PricingFree)
		}
		if row.Currency == "" {
			row.Currency = "USD"
		}
		if _, err := sqlx.NamedExecContext(ctx, tx.ext, q, row); err != nil {
			return errors.Wrap(err, "inserting course")
		}

		for _, ch := range c.Chapters {
			if ch.ID == "" {
				ch.ID = uuid.NewString()
			}
			q = `INSERT INTO chapter (id, course_id, title, description, order_index)
				VALUES (:id, :course_id, :title, :description, :order_index)`
			chRow := chapterRow{
				ID:          ch.ID,
				CourseID:    c.ID,
				Title:       ch.Title,
				Description: null.NewString(ch.Description, ch.Description != ""),
				OrderIndex:  ch.OrderIndex,
			}
			if _, err := sqlx.NamedExecContext(ctx, tx.ext, q, chRow); err != nil {
				return errors.Wrap(err, "inserting chapter")
			}

			for _, l := range ch.Lessons {
				if l.ID == "" {
					l.ID = uuid.NewString()
				}
				if l.DripBasis == "" {
					l.DripBasis = course.BasisCourseStart
				}
				q = `INSERT INTO lesson (id, chapter_id, title, order_index, drip_delay, drip_basis, is_locked)
					VALUES (:id, :chapter_id, :title, :order_index, :drip_delay, :drip_basis, :is_locked)`
				lRow := lessonRow{
					ID:         l.ID,
					ChapterID:  ch.ID,
					Title:      l.Title,
					OrderIndex: l.OrderIndex,
					DripDelay:  l.DripDelay,
					DripBasis:  string(l.DripBasis),
					IsLocked:   l.IsLocked,
				}
				if _, err := sqlx.NamedExecContext(ctx, tx.ext, q, lRow); err != nil {
					return errors.Wrap(err, "inserting lesson")
				}
			}
		}
		return nil
	})
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, c.ID)
}

// InsertEnrollment stores enr, generating its id if missing.
func (repo *CourseRepository) InsertEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.NewString()
	}
	if enr.Status == "" {
		enr.Status = course.EnrollmentActive
	}
	q := `INSERT INTO enrollment (id, course_id, learner_id, learner_name, learner_email, status, enrolled_at)
		VALUES (:id, :course_id, :learner_id, :learner_name, :learner_email, :status, :enrolled_at)`
	row := enrollmentRow{
		ID:           enr.ID,
		CourseID:     enr.CourseID,
		LearnerID:    enr.LearnerID,
		LearnerName:  enr.LearnerName,
		LearnerEmail: enr.LearnerEmail,
		Status:       string(enr.Status),
		EnrolledAt:   enr.EnrolledAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}
