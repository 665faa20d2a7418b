package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dripfeed/core/course"
)

type (
	courseRow struct {
		ID                      string    `db:"id"`
		OwnerID                 string    `db:"owner_id"`
		Title                   string    `db:"title"`
		IsDripEnabled           bool      `db:"is_drip_enabled"`
		DripIntervalUnit        string    `db:"drip_interval_unit"`
		DripCount               int       `db:"drip_count"`
		Price                   float64   `db:"price"`
		Currency                string    `db:"currency"`
		PricingType             string    `db:"pricing_type"`
		AllowInstallments       bool      `db:"allow_installments"`
		AllowSubscriptions      bool      `db:"allow_subscriptions"`
		FreePreviewChapterCount null.Int  `db:"free_preview_chapter_count"`
		CreatedAt               time.Time `db:"created_at"`
		UpdatedAt               time.Time `db:"updated_at"`
	}

	chapterRow struct {
		ID          string      `db:"id"`
		CourseID    string      `db:"course_id"`
		Title       string      `db:"title"`
		Description null.String `db:"description"`
		OrderIndex  int         `db:"order_index"`
	}

	lessonRow struct {
		ID         string `db:"id"`
		ChapterID  string `db:"chapter_id"`
		Title      string `db:"title"`
		OrderIndex int    `db:"order_index"`
		DripDelay  int    `db:"drip_delay"`
		DripBasis  string `db:"drip_basis"`
		IsLocked   bool   `db:"is_locked"`
	}

	enrollmentRow struct {
		ID           string    `db:"id"`
		CourseID     string    `db:"course_id"`
		LearnerID    string    `db:"learner_id"`
		LearnerName  string    `db:"learner_name"`
		LearnerEmail string    `db:"learner_email"`
		Status       string    `db:"status"`
		EnrolledAt   time.Time `db:"enrolled_at"`
	}
)

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:                      r.ID,
		OwnerID:                 r.OwnerID,
		Title:                   r.Title,
		IsDripEnabled:           r.IsDripEnabled,
		DripIntervalUnit:        course.IntervalUnit(r.DripIntervalUnit),
		DripCount:               r.DripCount,
		Price:                   r.Price,
		Currency:                r.Currency,
		PricingType:             course.PricingType(r.PricingType),
		AllowInstallments:       r.AllowInstallments,
		AllowSubscriptions:      r.AllowSubscriptions,
		FreePreviewChapterCount: r.FreePreviewChapterCount.Ptr(),
		CreatedAt:               r.CreatedAt.UTC(),
		UpdatedAt:               r.UpdatedAt.UTC(),
	}
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson{
		ID:         r.ID,
		ChapterID:  r.ChapterID,
		Title:      r.Title,
		OrderIndex: r.OrderIndex,
		DripDelay:  r.DripDelay,
		DripBasis:  course.DripBasis(r.DripBasis),
		IsLocked:   r.IsLocked,
	}
}

func (r enrollmentRow) toEnrollment() course.Enrollment {
	return course.Enrollment{
		ID:           r.ID,
		CourseID:     r.CourseID,
		LearnerID:    r.LearnerID,
		LearnerName:  r.LearnerName,
		LearnerEmail: r.LearnerEmail,
		Status:       course.EnrollmentStatus(r.Status),
		EnrolledAt:   r.EnrolledAt.UTC(),
	}
}

// CourseRepository is the PostgreSQL course.Repository.
type CourseRepository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext // db, or the transaction of RunInTx
	tx  *sqlx.Tx
}

var _ course.Repository = (*CourseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db, ext: db}
}

// validID tells whether id can be a primary key; anything else matches no row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo *CourseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	if err := sqlx.GetContext(ctx, repo.ext, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	c := row.toCourse()

	var chapters []chapterRow
	q := `SELECT * FROM chapter WHERE course_id = $1 ORDER BY order_index, id`
	if err := sqlx.SelectContext(ctx, repo.ext, &chapters, q, id); err != nil {
		return course.Course{}, errors.Wrap(err, "selecting chapters")
	}

	var lessons []lessonRow
	q = `SELECT l.* FROM lesson l JOIN chapter ch ON ch.id = l.chapter_id
		WHERE ch.course_id = $1 ORDER BY ch.order_index, l.order_index, l.id`
	if err := sqlx.SelectContext(ctx, repo.ext, &lessons, q, id); err != nil {
		return course.Course{}, errors.Wrap(err, "selecting lessons")
	}

	byChapter := make(map[string][]course.Lesson, len(chapters))
	for _, l := range lessons {
		byChapter[l.ChapterID] = append(byChapter[l.ChapterID], l.toLesson())
	}
	c.Chapters = make([]course.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		c.Chapters = append(c.Chapters, course.Chapter{
			ID:          ch.ID,
			CourseID:    ch.CourseID,
			Title:       ch.Title,
			Description: ch.Description.String,
			OrderIndex:  ch.OrderIndex,
			Lessons:     byChapter[ch.ID],
		})
	}
	c.Sort()
	return c, nil
}

func (repo *CourseRepository) QueryDripCourses(ctx context.Context) ([]course.Course, error) {
	var ids []string
	q := `SELECT id FROM course WHERE is_drip_enabled ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, repo.ext, &ids, q); err != nil {
		return nil, errors.Wrap(err, "selecting drip courses")
	}

	courses := make([]course.Course, 0, len(ids))
	for _, id := range ids {
		c, err := repo.GetCourse(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "getting course %s", id)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// enrollmentWhere builds the WHERE clause matching filter; ok is false when nothing can match.
func enrollmentWhere(filter course.EnrollmentFilter) (where string, args []interface{}, ok bool) {
	var conds []string
	add := func(col string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if filter.ID != "" {
		if !validID(filter.ID) {
			return "", nil, false
		}
		add("id", filter.ID)
	}
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return "", nil, false
		}
		add("course_id", filter.CourseID)
	}
	if filter.LearnerID != "" {
		add("learner_id", filter.LearnerID)
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	return where, args, true
}

func (repo *CourseRepository) QueryEnrollments(ctx context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	where, args, ok := enrollmentWhere(filter)
	if !ok {
		return make([]course.Enrollment, 0), nil
	}

	var rows []enrollmentRow
	q := `SELECT * FROM enrollment` + where + ` ORDER BY enrolled_at, id`
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.toEnrollment())
	}
	return enrollments, nil
}

func (repo *CourseRepository) GetEnrollment(ctx context.Context, filter course.EnrollmentFilter) (course.Enrollment, error) {
	where, args, ok := enrollmentWhere(filter)
	if !ok {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}

	var row enrollmentRow
	q := `SELECT * FROM enrollment` + where + ` ORDER BY enrolled_at, id LIMIT 1`
	if err := sqlx.GetContext(ctx, repo.ext, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "selecting enrollment")
	}
	return row.toEnrollment(), nil
}

// exec runs a single row update, returning notFound when no row matched.
func (repo *CourseRepository) exec(ctx context.Context, notFound error, query string, args ...interface{}) error {
	res, err := repo.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (repo *CourseRepository) UpdateCourseDripFields(ctx context.Context, id string, fields course.DripFields) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}

	q := `UPDATE course SET is_drip_enabled = $2, drip_interval_unit = $3, drip_count = $4, updated_at = $5 WHERE id = $1`
	err := repo.exec(
		ctx, course.ErrNotFound, q,
		id, fields.IsDripEnabled, string(fields.DripIntervalUnit), fields.DripCount, fields.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course drip fields")
	}
	return repo.GetCourse(ctx, id)
}

func (repo *CourseRepository) UpdateCoursePricing(ctx context.Context, id string, fields course.PricingFields) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}

	q := `UPDATE course SET price = $2, currency = $3, pricing_type = $4, allow_installments = $5,
		allow_subscriptions = $6, free_preview_chapter_count = $7, updated_at = $8 WHERE id = $1`
	err := repo.exec(
		ctx, course.ErrNotFound, q,
		id, fields.Price, fields.Currency, string(fields.PricingType), fields.AllowInstallments,
		fields.AllowSubscriptions, null.IntFromPtr(fields.FreePreviewChapterCount), fields.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course pricing")
	}
	return repo.GetCourse(ctx, id)
}

func (repo *CourseRepository) BatchUpdateLessonDrip(ctx context.Context, courseID string, settings []course.LessonDripSetting) error {
	return repo.RunInTx(ctx, func(r course.Repository) error {
		tx := r.(*CourseRepository)
		if _, err := tx.GetCourse(ctx, courseID); err != nil {
			return err
		}

		q := `UPDATE lesson SET drip_delay = $3, drip_basis = $4
			WHERE id::text = $2 AND chapter_id IN (SELECT id FROM chapter WHERE course_id = $1)`
		for _, s := range settings {
			notFound := errors.Wrapf(course.ErrLessonNotFound, "lesson %s", s.LessonID)
			if err := tx.exec(ctx, notFound, q, courseID, s.LessonID, s.Days, string(s.Basis)); err != nil {
				return errors.Wrap(err, "updating lesson drip")
			}
		}
		return nil
	})
}

func (repo *CourseRepository) SetLessonsLocked(ctx context.Context, courseID string, unlocked []string) error {
	return repo.RunInTx(ctx, func(r course.Repository) error {
		tx := r.(*CourseRepository)
		if _, err := tx.GetCourse(ctx, courseID); err != nil {
			return err
		}

		if unlocked == nil {
			unlocked = []string{} // ANY(NULL) is NULL
		}
		unique := make(map[string]bool, len(unlocked))
		for _, id := range unlocked {
			unique[id] = true
		}
		var found int
		q := `SELECT count(*) FROM lesson l JOIN chapter ch ON ch.id = l.chapter_id
			WHERE ch.course_id = $1 AND l.id::text = ANY($2)`
		if err := sqlx.GetContext(ctx, tx.ext, &found, q, courseID, pq.Array(unlocked)); err != nil {
			return errors.Wrap(err, "counting lessons")
		}
		if found != len(unique) {
			return errors.Wrapf(course.ErrLessonNotFound, "%d of %d lessons", len(unique)-found, len(unique))
		}

		q = `UPDATE lesson SET is_locked = NOT (id::text = ANY($2))
			WHERE chapter_id IN (SELECT id FROM chapter WHERE course_id = $1)`
		if _, err := tx.ext.ExecContext(ctx, q, courseID, pq.Array(unlocked)); err != nil {
			return errors.Wrap(err, "locking lessons")
		}
		return nil
	})
}

// RunInTx runs fn in a transaction, or in the current one when repo is already bound to one.
func (repo *CourseRepository) RunInTx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.tx != nil {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(&CourseRepository{db: repo.db, ext: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}
