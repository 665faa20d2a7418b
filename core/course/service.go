package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/dripfeed/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAccessDenied       = errors.New("permission denied")
	ErrDuplicateOrder     = errors.New("duplicate order index")
)

type (
	Repository interface {
		// GetCourse returns the course with its chapters & lessons in release order.
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryDripCourses returns all the courses with drip enabled.
		QueryDripCourses(ctx context.Context) ([]Course, error)
		GetEnrollment(ctx context.Context, filter EnrollmentFilter) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
		UpdateCourseDripFields(ctx context.Context, id string, fields DripFields) (Course, error)
		// BatchUpdateLessonDrip applies all the settings, or none.
		BatchUpdateLessonDrip(ctx context.Context, courseID string, settings []LessonDripSetting) error
		// SetLessonsLocked locks all the course lessons but the unlocked ones, as a single unit.
		SetLessonsLocked(ctx context.Context, courseID string, unlocked []string) error
		UpdateCoursePricing(ctx context.Context, id string, fields PricingFields) (Course, error)
		// RunInTx runs fn against a Repository bound to a single transaction,
		// committed if fn returns nil and rolled back otherwise.
		RunInTx(ctx context.Context, fn func(repo Repository) error) error
	}

	ServiceInterface interface {
		PreviewSchedule(ctx context.Context, courseID, callerID string) (Schedule, error)
		EnrollmentSchedule(ctx context.Context, courseID, enrollmentID, callerID string) (Schedule, error)
		HasAccess(ctx context.Context, courseID, learnerID string) (AccessDecision, error)
		PreviewContent(ctx context.Context, courseID string) (PreviewContent, error)
		SetPreviewLessons(ctx context.Context, courseID, callerID string, freeLessonIDs []string) (PreviewContent, error)
		UpdateDripSettings(ctx context.Context, courseID, callerID string, ud UpdateDripSettings) (DripSettingsResult, error)
		UpdateLessonDripSettings(ctx context.Context, courseID, callerID string, ul UpdateLessonDrip) error
		UpdatePaywallSettings(ctx context.Context, courseID, callerID string, up UpdatePaywallSettings) (PaywallSummary, error)
		ReleasedOn(ctx context.Context, day time.Time) ([]ReleaseNotice, error)
		NotifyReleases(ctx context.Context, day time.Time) (int, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		conf     *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
		conf:     conf,
	}
}

func (svc *Service) scheduleOptions() ScheduleOptions {
	return ScheduleOptions{ChainPreviousLesson: svc.conf.Drip.ChainPreviousLesson}
}

func (svc *Service) freeChapterCount(c Course) int {
	return c.FreeChapterCount(svc.conf.Drip.DefaultFreeChapterCount)
}

// getOwnedCourse fetches a course the caller must own.
func (svc *Service) getOwnedCourse(ctx context.Context, repo Repository, courseID, callerID string) (Course, error) {
	c, err := repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, errors.Wrap(err, "getting course")
	}
	if !c.IsOwnedBy(callerID) {
		return Course{}, ErrAccessDenied
	}
	return c, nil
}

// Schedule Builder

// PreviewSchedule returns the generic release schedule of a course, anchored now.
func (svc *Service) PreviewSchedule(ctx context.Context, courseID, callerID string) (Schedule, error) {
	c, err := svc.getOwnedCourse(ctx, svc.repo, courseID, callerID)
	if err != nil {
		return Schedule{}, err
	}
	return BuildSchedule(c, NowFunc(), svc.scheduleOptions()), nil
}

// EnrollmentSchedule returns the release schedule of an enrollment, anchored at its start date,
// with the availability of each lesson. Only the course owner or the enrolled learner may see it.
func (svc *Service) EnrollmentSchedule(ctx context.Context, courseID, enrollmentID, callerID string) (Schedule, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "getting course")
	}
	enr, err := svc.repo.GetEnrollment(ctx, EnrollmentFilter{ID: enrollmentID, CourseID: courseID})
	if err != nil {
		return Schedule{}, errors.Wrap(err, "getting enrollment")
	}
	if !(c.IsOwnedBy(callerID) || (callerID != "" && enr.LearnerID == callerID)) {
		return Schedule{}, ErrAccessDenied
	}

	opts := svc.scheduleOptions()
	now := NowFunc()
	opts.Now = &now
	return BuildSchedule(c, enr.EnrolledAt, opts), nil
}

// Paywall Access Evaluator

// HasAccess tells whether a learner has full access to a course, through an active enrollment.
// Anonymous callers only ever get the preview.
func (svc *Service) HasAccess(ctx context.Context, courseID, learnerID string) (AccessDecision, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return AccessDecision{}, errors.Wrap(err, "getting course")
	}
	if learnerID == "" {
		return AccessDecision{HasAccess: false, IsPreview: true}, nil
	}

	enr, err := svc.repo.GetEnrollment(ctx, EnrollmentFilter{CourseID: courseID, LearnerID: learnerID, Status: EnrollmentActive})
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return AccessDecision{HasAccess: false, IsPreview: true}, nil
		}
		return AccessDecision{}, errors.Wrap(err, "getting enrollment")
	}
	return AccessDecision{HasAccess: true, IsPreview: false, Enrollment: &enr}, nil
}

// PreviewContent returns the free preview content of a course.
func (svc *Service) PreviewContent(ctx context.Context, courseID string) (PreviewContent, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return PreviewContent{}, errors.Wrap(err, "getting course")
	}
	return Preview(c, svc.freeChapterCount(c)), nil
}

// SetPreviewLessons makes freeLessonIDs the only unlocked lessons of the course.
func (svc *Service) SetPreviewLessons(ctx context.Context, courseID, callerID string, freeLessonIDs []string) (PreviewContent, error) {
	c, err := svc.getOwnedCourse(ctx, svc.repo, courseID, callerID)
	if err != nil {
		return PreviewContent{}, err
	}
	freeLessonIDs = core.CleanStrings(freeLessonIDs)
	if err = checkLessons(c, freeLessonIDs); err != nil {
		return PreviewContent{}, err
	}

	if err = svc.repo.SetLessonsLocked(ctx, courseID, freeLessonIDs); err != nil {
		return PreviewContent{}, errors.Wrap(err, "setting locked lessons")
	}
	if c, err = svc.repo.GetCourse(ctx, courseID); err != nil {
		return PreviewContent{}, errors.Wrap(err, "getting course")
	}
	return Preview(c, svc.freeChapterCount(c)), nil
}

// Settings Mutator

// UpdateDripSettings updates the course drip settings and returns its new preview schedule.
func (svc *Service) UpdateDripSettings(ctx context.Context, courseID, callerID string, ud UpdateDripSettings) (DripSettingsResult, error) {
	if err := ud.Validate(svc.validate); err != nil {
		return DripSettingsResult{}, err
	}
	c, err := svc.getOwnedCourse(ctx, svc.repo, courseID, callerID)
	if err != nil {
		return DripSettingsResult{}, err
	}

	fields := DripFields{
		IsDripEnabled:    c.IsDripEnabled,
		DripIntervalUnit: c.DripIntervalUnit,
		DripCount:        c.DripCount,
		UpdatedAt:        NowFunc().UTC(),
	}
	if ud.IsDripEnabled != nil {
		fields.IsDripEnabled = *ud.IsDripEnabled
	}
	if ud.DripIntervalUnit != "" {
		fields.DripIntervalUnit = ud.DripIntervalUnit
	}
	if ud.DripCount != nil {
		fields.DripCount = *ud.DripCount
	}

	c, err = svc.repo.UpdateCourseDripFields(ctx, courseID, fields)
	if err != nil {
		return DripSettingsResult{}, errors.Wrap(err, "updating course drip fields")
	}
	return DripSettingsResult{
		Course:   c.Summary(),
		Schedule: BuildSchedule(c, NowFunc(), svc.scheduleOptions()),
	}, nil
}

// UpdateLessonDripSettings sets the drip delay & basis of a batch of the course lessons, all or nothing.
func (svc *Service) UpdateLessonDripSettings(ctx context.Context, courseID, callerID string, ul UpdateLessonDrip) error {
	if err := ul.Validate(svc.validate); err != nil {
		return err
	}
	c, err := svc.getOwnedCourse(ctx, svc.repo, courseID, callerID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(ul.Lessons))
	for _, ls := range ul.Lessons {
		ids = append(ids, ls.LessonID)
	}
	if err = checkLessons(c, ids); err != nil {
		return err
	}

	if err = svc.repo.BatchUpdateLessonDrip(ctx, courseID, ul.Lessons); err != nil {
		return errors.Wrap(err, "updating lessons drip")
	}
	return nil
}

// UpdatePaywallSettings updates the course pricing from its payment options, and its preview content.
// Both are applied as a single unit.
func (svc *Service) UpdatePaywallSettings(ctx context.Context, courseID, callerID string, up UpdatePaywallSettings) (PaywallSummary, error) {
	if err := up.Validate(svc.validate); err != nil {
		return PaywallSummary{}, err
	}
	c, err := svc.getOwnedCourse(ctx, svc.repo, courseID, callerID)
	if err != nil {
		return PaywallSummary{}, err
	}
	if len(up.PaymentOptions) == 0 && up.PreviewContent == nil {
		return svc.paywallSummary(c), nil
	}
	if up.PreviewContent != nil {
		if err = checkLessons(c, up.PreviewContent.FreeLessonIDs); err != nil {
			return PaywallSummary{}, err
		}
	}

	fields := PricingFields{
		Price:                   c.Price,
		Currency:                c.Currency,
		PricingType:             c.PricingType,
		AllowInstallments:       c.AllowInstallments,
		AllowSubscriptions:      c.AllowSubscriptions,
		FreePreviewChapterCount: c.FreePreviewChapterCount,
		UpdatedAt:               NowFunc().UTC(),
	}
	fields = collapsePaymentOptions(up.PaymentOptions, fields)
	if up.PreviewContent != nil && up.PreviewContent.FreeChapterCount != nil {
		fields.FreePreviewChapterCount = up.PreviewContent.FreeChapterCount
	}

	err = svc.repo.RunInTx(ctx, func(repo Repository) error {
		var txErr error
		if c, txErr = repo.UpdateCoursePricing(ctx, courseID, fields); txErr != nil {
			return errors.Wrap(txErr, "updating course pricing")
		}
		if up.PreviewContent != nil {
			if txErr = repo.SetLessonsLocked(ctx, courseID, up.PreviewContent.FreeLessonIDs); txErr != nil {
				return errors.Wrap(txErr, "setting locked lessons")
			}
			if c, txErr = repo.GetCourse(ctx, courseID); txErr != nil {
				return errors.Wrap(txErr, "getting course")
			}
		}
		return nil
	})
	if err != nil {
		return PaywallSummary{}, err
	}
	return svc.paywallSummary(c), nil
}

func (svc *Service) paywallSummary(c Course) PaywallSummary {
	freeChapters := svc.freeChapterCount(c)
	return PaywallSummary{
		CourseID:                c.ID,
		Price:                   c.Price,
		Currency:                c.Currency,
		PricingType:             c.PricingType,
		AllowInstallments:       c.AllowInstallments,
		AllowSubscriptions:      c.AllowSubscriptions,
		FreePreviewChapterCount: freeChapters,
		Preview:                 Preview(c, freeChapters),
	}
}

// checkLessons makes sure all the lesson ids belong to c.
func checkLessons(c Course, ids []string) error {
	for _, id := range ids {
		if !c.HasLesson(id) {
			return errors.Wrapf(ErrLessonNotFound, "lesson %s of course %s", id, c.ID)
		}
	}
	return nil
}
