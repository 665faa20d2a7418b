package course

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dripfeed/core"
)

const releaseNoticeTemplate = "lessons_released"

// ReleaseNotice lists the lessons of a course released to an enrollment on a given day.
type ReleaseNotice struct {
	Course     CourseSummary     `json:"course"`
	Enrollment Enrollment        `json:"enrollment"`
	Lessons    []ScheduledLesson `json:"lessons"`
}

// ReleasedOn returns, for every active enrollment of every drip course,
// the lessons whose release date falls on day.
func (svc *Service) ReleasedOn(ctx context.Context, day time.Time) ([]ReleaseNotice, error) {
	courses, err := svc.repo.QueryDripCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying drip courses")
	}

	notices := make([]ReleaseNotice, 0)
	for _, c := range courses {
		enrollments, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseID: c.ID, Status: EnrollmentActive})
		if err != nil {
			return nil, errors.Wrapf(err, "querying enrollments of course %s", c.ID)
		}
		for _, enr := range enrollments {
			sched := BuildSchedule(c, enr.EnrolledAt, svc.scheduleOptions())
			var released []ScheduledLesson
			for _, l := range sched.Lessons {
				if sameDay(l.ReleaseDate, day) {
					released = append(released, l)
				}
			}
			if len(released) > 0 {
				notices = append(notices, ReleaseNotice{
					Course:     c.Summary(),
					Enrollment: enr,
					Lessons:    released,
				})
			}
		}
	}
	return notices, nil
}

// NotifyReleases e-mails every learner whose lessons are released on day.
// It returns the number of messages sent.
func (svc *Service) NotifyReleases(ctx context.Context, day time.Time) (int, error) {
	notices, err := svc.ReleasedOn(ctx, day)
	if err != nil {
		return 0, err
	}

	var messages []*core.EmailMessage
	for _, n := range notices {
		if n.Enrollment.LearnerEmail == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: n.Enrollment.LearnerName, Address: n.Enrollment.LearnerEmail}},
			Subject:      "New lessons available in " + n.Course.Title,
			TemplateName: releaseNoticeTemplate,
			TemplateData: map[string]interface{}{
				"LearnerName": n.Enrollment.LearnerName,
				"CourseID":    n.Course.ID,
				"CourseTitle": n.Course.Title,
				"Lessons":     n.Lessons,
			},
		})
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return len(messages), nil
}
