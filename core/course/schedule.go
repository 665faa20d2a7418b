package course

import "time"

const dripDisabledMessage = "drip scheduling is disabled for this course"

type (
	ScheduleOptions struct {
		// Now, when set, computes every lesson's availability against it (enrollment mode).
		Now *time.Time
		// ChainPreviousLesson releases "previous_lesson" based lessons relative to the previous
		// lesson's release date. When unset, every lesson is released relative to the anchor.
		ChainPreviousLesson bool
	}

	ScheduledLesson struct {
		LessonID          string    `json:"lesson_id"`
		LessonTitle       string    `json:"lesson_title"`
		ChapterID         string    `json:"chapter_id"`
		ChapterTitle      string    `json:"chapter_title"`
		ChapterOrderIndex int       `json:"chapter_order_index"`
		OrderIndex        int       `json:"order_index"`
		DelayDays         int       `json:"delay_days"`
		Basis             DripBasis `json:"basis"`
		ReleaseDate       time.Time `json:"release_date"`
		IsAvailable       *bool     `json:"is_available,omitempty"`
	}

	// Schedule is a course release schedule.
	// A course with drip disabled yields DripEnabled=false & no lessons: callers must not confuse it
	// with an enabled course without any lesson, whose Lessons is empty but not nil.
	Schedule struct {
		CourseID    string            `json:"course_id"`
		DripEnabled bool              `json:"drip_enabled"`
		Message     string            `json:"message,omitempty"`
		Anchor      time.Time         `json:"anchor"`
		Lessons     []ScheduledLesson `json:"lessons"`
	}
)

// BuildSchedule computes the release date of every lesson of c, in release order, from anchor.
func BuildSchedule(c Course, anchor time.Time, opts ScheduleOptions) Schedule {
	if !c.IsDripEnabled {
		return Schedule{
			CourseID:    c.ID,
			DripEnabled: false,
			Message:     dripDisabledMessage,
			Anchor:      anchor,
		}
	}

	sched := Schedule{
		CourseID:    c.ID,
		DripEnabled: true,
		Anchor:      anchor,
		Lessons:     make([]ScheduledLesson, 0),
	}
	prevRelease := anchor
	for _, ch := range c.OrderedChapters() {
		for _, l := range ch.Lessons {
			ref := anchor
			if opts.ChainPreviousLesson && l.DripBasis == BasisPreviousLesson {
				ref = prevRelease
			}
			release := ReleaseDate(ref, l.DripDelay)

			sl := ScheduledLesson{
				LessonID:          l.ID,
				LessonTitle:       l.Title,
				ChapterID:         ch.ID,
				ChapterTitle:      ch.Title,
				ChapterOrderIndex: ch.OrderIndex,
				OrderIndex:        l.OrderIndex,
				DelayDays:         l.DripDelay,
				Basis:             l.DripBasis,
				ReleaseDate:       release,
			}
			if opts.Now != nil {
				available := !opts.Now.Before(release)
				sl.IsAvailable = &available
			}
			sched.Lessons = append(sched.Lessons, sl)
			prevRelease = release
		}
	}
	return sched
}

// AvailableLessonIDs returns the IDs of the lessons released at now.
func (s Schedule) AvailableLessonIDs(now time.Time) []string {
	var ids []string
	for _, l := range s.Lessons {
		if !now.Before(l.ReleaseDate) {
			ids = append(ids, l.LessonID)
		}
	}
	return ids
}
