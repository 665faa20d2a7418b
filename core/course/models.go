package course

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// DripBasis is the reference point a lesson's drip delay is measured from.
type DripBasis string

const (
	BasisCourseStart    DripBasis = "course_start"
	BasisPreviousLesson DripBasis = "previous_lesson"
)

func (b DripBasis) Valid() bool {
	switch b {
	case BasisCourseStart, BasisPreviousLesson:
		return true
	default:
		return false
	}
}

// IntervalUnit is the informational release cadence shown to learners; it does not gate lessons.
type IntervalUnit string

const (
	IntervalDaily   IntervalUnit = "daily"
	IntervalWeekly  IntervalUnit = "weekly"
	IntervalMonthly IntervalUnit = "monthly"
)

func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	default:
		return false
	}
}

type PricingType string

const (
	PricingFree        PricingType = "free"
	PricingOneTime     PricingType = "one_time"
	PricingInstallment PricingType = "installment"
	PricingRecurring   PricingType = "recurring"
)

func (p PricingType) Valid() bool {
	switch p {
	case PricingFree, PricingOneTime, PricingInstallment, PricingRecurring:
		return true
	default:
		return false
	}
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
	EnrollmentExpired   EnrollmentStatus = "expired"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentPending, EnrollmentCancelled, EnrollmentExpired:
		return true
	default:
		return false
	}
}

type Course struct {
	ID                      string       `json:"id"`
	OwnerID                 string       `json:"owner_id"`
	Title                   string       `json:"title"`
	IsDripEnabled           bool         `json:"is_drip_enabled"`
	DripIntervalUnit        IntervalUnit `json:"drip_interval_unit"`
	DripCount               int          `json:"drip_count"`
	Price                   float64      `json:"price"`
	Currency                string       `json:"currency"`
	PricingType             PricingType  `json:"pricing_type"`
	AllowInstallments       bool         `json:"allow_installments"`
	AllowSubscriptions      bool         `json:"allow_subscriptions"`
	FreePreviewChapterCount *int         `json:"free_preview_chapter_count"` // nil: platform default
	Chapters                []Chapter    `json:"chapters"`
	CreatedAt               time.Time    `json:"created_at"` // UTC
	UpdatedAt               time.Time    `json:"updated_at"` // UTC
}

type Chapter struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"course_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	OrderIndex  int      `json:"order_index"`
	Lessons     []Lesson `json:"lessons"`
}

type Lesson struct {
	ID         string    `json:"id"`
	ChapterID  string    `json:"chapter_id"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
	DripDelay  int       `json:"drip_delay"` // days
	DripBasis  DripBasis `json:"drip_basis"`
	IsLocked   bool      `json:"is_locked"`
}

type Enrollment struct {
	ID           string           `json:"id"`
	CourseID     string           `json:"course_id"`
	LearnerID    string           `json:"learner_id"`
	LearnerName  string           `json:"-"`
	LearnerEmail string           `json:"-"`
	Status       EnrollmentStatus `json:"status"`
	EnrolledAt   time.Time        `json:"enrolled_at"`
}

func (e Enrollment) IsActive() bool { return e.Status == EnrollmentActive }

// OrderedChapters returns a copy of the course chapters, and their lessons, in release order:
// chapters by OrderIndex, then lessons by OrderIndex. The course itself is left untouched.
func (c Course) OrderedChapters() []Chapter {
	chapters := make([]Chapter, len(c.Chapters))
	for i, ch := range c.Chapters {
		lessons := make([]Lesson, len(ch.Lessons))
		copy(lessons, ch.Lessons)
		sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].OrderIndex < lessons[j].OrderIndex })
		ch.Lessons = lessons
		chapters[i] = ch
	}
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].OrderIndex < chapters[j].OrderIndex })
	return chapters
}

// Sort puts the course chapters & lessons in release order.
func (c *Course) Sort() {
	c.Chapters = c.OrderedChapters()
}

// Lessons returns all the course lessons in release order.
func (c Course) Lessons() []Lesson {
	var lessons []Lesson
	for _, ch := range c.OrderedChapters() {
		lessons = append(lessons, ch.Lessons...)
	}
	return lessons
}

// CheckOrder makes sure chapter order indexes are unique within c, and lesson ones within their chapter.
func (c Course) CheckOrder() error {
	chapters := make(map[int]bool, len(c.Chapters))
	for _, ch := range c.Chapters {
		if chapters[ch.OrderIndex] {
			return errors.Wrapf(ErrDuplicateOrder, "chapter %d of course %s", ch.OrderIndex, c.ID)
		}
		chapters[ch.OrderIndex] = true

		lessons := make(map[int]bool, len(ch.Lessons))
		for _, l := range ch.Lessons {
			if lessons[l.OrderIndex] {
				return errors.Wrapf(ErrDuplicateOrder, "lesson %d of chapter %q", l.OrderIndex, ch.Title)
			}
			lessons[l.OrderIndex] = true
		}
	}
	return nil
}

func (c Course) HasLesson(id string) bool {
	for _, ch := range c.Chapters {
		for _, l := range ch.Lessons {
			if l.ID == id {
				return true
			}
		}
	}
	return false
}

func (c Course) IsOwnedBy(userID string) bool {
	return userID != "" && c.OwnerID == userID
}

// FreeChapterCount resolves the number of free preview chapters, falling back to def.
func (c Course) FreeChapterCount(def int) int {
	if c.FreePreviewChapterCount != nil {
		return *c.FreePreviewChapterCount
	}
	return def
}

// CourseSummary is the course without its content tree.
type CourseSummary struct {
	ID               string       `json:"id"`
	OwnerID          string       `json:"owner_id"`
	Title            string       `json:"title"`
	IsDripEnabled    bool         `json:"is_drip_enabled"`
	DripIntervalUnit IntervalUnit `json:"drip_interval_unit"`
	DripCount        int          `json:"drip_count"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (c Course) Summary() CourseSummary {
	return CourseSummary{
		ID:               c.ID,
		OwnerID:          c.OwnerID,
		Title:            c.Title,
		IsDripEnabled:    c.IsDripEnabled,
		DripIntervalUnit: c.DripIntervalUnit,
		DripCount:        c.DripCount,
		UpdatedAt:        c.UpdatedAt,
	}
}

// EnrollmentFilter does an AND match on its non-zero fields.
type EnrollmentFilter struct {
	ID        string
	CourseID  string
	LearnerID string
	Status    EnrollmentStatus
}

func (f EnrollmentFilter) Match(e Enrollment) bool {
	return (f.ID == "" || e.ID == f.ID) &&
		(f.CourseID == "" || e.CourseID == f.CourseID) &&
		(f.LearnerID == "" || e.LearnerID == f.LearnerID) &&
		(f.Status == "" || e.Status == f.Status)
}

// DripFields are the course level drip settings persisted by UpdateCourseDripFields.
type DripFields struct {
	IsDripEnabled    bool
	DripIntervalUnit IntervalUnit
	DripCount        int
	UpdatedAt        time.Time
}

// PricingFields are the course level paywall settings persisted by UpdateCoursePricing.
type PricingFields struct {
	Price                   float64
	Currency                string
	PricingType             PricingType
	AllowInstallments       bool
	AllowSubscriptions      bool
	FreePreviewChapterCount *int
	UpdatedAt               time.Time
}
