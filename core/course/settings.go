package course

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dripfeed/core"
)

// UpdateDripSettings defines the course level drip settings a coach may change.
// nil fields are left untouched.
type UpdateDripSettings struct {
	IsDripEnabled    *bool        `json:"is_drip_enabled"`
	DripIntervalUnit IntervalUnit `json:"drip_interval_unit" validate:"omitempty,dripunit"`
	DripCount        *int         `json:"drip_count" validate:"omitempty,min=0"`
}

func (ud *UpdateDripSettings) Validate(validate *validator.Validate) error {
	ud.DripIntervalUnit = IntervalUnit(core.CleanString(string(ud.DripIntervalUnit), true /* lower */))
	return validate.Struct(ud)
}

type LessonDripSetting struct {
	LessonID string    `json:"lesson_id" validate:"required,notblank"`
	Days     int       `json:"days" validate:"min=0"`
	Basis    DripBasis `json:"basis" validate:"omitempty,dripbasis"`
}

// UpdateLessonDrip is a batch of lesson drip settings, applied all or nothing.
type UpdateLessonDrip struct {
	Lessons []LessonDripSetting `json:"lessons" validate:"required,min=1,dive"`
}

func (ul *UpdateLessonDrip) Validate(validate *validator.Validate) error {
	for i := range ul.Lessons {
		ul.Lessons[i].LessonID = core.CleanString(ul.Lessons[i].LessonID)
		ul.Lessons[i].Basis = DripBasis(core.CleanString(string(ul.Lessons[i].Basis), true /* lower */))
		if ul.Lessons[i].Basis == "" {
			ul.Lessons[i].Basis = BasisCourseStart
		}
	}
	if err := validate.Struct(ul); err != nil {
		return err
	}

	// a lesson cannot have conflicting delays or bases within one batch
	seen := make(map[string]bool, len(ul.Lessons))
	var flds []core.FieldError
	for i, ls := range ul.Lessons {
		if seen[ls.LessonID] {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("lessons[%d].lesson_id", i),
				Error: fmt.Sprintf("lesson %s is listed more than once", ls.LessonID),
			})
		}
		seen[ls.LessonID] = true
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

type PaymentOption struct {
	Type     PricingType `json:"type" validate:"required,paymenttype"`
	Price    float64     `json:"price" validate:"min=0"`
	Currency string      `json:"currency" validate:"omitempty,len=3"`
	Label    string      `json:"label"`
}

// PreviewSelection picks the free preview content of a course.
type PreviewSelection struct {
	FreeLessonIDs    []string `json:"free_lesson_ids"`
	FreeChapterCount *int     `json:"free_chapter_count" validate:"omitempty,min=0"`
}

func (ps *PreviewSelection) clean() {
	if ps.FreeLessonIDs == nil {
		ps.FreeLessonIDs = []string{}
	}
	ps.FreeLessonIDs = core.CleanStrings(ps.FreeLessonIDs)
}

type UpdatePaywallSettings struct {
	PaymentOptions []PaymentOption   `json:"payment_options" validate:"omitempty,dive"`
	PreviewContent *PreviewSelection `json:"preview_content"`
}

func (up *UpdatePaywallSettings) Validate(validate *validator.Validate) error {
	for i := range up.PaymentOptions {
		up.PaymentOptions[i].Type = PricingType(core.CleanString(string(up.PaymentOptions[i].Type), true /* lower */))
		up.PaymentOptions[i].Currency = strings.ToUpper(core.CleanString(up.PaymentOptions[i].Currency))
	}
	if up.PreviewContent != nil {
		up.PreviewContent.clean()
	}
	return validate.Struct(up)
}

// PaywallSummary is the course paywall configuration after an update.
type PaywallSummary struct {
	CourseID                string         `json:"course_id"`
	Price                   float64        `json:"price"`
	Currency                string         `json:"currency"`
	PricingType             PricingType    `json:"pricing_type"`
	AllowInstallments       bool           `json:"allow_installments"`
	AllowSubscriptions      bool           `json:"allow_subscriptions"`
	FreePreviewChapterCount int            `json:"free_preview_chapter_count"`
	Preview                 PreviewContent `json:"preview"`
}

// DripSettingsResult is returned by Service.UpdateDripSettings so coaches immediately see the effect.
type DripSettingsResult struct {
	Course   CourseSummary `json:"course"`
	Schedule Schedule      `json:"schedule"`
}

// collapsePaymentOptions derives the course pricing from its payment options:
// price, currency & pricing type come from the first option while installments & subscriptions
// are allowed as soon as any option is of that type.
func collapsePaymentOptions(opts []PaymentOption, fields PricingFields) PricingFields {
	if len(opts) == 0 {
		return fields
	}
	primary := opts[0]
	fields.Price = primary.Price
	fields.PricingType = primary.Type
	if primary.Currency != "" {
		fields.Currency = primary.Currency
	}
	fields.AllowInstallments = false
	fields.AllowSubscriptions = false
	for _, opt := range opts {
		switch opt.Type {
		case PricingInstallment:
			fields.AllowInstallments = true
		case PricingRecurring:
			fields.AllowSubscriptions = true
		case PricingFree, PricingOneTime:
		}
	}
	return fields
}
