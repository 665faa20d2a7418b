package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dripfeed/core"
)

var (
	dripBasisTag  = "dripbasis"
	dripBasisText = "{0} must be one of: course_start, previous_lesson"

	dripUnitTag  = "dripunit"
	dripUnitText = "{0} must be one of: daily, weekly, monthly"

	paymentTypeTag  = "paymenttype"
	paymentTypeText = "{0} must be one of: free, one_time, installment, recurring"
)

// InitValidators registers the course custom validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(dripBasisTag, dripBasisValidation)
	core.RegisterCustomTranslation(validate, translator, dripBasisTag, dripBasisText)

	_ = validate.RegisterValidation(dripUnitTag, dripUnitValidation)
	core.RegisterCustomTranslation(validate, translator, dripUnitTag, dripUnitText)

	_ = validate.RegisterValidation(paymentTypeTag, paymentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, paymentTypeTag, paymentTypeText)
}

// Custom Validators

func dripBasisValidation(fl validator.FieldLevel) bool {
	return DripBasis(fl.Field().String()).Valid()
}

func dripUnitValidation(fl validator.FieldLevel) bool {
	return IntervalUnit(fl.Field().String()).Valid()
}

func paymentTypeValidation(fl validator.FieldLevel) bool {
	return PricingType(fl.Field().String()).Valid()
}
