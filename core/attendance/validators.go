package attendance

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	statusTag  = "attstatus"
	statusText = "status must be one of Present, Absent or Late"

	dateText     = "date must be a valid date in the format YYYY-MM-DD"
	metadataText = "metadata must be a JSON object"
)

// InitValidators registers the attendance validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}

// ValidateBatch runs the validation tags of every entry, reporting failures as entries[i].<field>.
func ValidateBatch(validate *validator.Validate, translator ut.Translator, batch []NewEntry) error {
	var flds []core.FieldError
	for i := range batch {
		prefix := fmt.Sprintf("entries[%d].", i)
		if err := batch[i].Validate(validate); err != nil {
			verrs, ok := errors.Cause(err).(validator.ValidationErrors)
			if !ok {
				return errors.Wrap(err, "validating attendance")
			}
			for _, fe := range verrs {
				flds = append(flds, core.FieldError{Field: prefix + fe.Field(), Error: fe.Translate(translator)})
			}
		}
		if !isJSONObject(batch[i].Metadata) {
			flds = append(flds, core.FieldError{Field: prefix + "metadata", Error: metadataText})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errInvalidBatch, flds...)
	}
	return nil
}
