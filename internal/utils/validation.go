package contextutils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var moduleIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("moduleid", func(fl validator.FieldLevel) bool {
		return moduleIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return IsValidDate(fl.Field().String())
	})
	return v
}

// Validator exposes the shared validator so gin binding can reuse its custom rules.
func Validator() *validator.Validate {
	return validate
}

// IsValidModuleID reports whether id can be used as a module identifier.
func IsValidModuleID(id string) bool {
	return validate.Var(id, "required,moduleid") == nil
}

// ValidateModuleID returns ErrInvalidInput for a malformed module identifier.
func ValidateModuleID(id string) error {
	if !IsValidModuleID(id) {
		return InvalidInputf("invalid module id %q", id)
	}
	return nil
}

// ValidateStruct runs the struct tags of s and converts failures into ErrValidationFailed.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return NewAppErrorWithCause(ErrorCodeValidationFailed, SeverityWarn, ErrValidationFailed.Message, strings.Join(fields, "; "), err)
	}
	return WrapError(err, "validation")
}
