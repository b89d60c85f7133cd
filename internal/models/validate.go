package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		return IsControlledTheme(fl.Field().String())
	})
	return v
}

// validateStruct runs tag validation and folds the first failure into
// ErrValidation so callers can match with errors.Is
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		return fmt.Errorf("%w: %s failed %q validation", ErrValidation, fe.Field(), rule)
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// ValidateArgs tag-validates a tool argument struct bound from a request
func ValidateArgs(args interface{}) error {
	return validateStruct(args)
}
