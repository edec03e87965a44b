package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vytor/verve/internal/errors"
)

var validate *validator.Validate

var setNamePattern = regexp.MustCompile(`^[A-Za-z0-9ÄÖÜäöüß _-]+$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("setname", func(fl validator.FieldLevel) bool {
		return setNamePattern.MatchString(fl.Field().String())
	})
}

// ValidateStruct checks s against its validate tags and returns a
// VALIDATION_ERROR naming the first offending field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewBadRequestError(err.Error())
	}
	first := verrs[0]
	return errors.NewValidationError(first.Field(), describe(first))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "setname":
		return "may contain only letters, digits, spaces, '_' and '-'"
	default:
		return fmt.Sprintf("failed %s %s", fe.Tag(), fe.Param())
	}
}
