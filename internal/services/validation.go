package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	// choice accepts members of the types enumerations.
	_ = v.RegisterValidation("choice", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(interface{ Valid() bool })
		return ok && value.Valid()
	})
	return v
}

// validateStruct runs the validate tags of v and converts failures to a
// *ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		fields[fieldPath(fieldErr.Namespace())] = fieldMessage(fieldErr)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the root struct name and embedded struct names, which
// are the segments not renamed by a json tag.
func fieldPath(namespace string) string {
	segments := strings.Split(namespace, ".")
	kept := segments[:0]
	for i, segment := range segments {
		if i == 0 && len(segments) > 1 {
			continue
		}
		if segment != "" && unicode.IsUpper(rune(segment[0])) && i < len(segments)-1 {
			continue
		}
		kept = append(kept, segment)
	}
	return strings.Join(kept, ".")
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fieldErr.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fieldErr.Param())
	case "min":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fieldErr.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fieldErr.Param())
	case "email", "len=0|email":
		return "Enter a valid email address."
	case "url", "len=0|url":
		return "Enter a valid URL."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "choice":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fieldErr.Value()))
	default:
		return fieldErr.Error()
	}
}
