package validator

import (
	"errors"
	"fmt"
	"strings"

	"go-fulfillment-ws/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		var verrs validator.ValidationErrors
		if !asValidationErrors(err, &verrs) {
			return []*ErrorResponse{{FailedField: "", Tag: err.Error()}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// Validate returns nil or a single error describing every failed field.
func Validate(data interface{}) error {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("field '%s' failed on '%s'", e.FailedField, e.Tag)
		if e.Value != "" {
			msg += "=" + e.Value
		}
		parts = append(parts, msg)
	}
	return errors.New(strings.Join(parts, "; "))
}

func asValidationErrors(err error, out *validator.ValidationErrors) bool {
	return errors.As(err, out)
}
