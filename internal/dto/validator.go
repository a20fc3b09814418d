package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

var cityIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,64}$`)

// Validator checks request DTOs and reports failures as validation errors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom tags used by the DTOs.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("cityid", func(fl validator.FieldLevel) bool {
		return cityIDPattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct validates req.
func (v *Validator) Struct(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return appErrors.Clone(appErrors.ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "cityid":
		return fmt.Sprintf("%s must be 1-64 alphanumeric characters", field)
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
