package chi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
)

// validationRule registers one custom tag.
type validationRule struct {
	tag string
	fn  validator.Func
}

var syncRules = []validationRule{
	{tag: "index_name", fn: indexNameValidator},
	{tag: "country_code", fn: countryCodeValidator},
}

// requestValidator wraps validator.Validate and reports failures by JSON
// field name.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator(rules ...validationRule) *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	for _, r := range rules {
		_ = v.RegisterValidation(r.tag, r.fn)
	}
	return &requestValidator{validate: v}
}

// Struct validates s. Failures wrap domain.ErrInvalidRequest.
func (v *requestValidator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fieldMessage(fe)
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "index_name":
		return fe.Field() + " must match [a-z0-9][a-z0-9_-]{0,63}"
	case "country_code":
		return fe.Field() + " must be an ISO 3166-1 alpha-2 code"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func indexNameValidator(fl validator.FieldLevel) bool {
	return domidx.ValidName(fl.Field().String())
}

func countryCodeValidator(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
