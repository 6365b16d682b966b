package dto

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/notes-service/internal/domain"
)

const (
	minAge = 13
	maxAge = 120
)

var (
	validate *validator.Validate
	trans    ut.Translator

	// now is swapped by tests that pin the age window.
	now = time.Now
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report json names, not Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("passcode", validatePasscode)
	_ = validate.RegisterValidation("dob", validateDateOfBirth)

	english := en.New()
	trans, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	registerMessage("passcode", "{0} must be 6 digits")
	registerMessage("dob", "{0} must be a date (YYYY-MM-DD) for an age between 13 and 120")
}

func registerMessage(tag, text string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

// Validate checks a request DTO and returns the first failure as a domain
// validation error: missing_field for absent values, invalid_field otherwise.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInvalidJSON(err)
	}

	fe := verrs[0]
	if fe.Tag() == "required" {
		return domain.ErrMissingField(fe.Field())
	}
	return domain.ErrInvalidField(fe.Field(), fe.Translate(trans))
}

func validatePasscode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validateDateOfBirth(fl validator.FieldLevel) bool {
	dob, err := ParseDateOfBirth(fl.Field().String())
	if err != nil || dob == nil {
		return false
	}
	age := ageAt(*dob, now())
	return age >= minAge && age <= maxAge
}

// ParseDateOfBirth accepts YYYY-MM-DD or RFC3339 and returns midnight UTC of
// that calendar day. An empty string is "not provided".
func ParseDateOfBirth(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, err
		}
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

func ageAt(dob, at time.Time) int {
	age := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		age--
	}
	return age
}
