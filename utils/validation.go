package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
)

var (
	// validate is the singleton validator instance
	validate *validator.Validate

	// Translator renders validation errors in English
	Translator ut.Translator

	// custom validation tags
	profileTag  = "academic_profile"
	profileText = "{0} {1}"
	roleTag     = "user_role"
	roleText    = "{0} must be one of student, professor, admin"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})
	registerTranslation(roleTag, roleText)
	registerTranslation(profileTag, profileText)
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), fe.Param())
			return s
		},
	)
}

// RegisterStructValidation attaches a struct level validator to the given types
func RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	validate.RegisterStructValidation(fn, types...)
}

// CheckAcademicProfile reports the role specific profile rules of models.User
// against the fields of a request being validated.
func CheckAcademicProfile(sl validator.StructLevel, role models.UserRole, schoolLevel, section, speciality *string) {
	if !role.Valid() {
		return
	}
	u := models.User{
		Role:        role,
		SchoolLevel: models.OptionalField(schoolLevel),
		Section:     models.OptionalField(section),
		Speciality:  models.OptionalField(speciality),
	}
	var pe *models.ProfileError
	if errors.As(u.ValidateProfile(), &pe) {
		sl.ReportError(pe.Field, pe.Field, pe.Field, profileTag, pe.Reason)
	}
}

// CheckTimeRange reports an end that precedes start. Missing values are left to field tags.
func CheckTimeRange(sl validator.StructLevel, start, end *time.Time) {
	if start == nil || end == nil {
		return
	}
	if end.Before(*start) {
		sl.ReportError(*end, "end", "End", "gtefield", "start")
	}
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError from validator.ValidationErrors,
// keyed by JSON field name
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		fields[err.Field()] = err.Translate(Translator)
	}

	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}

// ParseUUID parses a path or query identifier
func ParseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID format: %s", s)
	}
	return id, nil
}
