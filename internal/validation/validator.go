package validation

import (
	"errors"
	"reflect"
	"strings"

	"teamtrack/internal/models"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	userIDTag   = "userid"
	userIDText  = "{0} must be 3-64 letters, digits, '.', '-' or '_'"
	passwordTag = "password"
	passwordTxt = "{0} must be 8-72 characters with at least one letter and one digit"
	roleTag     = "role"
	roleText    = "{0} must be one of admin, leader, member"
	requiredTag = "required"
	requireText = "{0} is required"
)

// Validator wraps go-playground/validator with English messages keyed by JSON field names.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// Default is the shared instance used by handlers.
var Default = New()

// New builds a Validator with the custom tags registered.
func New() *Validator {
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(userIDTag, func(fl validator.FieldLevel) bool {
		return ValidateUserID(fl.Field().String()) == nil
	})
	_ = validate.RegisterValidation(passwordTag, func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
	_ = validate.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		_, err := models.ParseRole(fl.Field().String())
		return err == nil
	})

	registerTranslation(validate, translator, userIDTag, userIDText, false)
	registerTranslation(validate, translator, passwordTag, passwordTxt, false)
	registerTranslation(validate, translator, roleTag, roleText, false)
	registerTranslation(validate, translator, requiredTag, requireText, true)

	return &Validator{validate: validate, translator: translator}
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns a VALIDATION_ERROR AppError listing every failed field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(v.translator))
	}
	return models.NewValidationError(strings.Join(msgs, "; "))
}

// Struct validates s with the Default validator.
func Struct(s any) error {
	return Default.Struct(s)
}
