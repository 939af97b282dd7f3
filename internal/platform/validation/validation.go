package validation

import (
	"errors"
	"net/mail"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/eightonethree/cafe-api/internal/domain"
)

var (
	phoneTag   = "phone"
	phoneText  = "{0} must be a phone number with 8 to 15 digits"
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	phoneStrip = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

	planTag  = "plan"
	planText = "{0} must be one of MONTHLY, QUARTERLY, ANNUAL"

	requiredTag  = "required"
	requiredText = "{0} is required"
)

// Validator validates tagged input structs and renders English field messages keyed by
// JSON field name.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	registerTranslation(validate, trans, phoneTag, phoneText, false)

	_ = validate.RegisterValidation(planTag, func(fl validator.FieldLevel) bool {
		return domain.Plan(fl.Field().String()).Months() > 0
	})
	registerTranslation(validate, trans, planTag, planText, false)

	registerTranslation(validate, trans, requiredTag, requiredText, true)

	return &Validator{validate: validate, translator: trans}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns a field->message map, or nil when s is valid.
func (v *Validator) Struct(s any) map[string]any {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return map[string]any{"_": err.Error()}
	}
	out := make(map[string]any, len(ves))
	for _, fe := range ves {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

// ValidPhone accepts an optional leading '+' and 8 to 15 digits. Spaces, dashes,
// dots and parentheses are ignored.
func ValidPhone(s string) bool {
	return phoneRegex.MatchString(phoneStrip.Replace(strings.TrimSpace(s)))
}

// NormalizePhone strips formatting characters, keeping a leading '+'.
func NormalizePhone(s string) string {
	return phoneStrip.Replace(strings.TrimSpace(s))
}

// ValidateEmail requires a bare address: "Name <a@b>" forms are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}
