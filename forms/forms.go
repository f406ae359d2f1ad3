// Package forms binds submitted form values, normalises them and validates them
// before the view layer persists anything.
package forms

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/leebenson/conform"
)

// NonFieldErrors collects errors that belong to the form as a whole.
const NonFieldErrors = "__all__"

var (
	validate *validator.Validate
	trans    ut.Translator

	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
)

func init() {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ = uni.GetTranslator("en")

	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})

	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	override := map[string]string{
		"required": "This field is required.",
		"max":      "Ensure this value has at most {1} characters.",
		"min":      "Ensure this value has at least {1} characters.",
		"email":    "Enter a valid email address.",
		"eqfield":  "The two password fields didn't match.",
		"slug":     "Enter a valid slug consisting of letters, numbers, underscores or hyphens.",
		"username": "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.",
	}
	for tag, text := range override {
		registerTranslation(tag, text)
	}
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T(tag, fe.Field(), fe.Param())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// Errors maps a field name to its messages, in the order they were found.
type Errors map[string][]string

// Add records msg against field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get returns the messages for field.
func (e Errors) Get(field string) []string {
	return e[field]
}

// Has reports whether field has any message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Any reports whether the form carries any error at all.
func (e Errors) Any() bool {
	return len(e) > 0
}

// clean trims the string fields tagged for it and runs struct validation.
func clean(form any) Errors {
	errs := Errors{}
	if err := conform.Strings(form); err != nil {
		errs.Add(NonFieldErrors, err.Error())
		return errs
	}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonFieldErrors, err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), fe.Translate(trans))
	}
	return errs
}
