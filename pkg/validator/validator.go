// Package validator validates catalog request payloads with go-playground/validator
// and renders failures as translated, field-named messages.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Language constants for i18n support.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator wraps go-playground/validator with the catalog rules and translators.
type Validator struct {
	validate *validator.Validate
	trans    map[string]ut.Translator
}

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the shared validator, created on first use.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// New creates a Validator with the catalog rules registered.
func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		trans:    make(map[string]ut.Translator),
	}

	// Field names in messages follow the JSON payload.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	enTrans, _ := uni.GetTranslator(LangEN)
	_ = en_translations.RegisterDefaultTranslations(v.validate, enTrans)
	v.trans[LangEN] = enTrans

	zhTrans, _ := uni.GetTranslator(LangZH)
	_ = zh_translations.RegisterDefaultTranslations(v.validate, zhTrans)
	v.trans[LangZH] = zhTrans

	v.registerCustomRules()
	v.registerCustomTranslations()

	return v
}

// Struct validates s and returns its failures translated into lang, or nil.
// Unknown languages fall back to English.
func (v *Validator) Struct(s any, lang string) *ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationErrors{Errors: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	trans, ok := v.trans[lang]
	if !ok {
		trans = v.trans[LangEN]
	}
	out := &ValidationErrors{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fe.Translate(trans),
		})
	}
	return out
}

// StructWithLang validates s with the shared validator.
func StructWithLang(s any, lang string) *ValidationErrors {
	return Global().Struct(s, lang)
}
