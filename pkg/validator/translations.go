package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var customMessages = map[string]map[string]string{
	LangEN: {
		TagTrimmed:  "{0} must not have leading or trailing spaces",
		TagNotBlank: "{0} must not be blank",
	},
	LangZH: {
		TagTrimmed:  "{0}不能有前导或尾随空格",
		TagNotBlank: "{0}不能为空白",
	},
}

func (v *Validator) registerCustomTranslations() {
	for lang, messages := range customMessages {
		trans, ok := v.trans[lang]
		if !ok {
			continue
		}
		for tag, message := range messages {
			registerTranslation(v.validate, trans, tag, message)
		}
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
