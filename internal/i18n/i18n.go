package i18n

import (
	"fmt"
	"net/http"

	"golang.org/x/text/language"
)

type Language string

const (
	Portuguese Language = "pt"
	English    Language = "en"
)

// Default is used when the request expresses no usable preference.
const Default = Portuguese

var matcher = language.NewMatcher([]language.Tag{
	language.BrazilianPortuguese, // first entry is the fallback
	language.English,
})

func parse(s string) (Language, bool) {
	switch s {
	case "pt", "pt-BR", "pt_BR":
		return Portuguese, true
	case "en":
		return English, true
	}
	return "", false
}

// GetLanguageFromRequest extracts language from the lang query param, the
// lang cookie, or Accept-Language, in that order.
func GetLanguageFromRequest(r *http.Request) Language {
	if lang, ok := parse(r.URL.Query().Get("lang")); ok {
		return lang
	}

	if cookie, err := r.Cookie("lang"); err == nil {
		if lang, ok := parse(cookie.Value); ok {
			return lang
		}
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		tags, _, err := language.ParseAcceptLanguage(accept)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No && idx == 1 {
				return English
			}
		}
	}

	return Default
}

// T returns the message for key in lang, formatted with args. Unknown keys
// come back unchanged so a missing translation is visible but harmless.
func T(lang Language, key string, args ...any) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog[Default]
	}
	msg, ok := msgs[key]
	if !ok {
		msg, ok = catalog[Default][key]
		if !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
