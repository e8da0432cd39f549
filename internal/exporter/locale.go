package exporter

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/en_IN"
	"github.com/go-playground/locales/en_US"
)

// DefaultLocale is the locale used for dates when none is configured
const DefaultLocale = "en_IN"

var translators = map[string]func() locales.Translator{
	"en":    en.New,
	"en_GB": en_GB.New,
	"en_IN": en_IN.New,
	"en_US": en_US.New,
}

// NewTranslator returns the date formatter for a locale name such as "en_GB"
func NewTranslator(locale string) (locales.Translator, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	newFn, ok := translators[locale]
	if !ok {
		return nil, fmt.Errorf("unsupported locale %q (supported: %v)", locale, SupportedLocales())
	}
	return newFn(), nil
}

// SupportedLocales lists the locale names accepted by NewTranslator
func SupportedLocales() []string {
	names := make([]string, 0, len(translators))
	for name := range translators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatTimestamp renders t as a short date followed by a medium time,
// e.g. "17/10/26, 2:30:05 pm" for en_IN
func FormatTimestamp(tr locales.Translator, t time.Time) string {
	return tr.FmtDateShort(t) + ", " + tr.FmtTimeMedium(t)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}
