// Package i18n holds the three supported interface languages, the message
// table shared by the API and the CLI, and locale-aware date rendering.
package i18n

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Lang is a supported interface language code.
type Lang string

const (
	ID Lang = "id"
	AR Lang = "ar"
	EN Lang = "en"
)

// Default is the language used when nothing else matches.
const Default = ID

// All lists the supported languages in answer order.
var All = []Lang{ID, AR, EN}

var supported = []language.Tag{language.Indonesian, language.Arabic, language.English}

var matcher = language.NewMatcher(supported)

// Valid reports whether l is one of the supported languages.
func (l Lang) Valid() bool {
	switch l {
	case ID, AR, EN:
		return true
	}
	return false
}

// RTL reports whether the language is written right to left.
func (l Lang) RTL() bool { return l == AR }

// ParseLang accepts a BCP 47 tag whose base language is supported.
// Region and script subtags are ignored ("en-GB" → en).
func ParseLang(s string) (Lang, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("parsing language %q: %w", s, err)
	}
	base, _ := tag.Base()
	l := Lang(base.String())
	if !l.Valid() {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return l, nil
}

// Negotiate picks the best supported language for an Accept-Language header.
func Negotiate(acceptLanguage string) Lang {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return All[idx]
}

// T looks up key in lang and substitutes every {name} placeholder with the
// matching replacement. An unknown key, or a key without text in lang,
// yields the key itself.
func T(lang Lang, key string, repl map[string]any) string {
	text := messages[key][lang]
	if text == "" {
		text = key
	}
	for name, v := range repl {
		text = strings.ReplaceAll(text, "{"+name+"}", fmt.Sprint(v))
	}
	return text
}

// Messages returns a copy of the message table for one language.
func Messages(lang Lang) map[string]string {
	out := make(map[string]string, len(messages))
	for key, byLang := range messages {
		if text := byLang[lang]; text != "" {
			out[key] = text
		}
	}
	return out
}

var monthNames = map[Lang][12]string{
	ID: {"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"},
	AR: {"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو", "يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر"},
	EN: {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
}

// LongDate renders t the way the language writes a full calendar date,
// e.g. "15 Oktober 2026", "October 15, 2026" or "15 أكتوبر 2026".
func LongDate(lang Lang, t time.Time) string {
	months, ok := monthNames[lang]
	if !ok {
		months = monthNames[EN]
		lang = EN
	}
	month := months[t.Month()-1]
	switch lang {
	case EN:
		return fmt.Sprintf("%s %d, %d", month, t.Day(), t.Year())
	default:
		return fmt.Sprintf("%d %s %d", t.Day(), month, t.Year())
	}
}
