// Package i18n translates the user-facing strings of the tanker CLI.
//
// It wraps the gotext library with T() and N() helpers. Catalogs are
// embedded in the binary from locales/{lang}/LC_MESSAGES/tanker.po and
// selected at startup via Init().
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for tanker.
const domain = "tanker"

// supported lists the languages with an embedded catalog. English is the
// source language and needs none.
var supported = []language.Tag{language.English, language.Russian}

var matcher = language.NewMatcher(supported)

// po is the gotext locale object used for translations.
var po *gotext.Locale

// Init initializes the i18n system. If lang is empty, it auto-detects
// from the environment variables LANGUAGE, LC_ALL, LC_MESSAGES, LANG
// (in that order, matching GNU gettext behavior). The closest supported
// catalog is used.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(Match(lang), locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Match returns the base language of the best supported catalog for lang.
func Match(lang string) string {
	tag, _, _ := matcher.Match(language.Make(strings.ReplaceAll(lang, "_", "-")))
	base, _ := tag.Base()
	return base.String()
}

// T translates a string. If no translation is available, returns the
// original string unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage reads environment variables to determine the user's
// preferred language, following GNU gettext conventions.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			// LANGUAGE can be a colon-separated list; take the first
			if env == "LANGUAGE" {
				val, _, _ = strings.Cut(val, ":")
			}
			// ru_RU.UTF-8 -> ru_RU
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
