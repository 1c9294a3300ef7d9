package fulfillment

import "strings"

// Locale selects the language of customer-facing text
type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleUZ Locale = "uz"

	DefaultLocale = LocaleRU
)

// IsValid reports whether the locale is supported
func (l Locale) IsValid() bool {
	return l == LocaleRU || l == LocaleUZ
}

// ParseLocale maps free-form input to a supported locale, defaulting to Russian
func ParseLocale(s string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocaleUZ:
		return LocaleUZ
	default:
		return DefaultLocale
	}
}
