// Package i18n loads the embedded message catalogs and renders the
// localized strings used in calendar summaries and reminder messages.
package i18n

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders message keys in a single configured language.
type Translator struct {
	log       *slog.Logger
	bundle    *goi18n.Bundle
	localizer *goi18n.Localizer
	languages []string
}

// New builds the translation bundle from the embedded locale files and
// selects lang, falling back to the default language for missing keys.
func New(lang string, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	t := &Translator{log: log.With(config.LogKeyComponent, config.CompI18n)}

	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		t.log.Error(config.ErrLocalesAccess, config.LogKeyError, err)
		return t
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			t.log.Debug(config.MsgLocaleSkip, config.LogKeyFile, name)
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if code == "" {
			t.log.Warn(config.MsgLocaleBadName, config.LogKeyFile, name)
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			t.log.Error(config.ErrLocaleLoad, config.LogKeyFile, name, config.LogKeyError, err)
			continue
		}
		t.languages = append(t.languages, code)
		t.log.Debug(config.MsgLocaleLoaded, config.LogKeyLang, code, config.LogKeyFile, name)
	}

	t.bundle = bundle
	t.SetLanguage(lang)
	return t
}

// SetLanguage switches the active language. Unknown languages still work
// through the bundle's fallback chain.
func (t *Translator) SetLanguage(lang string) {
	if lang == "" {
		lang = config.DefaultLanguage
	}
	t.localizer = goi18n.NewLocalizer(t.bundle, lang, config.DefaultLanguage)
}

// Languages returns the locale codes detected in the embedded catalog.
func (t *Translator) Languages() []string {
	return t.languages
}

// Msg translates a key with optional template data. On failure the key
// itself is returned so output is never empty.
func (t *Translator) Msg(key string, data map[string]any) string {
	return t.msgPlural(key, data, nil)
}

// MsgCount translates a key whose message carries plural forms, using
// count to pick the CLDR plural category.
func (t *Translator) MsgCount(key string, count int, data map[string]any) string {
	return t.msgPlural(key, data, count)
}

func (t *Translator) msgPlural(key string, data map[string]any, count any) string {
	if t.localizer == nil {
		return key
	}
	msg, err := t.localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil {
		t.log.Debug(config.MsgTransMissing, config.LogKeyKey, key, config.LogKeyError, err)
		return key
	}
	return msg
}

// Summary renders the calendar event title for a birthday. When the age
// is known it is appended as an ordinal; age zero uses the birth wording.
func (t *Translator) Summary(name string, age int, ageKnown bool) string {
	data := map[string]any{"Possessive": Possessive(name), "Name": name}
	switch {
	case !ageKnown:
		return t.Msg(config.TKeyEvtSummary, data)
	case age == 0:
		return t.Msg(config.TKeyEvtSummaryBirth, data)
	default:
		data["Age"] = age
		data["Ordinal"] = engine.Ordinal(age)
		return t.Msg(config.TKeyEvtSummaryAge, data)
	}
}

// Reminder renders the notification text for a due birthday.
func (t *Translator) Reminder(name string, daysUntil int, age int, ageKnown bool) string {
	data := map[string]any{"Possessive": Possessive(name), "Name": name, "Days": daysUntil}
	if ageKnown {
		data["Age"] = age
		data["Ordinal"] = engine.Ordinal(age)
	}
	switch {
	case daysUntil == 0 && ageKnown:
		return t.Msg(config.TKeyRemTodayAge, data)
	case daysUntil == 0:
		return t.Msg(config.TKeyRemToday, data)
	case ageKnown:
		return t.MsgCount(config.TKeyRemUpcomingAge, daysUntil, data)
	default:
		return t.MsgCount(config.TKeyRemUpcoming, daysUntil, data)
	}
}

// Possessive returns the English possessive of a name. Names already
// ending in "s" take a bare apostrophe.
func Possessive(name string) string {
	if strings.HasSuffix(name, "s") || strings.HasSuffix(name, "S") {
		return name + "'"
	}
	return name + "'s"
}
