// Package messages holds the UI strings in English and Chinese.
package messages

import (
	"embed"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeandeaual/go-locale"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var catalogs embed.FS

var files = []string{"locales/active.en.toml", "locales/active.zh.toml"}

// Catalog resolves message IDs for one language.
type Catalog struct {
	loc *i18n.Localizer
	tag language.Tag
}

// New builds a catalog for the first of langs that has translations,
// falling back to English. With no langs the OS locale is used.
func New(langs ...string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(catalogs, f); err != nil {
			return nil, err
		}
	}

	if len(langs) == 0 {
		langs = systemLanguages()
	}
	tags := parseTags(langs)
	matcher := language.NewMatcher(bundle.LanguageTags())
	tag, _, _ := matcher.Match(tags...)
	base, _ := tag.Base()

	prefs := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		prefs = append(prefs, t.String())
	}
	prefs = append(prefs, base.String())

	return &Catalog{
		loc: i18n.NewLocalizer(bundle, prefs...),
		tag: tag,
	}, nil
}

func systemLanguages() []string {
	locales, err := locale.GetLocales()
	if err != nil || len(locales) == 0 {
		return []string{language.English.String()}
	}
	return locales
}

func parseTags(langs []string) []language.Tag {
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		// POSIX style "zh_CN.UTF-8"
		l = strings.SplitN(l, ".", 2)[0]
		l = strings.ReplaceAll(l, "_", "-")
		if t, err := language.Parse(l); err == nil {
			tags = append(tags, t)
		}
	}
	return tags
}

// Language is the base language in use, e.g. "en" or "zh".
func (c *Catalog) Language() string {
	base, _ := c.tag.Base()
	return base.String()
}

// T returns the message for id. data, if given, fills template fields.
// Unknown IDs come back unchanged.
func (c *Catalog) T(id string, data ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	s, err := c.loc.Localize(cfg)
	if err != nil {
		return id
	}
	return s
}
