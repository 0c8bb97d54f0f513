package tokenize

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrNoLanguage is returned when the target language is empty.
var ErrNoLanguage = errors.New("target language is required")

// Language is a normalised target language. Name is what the model is asked to translate into.
type Language struct {
	Tag  language.Tag
	Name string
}

// Code returns the ISO 639 base code, or "" for languages that could not be identified.
func (l Language) Code() string {
	if l.Tag == language.Und {
		return ""
	}
	base, _ := l.Tag.Base()
	return base.String()
}

// known are the languages that can be requested by their English display name.
var known = []language.Tag{
	language.English, language.Japanese, language.Korean, language.Chinese,
	language.SimplifiedChinese, language.TraditionalChinese, language.French,
	language.German, language.Spanish, language.Italian, language.Portuguese,
	language.Russian, language.Arabic, language.Hindi, language.Thai,
	language.Vietnamese, language.Indonesian, language.Dutch, language.Polish,
	language.Swedish, language.Danish, language.Norwegian, language.Finnish,
	language.Turkish, language.Greek, language.Hebrew, language.Ukrainian,
	language.Czech, language.Hungarian, language.Romanian, language.Malay,
	language.Bengali, language.Tamil, language.Urdu, language.Persian,
	language.Filipino, language.Lao, language.Khmer, language.Burmese,
}

var byName = func() map[string]language.Tag {
	names := display.English.Languages()
	m := make(map[string]language.Tag, len(known))
	for _, tag := range known {
		m[strings.ToLower(names.Name(tag))] = tag
	}
	return m
}()

// Resolve accepts a BCP 47 code ("ja", "jpn", "pt-BR") or an English language name
// ("Japanese", "japanese"). Anything else is kept as free text for the model with an undetermined tag.
func Resolve(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Language{}, ErrNoLanguage
	}

	if tag, ok := byName[strings.ToLower(s)]; ok {
		return Language{Tag: tag, Name: displayName(tag)}, nil
	}

	if tag, err := language.Parse(s); err == nil && tag != language.Und {
		return Language{Tag: tag, Name: displayName(tag)}, nil
	}

	return Language{Tag: language.Und, Name: cases.Title(language.Und).String(s)}, nil
}

func displayName(tag language.Tag) string {
	base, _ := tag.Base()
	if name := display.English.Languages().Name(language.Make(base.String())); name != "" {
		return name
	}
	return tag.String()
}
