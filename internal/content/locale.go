package content

import (
	"sort"

	"github.com/example/dailylove/pkg/models"
	"golang.org/x/text/language"
)

// DefaultLocale is preferred when none of the requested locales is available
const DefaultLocale = "en"

// Rendered is a content item with one locale variant chosen for display
type Rendered struct {
	ID         int
	Locale     string
	Category   string
	Difficulty string
	Minutes    int
	Title      string
	Body       string
}

// Render picks the best locale variant of item for the preferred locales
func Render(item models.ContentItem, preferred ...string) Rendered {
	body, locale := Localize(item.Body, preferred...)
	title, _ := Localize(item.Title, locale)
	return Rendered{
		ID:         item.ID,
		Locale:     locale,
		Category:   item.Category,
		Difficulty: item.Difficulty,
		Minutes:    item.Minutes,
		Title:      title,
		Body:       body,
	}
}

// Localize returns the variant of text that best matches preferred, and its locale key.
// Unparseable preferred locales are ignored. With no match the default locale wins,
// or the alphabetically first variant if the default is missing.
func Localize(text models.LocalizedText, preferred ...string) (string, string) {
	if len(text) == 0 {
		return "", ""
	}

	keys := make([]string, 0, len(text))
	for k := range text {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == DefaultLocale {
			return keys[j] != DefaultLocale
		}
		if keys[j] == DefaultLocale {
			return false
		}
		return keys[i] < keys[j]
	})

	supported := make([]language.Tag, 0, len(keys))
	supportedKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		supportedKeys = append(supportedKeys, k)
	}
	if len(supported) == 0 {
		return text[keys[0]], keys[0]
	}

	desired := make([]language.Tag, 0, len(preferred))
	for _, p := range preferred {
		if p == "" {
			continue
		}
		if tag, err := language.Parse(p); err == nil {
			desired = append(desired, tag)
		}
	}
	if len(desired) == 0 {
		k := supportedKeys[0]
		return text[k], k
	}

	_, idx, _ := language.NewMatcher(supported).Match(desired...)
	k := supportedKeys[idx]
	return text[k], k
}
