package services

import (
	"mission-progression-system/models"

	"golang.org/x/text/language"
)

// DefaultLocale is served when none of the caller's preferences match.
var DefaultLocale = language.English

// ResolveTranslation picks the translation that best matches preferred.
// English, when present, is the fallback; otherwise the first parseable
// translation is. Returns nil when translations is empty.
func ResolveTranslation(translations []models.MissionTranslation, preferred ...language.Tag) *models.MissionTranslation {
	tags := make([]language.Tag, 0, len(translations))
	index := make([]int, 0, len(translations))
	for i, tr := range translations {
		tag, err := language.Parse(tr.Locale)
		if err != nil {
			continue
		}
		if tag == DefaultLocale && len(tags) > 0 {
			tags = append([]language.Tag{tag}, tags...)
			index = append([]int{i}, index...)
			continue
		}
		tags = append(tags, tag)
		index = append(index, i)
	}
	if len(tags) == 0 {
		return nil
	}

	_, idx, _ := language.NewMatcher(tags).Match(preferred...)
	return &translations[index[idx]]
}
