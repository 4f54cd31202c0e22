package attributes

import "strings"

var styleFamilies = []keywordFamily{
	{string(StyleScented), []string{"scented", "fragrance", "perfume", "aromatherapy", "essential oil"}},
	{string(StyleDecorative), []string{"decorative", "decor", "ornamental", "centerpiece"}},
	{string(StyleRustic), []string{"rustic", "farmhouse", "vintage", "wooden", "wood"}},
	{string(StyleElegant), []string{"elegant", "elegance", "classy", "chic", "glamour", "minimalist"}},
	{string(StyleSeasonal), []string{"christmas", "holiday", "halloween", "easter", "autumn", "winter", "valentine", "hanukkah", "festive"}},
}

type styleRule struct {
	result   Style
	keywords []string
}

// styleFallbacks run only when no style family matched.
var styleFallbacks = []styleRule{
	{StyleElegant, []string{"luxury", "elegant", "sophisticated"}},
	{StyleDecorative, []string{"decoration", "ornament", "beautiful", "artistic"}},
	{StyleRustic, []string{"natural", "organic", "handmade", "rustic"}},
	{StyleScented, []string{"scent", "fragrant", "aroma", "aromatic"}},
}

// ClassifyStyle infers the decorative style from all label descriptions.
// Defaults to "decorative".
func ClassifyStyle(labels []VisionLabel) Style {
	text := joinDescriptions(labels)

	if matched := matchFamilies(styleFamilies, text); len(matched) > 0 {
		return Style(matched[0])
	}

	for _, r := range styleFallbacks {
		if containsAny(text, r.keywords...) {
			return r.result
		}
	}

	return StyleDecorative
}

// ParseStyle maps free text onto a style.
func ParseStyle(s string) (Style, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range Styles {
		if s == string(st) {
			return st, true
		}
	}
	return "", false
}
