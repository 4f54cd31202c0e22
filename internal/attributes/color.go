package attributes

import (
	"math"
	"strings"
)

var colorFamilies = []keywordFamily{
	{ColorWhite, []string{"white", "ivory", "cream", "off-white", "pearl", "snow"}},
	{ColorRed, []string{"red", "crimson", "burgundy", "scarlet", "maroon", "ruby", "cherry"}},
	{ColorBlue, []string{"blue", "navy", "azure", "turquoise", "teal", "cyan", "aqua"}},
	{ColorGreen, []string{"green", "olive", "mint", "emerald", "sage", "lime"}},
	{ColorYellow, []string{"yellow", "gold", "golden", "mustard", "lemon"}},
	{ColorBlack, []string{"black", "ebony", "charcoal", "jet black", "onyx"}},
	{ColorPink, []string{"pink", "rose", "blush", "magenta", "fuchsia", "salmon"}},
	{ColorPurple, []string{"purple", "violet", "lavender", "lilac", "plum", "mauve"}},
	{ColorOrange, []string{"orange", "peach", "coral", "amber", "apricot", "tangerine"}},
	{ColorBrown, []string{"brown", "beige", "tan", "chocolate", "caramel", "bronze", "coffee"}},
}

const (
	// visualSampleLimit is how many dominant colors the visual pass inspects.
	visualSampleLimit = 8
	// fallbackSampleLimit is how many samples the best-saturation fallback inspects.
	fallbackSampleLimit = 3

	nearWhiteBrightness  = 220
	backgroundBrightness = 200
	backgroundSaturation = 0.10

	blackMaxBrightness = 60
	blackMaxSaturation = 0.30
	blackMinScore      = 0.10

	chromaticSaturation = 0.20
	dominanceMargin     = 20
	dominanceMinChannel = 80

	fallbackMinSaturation = 0.08
	fallbackMaxBrightness = 240
	fallbackMargin        = 10
)

// ClassifyColor infers one to three color names, joined by "-", from the
// label text first and the dominant color samples second. It never returns
// an empty string.
func ClassifyColor(samples []VisionColorSample, relevantText string) string {
	if matched := matchFamilies(colorFamilies, relevantText); len(matched) > 0 {
		if len(matched) > maxColors {
			matched = matched[:maxColors]
		}
		return strings.Join(matched, "-")
	}

	if visual := visualColors(samples); len(visual) > 0 {
		return strings.Join(visual, "-")
	}

	if c := bestSaturationColor(samples); c != "" {
		return c
	}

	return ColorWhite
}

// brightness is the plain channel average.
func brightness(c RGB) float64 {
	return (c.Red + c.Green + c.Blue) / 3
}

// saturation is (max-min)/max, or 0 for pure black.
func saturation(c RGB) float64 {
	hi := math.Max(c.Red, math.Max(c.Green, c.Blue))
	lo := math.Min(c.Red, math.Min(c.Green, c.Blue))
	if hi == 0 {
		return 0
	}
	return (hi - lo) / hi
}

func visualColors(samples []VisionColorSample) []string {
	if len(samples) > visualSampleLimit {
		samples = samples[:visualSampleLimit]
	}

	var found []string
	for _, s := range samples {
		name := classifySample(s)
		if name == "" || containsString(found, name) {
			continue
		}
		found = append(found, name)
		if len(found) == maxColors {
			break
		}
	}
	return found
}

// classifySample maps a single swatch to a color name, or "" when the swatch
// is background or ambiguous.
func classifySample(s VisionColorSample) string {
	c := s.Color
	b := brightness(c)
	sat := saturation(c)

	if b > nearWhiteBrightness {
		return ""
	}
	if b > backgroundBrightness && sat < backgroundSaturation {
		return ""
	}

	r, g, bl := c.Red, c.Green, c.Blue
	switch {
	case b < blackMaxBrightness && sat < blackMaxSaturation && s.Score > blackMinScore:
		return ColorBlack
	case sat > chromaticSaturation:
		return chromaticColor(r, g, bl, b)
	case sat < chromaticSaturation && b >= 120 && b <= 200:
		// Warm off-white wax under indoor light.
		if r > g && r > bl && r-bl > 15 {
			return ColorWhite
		}
	}
	return ""
}

func chromaticColor(r, g, b, bright float64) string {
	switch {
	case r > g+dominanceMargin && r > b+dominanceMargin && r > dominanceMinChannel:
		return ColorRed
	case b > r+dominanceMargin && b > g+dominanceMargin && b > dominanceMinChannel:
		return ColorBlue
	case g > r+dominanceMargin && g > b+dominanceMargin && g > dominanceMinChannel:
		return ColorGreen
	case r > 100 && g > 100 && r-b >= 25 && g-b >= 25:
		return ColorYellow
	case r > 120 && g >= 70 && g <= r-15 && b < 90:
		return ColorOrange
	case r > 130 && g > 90 && b > 90 && r-g >= 10 && bright < 200:
		return ColorPink
	case r > 90 && b > 90 && r-g >= 15 && b-g >= 15:
		return ColorPurple
	case r > 80 && g >= 50 && g <= r-15 && b < 70 && bright < 130:
		return ColorBrown
	}
	return ""
}

// bestSaturationColor picks the most saturated of the first few samples and
// maps it to red, blue or green by simple channel dominance.
func bestSaturationColor(samples []VisionColorSample) string {
	if len(samples) > fallbackSampleLimit {
		samples = samples[:fallbackSampleLimit]
	}

	var best *RGB
	bestSat := fallbackMinSaturation
	for i := range samples {
		c := samples[i].Color
		sat := saturation(c)
		if sat > bestSat && brightness(c) < fallbackMaxBrightness {
			best = &samples[i].Color
			bestSat = sat
		}
	}
	if best == nil {
		return ""
	}

	r, g, b := best.Red, best.Green, best.Blue
	switch {
	case r > g+fallbackMargin && r > b+fallbackMargin:
		return ColorRed
	case b > r+fallbackMargin && b > g+fallbackMargin:
		return ColorBlue
	case g > r+fallbackMargin && g > b+fallbackMargin:
		return ColorGreen
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NormalizeColor maps free text such as "Red, Blue" or "crimson-navy" onto
// known color names, keeping at most three. Unknown input yields "white".
func NormalizeColor(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == '-' || r == ',' || r == '/' || r == '&' || r == ' '
	})
	var names []string
	for _, f := range fields {
		for _, fam := range colorFamilies {
			if containsAny(f, fam.keywords...) && !containsString(names, fam.name) {
				names = append(names, fam.name)
				break
			}
		}
		if len(names) == maxColors {
			break
		}
	}
	if len(names) == 0 {
		return ColorWhite
	}
	return strings.Join(names, "-")
}
