package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func labels(descs ...string) []VisionLabel {
	out := make([]VisionLabel, len(descs))
	for i, d := range descs {
		out[i] = VisionLabel{Description: d, Score: 0.9}
	}
	return out
}

func objects(names ...string) []VisionObject {
	out := make([]VisionObject, len(names))
	for i, n := range names {
		out[i] = VisionObject{Name: n, Score: 0.8}
	}
	return out
}

func TestClassifyType(t *testing.T) {
	tests := []struct {
		name    string
		objects []VisionObject
		text    string
		want    CandleType
	}{
		{"no signals", nil, "", TypeJar},
		{"tall thin cylinder object", objects("Tall thin cylinder"), "", TypeTaper},
		{"glass jar object", objects("Glass jar"), "", TypeJar},
		{"plain cylinder object", objects("Cylinder"), "", TypePillar},
		{"first shaped object wins", objects("Candle", "Column", "Jar"), "", TypePillar},
		{"objects beat text", objects("Tumbler"), "pillar candle", TypeJar},
		{"taper text", nil, "taper candle", TypeTaper},
		{"tealight text", nil, "tealight", TypeTeaLight},
		{"votive text", nil, "votive candle", TypeVotive},
		{"pillar text", nil, "pillar candle", TypePillar},
		{"birthday text", nil, "birthday cake", TypeBirthday},
		{"floating text", nil, "floating candle water", TypeFloating},
		{"novelty text", nil, "heart shaped candle", TypeNovelty},
		{"jar group checked before taper", nil, "tall jar candle", TypeJar},
		{"several unshaped objects", objects("Candle", "Candle"), "wax", TypePillar},
		{"lighting context", objects("Candle"), "mood lighting", TypePillar},
		{"decor context", objects("Candle"), "luxury home", TypeJar},
		{"keyword inside a compound word", nil, "candlestick holder", TypeTaper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyType(tt.objects, tt.text))
		})
	}
}

func TestTypeRulesOrder(t *testing.T) {
	var names []string
	for _, r := range typeRules {
		names = append(names, r.name)
	}
	assert.Equal(t, []string{
		"text:jar", "text:taper", "text:tea light", "text:votive", "text:pillar",
		"text:birthday", "text:floating", "text:novelty",
		"objects:small", "objects:tall", "objects:other",
		"context:decor", "context:lighting",
	}, names)
}

func TestParseCandleType(t *testing.T) {
	tests := []struct {
		in     string
		want   CandleType
		wantOK bool
	}{
		{"Pillar", TypePillar, true},
		{" taper candle ", TypeTaper, true},
		{"tealight", TypeTeaLight, true},
		{"tea light candles", TypeTeaLight, true},
		{"lantern", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCandleType(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyStyle(t *testing.T) {
	tests := []struct {
		name   string
		labels []VisionLabel
		want   Style
	}{
		{"no labels", nil, StyleDecorative},
		{"elegant family", labels("luxury", "elegant candle"), StyleElegant},
		{"family order decides", labels("Christmas", "Scented candle"), StyleScented},
		{"seasonal", labels("Halloween pumpkin"), StyleSeasonal},
		{"rustic fallback", labels("Organic"), StyleRustic},
		{"scented fallback", labels("Aroma"), StyleScented},
		{"decorative fallback", labels("Beautiful"), StyleDecorative},
		{"fallback order decides", labels("Natural", "Luxury"), StyleElegant},
		{"irrelevant labels still count", labels("Wooden furniture"), StyleRustic},
		{"keyword inside a brand word", labels("Woodwick candle"), StyleRustic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStyle(tt.labels))
		})
	}
}

func TestParseStyle(t *testing.T) {
	got, ok := ParseStyle(" Rustic ")
	assert.True(t, ok)
	assert.Equal(t, StyleRustic, got)

	_, ok = ParseStyle("fancy")
	assert.False(t, ok)
}

func TestDetectSet(t *testing.T) {
	tests := []struct {
		name    string
		labels  []VisionLabel
		objects []VisionObject
		want    bool
	}{
		{"pack of three", labels("Candle", "Pack of 3"), objects("Candle", "Candle", "Candle"), true},
		{"set keyword", labels("Set of candles"), nil, true},
		{"quantity phrase", labels("three candles"), nil, true},
		{"more than two candle objects", nil, objects("Candle", "Candle jar", "Cylinder"), true},
		{"quantity labels include filtered ones", labels("Ceramic 4", "2 pieces"), nil, true},
		{"a single quantity label", labels("3 wicks"), nil, false},
		{"plural with two candle objects", labels("Candles"), objects("Candle", "Candle"), true},
		{"plural but single candle", labels("Candles", "Single candle"), objects("Candle", "Candle"), false},
		{"plural with one object", labels("Candles"), objects("Candle"), false},
		{"single candle", labels("Candle"), objects("Candle"), false},
		{"no signals", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSet(tt.labels, tt.objects, RelevantText(tt.labels)))
		})
	}
}
