package attributes

import "strings"

// typeInput is what the type rules look at.
type typeInput struct {
	objects []VisionObject
	text    string
}

// typeRule is one step of the type fallback chain. Rules are evaluated in
// slice order and the first match wins.
type typeRule struct {
	name   string
	match  func(in typeInput) bool
	result CandleType
}

var (
	jarObjectWords      = []string{"jar", "container", "vessel", "tumbler", "glass"}
	cylinderObjectWords = []string{"cylinder", "tube", "column"}
	slimObjectWords     = []string{"thin", "slim"}

	jarWords      = []string{"jar", "container", "glass", "tumbler", "vessel"}
	taperWords    = []string{"taper", "thin", "tall", "stick", "dinner candle", "slim", "long"}
	teaLightWords = []string{"tea light", "tealight", "small", "mini", "tiny"}
	votiveWords   = []string{"votive", "prayer candle", "memorial candle"}
	pillarWords   = []string{"pillar", "thick", "wide", "chunky", "round"}
	birthdayWords = []string{"birthday", "party"}
	floatingWords = []string{"floating", "water"}
	noveltyWords  = []string{"shaped", "figure", "figurine", "animal", "flower", "heart"}
)

func textRule(name string, result CandleType, words ...string) typeRule {
	return typeRule{
		name:   name,
		result: result,
		match:  func(in typeInput) bool { return containsAny(in.text, words...) },
	}
}

func multipleObjects(in typeInput) bool {
	return len(in.objects) > 1
}

// typeRules is the complete fallback chain after the object scan.
var typeRules = []typeRule{
	textRule("text:jar", TypeJar, jarWords...),
	textRule("text:taper", TypeTaper, taperWords...),
	textRule("text:tea light", TypeTeaLight, teaLightWords...),
	textRule("text:votive", TypeVotive, votiveWords...),
	textRule("text:pillar", TypePillar, pillarWords...),
	textRule("text:birthday", TypeBirthday, birthdayWords...),
	textRule("text:floating", TypeFloating, floatingWords...),
	textRule("text:novelty", TypeNovelty, noveltyWords...),
	{
		name:   "objects:small",
		result: TypeTeaLight,
		match: func(in typeInput) bool {
			return multipleObjects(in) && containsAny(in.text, "small", "mini")
		},
	},
	{
		name:   "objects:tall",
		result: TypeTaper,
		match: func(in typeInput) bool {
			return multipleObjects(in) && containsAny(in.text, "thin", "tall")
		},
	},
	{name: "objects:other", result: TypePillar, match: multipleObjects},
	textRule("context:decor", TypeJar, "decorative", "luxury", "home", "elegant"),
	textRule("context:lighting", TypePillar, "lighting", "ambiance", "mood"),
}

// ClassifyType infers the candle form factor from detected objects first and
// the label text second. Defaults to "jar".
func ClassifyType(objects []VisionObject, relevantText string) CandleType {
	if t, ok := typeFromObjects(objects); ok {
		return t
	}

	in := typeInput{objects: objects, text: relevantText}
	for _, r := range typeRules {
		if r.match(in) {
			return r.result
		}
	}
	return TypeJar
}

// typeFromObjects stops at the first object whose name reveals a shape.
func typeFromObjects(objects []VisionObject) (CandleType, bool) {
	for _, o := range objects {
		name := strings.ToLower(o.Name)
		if containsAny(name, jarObjectWords...) {
			return TypeJar, true
		}
		if containsAny(name, cylinderObjectWords...) {
			if containsAny(name, slimObjectWords...) {
				return TypeTaper, true
			}
			return TypePillar, true
		}
	}
	return "", false
}

// ParseCandleType maps free text onto a candle type.
func ParseCandleType(s string) (CandleType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(strings.TrimSuffix(s, " candles"), " candle")
	if s == "tealight" || s == "tea-light" {
		s = string(TypeTeaLight)
	}
	for _, t := range CandleTypes {
		if s == string(t) {
			return t, true
		}
	}
	return "", false
}
