package attributes

import (
	"regexp"
	"strings"
)

var (
	setKeywords = []string{
		"set of", "collection", "pack of", "bundle", "trio", "pair of",
		"assortment", "gift set", "multipack", "variety pack",
	}

	quantityWords = []string{
		"two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
		"twelve", "dozen", "several", "multiple", "many",
	}

	spelledNumbers = []string{"two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

	candleObjectWords = []string{"candle", "cylinder", "tube", "jar", "container"}

	digitsPattern = regexp.MustCompile(`\d+`)
)

// quantityPhrases are "<quantity> candles" phrases such as "three candles".
var quantityPhrases = func() []string {
	phrases := make([]string, len(quantityWords))
	for i, w := range quantityWords {
		phrases[i] = w + " candles"
	}
	return phrases
}()

// DetectSet decides whether the image shows more than one candle.
//
// Label quantity hints are counted over all labels, including ones the
// relevance filter drops; the other checks use the filtered text.
func DetectSet(labels []VisionLabel, objects []VisionObject, relevantText string) bool {
	if containsAny(relevantText, setKeywords...) {
		return true
	}
	if containsAny(relevantText, quantityPhrases...) {
		return true
	}

	candleObjects := countCandleObjects(objects)
	if candleObjects > 2 {
		return true
	}

	if countQuantityLabels(labels) > 1 {
		return true
	}

	if strings.Contains(relevantText, "candles") &&
		!strings.Contains(relevantText, "single candle") &&
		!strings.Contains(relevantText, "one candle") &&
		candleObjects > 1 {
		return true
	}

	return false
}

func countCandleObjects(objects []VisionObject) int {
	n := 0
	for _, o := range objects {
		if containsAny(strings.ToLower(o.Name), candleObjectWords...) {
			n++
		}
	}
	return n
}

func countQuantityLabels(labels []VisionLabel) int {
	n := 0
	for _, l := range labels {
		desc := strings.ToLower(l.Description)
		switch {
		case containsAny(desc, setKeywords...),
			containsAny(desc, quantityPhrases...),
			containsAny(desc, "multiple", "several", "many"),
			containsAny(desc, spelledNumbers...),
			digitsPattern.MatchString(desc):
			n++
		}
	}
	return n
}
