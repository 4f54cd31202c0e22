package attributes

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Price tiers. These are house prices, not derived from market data.
const (
	SinglePrice = 45.00
	SetPrice    = 120.00
)

const maxDescriptionLabels = 3

// descriptionWords mark labels worth quoting in a description.
var descriptionWords = []string{
	"candle", "wax", "light", "decorative", "beautiful", "elegant",
	"white", "colored", "fragrant", "scented", "aromatic",
}

// SKUSequence hands out millisecond timestamps that strictly increase, even
// when called several times within the same millisecond. Safe for concurrent use.
type SKUSequence struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewSKUSequence returns a sequence driven by the wall clock.
func NewSKUSequence() *SKUSequence {
	return &SKUSequence{now: time.Now}
}

// Next returns the next unique timestamp in milliseconds.
func (s *SKUSequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}

// Engine turns vision signals into attribute records. The classifiers it
// runs are pure; only SKU generation depends on the clock.
type Engine struct {
	skus *SKUSequence
}

// NewEngine creates an engine with a wall-clock SKU sequence.
func NewEngine() *Engine {
	return &Engine{skus: NewSKUSequence()}
}

// NewEngineWithClock creates an engine whose SKUs are derived from now.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{skus: &SKUSequence{now: now}}
}

// Classify runs the four classifiers. The signals must already be valid.
func Classify(s Signals) Classification {
	text := RelevantText(s.Labels)
	return Classification{
		Type:  ClassifyType(s.Objects, text),
		Color: ClassifyColor(s.Colors, text),
		Style: ClassifyStyle(s.Labels),
		IsSet: DetectSet(s.Labels, s.Objects, text),
	}
}

// Infer validates the signals and builds a complete attribute record.
func (e *Engine) Infer(s Signals) (AttributeRecord, error) {
	if err := s.Validate(); err != nil {
		return AttributeRecord{}, err
	}
	return e.Record(Classify(s), FilterRelevant(s.Labels)), nil
}

// Record derives the display fields, SKU and price for a classification.
// labels are the relevance-filtered labels used for the description; they
// may be empty.
func (e *Engine) Record(c Classification, labels []VisionLabel) AttributeRecord {
	price := SinglePrice
	if c.IsSet {
		price = SetPrice
	}
	return AttributeRecord{
		Type:        c.Type,
		Color:       c.Color,
		Style:       c.Style,
		IsSet:       c.IsSet,
		Title:       Title(c),
		Description: Description(c, labels),
		SKU:         e.sku(c),
		Price:       price,
	}
}

func (e *Engine) sku(c Classification) string {
	ts := e.skus.Next()
	return fmt.Sprintf("CND-%s-%s-%04d",
		strings.ToUpper(string(c.Type)),
		strings.ToUpper(c.Color),
		ts%10000)
}

// Title builds a title such as "set red-blue pillar candles".
func Title(c Classification) string {
	var parts []string
	if c.IsSet {
		parts = append(parts, "set")
	}
	parts = append(parts, c.Color, string(c.Type))
	if c.IsSet {
		parts = append(parts, "candles")
	} else {
		parts = append(parts, "candle")
	}
	return strings.Join(parts, " ")
}

// Description quotes up to three candle-related labels, or falls back to a
// sentence built from the classification.
func Description(c Classification, labels []VisionLabel) string {
	words := append(append([]string{}, descriptionWords...), strings.Split(c.Color, "-")...)

	var quoted []string
	for _, l := range labels {
		if containsAny(strings.ToLower(l.Description), words...) {
			quoted = append(quoted, l.Description)
			if len(quoted) == maxDescriptionLabels {
				break
			}
		}
	}
	if len(quoted) > 0 {
		return "candle with: " + strings.Join(quoted, ", ")
	}

	noun := "candle"
	if c.IsSet {
		noun = "candles"
	}
	return fmt.Sprintf("Hand-poured %s %s %s in a %s style.", c.Color, c.Type, noun, c.Style)
}
