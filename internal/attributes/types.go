package attributes

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when vision signals fail boundary validation.
var ErrInvalidInput = errors.New("invalid input")

// VisionLabel is a free-text tag attached to the whole image.
type VisionLabel struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// VisionObject is a detected physical object.
type VisionObject struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// RGB holds color channels in the range [0,255].
type RGB struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// VisionColorSample is a dominant color swatch.
type VisionColorSample struct {
	Color RGB     `json:"color"`
	Score float64 `json:"score"`
}

// Signals bundles everything the image-analysis service returns for one image.
// Colors are ordered from most to least dominant.
type Signals struct {
	Labels  []VisionLabel       `json:"labels"`
	Objects []VisionObject      `json:"objects"`
	Colors  []VisionColorSample `json:"colors"`
}

// Validate checks scores and channel ranges. Empty or nil slices are valid.
func (s Signals) Validate() error {
	for i, l := range s.Labels {
		if !inRange(l.Score, 0, 1) {
			return fmt.Errorf("%w: label %d (%q) score %v outside [0,1]", ErrInvalidInput, i, l.Description, l.Score)
		}
	}
	for i, o := range s.Objects {
		if !inRange(o.Score, 0, 1) {
			return fmt.Errorf("%w: object %d (%q) score %v outside [0,1]", ErrInvalidInput, i, o.Name, o.Score)
		}
	}
	for i, c := range s.Colors {
		if !inRange(c.Score, 0, 1) {
			return fmt.Errorf("%w: color %d score %v outside [0,1]", ErrInvalidInput, i, c.Score)
		}
		if !inRange(c.Color.Red, 0, 255) || !inRange(c.Color.Green, 0, 255) || !inRange(c.Color.Blue, 0, 255) {
			return fmt.Errorf("%w: color %d channels (%v,%v,%v) outside [0,255]",
				ErrInvalidInput, i, c.Color.Red, c.Color.Green, c.Color.Blue)
		}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	// NaN fails both comparisons
	return v >= lo && v <= hi
}

// CandleType is the form factor of a candle.
type CandleType string

const (
	TypeJar      CandleType = "jar"
	TypePillar   CandleType = "pillar"
	TypeTaper    CandleType = "taper"
	TypeTeaLight CandleType = "tea light"
	TypeVotive   CandleType = "votive"
	TypeBirthday CandleType = "birthday"
	TypeFloating CandleType = "floating"
	TypeNovelty  CandleType = "novelty"
)

// CandleTypes lists every candle type in declaration order.
var CandleTypes = []CandleType{
	TypeJar, TypePillar, TypeTaper, TypeTeaLight,
	TypeVotive, TypeBirthday, TypeFloating, TypeNovelty,
}

// Style is the decorative style of a candle.
type Style string

const (
	StyleScented    Style = "scented"
	StyleDecorative Style = "decorative"
	StyleRustic     Style = "rustic"
	StyleElegant    Style = "elegant"
	StyleSeasonal   Style = "seasonal"
)

// Styles lists every style in declaration order.
var Styles = []Style{StyleScented, StyleDecorative, StyleRustic, StyleElegant, StyleSeasonal}

// Color names produced by the color classifier.
const (
	ColorWhite  = "white"
	ColorRed    = "red"
	ColorBlue   = "blue"
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorBlack  = "black"
	ColorPink   = "pink"
	ColorPurple = "purple"
	ColorOrange = "orange"
	ColorBrown  = "brown"
)

// Colors lists every color name in dictionary order.
var Colors = []string{
	ColorWhite, ColorRed, ColorBlue, ColorGreen, ColorYellow,
	ColorBlack, ColorPink, ColorPurple, ColorOrange, ColorBrown,
}

// maxColors is how many color names a combined color may hold.
const maxColors = 3

// Classification is the raw output of the four classifiers.
type Classification struct {
	Type  CandleType `json:"type"`
	Color string     `json:"color"`
	Style Style      `json:"style"`
	IsSet bool       `json:"isSet"`
}

// AttributeRecord is the suggested product listing for one analyzed image.
// It is a value: corrections return a new record.
type AttributeRecord struct {
	Type        CandleType `json:"type"`
	Color       string     `json:"color"`
	Style       Style      `json:"style"`
	IsSet       bool       `json:"isSet"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	SKU         string     `json:"sku"`
	Price       float64    `json:"price"`
}

// Classification returns the classifier fields of the record.
func (r AttributeRecord) Classification() Classification {
	return Classification{Type: r.Type, Color: r.Color, Style: r.Style, IsSet: r.IsSet}
}

// WithTitle returns a copy of the record with the given title.
func (r AttributeRecord) WithTitle(title string) AttributeRecord {
	r.Title = title
	return r
}

// WithDescription returns a copy with the given description.
func (r AttributeRecord) WithDescription(description string) AttributeRecord {
	r.Description = description
	return r
}

// WithPrice returns a copy with the given price.
func (r AttributeRecord) WithPrice(price float64) AttributeRecord {
	r.Price = price
	return r
}

// WithColor returns a copy with the given color. Title and SKU are not
// rebuilt; pass the result through Engine.Record for that.
func (r AttributeRecord) WithColor(color string) AttributeRecord {
	r.Color = color
	return r
}

// WithType returns a copy with the given candle type.
func (r AttributeRecord) WithType(t CandleType) AttributeRecord {
	r.Type = t
	return r
}

// WithStyle returns a copy with the given style.
func (r AttributeRecord) WithStyle(s Style) AttributeRecord {
	r.Style = s
	return r
}
