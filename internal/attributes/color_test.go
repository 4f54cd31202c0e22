package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample(r, g, b, score float64) VisionColorSample {
	return VisionColorSample{Color: RGB{Red: r, Green: g, Blue: b}, Score: score}
}

func TestClassifyColor_DefaultsToWhite(t *testing.T) {
	assert.Equal(t, "white", ClassifyColor(nil, ""))
	assert.Equal(t, "white", ClassifyColor([]VisionColorSample{}, ""))
}

func TestClassifyColor_TextPass(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"single family", "candle crimson wax", "red"},
		{"two families in dictionary order", "blue candle red candle", "red-blue"},
		{"truncated to three in dictionary order", "brown orange pink red white candles", "white-red-pink"},
		{"synonym", "lavender scented candle", "purple"},
		{"keyword inside a longer word", "reddish candle", "red"},
		{"both tinted words", "bluish reddish candle", "red-blue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyColor(nil, tt.text))
		})
	}
}

func TestClassifyColor_TextBeatsSamples(t *testing.T) {
	samples := []VisionColorSample{sample(200, 40, 40, 0.9)}
	assert.Equal(t, "blue", ClassifyColor(samples, "blue candle"))
}

func TestClassifySample(t *testing.T) {
	tests := []struct {
		name   string
		sample VisionColorSample
		want   string
	}{
		{"black", sample(20, 20, 20, 0.5), "black"},
		{"dark but low score", sample(20, 20, 20, 0.05), ""},
		{"red", sample(200, 40, 40, 0.5), "red"},
		{"blue", sample(30, 60, 200, 0.5), "blue"},
		{"green", sample(40, 180, 60, 0.5), "green"},
		{"yellow", sample(220, 200, 40, 0.5), "yellow"},
		{"pink", sample(200, 150, 185, 0.5), "pink"},
		{"purple", sample(150, 80, 160, 0.5), "purple"},
		{"brown", sample(110, 92, 40, 0.5), "brown"},
		{"warm white", sample(180, 160, 150, 0.5), "white"},
		{"cool grey is not white", sample(150, 160, 180, 0.5), ""},
		{"near white skipped", sample(240, 240, 235, 0.5), ""},
		{"desaturated background skipped", sample(210, 205, 200, 0.5), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySample(tt.sample))
		})
	}
}

func TestClassifyColor_VisualPass(t *testing.T) {
	t.Run("black sample", func(t *testing.T) {
		assert.Equal(t, "black", ClassifyColor([]VisionColorSample{sample(20, 20, 20, 0.5)}, ""))
	})

	t.Run("dedupes and stops at three", func(t *testing.T) {
		samples := []VisionColorSample{
			sample(200, 40, 40, 0.4),
			sample(190, 30, 35, 0.2),
			sample(30, 60, 200, 0.1),
			sample(40, 180, 60, 0.1),
			sample(220, 200, 40, 0.1),
		}
		assert.Equal(t, "red-blue-green", ClassifyColor(samples, "candle"))
	})

	t.Run("skips background before candle color", func(t *testing.T) {
		samples := []VisionColorSample{
			sample(245, 245, 245, 0.6),
			sample(210, 205, 200, 0.2),
			sample(30, 60, 200, 0.1),
		}
		assert.Equal(t, "blue", ClassifyColor(samples, ""))
	})

	t.Run("only first eight samples inspected", func(t *testing.T) {
		var samples []VisionColorSample
		for i := 0; i < 8; i++ {
			samples = append(samples, sample(250, 250, 250, 0.1))
		}
		samples = append(samples, sample(200, 40, 40, 0.1))
		assert.Equal(t, "white", ClassifyColor(samples, ""))
	})
}

func TestClassifyColor_BestSaturationFallback(t *testing.T) {
	// Bright and lightly tinted: skipped by every visual rule, picked up by the fallback.
	samples := []VisionColorSample{
		sample(230, 215, 200, 0.5),
		sample(250, 250, 250, 0.3),
	}
	assert.Equal(t, "red", ClassifyColor(samples, ""))

	blueish := []VisionColorSample{sample(200, 212, 230, 0.5)}
	assert.Equal(t, "blue", ClassifyColor(blueish, ""))
}

func TestClassifyColor_FallbackOnlyFirstThree(t *testing.T) {
	samples := []VisionColorSample{
		sample(250, 250, 250, 0.3),
		sample(250, 250, 250, 0.3),
		sample(250, 250, 250, 0.3),
		sample(230, 215, 200, 0.5),
	}
	assert.Equal(t, "white", ClassifyColor(samples, ""))
}

func TestSaturation(t *testing.T) {
	assert.Equal(t, 0.0, saturation(RGB{}))
	assert.InDelta(t, 0.8, saturation(RGB{Red: 200, Green: 40, Blue: 40}), 1e-9)
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Red", "red"},
		{"red, blue", "red-blue"},
		{"crimson-navy", "red-blue"},
		{"Gold / Ivory", "yellow-white"},
		{"red-blue-green-pink", "red-blue-green"},
		{"red red", "red"},
		{"sparkly", "white"},
		{"", "white"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColor(tt.in))
		})
	}
}
