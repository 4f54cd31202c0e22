package llm

import (
	"context"

	"github.com/raine/candle-listing-bot/internal/attributes"
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}

// CandleAnalysis is what the model reports about a candle photo, already
// normalized onto the engine's enumerations.
type CandleAnalysis struct {
	Classification attributes.Classification `json:"classification"`
	Description    string                    `json:"description"`
}

// AnalysisResult contains the analysis and usage information.
type AnalysisResult struct {
	Analysis *CandleAnalysis
	Usage    Usage
}

// Translation holds translated display fields.
type Translation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TranslationResult contains the translation and usage information.
type TranslationResult struct {
	Translation *Translation
	Usage       Usage
}

// CandleAnalyzer classifies candle photos with a multimodal model.
type CandleAnalyzer interface {
	// AnalyzeCandle analyzes one or more photos of the same product.
	AnalyzeCandle(ctx context.Context, images [][]byte) (*AnalysisResult, error)
}

// Translator translates listing text for the storefront.
type Translator interface {
	TranslateListing(ctx context.Context, title, description, lang string) (*TranslationResult, error)
}
