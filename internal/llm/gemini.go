package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	geminiModel     = "gemini-3-flash-preview"
	geminiLiteModel = "gemini-2.5-flash-lite"
)

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion      = 0.50
	geminiOutputPricePerMillion     = 3.00
	geminiLiteInputPricePerMillion  = 0.075
	geminiLiteOutputPricePerMillion = 0.30
)

// maxImages is Telegram's album limit.
const maxImages = 10

const candlePrompt = `You are helping a small candle shop list products in its online store.

Look at the photo(s) of a candle product and classify it:
- type: the candle form factor
- color: one to three wax color names joined by "-" (most prominent first), using only: %s
- style: the overall decorative style
- isSet: true if the product is sold as several candles together
- description: one or two sentences for the product page, in English, describing the wax, color and look. Do not invent a scent or a brand.

Ignore the background, holders, plates and other props; only the candle itself matters.`

const translatePrompt = `Translate this candle product listing into %s for an online store.

Title: %s
Description: %s

Keep it natural for shoppers. Do not add information. Keep color and size words accurate.`

var languageNames = map[string]string{
	"he": "Hebrew",
	"en": "English",
	"ar": "Arabic",
	"ru": "Russian",
	"fi": "Finnish",
}

// LanguageName returns the English name of a language code, or the code itself.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// GeminiAnalyzer uses Google's Gemini API for candle classification and translation.
type GeminiAnalyzer struct {
	client *genai.Client
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	return newGeminiAnalyzer(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newGeminiAnalyzer(ctx context.Context, cfg *genai.ClientConfig) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

// buildCandleSchema constrains the response to the engine's enumerations.
func buildCandleSchema() *genai.Schema {
	types := make([]string, len(attributes.CandleTypes))
	for i, t := range attributes.CandleTypes {
		types[i] = string(t)
	}
	styles := make([]string, len(attributes.Styles))
	for i, s := range attributes.Styles {
		styles[i] = string(s)
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":        {Type: genai.TypeString, Enum: types},
			"color":       {Type: genai.TypeString, Description: "One to three color names joined by '-'"},
			"style":       {Type: genai.TypeString, Enum: styles},
			"isSet":       {Type: genai.TypeBoolean},
			"description": {Type: genai.TypeString},
		},
		Required:         []string{"type", "color", "style", "isSet", "description"},
		PropertyOrdering: []string{"type", "color", "style", "isSet", "description"},
	}
}

func buildTranslationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
		},
		Required:         []string{"title", "description"},
		PropertyOrdering: []string{"title", "description"},
	}
}

// AnalyzeCandle implements CandleAnalyzer.
func (g *GeminiAnalyzer) AnalyzeCandle(ctx context.Context, images [][]byte) (*AnalysisResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	if len(images) > maxImages {
		images = images[:maxImages]
	}

	prompt := fmt.Sprintf(candlePrompt, strings.Join(attributes.Colors, ", "))
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img, MIMEType: http.DetectContentType(img)},
		})
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   buildCandleSchema(),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	text := result.Text()
	log.Debug().Str("response", text).Msg("candle analysis llm output")

	analysis, err := parseCandleAnalysis(text)
	if err != nil {
		return nil, err
	}

	usage := usageFrom(result.UsageMetadata, geminiInputPricePerMillion, geminiOutputPricePerMillion)

	log.Info().
		Str("model", geminiModel).
		Int("imageCount", len(images)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Str("type", string(analysis.Classification.Type)).
		Str("color", analysis.Classification.Color).
		Msg("candle analysis llm call")

	return &AnalysisResult{Analysis: analysis, Usage: usage}, nil
}

// TranslateListing implements Translator using Gemini Lite.
func (g *GeminiAnalyzer) TranslateListing(ctx context.Context, title, description, lang string) (*TranslationResult, error) {
	if lang == "" {
		return nil, fmt.Errorf("no target language")
	}

	prompt := fmt.Sprintf(translatePrompt, LanguageName(lang), title, description)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   buildTranslationSchema(),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiLiteModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, config)
	if err != nil {
		return nil, fmt.Errorf("gemini translation failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	jsonStr, err := extractJSONObject(result.Text())
	if err != nil {
		return nil, err
	}

	var tr Translation
	if err := json.Unmarshal([]byte(jsonStr), &tr); err != nil {
		return nil, fmt.Errorf("failed to parse translation json: %w (response: %s)", err, jsonStr)
	}
	if strings.TrimSpace(tr.Title) == "" {
		return nil, fmt.Errorf("translation has no title (response: %s)", jsonStr)
	}

	usage := usageFrom(result.UsageMetadata, geminiLiteInputPricePerMillion, geminiLiteOutputPricePerMillion)

	log.Info().
		Str("model", geminiLiteModel).
		Str("lang", lang).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("translation llm call")

	return &TranslationResult{Translation: &tr, Usage: usage}, nil
}

func usageFrom(md *genai.GenerateContentResponseUsageMetadata, inputPrice, outputPrice float64) Usage {
	if md == nil {
		return Usage{}
	}
	u := Usage{
		InputTokens:  int64(md.PromptTokenCount),
		OutputTokens: int64(md.CandidatesTokenCount),
		TotalTokens:  int64(md.TotalTokenCount),
	}
	u.CostUSD = calculateGeminiCost(u.InputTokens, u.OutputTokens, inputPrice, outputPrice)
	return u
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

type candleResponse struct {
	Type        string `json:"type"`
	Color       string `json:"color"`
	Style       string `json:"style"`
	IsSet       bool   `json:"isSet"`
	Description string `json:"description"`
}

// parseCandleAnalysis maps the model's answer onto the engine's enumerations.
// Values outside them fall back to the engine defaults.
func parseCandleAnalysis(text string) (*CandleAnalysis, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var resp candleResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	t, ok := attributes.ParseCandleType(resp.Type)
	if !ok {
		log.Warn().Str("type", resp.Type).Msg("llm returned unknown candle type, using default")
		t = attributes.TypeJar
	}
	style, ok := attributes.ParseStyle(resp.Style)
	if !ok {
		log.Warn().Str("style", resp.Style).Msg("llm returned unknown style, using default")
		style = attributes.StyleDecorative
	}

	return &CandleAnalysis{
		Classification: attributes.Classification{
			Type:  t,
			Color: attributes.NormalizeColor(resp.Color),
			Style: style,
			IsSet: resp.IsSet,
		},
		Description: strings.TrimSpace(resp.Description),
	}, nil
}
