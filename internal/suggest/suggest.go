package suggest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/raine/candle-listing-bot/internal/llm"
	"github.com/raine/candle-listing-bot/internal/vision"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// ErrNoProvider is returned when the requested pipeline has no configured backend.
var ErrNoProvider = errors.New("no provider configured for this mode")

// Mode selects which pipeline produces a suggestion.
type Mode string

const (
	ModeVision  Mode = "vision"
	ModeAI      Mode = "ai"
	ModeCompare Mode = "compare"
)

// Modes lists every mode.
var Modes = []Mode{ModeVision, ModeAI, ModeCompare}

// ParseMode parses a mode name. An empty string yields ModeVision.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeVision, nil
	}
	for _, m := range Modes {
		if s == string(m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want vision, ai or compare)", s)
}

// Pipeline sources, also used as analysis cache keys.
const (
	SourceVision = "vision"
	SourceAI     = "ai"
)

// Options control a single suggestion request.
type Options struct {
	Mode Mode
	// Language is the target language for title and description. Empty or
	// "en" keeps the English text.
	Language string
}

// Suggestion is one pipeline's proposal for the product form.
type Suggestion struct {
	Record  attributes.AttributeRecord
	Source  string
	Signals *attributes.Signals
	Usage   llm.Usage
	Cached  bool
	// Language is set when title and description were translated.
	Language string
}

// Cache stores pipeline inputs keyed by image fingerprint and source.
type Cache interface {
	GetAnalysisCache(imageHash, source string) ([]byte, error)
	SetAnalysisCache(imageHash, source string, payload []byte) error
}

// Config wires a Service. Any collaborator may be nil; requests that need a
// missing one fail with ErrNoProvider, and a nil Cache disables caching.
type Config struct {
	Engine     *attributes.Engine
	Vision     vision.Provider
	Analyzer   llm.CandleAnalyzer
	Translator llm.Translator
	Cache      Cache
}

// Service produces attribute suggestions for product photos.
type Service struct {
	engine     *attributes.Engine
	vision     vision.Provider
	analyzer   llm.CandleAnalyzer
	translator llm.Translator
	cache      Cache
}

// NewService creates a suggestion service.
func NewService(cfg Config) *Service {
	engine := cfg.Engine
	if engine == nil {
		engine = attributes.NewEngine()
	}
	return &Service{
		engine:     engine,
		vision:     cfg.Vision,
		analyzer:   cfg.Analyzer,
		translator: cfg.Translator,
		cache:      cfg.Cache,
	}
}

// Engine returns the attribute engine, for callers that rebuild records.
func (s *Service) Engine() *attributes.Engine {
	return s.engine
}

// HasMode reports whether the service can serve the mode.
func (s *Service) HasMode(m Mode) bool {
	switch m {
	case ModeVision:
		return s.vision != nil
	case ModeAI:
		return s.analyzer != nil
	case ModeCompare:
		return s.vision != nil && s.analyzer != nil
	}
	return false
}

// CanTranslate reports whether a translator is configured.
func (s *Service) CanTranslate() bool {
	return s.translator != nil
}

// Run dispatches by mode and always returns at least one suggestion on success.
func (s *Service) Run(ctx context.Context, image []byte, opts Options) ([]*Suggestion, error) {
	if opts.Mode == ModeCompare {
		return s.Compare(ctx, image, opts)
	}
	sug, err := s.Suggest(ctx, image, opts)
	if err != nil {
		return nil, err
	}
	return []*Suggestion{sug}, nil
}

// Suggest runs a single pipeline. ModeCompare is not accepted here; use Compare.
func (s *Service) Suggest(ctx context.Context, image []byte, opts Options) (*Suggestion, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", attributes.ErrInvalidInput)
	}

	var (
		sug *Suggestion
		err error
	)
	switch opts.Mode {
	case ModeVision, "":
		sug, err = s.suggestVision(ctx, image)
	case ModeAI:
		sug, err = s.suggestAI(ctx, image)
	default:
		return nil, fmt.Errorf("suggest: unsupported mode %q", opts.Mode)
	}
	if err != nil {
		return nil, err
	}

	s.translate(ctx, sug, opts.Language)
	return sug, nil
}

// Compare runs the vision and AI pipelines concurrently. A pipeline that
// fails is logged and left out; the call fails only if both fail.
func (s *Service) Compare(ctx context.Context, image []byte, opts Options) ([]*Suggestion, error) {
	modes := []Mode{ModeVision, ModeAI}
	results := make([]*Suggestion, len(modes))
	errs := make([]error, len(modes))

	var g errgroup.Group
	for i, m := range modes {
		g.Go(func() error {
			o := opts
			o.Mode = m
			results[i], errs[i] = s.Suggest(ctx, image, o)
			if errs[i] != nil {
				log.Warn().Err(errs[i]).Str("mode", string(m)).Msg("compare: pipeline failed")
			}
			return nil
		})
	}
	g.Wait()

	var out []*Suggestion
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("compare: %w", errors.Join(errs...))
	}
	return out, nil
}

func (s *Service) suggestVision(ctx context.Context, image []byte) (*Suggestion, error) {
	if s.vision == nil {
		return nil, fmt.Errorf("vision: %w", ErrNoProvider)
	}

	hash := hashImage(image)
	sug := &Suggestion{Source: SourceVision}

	var signals attributes.Signals
	if s.loadCached(hash, SourceVision, &signals) {
		sug.Cached = true
	} else {
		fresh, err := s.vision.Analyze(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("vision analysis failed: %w", err)
		}
		signals = *fresh
		s.storeCached(hash, SourceVision, signals)
	}

	rec, err := s.engine.Infer(signals)
	if err != nil {
		return nil, fmt.Errorf("attribute inference failed: %w", err)
	}

	log.Debug().
		Str("hash", hash[:16]).
		Bool("cached", sug.Cached).
		Str("type", string(rec.Type)).
		Str("color", rec.Color).
		Str("style", string(rec.Style)).
		Bool("isSet", rec.IsSet).
		Msg("vision suggestion")

	sug.Record = rec
	sug.Signals = &signals
	return sug, nil
}

func (s *Service) suggestAI(ctx context.Context, image []byte) (*Suggestion, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("ai: %w", ErrNoProvider)
	}

	hash := hashImage(image)
	sug := &Suggestion{Source: SourceAI}

	var analysis llm.CandleAnalysis
	if s.loadCached(hash, SourceAI, &analysis) {
		sug.Cached = true
	} else {
		res, err := s.analyzer.AnalyzeCandle(ctx, [][]byte{image})
		if err != nil {
			return nil, fmt.Errorf("ai analysis failed: %w", err)
		}
		analysis = *res.Analysis
		sug.Usage = res.Usage
		s.storeCached(hash, SourceAI, analysis)
	}

	rec := s.engine.Record(analysis.Classification, nil)
	if analysis.Description != "" {
		rec = rec.WithDescription(analysis.Description)
	}

	log.Debug().
		Str("hash", hash[:16]).
		Bool("cached", sug.Cached).
		Str("type", string(rec.Type)).
		Str("color", rec.Color).
		Msg("ai suggestion")

	sug.Record = rec
	return sug, nil
}

// translate replaces title and description in place. Failures keep the
// English text.
func (s *Service) translate(ctx context.Context, sug *Suggestion, lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || lang == "en" || s.translator == nil {
		return
	}

	res, err := s.translator.TranslateListing(ctx, sug.Record.Title, sug.Record.Description, lang)
	if err != nil {
		log.Warn().Err(err).Str("lang", lang).Str("source", sug.Source).Msg("translation failed, keeping english")
		return
	}

	sug.Record = sug.Record.WithTitle(res.Translation.Title)
	if res.Translation.Description != "" {
		sug.Record = sug.Record.WithDescription(res.Translation.Description)
	}
	sug.Usage = sug.Usage.Add(res.Usage)
	sug.Language = lang
}

func (s *Service) loadCached(hash, source string, v any) bool {
	if s.cache == nil {
		return false
	}
	payload, err := s.cache.GetAnalysisCache(hash, source)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("failed to check analysis cache")
		return false
	}
	if payload == nil {
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("ignoring unreadable analysis cache entry")
		return false
	}
	log.Debug().Str("hash", hash[:16]).Str("source", source).Msg("analysis cache hit")
	return true
}

func (s *Service) storeCached(hash, source string, v any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode analysis for cache")
		return
	}
	if err := s.cache.SetAnalysisCache(hash, source, payload); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("failed to cache analysis")
	}
}

// hashImage fingerprints image bytes for the analysis cache.
func hashImage(image []byte) string {
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:])
}
