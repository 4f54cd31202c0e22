package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/raine/candle-listing-bot/internal/llm"
	"github.com/raine/candle-listing-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVision struct {
	mu      sync.Mutex
	calls   int
	signals *attributes.Signals
	err     error
}

func (f *fakeVision) Analyze(ctx context.Context, image []byte) (*attributes.Signals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := *f.signals
	return &s, nil
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result *llm.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) AnalyzeCandle(ctx context.Context, images [][]byte) (*llm.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeTranslator struct {
	err  error
	lang string
}

func (f *fakeTranslator) TranslateListing(ctx context.Context, title, description, lang string) (*llm.TranslationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lang = lang
	return &llm.TranslationResult{
		Translation: &llm.Translation{Title: "[" + lang + "] " + title, Description: "[" + lang + "] " + description},
		Usage:       llm.Usage{TotalTokens: 10, CostUSD: 0.001},
	}, nil
}

func redPillarSignals() *attributes.Signals {
	return &attributes.Signals{
		Labels:  []attributes.VisionLabel{{Description: "Candle", Score: 0.9}, {Description: "Red", Score: 0.8}},
		Objects: []attributes.VisionObject{{Name: "Cylinder", Score: 0.7}},
	}
}

func aiResult() *llm.AnalysisResult {
	return &llm.AnalysisResult{
		Analysis: &llm.CandleAnalysis{
			Classification: attributes.Classification{
				Type:  attributes.TypeTaper,
				Color: "yellow",
				Style: attributes.StyleElegant,
				IsSet: true,
			},
			Description: "A pair of gold tapers.",
		},
		Usage: llm.Usage{TotalTokens: 1200, CostUSD: 0.0011},
	}
}

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg.Cache = store
	cfg.Engine = attributes.NewEngineWithClock(func() time.Time { return time.UnixMilli(1700000001234) })
	return NewService(cfg)
}

func TestParseMode(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Mode
	}{
		{"", ModeVision},
		{"vision", ModeVision},
		{" AI ", ModeAI},
		{"compare", ModeCompare},
	} {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseMode("magic")
	assert.Error(t, err)
}

func TestSuggest_Vision(t *testing.T) {
	v := &fakeVision{signals: redPillarSignals()}
	svc := newTestService(t, Config{Vision: v})

	sug, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision})
	require.NoError(t, err)

	assert.Equal(t, SourceVision, sug.Source)
	assert.False(t, sug.Cached)
	assert.Equal(t, attributes.TypePillar, sug.Record.Type)
	assert.Equal(t, "red", sug.Record.Color)
	assert.Equal(t, "red pillar candle", sug.Record.Title)
	assert.Equal(t, "CND-PILLAR-RED-1234", sug.Record.SKU)
	assert.Equal(t, redPillarSignals(), sug.Signals)
}

func TestSuggest_VisionCachedSignals(t *testing.T) {
	v := &fakeVision{signals: redPillarSignals()}
	svc := newTestService(t, Config{Vision: v})

	first, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision})
	require.NoError(t, err)
	second, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision})
	require.NoError(t, err)

	assert.Equal(t, 1, v.calls)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Record.Classification(), second.Record.Classification())
	assert.NotEqual(t, first.Record.SKU, second.Record.SKU, "records are rebuilt with a fresh SKU")

	_, err = svc.Suggest(context.Background(), []byte("other image"), Options{Mode: ModeVision})
	require.NoError(t, err)
	assert.Equal(t, 2, v.calls)
}

func TestSuggest_AI(t *testing.T) {
	a := &fakeAnalyzer{result: aiResult()}
	svc := newTestService(t, Config{Analyzer: a})

	sug, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeAI})
	require.NoError(t, err)

	assert.Equal(t, SourceAI, sug.Source)
	assert.Nil(t, sug.Signals)
	assert.Equal(t, "set yellow taper candles", sug.Record.Title)
	assert.Equal(t, "A pair of gold tapers.", sug.Record.Description)
	assert.Equal(t, attributes.SetPrice, sug.Record.Price)
	assert.Equal(t, "CND-TAPER-YELLOW-1234", sug.Record.SKU)
	assert.Equal(t, int64(1200), sug.Usage.TotalTokens)

	cached, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeAI})
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, llm.Usage{}, cached.Usage)
	assert.Equal(t, 1, a.calls)
}

func TestSuggest_NoProvider(t *testing.T) {
	svc := newTestService(t, Config{})

	_, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision})
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeAI})
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = svc.Run(context.Background(), []byte("image"), Options{Mode: ModeCompare})
	assert.ErrorIs(t, err, ErrNoProvider)

	assert.False(t, svc.HasMode(ModeVision))
}

func TestSuggest_EmptyImage(t *testing.T) {
	svc := newTestService(t, Config{Vision: &fakeVision{signals: redPillarSignals()}})

	_, err := svc.Suggest(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, attributes.ErrInvalidInput)
}

func TestSuggest_VisionError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := newTestService(t, Config{Vision: &fakeVision{err: boom}})

	_, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision})
	assert.ErrorIs(t, err, boom)
}

func TestSuggest_Translation(t *testing.T) {
	tr := &fakeTranslator{}
	svc := newTestService(t, Config{Vision: &fakeVision{signals: redPillarSignals()}, Translator: tr})

	sug, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision, Language: "he"})
	require.NoError(t, err)
	assert.Equal(t, "he", tr.lang)
	assert.Equal(t, "he", sug.Language)
	assert.Equal(t, "[he] red pillar candle", sug.Record.Title)
	assert.Equal(t, "CND-PILLAR-RED-1234", sug.Record.SKU)
	assert.Equal(t, int64(10), sug.Usage.TotalTokens)

	english, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "", english.Language)
	assert.Equal(t, "red pillar candle", english.Record.Title)
}

func TestSuggest_TranslationFailureKeepsEnglish(t *testing.T) {
	svc := newTestService(t, Config{
		Vision:     &fakeVision{signals: redPillarSignals()},
		Translator: &fakeTranslator{err: errors.New("unavailable")},
	})

	sug, err := svc.Suggest(context.Background(), []byte("image"), Options{Mode: ModeVision, Language: "he"})
	require.NoError(t, err)
	assert.Equal(t, "red pillar candle", sug.Record.Title)
	assert.Empty(t, sug.Language)
}

func TestCompare(t *testing.T) {
	t.Run("both pipelines", func(t *testing.T) {
		svc := newTestService(t, Config{
			Vision:   &fakeVision{signals: redPillarSignals()},
			Analyzer: &fakeAnalyzer{result: aiResult()},
		})

		out, err := svc.Run(context.Background(), []byte("image"), Options{Mode: ModeCompare})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, SourceVision, out[0].Source)
		assert.Equal(t, SourceAI, out[1].Source)
		assert.NotEqual(t, out[0].Record.SKU, out[1].Record.SKU)
	})

	t.Run("one pipeline fails", func(t *testing.T) {
		svc := newTestService(t, Config{
			Vision:   &fakeVision{err: errors.New("down")},
			Analyzer: &fakeAnalyzer{result: aiResult()},
		})

		out, err := svc.Compare(context.Background(), []byte("image"), Options{})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, SourceAI, out[0].Source)
	})

	t.Run("both fail", func(t *testing.T) {
		svc := newTestService(t, Config{
			Vision:   &fakeVision{err: errors.New("down")},
			Analyzer: &fakeAnalyzer{err: errors.New("also down")},
		})

		_, err := svc.Compare(context.Background(), []byte("image"), Options{})
		assert.Error(t, err)
	})
}

func TestHashImage(t *testing.T) {
	a := hashImage([]byte("a"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, hashImage([]byte("a")))
	assert.NotEqual(t, a, hashImage([]byte("b")))
}
