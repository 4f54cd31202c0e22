package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gvision "google.golang.org/api/vision/v1"
)

const annotateResponse = `{
  "responses": [{
    "labelAnnotations": [
      {"description": "Candle", "score": 0.97},
      {"description": "Wax", "score": 0.88}
    ],
    "localizedObjectAnnotations": [
      {"name": "Candle", "score": 0.91}
    ],
    "imagePropertiesAnnotation": {
      "dominantColors": {
        "colors": [
          {"color": {"red": 245, "green": 245, "blue": 240}, "score": 0.5, "pixelFraction": 0.4},
          {"color": {"red": 200, "green": 40, "blue": 40}, "score": 0.3, "pixelFraction": 0.2}
        ]
      }
    }
  }]
}`

func newTestVision(t *testing.T, handler http.HandlerFunc) *GoogleVision {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	g, err := NewGoogleVision(context.Background(), "test-key", option.WithEndpoint(ts.URL+"/"))
	require.NoError(t, err)
	return g
}

func TestGoogleVisionAnalyze(t *testing.T) {
	image := []byte("fake-jpeg-bytes")

	g := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req gvision.BatchAnnotateImagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if !assert.Len(t, req.Requests, 1) {
			return
		}
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), req.Requests[0].Image.Content)

		var features []string
		for _, f := range req.Requests[0].Features {
			features = append(features, f.Type)
		}
		assert.Equal(t, []string{"LABEL_DETECTION", "OBJECT_LOCALIZATION", "IMAGE_PROPERTIES"}, features)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(annotateResponse))
	})

	signals, err := g.Analyze(context.Background(), image)
	require.NoError(t, err)

	assert.Equal(t, &attributes.Signals{
		Labels: []attributes.VisionLabel{
			{Description: "Candle", Score: 0.97},
			{Description: "Wax", Score: 0.88},
		},
		Objects: []attributes.VisionObject{
			{Name: "Candle", Score: 0.91},
		},
		Colors: []attributes.VisionColorSample{
			{Color: attributes.RGB{Red: 245, Green: 245, Blue: 240}, Score: 0.5},
			{Color: attributes.RGB{Red: 200, Green: 40, Blue: 40}, Score: 0.3},
		},
	}, signals)
}

func TestGoogleVisionAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"empty response list", http.StatusOK, `{"responses": []}`, ErrNoAnnotations},
		{"no annotations", http.StatusOK, `{"responses": [{}]}`, ErrNoAnnotations},
		{"score out of range", http.StatusOK, `{"responses": [{"labelAnnotations": [{"description": "Candle", "score": 1.7}]}]}`, attributes.ErrInvalidInput},
		{"per-image error", http.StatusOK, `{"responses": [{"error": {"code": 3, "message": "Bad image data."}}]}`, nil},
		{"http error", http.StatusForbidden, `{"error": {"code": 403, "message": "API key not valid"}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			signals, err := g.Analyze(context.Background(), []byte("img"))
			require.Error(t, err)
			assert.Nil(t, signals)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGoogleVisionAnalyze_EmptyImage(t *testing.T) {
	g := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := g.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, attributes.ErrInvalidInput)
}

func TestConvertResponse_SkipsNilEntries(t *testing.T) {
	r := &gvision.AnnotateImageResponse{
		LabelAnnotations: []*gvision.EntityAnnotation{nil, {Description: "Candle", Score: 0.5}},
		ImagePropertiesAnnotation: &gvision.ImageProperties{
			DominantColors: &gvision.DominantColorsAnnotation{
				Colors: []*gvision.ColorInfo{{Score: 0.2}, {Color: &gvision.Color{Red: 10}, Score: 0.1}},
			},
		},
	}

	s := convertResponse(r)

	assert.Equal(t, []attributes.VisionLabel{{Description: "Candle", Score: 0.5}}, s.Labels)
	assert.Empty(t, s.Objects)
	assert.Equal(t, []attributes.VisionColorSample{{Color: attributes.RGB{Red: 10}, Score: 0.1}}, s.Colors)
}
