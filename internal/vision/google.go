package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	gvision "google.golang.org/api/vision/v1"
)

const (
	maxLabels  = 20
	maxObjects = 10
)

// GoogleVision requests labels, localized objects and dominant colors from
// the Cloud Vision images:annotate endpoint in a single call.
type GoogleVision struct {
	svc *gvision.Service
}

// NewGoogleVision creates a client authenticated with an API key. Extra
// options are appended, which lets tests point it at a local server.
func NewGoogleVision(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleVision, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := gvision.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &GoogleVision{svc: svc}, nil
}

// Analyze implements Provider.
func (g *GoogleVision) Analyze(ctx context.Context, image []byte) (*attributes.Signals, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", attributes.ErrInvalidInput)
	}

	req := &gvision.BatchAnnotateImagesRequest{
		Requests: []*gvision.AnnotateImageRequest{{
			Image: &gvision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*gvision.Feature{
				{Type: "LABEL_DETECTION", MaxResults: maxLabels},
				{Type: "OBJECT_LOCALIZATION", MaxResults: maxObjects},
				{Type: "IMAGE_PROPERTIES"},
			},
		}},
	}

	resp, err := g.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate failed: %w", err)
	}
	if len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, ErrNoAnnotations
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, fmt.Errorf("vision annotate failed: code %d: %s", r.Error.Code, r.Error.Message)
	}

	signals := convertResponse(r)
	if err := validate(signals); err != nil {
		return nil, err
	}

	log.Info().
		Int("imageBytes", len(image)).
		Int("labels", len(signals.Labels)).
		Int("objects", len(signals.Objects)).
		Int("colors", len(signals.Colors)).
		Msg("vision api call")

	return signals, nil
}

// convertResponse maps annotations onto signals. Dominant colors keep the
// response order, which is by dominance.
func convertResponse(r *gvision.AnnotateImageResponse) *attributes.Signals {
	s := &attributes.Signals{}

	for _, l := range r.LabelAnnotations {
		if l == nil {
			continue
		}
		s.Labels = append(s.Labels, attributes.VisionLabel{Description: l.Description, Score: l.Score})
	}

	for _, o := range r.LocalizedObjectAnnotations {
		if o == nil {
			continue
		}
		s.Objects = append(s.Objects, attributes.VisionObject{Name: o.Name, Score: o.Score})
	}

	if p := r.ImagePropertiesAnnotation; p != nil && p.DominantColors != nil {
		for _, c := range p.DominantColors.Colors {
			if c == nil || c.Color == nil {
				continue
			}
			s.Colors = append(s.Colors, attributes.VisionColorSample{
				Color: attributes.RGB{Red: c.Color.Red, Green: c.Color.Green, Blue: c.Color.Blue},
				Score: c.Score,
			})
		}
	}

	return s
}
