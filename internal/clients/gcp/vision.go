package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/jenny-backend/internal/logger"
)

// Vision annotates inbound images so the assistant can acknowledge what it
// received even though image understanding is not a first-class feature.
type Vision interface {
	DescribeImageBytes(ctx context.Context, img []byte) (*ImageDescription, error)
	Close() error
}

type ImageDescription struct {
	Labels []string `json:"labels"`
	Text   string   `json:"text,omitempty"`
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	ctx := context.Background()
	opts := ClientOptionsFromEnv()

	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionService{log: slog, client: c}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) DescribeImageBytes(ctx context.Context, img []byte) (*ImageDescription, error) {
	if len(img) == 0 {
		return &ImageDescription{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: 8},
			{Type: visionpb.Feature_TEXT_DETECTION, MaxResults: 1},
		},
	}

	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.client.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &ImageDescription{}, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	out := &ImageDescription{}
	for _, ann := range r0.LabelAnnotations {
		if ann == nil {
			continue
		}
		label := strings.TrimSpace(ann.Description)
		if label != "" {
			out.Labels = append(out.Labels, label)
		}
	}
	if len(r0.TextAnnotations) > 0 && r0.TextAnnotations[0] != nil {
		out.Text = strings.Join(strings.Fields(r0.TextAnnotations[0].Description), " ")
	}
	return out, nil
}
