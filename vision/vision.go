// Package vision wraps Google Cloud Vision document-text detection
// behind a small provider interface so the server can run against a stub
// in tests.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	visionapi "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// OcrProvider produces the raw full text for a scanned document image.
type OcrProvider interface {
	DetectDocumentText(ctx context.Context, image []byte) (string, error)
}

type Config struct {
	// Path to a service account JSON file. When empty the client falls
	// back to application default credentials.
	CredentialsPath string `json:"credentials_path,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty"`
}

const defaultTimeout = 30 * time.Second

// GoogleVisionProvider implements OcrProvider on the Cloud Vision
// ImageAnnotator API.
type GoogleVisionProvider struct {
	client  *visionapi.ImageAnnotatorClient
	timeout time.Duration
}

func NewGoogleVisionProvider(ctx context.Context, config Config) (*GoogleVisionProvider, error) {
	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	client, err := visionapi.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	timeout := defaultTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}

	slog.Info("Vision client created", "timeout", timeout, "credentials_file", config.CredentialsPath != "")
	return &GoogleVisionProvider{client: client, timeout: timeout}, nil
}

func (p *GoogleVisionProvider) DetectDocumentText(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	slog.Debug("Requesting document text detection", "image_bytes", len(image))
	annotation, err := p.client.DetectDocumentText(ctx, &visionpb.Image{Content: image}, nil)
	if err != nil {
		return "", fmt.Errorf("document text detection failed: %w", err)
	}
	if annotation == nil {
		slog.Debug("Vision returned no text annotation")
		return "", nil
	}

	text := annotation.GetText()
	slog.Debug("Document text detected", "text_length", len(text))
	return text, nil
}

func (p *GoogleVisionProvider) Close() error {
	return p.client.Close()
}
