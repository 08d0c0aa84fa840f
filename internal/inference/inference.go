// Package inference defines the port to the hosted vision model that turns a
// plant photo into a species identification, plus its HTTP implementation.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/verdant/internal/logging"
)

// CareProfile is the model's care guidance for an identified species.
type CareProfile struct {
	Watering string `json:"watering"`
	Sunlight string `json:"sunlight"`
	Soil     string `json:"soil"`
}

// Identification is the structured result of a model call.
type Identification struct {
	CommonName     string      `json:"commonName"`
	ScientificName string      `json:"scientificName"`
	Description    string      `json:"description"`
	Confidence     float64     `json:"confidence"`
	Care           CareProfile `json:"care"`
}

// Classifier exposes the subset of the model's capabilities the service uses.
type Classifier interface {
	Identify(ctx context.Context, photoURL, contentType string) (*Identification, error)
}

// Client calls the hosted model over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds an inference client for the configured model endpoint.
func NewClient(endpoint, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.Named("inference"),
	}
}

type identifyRequest struct {
	Model       string `json:"model"`
	PhotoURL    string `json:"photo_url"`
	ContentType string `json:"content_type"`
}

// Identify submits the photo URL to the model and decodes the structured
// identification.
func (c *Client) Identify(ctx context.Context, photoURL, contentType string) (*Identification, error) {
	body, err := json.Marshal(identifyRequest{Model: c.model, PhotoURL: photoURL, ContentType: contentType})
	if err != nil {
		return nil, logging.NewOperationError("inference.identify", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, logging.NewOperationError("inference.identify", "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("inference.identify", "", err)
		c.logger.Error("model call failed", zap.Error(wrapped))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("model rejected request: %s", resp.Status)
		wrapped := logging.NewOperationError("inference.identify", "", err)
		c.logger.Error("model rejected request", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
		return nil, wrapped
	}

	var result Identification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		wrapped := logging.NewOperationError("inference.identify", "", err)
		c.logger.Error("model response malformed", zap.Error(wrapped))
		return nil, wrapped
	}
	return &result, nil
}
