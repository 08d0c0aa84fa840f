// Package mediastore talks to the remote media-hosting service that keeps
// uploaded plant photos and serves them from stable public URLs.
package mediastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/example/verdant/internal/imaging"
	"github.com/example/verdant/internal/logging"
)

// Asset is a remotely hosted image: a public URL plus the opaque identifier
// the store assigned at upload time.
type Asset struct {
	URL      string
	PublicID string
}

// Store is the narrow port the rest of the service depends on. Uploads are
// not idempotent: repeating an upload of identical bytes may create a second
// asset with a different public id.
type Store interface {
	Upload(ctx context.Context, payload imaging.DataURL, folder string) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// ErrAssetNotFound reports a delete against an identifier the remote store
// does not know, typically because the asset was already deleted.
var ErrAssetNotFound = errors.New("asset not found")

// Client is the HTTP implementation of Store.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds a media store client against the given upload endpoint.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.Named("mediastore"),
	}
}

type uploadRequest struct {
	File   string `json:"file"`
	Folder string `json:"folder,omitempty"`
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Upload posts the data URL to the store and returns the hosted asset.
func (c *Client) Upload(ctx context.Context, payload imaging.DataURL, folder string) (*Asset, error) {
	body, err := json.Marshal(uploadRequest{File: string(payload), Folder: folder})
	if err != nil {
		return nil, logging.NewOperationError("mediastore.upload", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, logging.NewOperationError("mediastore.upload", "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("mediastore.upload", "", err)
		c.logger.Error("upload request failed", zap.Error(wrapped))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("remote store rejected upload: %s", resp.Status)
		wrapped := logging.NewOperationError("mediastore.upload", "", err)
		c.logger.Error("upload rejected", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
		return nil, wrapped
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		wrapped := logging.NewOperationError("mediastore.upload", "", err)
		c.logger.Error("upload response malformed", zap.Error(wrapped))
		return nil, wrapped
	}
	if decoded.SecureURL == "" || decoded.PublicID == "" {
		err := errors.New("remote store returned incomplete asset")
		return nil, logging.NewOperationError("mediastore.upload", "", err)
	}

	return &Asset{URL: decoded.SecureURL, PublicID: decoded.PublicID}, nil
}

// Delete removes the asset with the given public id. A remote 404 maps to
// ErrAssetNotFound so callers can distinguish "already gone" from a real
// failure.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	target := c.endpoint + "/" + url.PathEscape(publicID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return logging.NewOperationError("mediastore.delete", "", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("mediastore.delete", "", err)
		c.logger.Error("delete request failed", zap.Error(wrapped), zap.String("public_id", publicID))
		return wrapped
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrAssetNotFound
	default:
		err := fmt.Errorf("remote store rejected delete: %s", resp.Status)
		wrapped := logging.NewOperationError("mediastore.delete", "", err)
		c.logger.Error("delete rejected", zap.Error(wrapped), zap.Int("status", resp.StatusCode), zap.String("public_id", publicID))
		return wrapped
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
