// Package assets is the upload/delete facade between UI-triggered actions
// and the remote media store. Both operations normalize every failure into a
// result value; nothing raises past this boundary.
package assets

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/verdant/internal/imaging"
	"github.com/example/verdant/internal/mediastore"
)

// UploadResult is the terminal value of an upload. Success is true exactly
// when both URL and PublicID are non-empty; on failure both are "".
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// DeleteResult is the terminal value of a delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Lifecycle wraps a media store with the never-throws contract.
type Lifecycle struct {
	store  mediastore.Store
	logger *zap.Logger
}

// NewLifecycle builds the facade.
func NewLifecycle(store mediastore.Store, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{store: store, logger: logger.Named("assets")}
}

// Upload sends the payload to the remote store under the optional folder.
// At-most-once: no retry is attempted, and a failure leaves no remote state.
func (l *Lifecycle) Upload(ctx context.Context, payload imaging.DataURL, folder string) UploadResult {
	asset, err := l.store.Upload(ctx, payload, folder)
	if err != nil {
		l.logger.Error("asset upload failed", zap.Error(err), zap.String("folder", folder))
		return UploadResult{Error: err.Error()}
	}
	if asset == nil || asset.URL == "" || asset.PublicID == "" {
		l.logger.Error("asset upload returned incomplete asset", zap.String("folder", folder))
		return UploadResult{Error: "remote store returned incomplete asset"}
	}
	return UploadResult{URL: asset.URL, PublicID: asset.PublicID, Success: true}
}

// Delete removes the asset with the given public id. An unknown or
// already-deleted id counts as success: the end state the caller wanted, an
// absent asset, already holds.
func (l *Lifecycle) Delete(ctx context.Context, publicID string) DeleteResult {
	err := l.store.Delete(ctx, publicID)
	switch {
	case err == nil:
		return DeleteResult{Success: true}
	case errors.Is(err, mediastore.ErrAssetNotFound):
		l.logger.Info("asset already absent", zap.String("public_id", publicID))
		return DeleteResult{Success: true}
	default:
		l.logger.Error("asset delete failed", zap.Error(err), zap.String("public_id", publicID))
		return DeleteResult{Error: err.Error()}
	}
}
