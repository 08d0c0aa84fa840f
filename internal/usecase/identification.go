package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/verdant/internal/inference"
	"github.com/example/verdant/internal/logging"
)

// DefaultContentType is assumed when a caller does not declare the photo's
// media type.
const DefaultContentType = "image/jpeg"

const identificationTTL = 24 * time.Hour

// IdentificationUseCase resolves a photo URL to a species identification,
// keeping a content-addressed cache in front of the model so repeated
// submissions of the same photo do not pay for a second inference.
type IdentificationUseCase struct {
	cache          Cache
	classifier     inference.Classifier
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewIdentificationUseCase constructs the use case with the default cache
// retry policy.
func NewIdentificationUseCase(cache Cache, classifier inference.Classifier, logger *zap.Logger) *IdentificationUseCase {
	return &IdentificationUseCase{
		cache:          cache,
		classifier:     classifier,
		logger:         logger.Named("identification_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Identify returns the identification for the photo at photoURL. Cache
// failures degrade to a direct model call; only a model failure fails the
// request.
func (uc *IdentificationUseCase) Identify(ctx context.Context, photoURL, contentType string) (*inference.Identification, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}

	cacheKey := identificationCacheKey(photoURL)
	opLogger := logging.WithOperation(uc.logger, "usecase.identify", "")

	if cached, err := uc.withCacheGet(ctx, "cache.get.identification", cacheKey); err == nil {
		var result inference.Identification
		if err := json.Unmarshal([]byte(cached), &result); err != nil {
			opLogger.Warn("failed to decode cached identification", zap.Error(err))
		} else {
			return &result, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		opLogger.Warn("failed to read identification cache", zap.Error(err))
	}

	result, err := uc.classifier.Identify(ctx, photoURL, contentType)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.identify_photo", "", err)
		opLogger.Error("identification failed", zap.Error(wrapped))
		return nil, wrapped
	}

	serialized, err := json.Marshal(result)
	if err != nil {
		opLogger.Warn("failed to serialize identification for caching", zap.Error(err))
		return result, nil
	}
	if err := uc.withCacheRetry(ctx, "cache.set.identification", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), identificationTTL)
	}); err != nil {
		opLogger.Warn("failed to cache identification", zap.Error(err))
	}

	return result, nil
}

func identificationCacheKey(photoURL string) string {
	sum := sha1.Sum([]byte(photoURL))
	return fmt.Sprintf("identify:%s", hex.EncodeToString(sum[:]))
}

func (uc *IdentificationUseCase) withCacheRetry(ctx context.Context, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, "", fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, "")
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, "", ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("cache operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if errors.Is(err, redis.Nil) {
			return err
		}

		if !isTransientCacheError(err) || attempt == uc.retryAttempts-1 {
			return logging.NewOperationError(operation, "", err)
		}

		opLogger.Warn("transient cache error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, "", err)
}

func (uc *IdentificationUseCase) withCacheGet(ctx context.Context, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withCacheRetry(ctx, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientCacheError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
