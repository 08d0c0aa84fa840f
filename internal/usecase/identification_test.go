package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/verdant/internal/inference"
	"github.com/example/verdant/internal/logging"
)

type stubCache struct {
	setErrs   []error
	getErrs   []error
	getValues []string
	setKeys   []string
	getKeys   []string
	setValues []string
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	if str, ok := value.(string); ok {
		s.setValues = append(s.setValues, str)
	}
	if len(s.setErrs) == 0 {
		return nil
	}
	err := s.setErrs[0]
	s.setErrs = s.setErrs[1:]
	return err
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	var value string
	if len(s.getValues) > 0 {
		value = s.getValues[0]
		s.getValues = s.getValues[1:]
	}
	var err error
	if len(s.getErrs) > 0 {
		err = s.getErrs[0]
		s.getErrs = s.getErrs[1:]
	}
	return value, err
}

type stubClassifier struct {
	result *inference.Identification
	err    error
	calls  int
}

func (s *stubClassifier) Identify(ctx context.Context, photoURL, contentType string) (*inference.Identification, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type transientCacheError struct{}

func (transientCacheError) Error() string   { return "redis transient" }
func (transientCacheError) Timeout() bool   { return true }
func (transientCacheError) Temporary() bool { return true }

func fastUseCase(cache Cache, classifier inference.Classifier) *IdentificationUseCase {
	uc := NewIdentificationUseCase(cache, classifier, zap.NewNop())
	uc.initialBackoff = time.Millisecond
	uc.maxBackoff = 2 * time.Millisecond
	return uc
}

func TestIdentifyCacheHitSkipsModel(t *testing.T) {
	cached, _ := json.Marshal(inference.Identification{CommonName: "Basil", Confidence: 0.9})
	cache := &stubCache{getValues: []string{string(cached)}}
	classifier := &stubClassifier{}

	uc := fastUseCase(cache, classifier)
	result, err := uc.Identify(context.Background(), "https://cdn.example.com/a.jpg", "")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result.CommonName != "Basil" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if classifier.calls != 0 {
		t.Fatalf("expected no model call on cache hit, got %d", classifier.calls)
	}
}

func TestIdentifyCacheMissCallsModelAndCaches(t *testing.T) {
	cache := &stubCache{getErrs: []error{redis.Nil}}
	classifier := &stubClassifier{result: &inference.Identification{CommonName: "Fern", Confidence: 0.8}}

	uc := fastUseCase(cache, classifier)
	result, err := uc.Identify(context.Background(), "https://cdn.example.com/a.jpg", "")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result.CommonName != "Fern" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if classifier.calls != 1 {
		t.Fatalf("expected one model call, got %d", classifier.calls)
	}
	if len(cache.setKeys) == 0 {
		t.Fatal("expected result to be cached")
	}
	if cache.setKeys[0] != identificationCacheKey("https://cdn.example.com/a.jpg") {
		t.Fatalf("unexpected cache key: %s", cache.setKeys[0])
	}
}

func TestIdentifyRetriesTransientCacheSet(t *testing.T) {
	cache := &stubCache{
		getErrs: []error{redis.Nil},
		setErrs: []error{transientCacheError{}},
	}
	classifier := &stubClassifier{result: &inference.Identification{CommonName: "Fern"}}

	uc := fastUseCase(cache, classifier)
	if _, err := uc.Identify(context.Background(), "https://cdn.example.com/a.jpg", ""); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(cache.setKeys) < 2 {
		t.Fatalf("expected retried cache set, got %d calls", len(cache.setKeys))
	}
	if cache.setKeys[0] != cache.setKeys[1] {
		t.Fatalf("expected retry to target same key, got %s and %s", cache.setKeys[0], cache.setKeys[1])
	}
}

func TestIdentifyCacheFailureDegradesToModelCall(t *testing.T) {
	cache := &stubCache{getErrs: []error{errors.New("redis down")}}
	classifier := &stubClassifier{result: &inference.Identification{CommonName: "Fern"}}

	uc := fastUseCase(cache, classifier)
	result, err := uc.Identify(context.Background(), "https://cdn.example.com/a.jpg", "")
	if err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
	if result.CommonName != "Fern" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if classifier.calls != 1 {
		t.Fatalf("expected model call, got %d", classifier.calls)
	}
}

func TestIdentifyModelFailureReturnsOperationError(t *testing.T) {
	cache := &stubCache{getErrs: []error{redis.Nil}}
	classifier := &stubClassifier{err: errors.New("model offline")}

	uc := fastUseCase(cache, classifier)
	_, err := uc.Identify(context.Background(), "https://cdn.example.com/a.jpg", "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "usecase.identify_photo" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}

func TestIdentifyDefaultsContentType(t *testing.T) {
	cache := &stubCache{getErrs: []error{redis.Nil}}
	var seen string
	classifier := &classifierFunc{fn: func(ctx context.Context, photoURL, contentType string) (*inference.Identification, error) {
		seen = contentType
		return &inference.Identification{}, nil
	}}

	uc := fastUseCase(cache, classifier)
	if _, err := uc.Identify(context.Background(), "https://cdn.example.com/a.jpg", ""); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if seen != DefaultContentType {
		t.Fatalf("expected default content type, got %q", seen)
	}
}

type classifierFunc struct {
	fn func(ctx context.Context, photoURL, contentType string) (*inference.Identification, error)
}

func (c *classifierFunc) Identify(ctx context.Context, photoURL, contentType string) (*inference.Identification, error) {
	return c.fn(ctx, photoURL, contentType)
}
