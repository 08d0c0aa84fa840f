package mediastore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/verdant/internal/imaging"
)

func newTestClient(endpoint string) *Client {
	return NewClient(endpoint, "test-key", 2*time.Second, zap.NewNop())
}

func TestUploadPostsPayloadAndDecodesAsset(t *testing.T) {
	payload := imaging.NewDataURL("image/png", []byte{0x89, 0x50})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}

		var req struct {
			File   string `json:"file"`
			Folder string `json:"folder"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.File != string(payload) {
			t.Error("payload was not forwarded verbatim")
		}
		if req.Folder != "plants" {
			t.Errorf("unexpected folder: %q", req.Folder)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://cdn.example.com/plants/abc.png",
			"public_id":  "plants/abc",
		})
	}))
	defer server.Close()

	asset, err := newTestClient(server.URL).Upload(context.Background(), payload, "plants")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if asset.URL != "https://cdn.example.com/plants/abc.png" || asset.PublicID != "plants/abc" {
		t.Fatalf("unexpected asset: %+v", asset)
	}
}

func TestUploadRejectedByRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), imaging.NewDataURL("image/png", []byte{1}), "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestUploadIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://cdn.example.com/a"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), imaging.NewDataURL("image/png", []byte{1}), "")
	if err == nil {
		t.Fatal("expected error for response without public_id")
	}
}

func TestDeleteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/plants%2Fabc" && r.URL.EscapedPath() != "/plants%2Fabc" {
			t.Errorf("unexpected path: %q", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Delete(context.Background(), "plants/abc"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
}

func TestDeleteUnknownAssetMapsToNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Delete(context.Background(), "already-gone")
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestDeleteRejectedByRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Delete(context.Background(), "plants/abc")
	if err == nil || errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected generic failure, got %v", err)
	}
}
