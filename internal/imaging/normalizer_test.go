package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromFileHandleRoundTrip(t *testing.T) {
	original := []byte{0x01, 0x02, 0x03, 0xFF, 0x00, 0x7F}
	n := NewNormalizer(nil)

	payload, err := n.FromFileHandle(FileHandle{
		Name:        "photo.jpg",
		ContentType: "image/jpeg",
		Reader:      bytes.NewReader(original),
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	mime, data, err := payload.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %s", mime)
	}
	if !bytes.Equal(data, original) {
		t.Fatalf("round trip lost bytes: got %v, want %v", data, original)
	}
}

func TestFromFileHandleSniffsMissingContentType(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("failed to build test image: %v", err)
	}

	n := NewNormalizer(nil)
	payload, err := n.FromFileHandle(FileHandle{Name: "photo", Reader: &buf})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if payload.MIMEType() != "image/png" {
		t.Fatalf("expected sniffed image/png, got %s", payload.MIMEType())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream torn down")
}

func TestFromFileHandleReadError(t *testing.T) {
	n := NewNormalizer(nil)
	_, err := n.FromFileHandle(FileHandle{Name: "photo", Reader: failingReader{}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError, got %T", err)
	}
}

func TestFromBlobReferenceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	n := NewNormalizer(server.Client())
	_, err := n.FromBlobReference(context.Background(), BlobReference{URL: server.URL + "/blob/abc"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", fetchErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected message to contain 404, got %q", err.Error())
	}
}

func TestFromBlobReferenceRoundTrip(t *testing.T) {
	original := []byte("not really pixels, but stable bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write(original)
	}))
	defer server.Close()

	n := NewNormalizer(server.Client())
	payload, err := n.FromBlobReference(context.Background(), BlobReference{URL: server.URL + "/blob/abc"})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	mime, data, err := payload.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mime != "image/webp" {
		t.Fatalf("expected declared content type to win, got %s", mime)
	}
	if !bytes.Equal(data, original) {
		t.Fatal("round trip lost bytes")
	}
}

func TestFromCanvasSurfaceNeverFails(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	n := NewNormalizer(nil)

	for _, mime := range []string{"image/jpeg", "image/png"} {
		payload, err := n.FromCanvasSurface(CanvasSurface{Image: img, MIMEType: mime, Quality: 0.8})
		if err != nil {
			t.Fatalf("canvas export for %s failed: %v", mime, err)
		}
		if !strings.HasPrefix(string(payload), "data:"+mime) {
			t.Fatalf("expected prefix data:%s, got %q", mime, string(payload)[:32])
		}
	}
}

func TestFromCanvasSurfaceEmptyImage(t *testing.T) {
	n := NewNormalizer(nil)

	payload, err := n.FromCanvasSurface(CanvasSurface{})
	if err != nil {
		t.Fatalf("expected minimal image, got error: %v", err)
	}
	mime, data, err := payload.Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("expected default image/jpeg, got %s", mime)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty encoded image")
	}
}

func TestFromCanvasSurfaceQualityIgnoredForPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	n := NewNormalizer(nil)

	low, err := n.FromCanvasSurface(CanvasSurface{Image: img, MIMEType: "image/png", Quality: 0.1})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	high, err := n.FromCanvasSurface(CanvasSurface{Image: img, MIMEType: "image/png", Quality: 1.0})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if low != high {
		t.Fatal("expected quality to be a no-op for PNG export")
	}
}

func TestNormalizeDispatchesOnVariant(t *testing.T) {
	n := NewNormalizer(nil)

	payload, err := n.Normalize(context.Background(), FileHandle{
		Name:        "leaf.png",
		ContentType: "image/png",
		Reader:      bytes.NewReader([]byte{0xAA}),
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if payload.MIMEType() != "image/png" {
		t.Fatalf("unexpected mime: %s", payload.MIMEType())
	}

	if _, err := n.Normalize(context.Background(), nil); err == nil {
		t.Fatal("expected error for unsupported source")
	}
}

func TestDataURLDecodeRejectsMalformed(t *testing.T) {
	for _, bad := range []DataURL{"", "data:image/png", "image/png;base64,AAAA", "data:image/png;charset=utf8,AAAA"} {
		if _, _, err := bad.Decode(); err == nil {
			t.Fatalf("expected error for %q", string(bad))
		}
	}
}
