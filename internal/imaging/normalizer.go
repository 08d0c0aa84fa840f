package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Default export parameters for canvas surfaces.
const (
	DefaultCanvasMIME    = "image/jpeg"
	DefaultCanvasQuality = 0.8
)

// Source is the tagged union of image inputs the normalizer accepts. Exactly
// one concrete variant exists per input shape; all of them converge on a
// DataURL so downstream consumers understand a single representation.
type Source interface {
	isSource()
}

// BlobReference is an opaque handle resolvable by a local fetch. The
// underlying blob may be revoked at any time, so a reference is only
// guaranteed live for the call that consumes it.
type BlobReference struct {
	URL string
}

// FileHandle is a named byte stream with a declared media type. The reader
// is drained exactly once.
type FileHandle struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// CanvasSurface is a drawable bitmap to be exported synchronously. Quality
// is in (0, 1] and only meaningful for lossy encodings.
type CanvasSurface struct {
	Image    image.Image
	MIMEType string
	Quality  float64
}

func (BlobReference) isSource() {}
func (FileHandle) isSource()    {}
func (CanvasSurface) isSource() {}

// Normalizer converts any Source variant into a DataURL. It holds no state
// across calls beyond the HTTP client used to resolve blob references.
type Normalizer struct {
	client *http.Client
}

// NewNormalizer builds a normalizer. A nil client falls back to
// http.DefaultClient; callers that need timeouts or cancellation should pass
// a configured client and thread contexts through Normalize.
func NewNormalizer(client *http.Client) *Normalizer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Normalizer{client: client}
}

// Normalize dispatches on the source variant.
func (n *Normalizer) Normalize(ctx context.Context, src Source) (DataURL, error) {
	switch s := src.(type) {
	case BlobReference:
		return n.FromBlobReference(ctx, s)
	case FileHandle:
		return n.FromFileHandle(s)
	case CanvasSurface:
		return n.FromCanvasSurface(s)
	default:
		return "", fmt.Errorf("unsupported image source %T", src)
	}
}

// FromBlobReference resolves the reference with a fetch and encodes the
// resulting bytes. A non-2xx response yields a *FetchError carrying the
// status; a body read failure yields a *ReadError. The call is idempotent
// while the reference stays live but not repeatable once it is revoked.
func (n *Normalizer) FromBlobReference(ctx context.Context, ref BlobReference) (DataURL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return "", err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ReadError{Err: err}
	}

	mime := resp.Header.Get("Content-Type")
	return NewDataURL(resolveMIME(mime, data), data), nil
}

// FromFileHandle drains the handle's reader and encodes its bytes under the
// declared content type, sniffing from magic bytes when no usable type was
// declared.
func (n *Normalizer) FromFileHandle(file FileHandle) (DataURL, error) {
	data, err := io.ReadAll(file.Reader)
	if err != nil {
		return "", &ReadError{Err: err}
	}
	return NewDataURL(resolveMIME(file.ContentType, data), data), nil
}

// FromCanvasSurface exports the surface's current pixels. It never fails
// under normal operation: an empty or zero-dimension surface is exported as
// a minimal 1x1 image, unknown target types fall back to JPEG, and quality
// is ignored for PNG.
func (n *Normalizer) FromCanvasSurface(canvas CanvasSurface) (DataURL, error) {
	img := canvas.Image
	if img == nil || img.Bounds().Empty() {
		img = image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	mime := canvas.MIMEType
	if mime == "" {
		mime = DefaultCanvasMIME
	}
	quality := canvas.Quality
	if quality <= 0 || quality > 1 {
		quality = DefaultCanvasQuality
	}

	var buf bytes.Buffer
	switch mime {
	case "image/png":
		if err := png.Encode(&buf, img); err != nil {
			return "", err
		}
	default:
		mime = DefaultCanvasMIME
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(quality * 100)}); err != nil {
			return "", err
		}
	}
	return NewDataURL(mime, buf.Bytes()), nil
}

// resolveMIME prefers the declared type and sniffs magic bytes when the
// declaration is absent or a generic octet stream.
func resolveMIME(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if semi := strings.Index(declared, ";"); semi != -1 {
		declared = strings.TrimSpace(declared[:semi])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
