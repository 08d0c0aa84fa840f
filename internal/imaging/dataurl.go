package imaging

import (
	"encoding/base64"
	"errors"
	"strings"
)

// DataURL is a self-contained image encoding: "data:<mime>;base64,<payload>".
// It carries both the bytes and their declared media type, so downstream
// consumers never need a second fetch to materialize the image.
type DataURL string

// ErrMalformedDataURL is returned when a value does not follow the
// data:<mime>;base64,<payload> layout.
var ErrMalformedDataURL = errors.New("malformed data URL")

// NewDataURL encodes raw bytes under the given media type.
func NewDataURL(mime string, data []byte) DataURL {
	if mime == "" {
		mime = "image/jpeg"
	}
	return DataURL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// MIMEType returns the declared media type, or "" when the value is malformed.
func (d DataURL) MIMEType() string {
	s := string(d)
	if !strings.HasPrefix(s, "data:") {
		return ""
	}
	rest := s[len("data:"):]
	if semi := strings.Index(rest, ";"); semi != -1 {
		return rest[:semi]
	}
	return ""
}

// Decode recovers the media type and the original bytes. The round trip
// through NewDataURL is lossless.
func (d DataURL) Decode() (string, []byte, error) {
	s := string(d)
	comma := strings.Index(s, ",")
	if !strings.HasPrefix(s, "data:") || comma == -1 {
		return "", nil, ErrMalformedDataURL
	}

	meta := s[len("data:"):comma]
	parts := strings.Split(meta, ";")
	mime := parts[0]

	isBase64 := false
	for _, p := range parts[1:] {
		if p == "base64" {
			isBase64 = true
			break
		}
	}
	if !isBase64 {
		return "", nil, ErrMalformedDataURL
	}

	data, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return "", nil, err
	}
	return mime, data, nil
}
