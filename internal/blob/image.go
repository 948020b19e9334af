package blob

import (
	"encoding/base64"
	"strings"
)

// Image is a decoded client-supplied image ready for upload.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
}

// DecodeImage parses a client image payload. Payloads are either a
// data URI ("data:image/png;base64,....") or bare base64, which is
// treated as JPEG for backward compatibility with older clients.
func DecodeImage(payload string) (*Image, error) {
	ext := "jpg"
	raw := payload

	if strings.HasPrefix(payload, "data:image/") {
		meta, data, found := strings.Cut(payload, ",")
		if !found {
			return nil, ErrInvalidImage
		}
		raw = data

		// meta looks like "data:image/png;base64"
		mediaType, _, _ := strings.Cut(strings.TrimPrefix(meta, "data:"), ";")
		if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" {
			ext = sub
		}
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrInvalidImage
	}
	if len(decoded) == 0 {
		return nil, ErrInvalidImage
	}

	return &Image{
		Data:        decoded,
		Ext:         ext,
		ContentType: "image/" + ext,
	}, nil
}

// KeyFromURL extracts the object key from a stored public URL. Keys are
// single path segments, so the last segment is the key.
func KeyFromURL(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}
