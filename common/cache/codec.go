package cache

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// ChunkThreshold is the size above which binary content is encoded in chunks
	ChunkThreshold = 50 * 1024

	// ChunkSize is the slice of input fed to the encoder per write
	ChunkSize = 8 * 1024
)

// IsTextLike reports whether content of this type is cached verbatim
func IsTextLike(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "html")
}

// Encode converts raw content into its cached representation
func Encode(data []byte, contentType string) Entry {
	if IsTextLike(contentType) {
		return Entry{Content: string(data), ContentType: contentType}
	}
	return Entry{Content: EncodeBase64(data), ContentType: contentType}
}

// EncodeBase64 returns the standard Base64 form of data. Payloads above
// ChunkThreshold are streamed through the encoder ChunkSize bytes at a time;
// the output is identical to a single-pass encode.
func EncodeBase64(data []byte) string {
	if len(data) <= ChunkThreshold {
		return base64.StdEncoding.EncodeToString(data)
	}
	return encodeChunked(data, ChunkSize)
}

func encodeChunked(data []byte, chunkSize int) string {
	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(data)))

	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	for off := 0; off < len(data); off += chunkSize {
		end := min(off+chunkSize, len(data))
		// strings.Builder never fails a write
		_, _ = enc.Write(data[off:end])
	}
	_ = enc.Close()

	return sb.String()
}

// Decode reconstructs the original bytes of an entry
func Decode(entry Entry) ([]byte, error) {
	if IsTextLike(entry.ContentType) {
		return []byte(entry.Content), nil
	}

	data, err := base64.StdEncoding.DecodeString(entry.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return data, nil
}
