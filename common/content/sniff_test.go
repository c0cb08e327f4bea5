package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var modTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDecodeTextTrimsPartialRuneOnlyWhenTruncated(t *testing.T) {
	euro := []byte("€") // 3 bytes
	data := append([]byte("price "), euro[:2]...)

	text, ok := decodeText(data, true)
	assert.True(t, ok)
	assert.Equal(t, "price ", text)

	_, ok = decodeText(data, false)
	assert.False(t, ok, "a complete document with a broken rune is not text")
}

func TestDecodeTextRejectsBinary(t *testing.T) {
	_, ok := decodeText([]byte{0xC3, 0x28}, false)
	assert.False(t, ok)

	_, ok = decodeText([]byte("abc\x00def"), false)
	assert.False(t, ok)

	_, ok = decodeText(nil, false)
	assert.False(t, ok)
}

func TestLooksLikeJSON(t *testing.T) {
	assert.True(t, looksLikeJSON(`{"a":1}`, false))
	assert.False(t, looksLikeJSON(`{"a":1`, false))
	assert.True(t, looksLikeJSON(`{"a":[1,2,"thr`, true))
	assert.False(t, looksLikeJSON(`{"a" 1`, true))
	assert.False(t, looksLikeJSON(`"just a string"`, false))
}

func TestPreviewCountsRunes(t *testing.T) {
	text := strings.Repeat("ü", PreviewLength+50)
	assert.Equal(t, strings.Repeat("ü", PreviewLength), preview(text))
	assert.Equal(t, "short", preview("short"))
}
