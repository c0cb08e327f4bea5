package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// decodeText decodes data as UTF-8. When data is a truncated sample a partial
// trailing rune is dropped. Invalid UTF-8 or NUL bytes mean the content is not text.
func decodeText(data []byte, truncated bool) (string, bool) {
	if truncated {
		data = trimPartialRune(data)
	}
	if len(data) == 0 || !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", false
	}
	return string(data), true
}

func trimPartialRune(data []byte) []byte {
	// a rune is at most 4 bytes, so only the last 3 can start an incomplete one
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if !utf8.RuneStart(b) {
			continue
		}
		if !utf8.FullRune(data[len(data)-i:]) {
			return data[:len(data)-i]
		}
		break
	}
	return data
}

// sniffText classifies decoded text by its structure
func sniffText(text string, truncated bool) Info {
	trimmed := strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
	lower := strings.ToLower(trimmed)

	switch {
	case looksLikeHTML(lower):
		return textInfo("text/html", "", TypeHTML, "html")
	case looksLikeJSON(trimmed, truncated):
		return textInfo("application/json", "", TypeJSON, "json")
	case strings.Contains(lower, "<svg") || strings.Contains(lower, "http://www.w3.org/2000/svg"):
		return textInfo("image/svg+xml", "", TypeSVG, "svg")
	default:
		return textInfo("text/plain", "", TypeText, "txt")
	}
}

func looksLikeHTML(lower string) bool {
	if strings.HasPrefix(lower, "<!doctype html") {
		return true
	}
	for _, tag := range []string{"<html", "<head", "<body"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// looksLikeJSON reports whether text is a JSON object or array. A truncated
// sample only needs to be a valid prefix of one.
func looksLikeJSON(text string, truncated bool) bool {
	if text == "" || (text[0] != '{' && text[0] != '[') {
		return false
	}
	if !truncated {
		return json.Valid([]byte(text))
	}

	dec := json.NewDecoder(strings.NewReader(text))
	for {
		_, err := dec.Token()
		if err == nil {
			continue
		}
		return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	}
}

// preview returns the first PreviewLength runes of text
func preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}

	n := 0
	for i := range text {
		if n == PreviewLength {
			return text[:i]
		}
		n++
	}
	return text
}
