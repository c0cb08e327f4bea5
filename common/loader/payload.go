package loader

import (
	"fmt"
)

const (
	defaultTextType   = "text/plain;charset=utf-8"
	defaultBinaryType = "application/octet-stream"
)

// Payload is what a custom fetcher or wallet source returns:
// PlainText, RawBytes, or Structured.
type Payload interface {
	isPayload()
}

// PlainText is content returned as a string
type PlainText string

// RawBytes is content returned as bytes
type RawBytes []byte

// Structured is content with an explicit content type.
// Content must be PlainText or RawBytes.
type Structured struct {
	Content     Payload
	ContentType string
}

func (PlainText) isPayload()  {}
func (RawBytes) isPayload()   {}
func (Structured) isPayload() {}

// Normalize resolves a payload into bytes and a content type.
// Unstructured text defaults to text/plain and unstructured bytes to application/octet-stream.
func Normalize(p Payload) ([]byte, string, error) {
	switch v := p.(type) {
	case PlainText:
		return []byte(v), defaultTextType, nil
	case RawBytes:
		return []byte(v), defaultBinaryType, nil
	case Structured:
		return normalizeStructured(v)
	case *Structured:
		if v == nil {
			return nil, "", fmt.Errorf("%w: nil structured payload", ErrUnsupportedPayload)
		}
		return normalizeStructured(*v)
	case nil:
		return nil, "", fmt.Errorf("%w: nil payload", ErrUnsupportedPayload)
	default:
		return nil, "", fmt.Errorf("%w: %T", ErrUnsupportedPayload, p)
	}
}

func normalizeStructured(s Structured) ([]byte, string, error) {
	var data []byte
	var contentType string

	switch c := s.Content.(type) {
	case PlainText:
		data, contentType = []byte(c), defaultTextType
	case RawBytes:
		data, contentType = []byte(c), defaultBinaryType
	default:
		return nil, "", fmt.Errorf("%w: structured content of type %T", ErrUnsupportedPayload, s.Content)
	}

	if s.ContentType != "" {
		contentType = s.ContentType
	}
	return data, contentType, nil
}

// PayloadFromValue converts a dynamically typed value, such as a decoded JSON
// document from a wallet bridge, into a Payload. Maps must carry a "content"
// key and may carry "contentType" or "content_type".
func PayloadFromValue(v any) (Payload, error) {
	switch val := v.(type) {
	case Payload:
		return val, nil
	case string:
		return PlainText(val), nil
	case []byte:
		return RawBytes(val), nil
	case map[string]any:
		raw, ok := val["content"]
		if !ok {
			return nil, fmt.Errorf("%w: map without content", ErrUnsupportedPayload)
		}
		inner, err := PayloadFromValue(raw)
		if err != nil {
			return nil, err
		}
		if _, nested := inner.(Structured); nested {
			return nil, fmt.Errorf("%w: nested structured content", ErrUnsupportedPayload)
		}

		contentType, _ := val["contentType"].(string)
		if contentType == "" {
			contentType, _ = val["content_type"].(string)
		}
		return Structured{Content: inner, ContentType: contentType}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, v)
	}
}
