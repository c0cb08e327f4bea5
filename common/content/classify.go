package content

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// modelExtensions are file extensions of 3D model formats
var modelExtensions = []string{".glb", ".gltf", ".obj", ".fbx", ".stl", ".ply", ".dae", ".3ds", ".usdz"}

// parseMediaType returns the lower-cased media type without parameters, and its charset
func parseMediaType(declared string) (mediaType, charset string) {
	mt, params, err := mime.ParseMediaType(declared)
	if err != nil {
		mt, _, _ = strings.Cut(declared, ";")
		return strings.ToLower(strings.TrimSpace(mt)), ""
	}
	return mt, strings.ToLower(params["charset"])
}

// classifyMIME maps a declared media type to a classification, in priority order.
// It reports false when the media type says nothing useful.
func classifyMIME(mediaType, charset, sourceURL string) (Info, bool) {
	major, minor, _ := strings.Cut(mediaType, "/")

	switch {
	case mediaType == "application/json" || mediaType == "text/json":
		return textInfo(mediaType, charset, TypeJSON, "json"), true
	case mediaType == "text/html":
		return textInfo(mediaType, charset, TypeHTML, "html"), true
	case major == "text":
		return textInfo(mediaType, charset, TypeText, extensionFor(mediaType, "txt")), true
	case mediaType == "image/svg+xml":
		return textInfo(mediaType, charset, TypeSVG, "svg"), true
	case major == "image":
		return nativeInfo(mediaType, TypeImage, extensionFor(mediaType, minor)), true
	case major == "audio":
		return nativeInfo(mediaType, TypeAudio, extensionFor(mediaType, minor)), true
	case major == "video":
		return nativeInfo(mediaType, TypeVideo, extensionFor(mediaType, minor)), true
	case major == "model":
		ext := modelExtension(sourceURL)
		if ext == "" {
			ext = extensionFor(mediaType, minor)
		}
		return nativeInfo(mediaType, Type3D, ext), true
	case major == "application" && strings.Contains(minor, "json"):
		return textInfo(mediaType, charset, TypeJSON, "json"), true
	case major == "application" && (strings.Contains(minor, "gltf") || strings.Contains(minor, "obj")):
		ext := modelExtension(sourceURL)
		if ext == "" {
			ext = extensionFor(mediaType, "")
		}
		return nativeInfo(mediaType, Type3D, ext), true
	case (major == "application" || mediaType == "") && modelExtension(sourceURL) != "":
		if mediaType == "" {
			mediaType = octetStream
		}
		return nativeInfo(mediaType, Type3D, modelExtension(sourceURL)), true
	case mediaType == "application/pdf" || strings.Contains(mediaType, "document"):
		return Info{
			MimeType:       mediaType,
			DetectedType:   TypeBinary,
			RenderStrategy: RenderIframe,
			FileExtension:  extensionFor(mediaType, ""),
			Inlineable:     false,
		}, true
	}

	return Info{}, false
}

func textInfo(mediaType, charset string, detected DetectedType, ext string) Info {
	if charset == "" {
		charset = "utf-8"
	}
	return Info{
		MimeType:       mediaType,
		DetectedType:   detected,
		RenderStrategy: RenderNative,
		FileExtension:  ext,
		Encoding:       charset,
		Inlineable:     true,
	}
}

func nativeInfo(mediaType string, detected DetectedType, ext string) Info {
	return Info{
		MimeType:       mediaType,
		DetectedType:   detected,
		RenderStrategy: RenderNative,
		FileExtension:  ext,
		Inlineable:     true,
	}
}

// extensionFor looks up the usual extension of a media type
func extensionFor(mediaType, fallback string) string {
	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}

	fallback = strings.TrimPrefix(fallback, "x-")
	fallback, _, _ = strings.Cut(fallback, "+")
	return fallback
}

// modelExtension returns the 3D model extension of the URL path, without the dot
func modelExtension(sourceURL string) string {
	if sourceURL == "" {
		return ""
	}

	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}

	ext := strings.ToLower(path.Ext(p))
	for _, known := range modelExtensions {
		if ext == known {
			return strings.TrimPrefix(ext, ".")
		}
	}
	return ""
}
