// Package content classifies untrusted content from its declared MIME type,
// its structure and its leading bytes, and decides how it should be rendered.
package content

// DetectedType is the coarse kind of a piece of content
type DetectedType string

const (
	TypeText    DetectedType = "text"
	TypeImage   DetectedType = "image"
	TypeAudio   DetectedType = "audio"
	TypeVideo   DetectedType = "video"
	TypeHTML    DetectedType = "html"
	TypeJSON    DetectedType = "json"
	TypeSVG     DetectedType = "svg"
	Type3D      DetectedType = "3d"
	TypeBinary  DetectedType = "binary"
	TypeUnknown DetectedType = "unknown"
)

// IsTextual reports whether content of this type is displayed as text
func (t DetectedType) IsTextual() bool {
	switch t {
	case TypeText, TypeHTML, TypeJSON, TypeSVG:
		return true
	}
	return false
}

// RenderStrategy is how a renderer should present content
type RenderStrategy string

const (
	RenderNative      RenderStrategy = "native"
	RenderIframe      RenderStrategy = "iframe"
	RenderDownload    RenderStrategy = "download"
	RenderUnsupported RenderStrategy = "unsupported"
)

// Info is the classification of a piece of content
type Info struct {
	MimeType       string         `json:"mime_type"`
	DetectedType   DetectedType   `json:"detected_type"`
	RenderStrategy RenderStrategy `json:"render_strategy"`
	FileExtension  string         `json:"file_extension,omitempty"`
	Encoding       string         `json:"encoding,omitempty"`
	Inlineable     bool           `json:"inlineable"`
}

// normalize enforces that sandboxed and download-only content is never inlined
func (i Info) normalize() Info {
	if i.RenderStrategy == RenderIframe || i.RenderStrategy == RenderDownload {
		i.Inlineable = false
	}
	return i
}

// Analysis is the result of analyzing content. Info is always populated;
// Error is set when classification degraded or could not run.
type Analysis struct {
	Info    Info   `json:"content_info"`
	Preview string `json:"preview,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the analysis produced a usable classification without error
func (a Analysis) OK() bool {
	return a.Error == "" && a.Info.DetectedType != TypeUnknown
}

func fallbackInfo(mimeType string) Info {
	if mimeType == "" {
		mimeType = octetStream
	}
	return Info{
		MimeType:       mimeType,
		DetectedType:   TypeBinary,
		RenderStrategy: RenderIframe,
		Inlineable:     false,
	}
}
