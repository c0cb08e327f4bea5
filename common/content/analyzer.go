package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ordview/ordview/common/clients"
)

const (
	// SampleSize is how much of a resource is inspected
	SampleSize = 8 * 1024

	// PreviewLength is the number of runes kept as a text preview
	PreviewLength = 200
)

// Logger interface for analyzer logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Analyzer classifies content. It never returns errors: problems are reported
// in Analysis.Error together with a safe binary/iframe classification.
type Analyzer struct {
	http     *clients.HTTPClient
	endpoint EndpointPredicate
	logger   Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithEndpointPredicate replaces the JSON endpoint detection
func WithEndpointPredicate(p EndpointPredicate) Option {
	return func(a *Analyzer) {
		a.endpoint = p
	}
}

// NewAnalyzer creates an analyzer. httpClient may be nil when only AnalyzeBytes is used.
func NewAnalyzer(httpClient *clients.HTTPClient, logger Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		http:     httpClient,
		endpoint: DefaultJSONEndpointMarkers,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeURL fetches at most SampleSize bytes of rawURL and classifies them
func (a *Analyzer) AnalyzeURL(ctx context.Context, rawURL string) Analysis {
	if a.http == nil {
		return errorAnalysis(fmt.Errorf("analyzer has no HTTP client"))
	}

	sample, contentType, truncated, err := a.fetchSample(ctx, rawURL)
	if err != nil {
		a.logger.Debug("content analysis failed", "url", rawURL, "error", err)
		return errorAnalysis(err)
	}

	return a.classify(sample, truncated, contentType, rawURL)
}

// AnalyzeBytes classifies already fetched content
func (a *Analyzer) AnalyzeBytes(data []byte, declaredType, sourceURL string) Analysis {
	sample, truncated := data, false
	if len(sample) > SampleSize {
		sample, truncated = sample[:SampleSize], true
	}
	return a.classify(sample, truncated, declaredType, sourceURL)
}

func (a *Analyzer) classify(sample []byte, truncated bool, declaredType, sourceURL string) Analysis {
	mediaType, charset := parseMediaType(declaredType)
	text, hasText := decodeText(sample, truncated)

	info, ok := classifyMIME(mediaType, charset, sourceURL)
	switch {
	case ok:
	case hasText:
		info = sniffText(text, truncated)
	default:
		if mt, ext, matched := MatchMagic(sample); matched {
			info = nativeInfo(mt, TypeImage, ext)
		} else {
			info = binaryInfo(sample, mediaType)
		}
	}

	analysis := Analysis{Info: info.normalize()}
	if hasText && info.DetectedType.IsTextual() {
		analysis.Preview = preview(text)
	}
	return analysis
}

// binaryInfo is the final fallback. The MIME type and extension are refined by
// content detection when nothing more specific was declared.
func binaryInfo(sample []byte, mediaType string) Info {
	info := fallbackInfo(mediaType)

	detected := mimetype.Detect(sample)
	if detected.Is(octetStream) {
		return info
	}
	if mediaType == "" || mediaType == octetStream {
		info.MimeType, _ = parseMediaType(detected.String())
	}
	info.FileExtension = strings.TrimPrefix(detected.Extension(), ".")
	return info
}

func errorAnalysis(err error) Analysis {
	return Analysis{
		Info:  fallbackInfo("").normalize(),
		Error: err.Error(),
	}
}

// fetchSample requests the first SampleSize bytes of rawURL. JSON endpoints get
// an Accept header instead of a Range header. A failed or unsatisfiable range
// request is retried as a plain GET.
func (a *Analyzer) fetchSample(ctx context.Context, rawURL string) ([]byte, string, bool, error) {
	var resp *http.Response
	var err error

	if a.endpoint.IsJSONEndpoint(rawURL) {
		resp, err = a.http.Get(ctx, rawURL, http.Header{"Accept": {"application/json"}})
	} else {
		resp, err = a.http.Get(ctx, rawURL, http.Header{"Range": {fmt.Sprintf("bytes=0-%d", SampleSize-1)}})
		switch {
		case err != nil && ctx.Err() == nil:
			a.logger.Debug("range request failed, retrying without range", "url", rawURL, "error", err)
			resp, err = a.http.Get(ctx, rawURL, nil)
		case err == nil && resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
			resp.Body.Close()
			resp, err = a.http.Get(ctx, rawURL, nil)
		}
	}
	if err != nil {
		return nil, "", false, &clients.NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", false, &clients.NetworkError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	sample, err := io.ReadAll(io.LimitReader(resp.Body, SampleSize+1))
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to read response: %w", err)
	}

	truncated := false
	if len(sample) > SampleSize {
		sample, truncated = sample[:SampleSize], true
	} else if resp.StatusCode == http.StatusPartialContent {
		truncated = rangeHasMore(resp.Header.Get("Content-Range"), len(sample))
	}

	return sample, resp.Header.Get("Content-Type"), truncated, nil
}

// rangeHasMore reports whether a Content-Range header ("bytes 0-8191/20000")
// describes a resource longer than the received bytes
func rangeHasMore(contentRange string, received int) bool {
	_, total, ok := strings.Cut(contentRange, "/")
	if !ok {
		return received == SampleSize
	}
	size, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		// "*" means unknown length
		return received == SampleSize
	}
	return size > received
}
