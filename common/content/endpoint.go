package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/cel-go/cel"
)

// EndpointPredicate decides whether a URL is an API endpoint that answers with
// JSON. Such endpoints are asked for JSON instead of a byte range.
type EndpointPredicate interface {
	IsJSONEndpoint(rawURL string) bool
}

// SubstringPredicate matches when the URL path contains any of its markers
type SubstringPredicate []string

// DefaultJSONEndpointMarkers are the explorer API paths known to serve JSON
var DefaultJSONEndpointMarkers = SubstringPredicate{
	"/inscription/", "/inscriptions", "/block/", "/sat/", "/address/", "/output/", "/r/",
}

// IsJSONEndpoint implements EndpointPredicate
func (p SubstringPredicate) IsJSONEndpoint(rawURL string) bool {
	urlPath := pathOf(rawURL)
	for _, marker := range p {
		if strings.Contains(urlPath, marker) {
			return true
		}
	}
	return false
}

// CELPredicate evaluates a CEL expression over the variables url (the full URL)
// and path (its path component). The expression must return a bool.
type CELPredicate struct {
	expr string
	prg  cel.Program
}

// NewCELPredicate compiles expr once
func NewCELPredicate(expr string) (*CELPredicate, error) {
	env, err := cel.NewEnv(
		cel.Variable("url", cel.StringType),
		cel.Variable("path", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("CEL expression must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &CELPredicate{expr: expr, prg: prg}, nil
}

// IsJSONEndpoint implements EndpointPredicate; evaluation errors read as false
func (p *CELPredicate) IsJSONEndpoint(rawURL string) bool {
	out, _, err := p.prg.Eval(map[string]interface{}{
		"url":  rawURL,
		"path": pathOf(rawURL),
	})
	if err != nil {
		return false
	}

	result, ok := out.Value().(bool)
	return ok && result
}

// String returns the source expression
func (p *CELPredicate) String() string {
	return p.expr
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
