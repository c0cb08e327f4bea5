package validation

import (
	"fmt"
	"regexp"
)

// contentIDPattern is <64 hex txid>i<output index>
var contentIDPattern = regexp.MustCompile(`^[0-9a-f]{64}i[0-9]+$`)

// ValidateContentID checks that id is an inscription identifier
func ValidateContentID(id string) error {
	if id == "" {
		return fmt.Errorf("content id is required")
	}
	if !contentIDPattern.MatchString(id) {
		return fmt.Errorf("invalid content id %q: expected <64 hex chars>i<index>", id)
	}
	return nil
}
