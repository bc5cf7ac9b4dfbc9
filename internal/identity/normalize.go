package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// ErrInvalidTrigger is returned for triggers that are empty or lack the
// literal "text" placeholder.
var ErrInvalidTrigger = fmt.Errorf("invalid alias trigger")

// textToken matches the placeholder word "text" at a word boundary,
// case-insensitively. The placeholder marks where the message body goes.
var textToken = regexp.MustCompile(`(?i)\btext\b`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeTrigger canonicalizes a raw alias trigger for storage and
// matching: trim, lowercase, collapse whitespace runs to a single space.
// The trigger must contain the word "text" (any case) exactly where the
// proxied body is substituted.
func NormalizeTrigger(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: trigger must be a non-empty string", ErrInvalidTrigger)
	}
	if !textToken.MatchString(trimmed) {
		return "", fmt.Errorf("%w: trigger must contain the literal word %q", ErrInvalidTrigger, "text")
	}
	return whitespaceRun.ReplaceAllString(strings.ToLower(trimmed), " "), nil
}

// ClassifyTrigger reports how a normalized trigger is matched. Bracketed
// triggers ("{text}", "[text]", "<text>") wrap the body on both sides;
// everything else anchors at the message start.
func ClassifyTrigger(norm string) store.AliasKind {
	if strings.HasPrefix(norm, "{") || strings.HasPrefix(norm, "[") || strings.HasPrefix(norm, "<") {
		return store.KindPattern
	}
	return store.KindPrefix
}
