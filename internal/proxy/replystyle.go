package proxy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// messageCharLimit is Discord's hard cap on message body length.
const messageCharLimit = 2000

// MentionPolicy is a platform-agnostic allowed-mentions policy.
type MentionPolicy struct {
	// ParseUsers permits resolving <@id> user mentions in the content.
	ParseUsers bool
	// RepliedUser controls the native replied-user ping affordance.
	RepliedUser bool
}

// DefaultMentions pings nobody, ever.
var DefaultMentions = MentionPolicy{}

// ReplyMentions lets the reply header mention the original author while
// still suppressing the native replied-user ping.
var ReplyMentions = MentionPolicy{ParseUsers: true}

// ReplyStyle is a quoted header line to prepend to a proxied message.
type ReplyStyle struct {
	HeaderLine string
	Mentions   MentionPolicy
}

var snippetWhitespace = regexp.MustCompile(`\s+`)

// BuildReplyStyle renders the reply-quote header for a proxied message that
// answers an earlier message. The header never exceeds the platform's
// message budget on its own; overlong snippets are ellipsized.
//
// authorID and messageURL may be empty: no author yields a generic header,
// no URL skips the hyperlink wrapping.
func BuildReplyStyle(authorID, messageURL, content string, hasEmbeds, hasAttachments bool) ReplyStyle {
	snippet := buildSnippet(content, hasEmbeds, hasAttachments)

	var prefix string
	if authorID != "" {
		prefix = fmt.Sprintf("-# ↩︎ Replying to <@%s> **🡒** ", authorID)
	} else {
		prefix = "-# ↩︎ Replying **🡒** "
	}

	// Leave room for the fixed prefix and, when hyperlinked, the []()
	// markdown plus the URL itself.
	linkOverhead := 0
	if messageURL != "" {
		linkOverhead = 4 + utf8.RuneCountInString(messageURL)
	}
	maxSnippet := messageCharLimit - utf8.RuneCountInString(prefix) - linkOverhead
	snippet = ellipsize(snippet, maxSnippet)

	header := prefix + snippet
	if messageURL != "" {
		header = fmt.Sprintf("%s[%s](%s)", prefix, snippet, messageURL)
	}

	return ReplyStyle{HeaderLine: header, Mentions: ReplyMentions}
}

// buildSnippet reduces the original message to a one-line preview.
// Embed/attachment markers take precedence over (and accompany) any text.
func buildSnippet(content string, hasEmbeds, hasAttachments bool) string {
	var parts []string
	if hasAttachments {
		parts = append(parts, "[attachment]")
	}
	if hasEmbeds {
		parts = append(parts, "[embed]")
	}
	if text := strings.TrimSpace(snippetWhitespace.ReplaceAllString(content, " ")); text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// ellipsize hard-caps s at max runes, appending "..." when it had to cut.
func ellipsize(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
