package proxy

import (
	"strings"
	"unicode/utf8"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

// MatchResult pairs the alias that matched an incoming message with the
// body text extracted for this invocation.
type MatchResult struct {
	Alias        store.Alias
	RenderedText string
}

// Match finds the alias that claims the given message text, or nil.
//
// Prefix aliases are tried first: the literal prefix is everything in the
// normalized trigger before the "text" placeholder, compared
// case-insensitively against the message start, longest prefix winning
// (ties resolved by the order aliases arrive from the store). A trigger
// whose literal prefix is empty (the placeholder comes first) is inert:
// it would otherwise claim every message the user sends. Pattern aliases
// are only consulted when no prefix alias matched; the first pattern
// whose prefix/suffix bracket a non-empty body wins.
//
// The rendered body keeps the original casing and internal whitespace of
// the input; only the matched trigger markup and outer whitespace are
// removed.
func Match(aliases []store.Alias, text string) *MatchResult {
	var prefixes, patterns []store.Alias
	for _, a := range aliases {
		if a.Kind == store.KindPattern {
			patterns = append(patterns, a)
		} else {
			prefixes = append(prefixes, a)
		}
	}

	var best *store.Alias
	bestLen := 0 // strict > keeps empty prefixes inert
	bestN := 0
	for i := range prefixes {
		prefix, _, _ := strings.Cut(prefixes[i].TriggerNorm, "text")
		if n := prefixByteLen(text, prefix); n >= 0 && len(prefix) > bestLen {
			best = &prefixes[i]
			bestLen = len(prefix)
			bestN = n
		}
	}
	if best != nil {
		// Drop the matched prefix, then one leading "text" literal the
		// user typed out, then outer whitespace.
		rest := text[bestN:]
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "text") {
			rest = rest[4:]
		}
		return &MatchResult{Alias: *best, RenderedText: strings.TrimSpace(rest)}
	}

	for _, a := range patterns {
		parts := strings.Split(a.TriggerNorm, "text")
		if len(parts) != 2 {
			// Normalization guarantees a single placeholder; skip
			// anything malformed rather than guessing.
			continue
		}
		pn := prefixByteLen(text, parts[0])
		sn := suffixByteLen(text, parts[1])
		if pn < 0 || sn < 0 || pn >= len(text)-sn {
			continue
		}
		body := text[pn : len(text)-sn]
		return &MatchResult{Alias: a, RenderedText: body}
	}

	return nil
}

// prefixByteLen returns how many bytes at the start of s lowercase to
// prefix, or -1 when they don't. Offsets are counted against s itself so
// runes whose lowercase form has a different byte length (İ) cannot skew
// the slice boundary into the middle of a rune.
func prefixByteLen(s, prefix string) int {
	n := 0
	rem := prefix
	for n < len(s) && rem != "" {
		r, size := utf8.DecodeRuneInString(s[n:])
		lr := strings.ToLower(string(r))
		if !strings.HasPrefix(rem, lr) {
			return -1
		}
		rem = rem[len(lr):]
		n += size
	}
	if rem != "" {
		return -1
	}
	return n
}

// suffixByteLen is prefixByteLen from the other end of s.
func suffixByteLen(s, suffix string) int {
	n := 0
	rem := suffix
	for n < len(s) && rem != "" {
		r, size := utf8.DecodeLastRuneInString(s[:len(s)-n])
		lr := strings.ToLower(string(r))
		if !strings.HasSuffix(rem, lr) {
			return -1
		}
		rem = rem[:len(rem)-len(lr)]
		n += size
	}
	if rem != "" {
		return -1
	}
	return n
}
