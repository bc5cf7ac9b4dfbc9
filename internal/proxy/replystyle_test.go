package proxy

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildReplyStyle_Basic(t *testing.T) {
	style := BuildReplyStyle("123", "https://discord.com/channels/1/2/3", "original message", false, false)

	if !strings.HasPrefix(style.HeaderLine, "-# ↩︎ Replying to <@123>") {
		t.Errorf("header missing author mention: %q", style.HeaderLine)
	}
	if !strings.Contains(style.HeaderLine, "[original message](https://discord.com/channels/1/2/3)") {
		t.Errorf("header missing hyperlinked snippet: %q", style.HeaderLine)
	}
	if !style.Mentions.ParseUsers {
		t.Error("reply mentions must permit user mentions")
	}
	if style.Mentions.RepliedUser {
		t.Error("reply mentions must suppress the replied-user ping")
	}
}

func TestBuildReplyStyle_NoAuthor(t *testing.T) {
	style := BuildReplyStyle("", "", "hello", false, false)
	if strings.Contains(style.HeaderLine, "<@") {
		t.Errorf("generic header must not mention anyone: %q", style.HeaderLine)
	}
	if !strings.HasPrefix(style.HeaderLine, "-# ↩︎ Replying ") {
		t.Errorf("unexpected generic header: %q", style.HeaderLine)
	}
}

func TestBuildReplyStyle_NoURLSkipsHyperlink(t *testing.T) {
	style := BuildReplyStyle("123", "", "hello", false, false)
	if strings.Contains(style.HeaderLine, "](") {
		t.Errorf("header must not hyperlink without a URL: %q", style.HeaderLine)
	}
	if !strings.HasSuffix(style.HeaderLine, "hello") {
		t.Errorf("snippet missing: %q", style.HeaderLine)
	}
}

func TestBuildReplyStyle_Markers(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		embeds, atts   bool
		wantContains   []string
		wantNoContains []string
	}{
		{"attachment only", "", false, true, []string{"[attachment]"}, []string{"[embed]"}},
		{"embed only", "", true, false, []string{"[embed]"}, []string{"[attachment]"}},
		{"both with text", "see this", true, true, []string{"[attachment]", "[embed]", "see this"}, nil},
		{"multiline flattened", "line one\nline two", false, false, []string{"line one line two"}, []string{"\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := BuildReplyStyle("1", "", tt.content, tt.embeds, tt.atts)
			for _, want := range tt.wantContains {
				if !strings.Contains(style.HeaderLine, want) {
					t.Errorf("header %q missing %q", style.HeaderLine, want)
				}
			}
			for _, not := range tt.wantNoContains {
				if strings.Contains(style.HeaderLine, not) {
					t.Errorf("header %q should not contain %q", style.HeaderLine, not)
				}
			}
		})
	}
}

func TestBuildReplyStyle_BudgetEnforced(t *testing.T) {
	long := strings.Repeat("x", 5000)
	for _, url := range []string{"", "https://discord.com/channels/1/2/3"} {
		style := BuildReplyStyle("12345678901234567", url, long, false, false)
		if n := utf8.RuneCountInString(style.HeaderLine); n > messageCharLimit {
			t.Errorf("header length %d exceeds budget %d (url=%q)", n, messageCharLimit, url)
		}
		if !strings.Contains(style.HeaderLine, "...") {
			t.Errorf("truncated snippet missing ellipsis marker (url=%q)", url)
		}
	}
}
