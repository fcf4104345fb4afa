package llm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildPrompt_TruncatesContent(t *testing.T) {
	req := JudgeRequest{Domain: "example.com", Content: strings.Repeat("a", 100)}

	prompt := BuildPrompt(req, 40)

	if !strings.Contains(prompt, strings.Repeat("a", 40)+"...") {
		t.Error("expected truncated content with ellipsis")
	}
	if strings.Contains(prompt, strings.Repeat("a", 41)) {
		t.Error("content exceeds the configured cap")
	}
}

func TestBuildPrompt_TruncatesAtRuneBoundary(t *testing.T) {
	req := JudgeRequest{Domain: "example.com", Content: strings.Repeat("ü", 100)}

	prompt := BuildPrompt(req, 51)

	if !utf8.ValidString(prompt) {
		t.Error("prompt contains an invalid UTF-8 sequence")
	}
	if !strings.Contains(prompt, strings.Repeat("ü", 25)+"...") {
		t.Error("expected content cut back to the previous rune boundary")
	}
}

func TestBuildPrompt_NoCapLeavesContent(t *testing.T) {
	req := JudgeRequest{Domain: "example.com", Content: "short policy text"}

	prompt := BuildPrompt(req, 0)

	if !strings.Contains(prompt, "short policy text") {
		t.Error("expected content untouched when no cap is configured")
	}
	if strings.Contains(prompt, "short policy text...") {
		t.Error("unexpected ellipsis without truncation")
	}
}
