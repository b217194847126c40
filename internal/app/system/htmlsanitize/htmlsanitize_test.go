package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
)

func TestPlain(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"plain text", "Robotics Club", "Robotics Club"},
		{"strips tags", "<b>Week 1</b> notes", "Week 1 notes"},
		{"drops script body", "<script>alert('x')</script>Hi", "Hi"},
		{"keeps punctuation", "Don't & <i>stop</i>", "Don't & stop"},
		{"trims", "  spaced  ", "spaced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Plain(tt.in); got != tt.want {
				t.Errorf("Plain(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRich_RemovesScript(t *testing.T) {
	got := htmlsanitize.Rich("<p>Hello</p><script>alert('xss')</script>")
	if got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestRich_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Rich(`<a href="https://example.com">Link</a>`)
	if !strings.Contains(got, "https://example.com") {
		t.Errorf("expected link preserved, got %q", got)
	}
}

func TestRich_RemovesJavascriptHref(t *testing.T) {
	got := htmlsanitize.Rich(`<a href="javascript:alert('xss')">Click</a>`)
	if strings.Contains(got, "javascript:") {
		t.Errorf("expected javascript: href removed, got %q", got)
	}
}

func TestRich_RemovesIframe(t *testing.T) {
	got := htmlsanitize.Rich(`<p>Content</p><iframe src="https://evil.com"></iframe>`)
	if strings.Contains(got, "iframe") || !strings.Contains(got, "Content") {
		t.Errorf("unexpected result %q", got)
	}
}

func TestRich_KeepsLists(t *testing.T) {
	in := "<ul><li>Item 1</li><li>Item 2</li></ul>"
	if got := htmlsanitize.Rich(in); got != in {
		t.Errorf("expected list preserved, got %q", got)
	}
}
