package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/campuslink/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"ampersand", "Tom & Jerry", "Tom & Jerry"},
		{"apostrophe", "it's fine", "it's fine"},
		{"bold", "<b>hi</b> there", "hi there"},
		{"script removed", "<p>Hello</p><script>alert('xss')</script>", "Hello"},
		{"only script", "<script>alert(1)</script>", ""},
		{"onclick", `<button onclick="alert('xss')">Click</button>`, "Click"},
		{"whitespace kept", "  spaced  ", "  spaced  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.PlainText(tt.input)
			if got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHasMarkup(t *testing.T) {
	if htmlsanitize.HasMarkup("just text") {
		t.Error("expected plain text to have no markup")
	}
	if !htmlsanitize.HasMarkup("<i>x</i>") {
		t.Error("expected tags to count as markup")
	}
}
