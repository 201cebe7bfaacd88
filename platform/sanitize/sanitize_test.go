package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nguyễn Văn A", "Nguyễn Văn A"},
		{"  Công trình\n\tQuận 1 ", "Công trình Quận 1"},
		{`<img src=x onerror="alert(1)">Kho hàng`, "Kho hàng"},
		{"<script>alert(1)</script>", "alert(1)"},
		{"a < b", "a b"},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Fatalf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabelTruncates(t *testing.T) {
	got := Label(strings.Repeat("đ", 200))
	if n := utf8.RuneCountInString(got); n != MaxLabelRunes {
		t.Fatalf("expected %d runes, got %d", MaxLabelRunes, n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
}
