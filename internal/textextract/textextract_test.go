package textextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"entity inside paragraph", "<p>A &amp; B</p>", "A & B"},
		{"no tags", "  plain text &lt;kept&gt;  ", "plain text <kept>"},
		{"no tags no entities", "already clean", "already clean"},
		{"nested markup", `<div class="x"><p>Hello <strong>world</strong></p></div>`, "Hello world"},
		{"confluence macro", `<ac:structured-macro ac:name="info"><ac:rich-text-body><p>Note</p></ac:rich-text-body></ac:structured-macro>`, "Note"},
		{"numeric entities", "<p>caf&#233; &#x2013; ok</p>", "café – ok"},
		{"nbsp trimmed", "<p>&nbsp;x</p>", "x"},
		{"multiline kept", "<p>one</p>\n<p>two</p>", "one\ntwo"},
		{"empty", "", ""},
		{"unterminated tag left alone", "a < b", "a < b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}
