package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hal9000y/mailthread/internal/format"
)

func TestHTMLText(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "paragraphs_and_inline",
			input:    `<html><body><p>Hello <b>world</b></p><p>Second   line</p></body></html>`,
			expected: "Hello world\nSecond line",
		},
		{
			name:     "line_breaks",
			input:    `<div>PO 12345<br>Phase 2</div>`,
			expected: "PO 12345\nPhase 2",
		},
		{
			name:     "table_cells",
			input:    `<table><tr><td>Site</td><td>ZAK</td></tr><tr><td>Stage</td><td>3</td></tr></table>`,
			expected: "Site\tZAK\nStage\t3",
		},
		{
			name:     "drops_script_and_style",
			input:    `<html><head><title>t</title><style>p{}</style></head><body><script>x()</script><p>kept</p></body></html>`,
			expected: "kept",
		},
		{
			name: "squeezes_blank_lines",
			input: `<div>
				<p>one</p>


				<p>two</p>
			</div>`,
			expected: "one\n\ntwo",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, format.HTMLText([]byte(tc.input)))
		})
	}
}
