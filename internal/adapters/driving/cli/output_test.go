package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"short", "hello world", 20, "hello world"},
		{"collapses whitespace", "hello\n\n  world\t!", 20, "hello world !"},
		{"truncates", "abcdefghijklmnop", 10, "abcdefg..."},
		{"multibyte", "ééééééééééé", 8, "ééééé..."},
		{"empty", "   ", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.text, tt.n))
		})
	}
}

func TestPrinter_PlainWhenNotTerminal(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	p := newPrinter(cmd)
	p.Heading("Results:")
	p.Warning("careful %d", 1)

	assert.False(t, p.styled)
	assert.Equal(t, "Results:\ncareful 1\n", buf.String())
}
