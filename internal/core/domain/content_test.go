package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stringerValue struct{}

func (stringerValue) String() string { return "from stringer" }

func TestContentFromAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		kind     ContentKind
		expected string
	}{
		{"nil is empty text", nil, ContentText, ""},
		{"string", "hello world", ContentText, "hello world"},
		{"string slice joined with spaces", []string{"alpha", "beta", "gamma"}, ContentFragments, "alpha beta gamma"},
		{"any slice joined with spaces", []any{"alpha", 2, "gamma"}, ContentFragments, "alpha 2 gamma"},
		{"integer stringified", 42, ContentText, "42"},
		{"float stringified", 1.5, ContentText, "1.5"},
		{"stringer", stringerValue{}, ContentText, "from stringer"},
		{"content passes through", FragmentContent([]string{"a", "b"}), ContentFragments, "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ContentFromAny(tt.input)
			assert.Equal(t, tt.kind, c.Kind())
			assert.Equal(t, tt.expected, c.String())
		})
	}
}

func TestTextContent(t *testing.T) {
	c := TextContent("plain")

	assert.Equal(t, ContentText, c.Kind())
	assert.Equal(t, "plain", c.String())
}

func TestFragmentContent_Empty(t *testing.T) {
	assert.Equal(t, "", FragmentContent(nil).String())
}
