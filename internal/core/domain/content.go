package domain

import (
	"fmt"
	"strings"
)

// ContentKind discriminates the Content union.
type ContentKind int

// Content kinds.
const (
	ContentText ContentKind = iota
	ContentFragments
)

// Content is chunk text as it arrives at the pipeline boundary: either a
// single string or a list of fragments. Call String once and work with
// plain text afterwards.
type Content struct {
	kind      ContentKind
	text      string
	fragments []string
}

// TextContent wraps a plain string.
func TextContent(s string) Content {
	return Content{kind: ContentText, text: s}
}

// FragmentContent wraps a list of text fragments.
func FragmentContent(parts []string) Content {
	return Content{kind: ContentFragments, fragments: parts}
}

// ContentFromAny lifts an untyped metadata value into Content.
// Fragment lists become ContentFragments, other non-string values are
// stringified, nil is the empty text.
func ContentFromAny(v any) Content {
	switch c := v.(type) {
	case nil:
		return TextContent("")
	case string:
		return TextContent(c)
	case Content:
		return c
	case []string:
		return FragmentContent(c)
	case []any:
		parts := make([]string, len(c))
		for i, p := range c {
			if s, ok := p.(string); ok {
				parts[i] = s
			} else {
				parts[i] = fmt.Sprint(p)
			}
		}
		return FragmentContent(parts)
	case fmt.Stringer:
		return TextContent(c.String())
	default:
		return TextContent(fmt.Sprint(c))
	}
}

// Kind reports which variant is held.
func (c Content) Kind() ContentKind {
	return c.kind
}

// String normalizes the content to plain text. Fragments are joined with
// single spaces.
func (c Content) String() string {
	if c.kind == ContentFragments {
		return strings.Join(c.fragments, " ")
	}
	return c.text
}
