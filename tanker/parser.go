package tanker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// sentinel is written before the value so that the tokenizer never sees
// leading whitespace as the start of the document.
const sentinel = "<!---->"

var namespace = []byte("i18n:")

// ErrMalformed is wrapped by every markup syntax error.
var ErrMalformed = errors.New("malformed tanker markup")

// SyntaxError describes malformed markup. Offset is a byte offset into the
// parsed value.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("tanker: %s at offset %d", e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformed
}

// Handler receives parser events. Tag names are canonical (I18N:PARAM) and
// attribute names are upper-cased.
type Handler interface {
	OpenTag(name string, attrs map[string]string)
	Text(text string)
	CloseTag() error
}

// Parse scans value and reports its i18n tags and text to h. Tags outside
// the i18n namespace, character references and end tags of such tags are
// reported verbatim as text. Comments and doctypes are dropped.
func Parse(value string, h Handler) error {
	z := html.NewTokenizer(strings.NewReader(sentinel + value))

	var open []string
	offset := -len(sentinel)

	for {
		tt := z.Next()
		// TagName lower-cases the token in place, so copy first.
		raw := string(z.Raw())
		pos := offset
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return fmt.Errorf("tokenizing markup: %w", err)
			}
			if raw != "" {
				if isMarkupTag(raw) {
					return &SyntaxError{Offset: pos, Msg: "unterminated tag " + quoteTag(raw)}
				}
				h.Text(raw)
			}
			if n := len(open); n > 0 {
				return &SyntaxError{Offset: len(value), Msg: "unclosed <" + strings.ToLower(open[n-1]) + ">"}
			}
			return nil

		case html.TextToken:
			h.Text(raw)

		case html.CommentToken, html.DoctypeToken:

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !isNamespaced(name) {
				z.NextIsNotRawText()
				h.Text(raw)
				continue
			}
			tag := strings.ToUpper(string(name))
			attrs := make(map[string]string)
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				attrs[strings.ToUpper(string(k))] = string(v)
			}

			h.OpenTag(tag, attrs)
			if tt == html.SelfClosingTagToken {
				if err := h.CloseTag(); err != nil {
					return &SyntaxError{Offset: pos, Msg: err.Error()}
				}
				continue
			}
			open = append(open, tag)

		case html.EndTagToken:
			name, _ := z.TagName()
			if !isNamespaced(name) {
				h.Text(raw)
				continue
			}
			tag := strings.ToUpper(string(name))
			n := len(open)
			if n == 0 {
				return &SyntaxError{Offset: pos, Msg: "unexpected </" + strings.ToLower(tag) + ">"}
			}
			if open[n-1] != tag {
				return &SyntaxError{
					Offset: pos,
					Msg:    fmt.Sprintf("</%s> does not close <%s>", strings.ToLower(tag), strings.ToLower(open[n-1])),
				}
			}
			open = open[:n-1]
			if err := h.CloseTag(); err != nil {
				return &SyntaxError{Offset: pos, Msg: err.Error()}
			}
		}
	}
}

func isNamespaced(name []byte) bool {
	return len(name) > len(namespace) && bytes.HasPrefix(name, namespace)
}

// isMarkupTag reports whether raw starts an i18n start or end tag.
func isMarkupTag(raw string) bool {
	s := strings.TrimPrefix(raw, "<")
	s = strings.TrimPrefix(s, "/")
	return len(s) > len(namespace) && strings.EqualFold(s[:len(namespace)], string(namespace))
}

func quoteTag(raw string) string {
	const limit = 32
	if len(raw) > limit {
		raw = raw[:limit] + "..."
	}
	return fmt.Sprintf("%q", raw)
}
