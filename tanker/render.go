package tanker

import (
	"encoding/json"
	"strings"
)

// emptyLiteral is rendered wherever an expression would otherwise be empty.
const emptyLiteral = `""`

// Quote returns s as a double-quoted string literal. Markup characters are
// kept as is; only quotes, backslashes and control characters are escaped.
func Quote(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}

func render(root *Node, parametrized bool) string {
	if !parametrized {
		// Only text and unknown nodes can be present.
		var b strings.Builder
		for _, c := range root.Children {
			if c.Kind == KindText {
				b.WriteString(c.Text)
			}
		}
		return Quote(b.String())
	}
	return "function(params) { return " + body(root, " + ") + " }"
}

func renderNode(n *Node) string {
	switch n.Kind {
	case KindText, KindParamCall:
		return Quote(n.Text)
	case KindParam:
		return "params[" + body(n, " + ") + "]"
	case KindDynamic:
		return "this.keyset(" + Quote(n.Keyset) + ").key(" + Quote(n.Key) + ", {" + join(n, ", ") + "})"
	case KindProperty:
		return Quote(n.Name) + ": " + body(n, " + ")
	case KindJs:
		return "(function(params) { " + code(n) + " }).call(this, params)"
	case KindDynamicBare, KindRoot:
		return body(n, "")
	case KindUnknown:
		return ""
	}
	panic("tanker: unhandled node kind " + n.Kind.String())
}

// join renders the children of n, skipping unknown subtrees.
func join(n *Node, sep string) string {
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind == KindUnknown {
			continue
		}
		parts = append(parts, renderNode(c))
	}
	return strings.Join(parts, sep)
}

// body is join for expression slots, which are never left empty.
func body(n *Node, sep string) string {
	if s := join(n, sep); s != "" {
		return s
	}
	return emptyLiteral
}

// code renders the children of a js node as raw source. Text is written
// verbatim; other nodes are rendered as expressions.
func code(n *Node) string {
	var b strings.Builder
	for _, c := range n.Children {
		switch c.Kind {
		case KindUnknown:
			continue
		case KindText:
			if c.Text == "" {
				b.WriteString(emptyLiteral)
				continue
			}
			b.WriteString(c.Text)
		default:
			b.WriteString(renderNode(c))
		}
	}
	return b.String()
}
