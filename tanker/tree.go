package tanker

import (
	"errors"
	"strings"
)

// Canonical names of the tags with special meaning.
const (
	TagParam   = "I18N:PARAM"
	TagDynamic = "I18N:DYNAMIC"
	TagJs      = "I18N:JS"
)

// Tree builds the node tree of one translation value from parser events.
// Open nodes are kept on an explicit stack; the bottom entry is the root.
type Tree struct {
	root         *Node
	stack        []*Node
	parametrized bool
}

// NewTree returns an empty tree whose context is the root node.
func NewTree() *Tree {
	root := &Node{Kind: KindRoot}
	return &Tree{root: root, stack: []*Node{root}}
}

// Root returns the document node.
func (t *Tree) Root() *Node {
	return t.root
}

// Parametrized reports whether any node other than Unknown was opened.
func (t *Tree) Parametrized() bool {
	return t.parametrized
}

// Depth returns the number of open nodes above the root.
func (t *Tree) Depth() int {
	return len(t.stack) - 1
}

func (t *Tree) context() *Node {
	return t.stack[len(t.stack)-1]
}

// OpenTag pushes the node for a canonical tag name (I18N:PARAM) with
// attributes keyed by upper-case names.
func (t *Tree) OpenTag(name string, attrs map[string]string) {
	ctx := t.context()
	n := &Node{Tag: name}

	switch {
	case name == TagParam:
		n.Kind = KindParam
	case name == TagDynamic:
		keyset, key := attrs["KEYSET"], attrs["KEY"]
		if keyset == "" || key == "" {
			n.Kind = KindDynamicBare
			break
		}
		if project := attrs["PROJECT"]; project != "" {
			keyset = "i-" + project + "__" + keyset
		}
		n.Kind = KindDynamic
		n.Keyset = strings.ToLower(keyset)
		n.Key = strings.ToLower(key)
	case name == TagJs && ctx.Kind == KindDynamicBare:
		n.Kind = KindJs
	case ctx.Kind == KindDynamic:
		n.Kind = KindProperty
		n.Name = strings.ToLower(localName(name))
	default:
		n.Kind = KindUnknown
	}

	ctx.Children = append(ctx.Children, n)
	t.stack = append(t.stack, n)

	if n.Kind != KindUnknown {
		t.parametrized = true
	}
}

// Text appends text to the current context. Text directly inside a dynamic
// tag only carries formatting and is dropped.
func (t *Tree) Text(text string) {
	ctx := t.context()

	kind := KindText
	switch ctx.Kind {
	case KindDynamic, KindDynamicBare:
		return
	case KindParam:
		kind = KindParamCall
	}

	if n := len(ctx.Children); n > 0 {
		if last := ctx.Children[n-1]; last.Kind == kind {
			last.Text += text
			return
		}
	}
	ctx.Children = append(ctx.Children, &Node{Kind: kind, Text: text})
}

// CloseTag pops the current context. A node closed without children gets an
// empty text child, so an empty tag means an empty string.
func (t *Tree) CloseTag() error {
	if len(t.stack) == 1 {
		return errors.New("close tag without open tag")
	}
	if len(t.context().Children) == 0 {
		t.Text("")
	}
	t.stack = t.stack[:len(t.stack)-1]
	return nil
}

// Render returns the expression code for the tree.
func (t *Tree) Render() string {
	return render(t.root, t.parametrized)
}

func localName(tag string) string {
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
