package tanker

import "strconv"

// Kind identifies the role of a node in a parsed translation value.
type Kind int

const (
	// KindRoot is the document node. It renders as a bare literal until the
	// document becomes parametrized.
	KindRoot Kind = iota
	// KindParam is <i18n:param>: its body is the parameter name expression.
	KindParam
	// KindParamCall is a literal leaf directly inside a param.
	KindParamCall
	// KindDynamic is <i18n:dynamic keyset=".." key="..">, a call to another key.
	KindDynamic
	// KindDynamicBare is <i18n:dynamic> without keyset/key, a host for <i18n:js>.
	KindDynamicBare
	// KindProperty is a named argument of a dynamic call (count, one, some...).
	KindProperty
	// KindJs is a raw code snippet.
	KindJs
	// KindText is a literal text leaf.
	KindText
	// KindUnknown is an unrecognized i18n tag. It is parsed but never rendered.
	KindUnknown
)

var kindNames = [...]string{
	KindRoot:        "root",
	KindParam:       "param",
	KindParamCall:   "param_call",
	KindDynamic:     "dynamic",
	KindDynamicBare: "dynamic_bare",
	KindProperty:    "property",
	KindJs:          "js",
	KindText:        "text",
	KindUnknown:     "unknown",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is an element of the tree built for a single translation value.
type Node struct {
	Kind     Kind
	Children []*Node

	// Keyset and Key are set for KindDynamic.
	Keyset string
	Key    string
	// Name is set for KindProperty.
	Name string
	// Tag is the canonical tag name the node was opened with (I18N:PARAM).
	Tag string
	// Text is the unescaped content of KindText and KindParamCall leaves.
	Text string
}

// IsLeaf reports whether the node renders its own value instead of children.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindText || n.Kind == KindParamCall
}

// Walk calls fn for n and every descendant in document order, including
// the subtrees of Unknown nodes. Returning false skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
