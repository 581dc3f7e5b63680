package tanker

import "strings"

// Issue is a construct that compiles without error but loses content.
type Issue struct {
	// Tag is the lower-cased tag name, e.g. "i18n:prarm".
	Tag string
	// Dropped is the text inside the tag that never reaches the output.
	Dropped string
}

// Lint compiles raw and reports unknown i18n tags. Their subtrees are
// removed from the output, which usually means a misspelled tag name.
func Lint(raw any) ([]Issue, error) {
	value := Normalize(raw)
	if !HasMarkup(value) {
		return nil, nil
	}
	tree, err := Build(value)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	Walk(tree.Root(), func(n *Node) bool {
		if n.Kind != KindUnknown {
			return true
		}
		issues = append(issues, Issue{Tag: strings.ToLower(n.Tag), Dropped: text(n)})
		return false
	})
	return issues, nil
}

// text concatenates all text below n.
func text(n *Node) string {
	var b strings.Builder
	Walk(n, func(c *Node) bool {
		if c.IsLeaf() {
			b.WriteString(c.Text)
		}
		return true
	})
	return b.String()
}
