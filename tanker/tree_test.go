package tanker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeBuildsKinds(t *testing.T) {
	tree, err := Build(`a<i18n:dynamic project="p" keyset="s" key="k"><i18n:count><i18n:param>n</i18n:param></i18n:count></i18n:dynamic><i18n:x>y</i18n:x>`)
	require.NoError(t, err)
	require.True(t, tree.Parametrized())
	assert.Equal(t, 0, tree.Depth())

	root := tree.Root()
	require.Len(t, root.Children, 3)
	assert.Equal(t, KindText, root.Children[0].Kind)
	assert.Equal(t, "a", root.Children[0].Text)

	dyn := root.Children[1]
	assert.Equal(t, KindDynamic, dyn.Kind)
	assert.Equal(t, "i-p__s", dyn.Keyset)
	assert.Equal(t, "k", dyn.Key)
	require.Len(t, dyn.Children, 1)

	prop := dyn.Children[0]
	assert.Equal(t, KindProperty, prop.Kind)
	assert.Equal(t, "count", prop.Name)
	require.Len(t, prop.Children, 1)

	param := prop.Children[0]
	assert.Equal(t, KindParam, param.Kind)
	require.Len(t, param.Children, 1)
	assert.Equal(t, KindParamCall, param.Children[0].Kind)
	assert.Equal(t, "n", param.Children[0].Text)

	unknown := root.Children[2]
	assert.Equal(t, KindUnknown, unknown.Kind)
	assert.Equal(t, "I18N:X", unknown.Tag)
}

func TestTreeOnlyUnknownIsNotParametrized(t *testing.T) {
	tree := NewTree()
	tree.OpenTag("I18N:WHATEVER", nil)
	tree.Text("text")
	require.NoError(t, tree.CloseTag())

	assert.False(t, tree.Parametrized())
	assert.Equal(t, `""`, tree.Render())
}

func TestTreeEmptyTagGetsEmptyText(t *testing.T) {
	tree := NewTree()
	tree.OpenTag(TagParam, nil)
	assert.Equal(t, 1, tree.Depth())
	require.NoError(t, tree.CloseTag())

	param := tree.Root().Children[0]
	require.Len(t, param.Children, 1)
	assert.Equal(t, KindParamCall, param.Children[0].Kind)
	assert.Equal(t, "", param.Children[0].Text)
}

func TestTreeDynamicDropsText(t *testing.T) {
	tree := NewTree()
	tree.OpenTag(TagDynamic, map[string]string{"KEYSET": "s", "KEY": "k"})
	tree.Text("\n   ")
	require.NoError(t, tree.CloseTag())

	assert.Empty(t, tree.Root().Children[0].Children)
	assert.Equal(t, `function(params) { return this.keyset("s").key("k", {}) }`, tree.Render())
}

func TestTreeDynamicWithoutKeyIsBare(t *testing.T) {
	tree := NewTree()
	tree.OpenTag(TagDynamic, map[string]string{"KEYSET": "s"})
	tree.OpenTag(TagJs, nil)
	tree.Text("return 1;")
	require.NoError(t, tree.CloseTag())
	require.NoError(t, tree.CloseTag())

	bare := tree.Root().Children[0]
	assert.Equal(t, KindDynamicBare, bare.Kind)
	assert.Equal(t, KindJs, bare.Children[0].Kind)
}

func TestTreeMergesAdjacentText(t *testing.T) {
	tree := NewTree()
	tree.Text("a")
	tree.Text("<b>")
	tree.Text("c")

	require.Len(t, tree.Root().Children, 1)
	assert.Equal(t, "a<b>c", tree.Root().Children[0].Text)
}

func TestTreeCloseWithoutOpen(t *testing.T) {
	assert.Error(t, NewTree().CloseTag())
}

type recorder struct {
	events []string
}

func (r *recorder) OpenTag(name string, attrs map[string]string) {
	r.events = append(r.events, "open "+name+" "+attrs["KEY"])
}

func (r *recorder) Text(text string) {
	r.events = append(r.events, "text "+text)
}

func (r *recorder) CloseTag() error {
	r.events = append(r.events, "close")
	return nil
}

func TestParseEvents(t *testing.T) {
	var r recorder
	err := Parse(`x <b>&amp;</b><!-- c --><I18N:Dynamic KEY="Up" keyset="s"/>`, &r)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"text x ",
		"text <b>",
		"text &amp;",
		"text </b>",
		"open I18N:DYNAMIC Up",
		"close",
	}, r.events)
}

func TestLint(t *testing.T) {
	issues, err := Lint(`Hello <i18n:prarm>who</i18n:prarm> and <i18n:param>x</i18n:param>`)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, Issue{Tag: "i18n:prarm", Dropped: "who"}, issues[0])

	issues, err = Lint("plain")
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, err = Lint(`<i18n:param>`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNormalizePlural(t *testing.T) {
	got := NormalizePlural([]string{"a", "b", "c", "d", "extra"})
	assert.Equal(t,
		`<i18n:dynamic project="tanker" keyset="dynamic" key="plural_adv">`+
			`<i18n:count><i18n:param>count</i18n:param></i18n:count>`+
			`<i18n:one>a</i18n:one><i18n:some>b</i18n:some><i18n:many>c</i18n:many><i18n:none>d</i18n:none>`+
			`</i18n:dynamic>`,
		got)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "dynamic_bare", KindDynamicBare.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
