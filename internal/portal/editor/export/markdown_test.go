package export

import (
	"testing"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(blocks ...edtypes.SerializedNode) edtypes.SerializedEditorState {
	return edtypes.SerializedEditorState{Root: edtypes.NewNode(edtypes.RootNode, edtypes.Attrs{}, blocks...)}
}

func TestMarkdown(t *testing.T) {
	checked, unchecked := true, false
	d := doc(
		edtypes.NewHeading(2, edtypes.NewText("Title", 0)),
		edtypes.NewParagraph(
			edtypes.NewText("plain ", 0),
			edtypes.NewText("bold", edtypes.FormatBold),
			edtypes.NewText(" and ", 0),
			edtypes.NewText("x := 1", edtypes.FormatCode),
			edtypes.NewText(" ", 0),
			edtypes.NewLink("https://example.com", edtypes.NewText("site", 0)),
		),
		edtypes.NewNode(edtypes.ListNode, edtypes.Attrs{ListType: "bullet", Tag: "ul"},
			edtypes.NewNode(edtypes.ListItemNode, edtypes.Attrs{Value: 1}, edtypes.NewText("one", 0)),
			edtypes.NewNode(edtypes.ListItemNode, edtypes.Attrs{Value: 2}, edtypes.NewText("two", 0)),
		),
		edtypes.NewNode(edtypes.ListNode, edtypes.Attrs{ListType: "check", Tag: "ul"},
			edtypes.NewNode(edtypes.ListItemNode, edtypes.Attrs{Value: 1, Checked: &checked}, edtypes.NewText("done", 0)),
			edtypes.NewNode(edtypes.ListItemNode, edtypes.Attrs{Value: 2, Checked: &unchecked}, edtypes.NewText("todo", 0)),
		),
	)

	out, err := Markdown(d)
	require.NoError(t, err)
	assert.Contains(t, out, "## Title")
	assert.Contains(t, out, "plain **bold** and `x := 1` [site](https://example.com)")
	assert.Contains(t, out, "- one")
	assert.Contains(t, out, "- two")
	assert.Contains(t, out, "[x] done")
	assert.Contains(t, out, "[ ] todo")
}

func TestMarkdown_Table(t *testing.T) {
	cell := func(text string) edtypes.SerializedNode {
		return edtypes.NewNode(edtypes.TableCellNode, edtypes.Attrs{}, edtypes.NewParagraph(edtypes.NewText(text, 0)))
	}
	d := doc(edtypes.NewNode(edtypes.TableNode, edtypes.Attrs{},
		edtypes.NewNode(edtypes.TableRowNode, edtypes.Attrs{}, cell("Name"), cell("Value")),
		edtypes.NewNode(edtypes.TableRowNode, edtypes.Attrs{}, cell("a")),
	))

	out, err := Markdown(d)
	require.NoError(t, err)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "Value")
	assert.Contains(t, out, "| a")
}

func TestFormatText(t *testing.T) {
	tests := []struct {
		name string
		node edtypes.SerializedNode
		want string
	}{
		{"plain escaped", edtypes.NewText("a*b_c", 0), `a\*b\_c`},
		{"bold keeps spaces outside", edtypes.NewText(" bold ", edtypes.FormatBold), " **bold** "},
		{"italic", edtypes.NewText("it", edtypes.FormatItalic), "*it*"},
		{"bold italic", edtypes.NewText("both", edtypes.FormatBold|edtypes.FormatItalic), "***both***"},
		{"strike", edtypes.NewText("gone", edtypes.FormatStrikethrough), "~~gone~~"},
		{"code is verbatim", edtypes.NewText("a*b", edtypes.FormatCode|edtypes.FormatBold), "`a*b`"},
		{"whitespace only", edtypes.NewText("  ", edtypes.FormatBold), "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatText(tt.node))
		})
	}
}

func TestPlainText(t *testing.T) {
	d := doc(
		edtypes.NewParagraph(edtypes.NewText("first", edtypes.FormatBold)),
		edtypes.NewParagraph(edtypes.NewLink("https://example.com", edtypes.NewText("second", 0))),
	)
	assert.Equal(t, "first\nsecond", PlainText(d))
}
