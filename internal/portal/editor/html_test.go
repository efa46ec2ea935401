package editor

import (
	"testing"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTML_InlineFragment(t *testing.T) {
	nodes, err := ParseHTMLString(`<b>bold</b> <i>it</i>`)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "bold", nodes[0].Text)
	assert.Equal(t, edtypes.FormatBold, nodes[0].Format)
	assert.Equal(t, " ", nodes[1].Text)
	assert.Equal(t, edtypes.FormatItalic, nodes[2].Format)
}

func TestParseHTML_SingleParagraphIsInline(t *testing.T) {
	nodes, err := ParseHTMLString("<p>\n  Hello <strong><em>world</em></strong>\n</p>")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Hello ", nodes[0].Text)
	assert.Equal(t, "world", nodes[1].Text)
	assert.Equal(t, edtypes.FormatBold|edtypes.FormatItalic, nodes[1].Format)
}

func TestParseHTML_Blocks(t *testing.T) {
	nodes, err := ParseHTMLString(`
<h2>Title</h2>
<p style="text-align: center">one<br>two</p>
<ul><li>a</li><li>b<ul><li>c</li></ul></li></ul>
<ol start="3"><li>x</li></ol>`)
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.Equal(t, edtypes.HeadingNode, nodes[0].Type)
	assert.Equal(t, "h2", nodes[0].Tag)

	p := nodes[1]
	assert.Equal(t, edtypes.ParagraphNode, p.Type)
	assert.Equal(t, "center", p.Align)
	require.Len(t, p.Children, 3)
	assert.Equal(t, edtypes.LineBreakNode, p.Children[1].Type)

	ul := nodes[2]
	assert.Equal(t, "bullet", ul.ListType)
	require.Len(t, ul.Children, 3)
	assert.Equal(t, "a", ul.Children[0].TextContent())
	assert.Equal(t, edtypes.ListNode, ul.Children[2].Children[0].Type)

	ol := nodes[3]
	assert.Equal(t, "number", ol.ListType)
	assert.Equal(t, 3, ol.Start)
	assert.Equal(t, 3, ol.Children[0].Value)
}

func TestParseHTML_Styles(t *testing.T) {
	nodes, err := ParseHTMLString(`<span style="font-size: 80px; color: #FF0000">big</span>`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 50, edtypes.FontSize(nodes[0].Style))
	assert.Contains(t, nodes[0].Style, "color")
}

func TestParseHTML_LinksAndMedia(t *testing.T) {
	nodes, err := ParseHTMLString(`<p><a href="example.com">site</a> <a href="javascript:alert(1)">bad</a></p>` +
		`<p><img src="https://cdn.example.com/a.png" alt="pic" width="120"></p>` +
		`<iframe src="https://www.youtube.com/embed/dQw4w9WgXcQ"></iframe>`)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	first := nodes[0].Children
	require.NotEmpty(t, first)
	assert.Equal(t, edtypes.LinkNode, first[0].Type)
	assert.Equal(t, "https://example.com", first[0].URL)
	for _, c := range first[1:] {
		assert.NotEqual(t, edtypes.LinkNode, c.Type)
	}

	img := nodes[1].Children[0]
	assert.Equal(t, edtypes.ImageNode, img.Type)
	assert.Equal(t, "pic", img.AltText)
	assert.Equal(t, 120, img.Width)

	assert.Equal(t, edtypes.YouTubeNode, nodes[2].Type)
	assert.Equal(t, "dQw4w9WgXcQ", nodes[2].VideoID)
}

func TestParseHTML_Table(t *testing.T) {
	nodes, err := ParseHTMLString(`<table><thead><tr><th>H</th><th>I</th></tr></thead>` +
		`<tbody><tr><td colspan="2">cell</td></tr></tbody></table>`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	table := nodes[0]
	assert.Equal(t, edtypes.TableNode, table.Type)
	require.Len(t, table.Children, 2)
	assert.Equal(t, 1, table.Children[0].Children[0].HeaderState)
	cell := table.Children[1].Children[0]
	assert.Equal(t, 2, cell.ColSpan)
	require.Len(t, cell.Children, 1)
	assert.Equal(t, "cell", cell.Children[0].TextContent())
}

func TestParseHTML_ScriptsDropped(t *testing.T) {
	nodes, err := ParseHTMLString(`<p>safe<script>alert(1)</script></p>`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "safe", nodes[0].Text)
}

func TestParseHTML_GoogleDocs(t *testing.T) {
	nodes, err := ParseHTMLString(`<b style="font-weight:normal;" id="docs-internal-guid-1234">` +
		`<span style="font-weight:700">bold</span><span style="font-style:italic">it</span></b>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, edtypes.FormatBold, nodes[0].Format)
	assert.Equal(t, edtypes.FormatItalic, nodes[1].Format)
}
