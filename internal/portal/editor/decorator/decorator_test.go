package decorator

import (
	"bytes"
	"testing"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func renderString(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, n))
	return buf.String()
}

func TestClickSide(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		x     float64
		want  Side
	}{
		{"left edge", 100, 0, Before},
		{"left half", 100, 49.9, Before},
		{"middle", 100, 50, After},
		{"right edge", 100, 100, After},
		{"zero width", 0, 10, Before},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClickSide(tt.width, tt.x))
		})
	}
}

func TestRenderNode(t *testing.T) {
	r := NewHTMLRenderer(nil)

	t.Run("formatted text", func(t *testing.T) {
		n := edtypes.NewText("hello", edtypes.FormatBold|edtypes.FormatItalic)
		assert.Equal(t, "<strong><em>hello</em></strong>", renderString(t, r.RenderNode(n)))
	})

	t.Run("styled text", func(t *testing.T) {
		n := edtypes.NewText("big", 0)
		n.Attrs.Style = "font-size: 20px;"
		assert.Equal(t, `<span style="font-size: 20px;">big</span>`, renderString(t, r.RenderNode(n)))
	})

	t.Run("image with link", func(t *testing.T) {
		img := edtypes.NewImage("https://cdn.test/cat.png", "cat")
		img.Attrs.Href = "https://example.com"
		out := renderString(t, r.RenderNode(img))
		assert.Contains(t, out, `<a href="https://example.com"`)
		assert.Contains(t, out, `<img src="https://cdn.test/cat.png" alt="cat"/>`)
	})

	t.Run("decorator internals are skipped", func(t *testing.T) {
		img := edtypes.NewImage("https://cdn.test/cat.png", "cat")
		img.Children = []edtypes.SerializedNode{edtypes.NewText("hidden", 0)}
		assert.NotContains(t, renderString(t, r.RenderNode(img)), "hidden")
	})

	t.Run("custom decorator", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(edtypes.ImageNode, Entry{Flow: edtypes.FlowInline, Render: func(edtypes.SerializedNode) HostView {
			return element("figure")
		}})
		out := renderString(t, NewHTMLRenderer(reg).RenderNode(edtypes.NewParagraph(edtypes.NewImage("x", ""))))
		assert.Equal(t, "<p><figure></figure></p>", out)
	})
}

func TestRender_Sanitized(t *testing.T) {
	r := NewHTMLRenderer(nil)
	doc := edtypes.SerializedEditorState{Root: edtypes.NewNode(edtypes.RootNode, edtypes.Attrs{},
		edtypes.NewParagraph(
			edtypes.NewText("<script>alert(1)</script>", 0),
			edtypes.NewImage("javascript:alert(1)", "x"),
		),
		edtypes.NewYouTube("https://www.youtube.com/embed/abc123", "abc123"),
		edtypes.NewYouTube("https://evil.test/embed/abc123", "abc123"),
	)}

	out, err := r.Render(doc)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "evil.test")
	assert.Contains(t, out, "youtube.com/embed/abc123")
	assert.Contains(t, out, "&lt;script")
}

func TestHandleClick(t *testing.T) {
	s := state.New(true)
	doc := edtypes.SerializedEditorState{Root: edtypes.NewNode(edtypes.RootNode, edtypes.Attrs{},
		edtypes.NewParagraph(
			edtypes.NewText("ab", 0),
			edtypes.NewImage("https://cdn.test/cat.png", "cat"),
			edtypes.NewText("cd", 0),
		),
		edtypes.NewYouTube("https://www.youtube.com/embed/abc123", "abc123"),
	)}
	require.NoError(t, s.UpdateWith(state.UpdateOptions{Hydrate: true}, func(tx *state.Tx) error {
		return tx.ReplaceRoot(doc)
	}))
	para, _ := s.Snapshot().KeyAt([]int{0})
	img, _ := s.Snapshot().KeyAt([]int{0, 1})
	video, _ := s.Snapshot().KeyAt([]int{1})
	reg := Default()

	require.NoError(t, s.Update(func(tx *state.Tx) error {
		return reg.HandleClick(tx, img, 200, 30)
	}))
	sel := s.Snapshot().Selection()
	require.NotNil(t, sel)
	assert.Equal(t, state.ElementPoint(para, 1), sel.Anchor)
	assert.True(t, sel.IsCollapsed())

	require.NoError(t, s.Update(func(tx *state.Tx) error {
		return reg.HandleClick(tx, img, 200, 150)
	}))
	assert.Equal(t, state.ElementPoint(para, 2), s.Snapshot().Selection().Anchor)

	err := s.Update(func(tx *state.Tx) error {
		return reg.HandleClick(tx, video, 200, 150)
	})
	assert.ErrorIs(t, err, state.ErrNodeNotFound)
}
