package commands_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T, editable bool, blocks ...edtypes.SerializedNode) (*commands.Dispatcher, *state.Store) {
	t.Helper()
	s := state.New(editable)
	if len(blocks) > 0 {
		doc := edtypes.SerializedEditorState{Root: edtypes.NewNode(edtypes.RootNode, edtypes.Attrs{}, blocks...)}
		require.NoError(t, s.UpdateWith(state.UpdateOptions{Hydrate: true}, func(tx *state.Tx) error {
			return tx.ReplaceRoot(doc)
		}))
	}
	return commands.New(s), s
}

func keyAt(t *testing.T, s *state.Store, path ...int) edtypes.NodeKey {
	t.Helper()
	key, ok := s.Snapshot().KeyAt(path)
	require.True(t, ok, "no node at %v", path)
	return key
}

func nodeAt(t *testing.T, s *state.Store, path ...int) *edtypes.Node {
	t.Helper()
	n, ok := s.Snapshot().Node(keyAt(t, s, path...))
	require.True(t, ok)
	return n
}

func selectText(t *testing.T, s *state.Store, key edtypes.NodeKey, from, to int) {
	t.Helper()
	require.NoError(t, s.Select(state.Range(state.TextPoint(key, from), state.TextPoint(key, to))))
}

func TestDispatch_PriorityOrder(t *testing.T) {
	d, _ := newDispatcher(t, true)
	ctx := context.Background()
	var calls []string

	handler := func(name string, handled bool) commands.Handler {
		return func(commands.Context, any) (bool, error) {
			calls = append(calls, name)
			return handled, nil
		}
	}
	d.RegisterPlugin("custom", commands.PriorityLow, handler("low", true))
	d.RegisterPlugin("custom", commands.PriorityHigh, handler("high-1", false))
	unregister := d.RegisterPlugin("custom", commands.PriorityCritical, handler("critical", false))
	d.RegisterPlugin("custom", commands.PriorityHigh, handler("high-2", false))
	d.RegisterPlugin("custom", commands.PriorityEditor, handler("editor", true))

	handled, err := d.DispatchNamed(ctx, "custom", nil)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"critical", "high-1", "high-2", "low"}, calls)

	calls = nil
	unregister()
	_, err = d.DispatchNamed(ctx, "custom", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"high-1", "high-2", "low"}, calls)
}

func TestDispatch_Unhandled(t *testing.T) {
	d, s := newDispatcher(t, true)
	before := s.Snapshot()

	handled, err := d.DispatchNamed(context.Background(), "no-such-command", "payload")
	assert.NoError(t, err)
	assert.False(t, handled)

	d.RegisterPlugin("declined", commands.PriorityNormal, func(commands.Context, any) (bool, error) {
		return false, nil
	})
	handled, err = d.DispatchNamed(context.Background(), "declined", nil)
	assert.NoError(t, err)
	assert.False(t, handled)
	assert.Same(t, before, s.Snapshot())
}

func TestDispatch_HighPriorityOverridesBuiltin(t *testing.T) {
	d, s := newDispatcher(t, true, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
	d.Register(commands.InsertText, commands.PriorityHigh, func(c commands.Context, payload any) (bool, error) {
		return true, c.Store.Update(func(tx *state.Tx) error {
			return tx.InsertText("[" + payload.(string) + "]")
		})
	})

	_, err := d.Dispatch(context.Background(), commands.InsertText, "x")
	require.NoError(t, err)
	assert.Equal(t, "hello[x]", s.Snapshot().TextContent())
}

func TestFormatText_Bold(t *testing.T) {
	d, s := newDispatcher(t, true, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
	selectText(t, s, keyAt(t, s, 0, 0), 0, 5)

	handled, err := d.Dispatch(context.Background(), commands.FormatText, "bold")
	require.NoError(t, err)
	assert.True(t, handled)

	p := nodeAt(t, s, 0)
	require.Len(t, p.Children, 1)
	text := nodeAt(t, s, 0, 0)
	assert.Equal(t, "hello", text.Text)
	assert.True(t, text.Format.Has(edtypes.FormatBold))

	_, err = d.Dispatch(context.Background(), commands.FormatText, "sparkly")
	assert.ErrorIs(t, err, apierrors.ErrUnsupportedFormat)
}

func TestToggleLink(t *testing.T) {
	ctx := context.Background()

	t.Run("wraps text", func(t *testing.T) {
		d, s := newDispatcher(t, true, edtypes.NewParagraph(edtypes.NewText("see docs", 0)))
		selectText(t, s, keyAt(t, s, 0, 0), 4, 8)

		_, err := d.Dispatch(ctx, commands.ToggleLink, "docs.example.com")
		require.NoError(t, err)
		link := nodeAt(t, s, 0, 1)
		assert.Equal(t, edtypes.LinkNode, link.Type)
		assert.Equal(t, "https://docs.example.com", link.URL)
		assert.Equal(t, "docs", nodeAt(t, s, 0, 1, 0).Text)

		var remove *string
		_, err = d.Dispatch(ctx, commands.ToggleLink, remove)
		require.NoError(t, err)
		assert.Equal(t, "see docs", s.Snapshot().TextContent())
		assert.Len(t, nodeAt(t, s, 0).Children, 1)
	})

	t.Run("invalid url is rejected without mutation", func(t *testing.T) {
		d, s := newDispatcher(t, true, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
		selectText(t, s, keyAt(t, s, 0, 0), 0, 5)
		before := s.Snapshot()

		_, err := d.Dispatch(ctx, commands.ToggleLink, "javascript:alert(1)")
		assert.ErrorIs(t, err, apierrors.ErrInvalidURL)
		assert.Same(t, before, s.Snapshot())
	})

	t.Run("single image gets href", func(t *testing.T) {
		d, s := newDispatcher(t, true, edtypes.NewParagraph(
			edtypes.NewText("a", 0),
			edtypes.NewImage("https://cdn.test/cat.png", "cat"),
			edtypes.NewText("b", 0),
		))
		img := keyAt(t, s, 0, 1)
		require.NoError(t, s.Select(state.NodeSelection(img)))

		_, err := d.Dispatch(ctx, commands.ToggleLink, commands.LinkPayload{URL: "https://example.com"})
		require.NoError(t, err)
		assert.Len(t, nodeAt(t, s, 0).Children, 3)
		assert.Equal(t, "https://example.com", nodeAt(t, s, 0, 1).Href)

		_, err = d.Dispatch(ctx, commands.ToggleLink, nil)
		require.NoError(t, err)
		assert.Empty(t, nodeAt(t, s, 0, 1).Href)
	})
}

func TestInsertYouTube(t *testing.T) {
	d, s := newDispatcher(t, true)

	handled, err := d.Dispatch(context.Background(), commands.InsertYouTube, "https://youtu.be/abc123")
	require.NoError(t, err)
	assert.True(t, handled)

	video := nodeAt(t, s, 0)
	assert.Equal(t, edtypes.YouTubeNode, video.Type)
	assert.Equal(t, "https://www.youtube.com/embed/abc123", video.Src)
	assert.Equal(t, "abc123", video.VideoID)
	assert.Equal(t, edtypes.ParagraphNode, nodeAt(t, s, 1).Type)

	before := s.Snapshot()
	_, err = d.Dispatch(context.Background(), commands.InsertYouTube, "https://vimeo.com/123")
	assert.ErrorIs(t, err, apierrors.ErrUnsupportedYouTube)
	assert.Same(t, before, s.Snapshot())
}

func TestInsertImage(t *testing.T) {
	d, s := newDispatcher(t, true, edtypes.NewParagraph(edtypes.NewText("ab", 0)))
	require.NoError(t, s.Select(state.Caret(state.TextPoint(keyAt(t, s, 0, 0), 1))))

	_, err := d.Dispatch(context.Background(), commands.InsertImage, commands.ImagePayload{Src: "/uploads/cat.png", AltText: "cat"})
	require.NoError(t, err)

	p := nodeAt(t, s, 0)
	require.Len(t, p.Children, 3)
	assert.Equal(t, "a", nodeAt(t, s, 0, 0).Text)
	assert.Equal(t, "/uploads/cat.png", nodeAt(t, s, 0, 1).Src)
	assert.Equal(t, "b", nodeAt(t, s, 0, 2).Text)

	// Каретка сразу после изображения: набранный текст попадает между изображением и "b"
	_, err = d.Dispatch(context.Background(), commands.InsertText, "x")
	require.NoError(t, err)
	assert.Equal(t, edtypes.ImageNode, nodeAt(t, s, 0, 1).Type)
	assert.Equal(t, "xb", nodeAt(t, s, 0, 2).Text)

	_, err = d.Dispatch(context.Background(), commands.InsertImage, commands.ImagePayload{})
	assert.ErrorIs(t, err, apierrors.ErrImageSourceRequired)
}

func TestFontSize(t *testing.T) {
	ctx := context.Background()
	d, s := newDispatcher(t, true, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
	selectText(t, s, keyAt(t, s, 0, 0), 0, 5)

	_, err := d.Dispatch(ctx, commands.FontSizeIncrease, nil)
	require.NoError(t, err)
	assert.Equal(t, "font-size: 16px;", nodeAt(t, s, 0, 0).Style)

	_, err = d.Dispatch(ctx, commands.FontSizeDecrease, nil)
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, commands.FontSizeDecrease, nil)
	require.NoError(t, err)
	assert.Equal(t, "font-size: 14px;", nodeAt(t, s, 0, 0).Style)

	_, err = d.Dispatch(ctx, commands.SetFontSize, edtypes.MaxFontSize)
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, commands.FontSizeIncrease, nil)
	require.NoError(t, err)
	assert.Equal(t, "font-size: 50px;", nodeAt(t, s, 0, 0).Style)

	before := s.Snapshot()
	_, err = d.Dispatch(ctx, commands.SetFontSize, 51)
	assert.ErrorIs(t, err, apierrors.ErrFontSizeBounds)
	assert.Same(t, before, s.Snapshot())
}

func TestDispatch_NotEditable(t *testing.T) {
	d, s := newDispatcher(t, false, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
	before := s.Snapshot()

	_, err := d.Dispatch(context.Background(), commands.InsertText, "x")
	assert.ErrorIs(t, err, apierrors.ErrNotEditable)
	assert.Same(t, before, s.Snapshot())
}

func TestRemoveNode(t *testing.T) {
	d, s := newDispatcher(t, true, edtypes.NewParagraph(
		edtypes.NewText("left", 0),
		edtypes.NewImage("https://cdn.test/cat.png", "cat"),
		edtypes.NewText("right", edtypes.FormatItalic),
	))

	_, err := d.Dispatch(context.Background(), commands.RemoveNode, keyAt(t, s, 0, 1))
	require.NoError(t, err)
	p := nodeAt(t, s, 0)
	require.Len(t, p.Children, 2)
	assert.Equal(t, "left", nodeAt(t, s, 0, 0).Text)
	assert.Equal(t, "right", nodeAt(t, s, 0, 1).Text)

	_, err = d.Dispatch(context.Background(), commands.RemoveNode, edtypes.NodeKey(9999))
	assert.ErrorIs(t, err, apierrors.ErrNodeNotFound)
}

func TestSelectAroundDecorator(t *testing.T) {
	d, s := newDispatcher(t, true, edtypes.NewParagraph(
		edtypes.NewText("a", 0),
		edtypes.NewImage("https://cdn.test/cat.png", "cat"),
	))
	para, img := keyAt(t, s, 0), keyAt(t, s, 0, 1)

	_, err := d.Dispatch(context.Background(), commands.SelectAroundDecorator, commands.ClickPayload{Key: img, Width: 100, X: 80})
	require.NoError(t, err)
	assert.Equal(t, state.ElementPoint(para, 2), s.Snapshot().Selection().Anchor)
}

func TestDecodePayload(t *testing.T) {
	d, _ := newDispatcher(t, true)

	v, err := d.DecodePayload("format-text", json.RawMessage(`"italic"`))
	require.NoError(t, err)
	assert.Equal(t, "italic", v)

	v, err = d.DecodePayload("toggle-link", json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, v.(*string))

	v, err = d.DecodePayload("toggle-link", json.RawMessage(`{"url":"https://example.com","target":"_blank"}`))
	require.NoError(t, err)
	assert.Equal(t, commands.LinkPayload{URL: "https://example.com", Target: "_blank"}, v)

	v, err = d.DecodePayload("delete-selection", nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = d.DecodePayload("set-font-size", json.RawMessage(`"big"`))
	assert.ErrorIs(t, err, apierrors.ErrInvalidPayload)
}

func TestParseCommand(t *testing.T) {
	cmd, ok := commands.ParseCommand("insert-youtube")
	require.True(t, ok)
	assert.Equal(t, commands.InsertYouTube, cmd)
	assert.Equal(t, "select-around-decorator", commands.SelectAroundDecorator.String())

	_, ok = commands.ParseCommand("undo")
	assert.False(t, ok)
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, commands.RegisterMetrics(reg))
	require.NoError(t, commands.RegisterMetrics(reg))

	d, _ := newDispatcher(t, true)
	d.RegisterPlugin("noop-metrics", commands.PriorityEditor, func(commands.Context, any) (bool, error) {
		return true, nil
	})
	handled, err := d.DispatchNamed(context.Background(), "noop-metrics", nil)
	require.NoError(t, err)
	assert.True(t, handled)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "portal_editor_commands_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "command" && l.GetValue() == "noop-metrics" {
					found = true
					assert.Equal(t, 1.0, m.GetCounter().GetValue())
				}
			}
		}
	}
	assert.True(t, found)
}
