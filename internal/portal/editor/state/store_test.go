package state_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, blocks ...edtypes.SerializedNode) *state.Store {
	t.Helper()
	s := state.New(true)
	doc := edtypes.SerializedEditorState{Root: edtypes.NewNode(edtypes.RootNode, edtypes.Attrs{}, blocks...)}
	require.NoError(t, s.UpdateWith(state.UpdateOptions{Hydrate: true}, func(tx *state.Tx) error {
		return tx.ReplaceRoot(doc)
	}))
	return s
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

func TestStore_EmptyDocument(t *testing.T) {
	s := state.New(true)
	root := s.Snapshot().Root()
	require.Len(t, root.Children, 1)
	p := nodeAt(t, s, 0)
	assert.Equal(t, edtypes.ParagraphNode, p.Type)
	assert.Empty(t, p.Children)
}

func TestStore_UpdateIsAtomic(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
	before := s.Snapshot()

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.Update(func(tx *state.Tx) error {
			require.NoError(t, tx.InsertText("lost"))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Same(t, before, s.Snapshot())
	})

	t.Run("panic", func(t *testing.T) {
		err := s.Update(func(tx *state.Tx) error {
			require.NoError(t, tx.InsertText("lost"))
			panic("broken handler")
		})
		assert.ErrorIs(t, err, state.ErrTransactionPanic)
		assert.Same(t, before, s.Snapshot())
		assert.Equal(t, "hello", s.Snapshot().TextContent())
	})
}

func TestStore_PanicOnCommitReleasesStore(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
	before := s.Snapshot()
	p := keyAt(t, s, 0)

	err := s.Update(func(tx *state.Tx) error {
		n := tx.Writable(p)
		n.Children = append(n.Children, edtypes.NodeKey(1<<40))
		return nil
	})
	assert.ErrorIs(t, err, state.ErrTransactionPanic)
	assert.Same(t, before, s.Snapshot())

	done := make(chan error, 1)
	go func() {
		done <- s.Update(func(tx *state.Tx) error { return tx.InsertText("!") })
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("store stays locked after panic in commit")
	}
	assert.Contains(t, s.Snapshot().TextContent(), "!")
}

func TestStore_NotEditable(t *testing.T) {
	s := state.New(false)
	err := s.Update(func(tx *state.Tx) error { return tx.InsertText("x") })
	assert.ErrorIs(t, err, state.ErrNotEditable)

	err = s.UpdateWith(state.UpdateOptions{Hydrate: true}, func(tx *state.Tx) error {
		return tx.ReplaceRoot(edtypes.PlainTextState("loaded"))
	})
	require.NoError(t, err)
	assert.Equal(t, "loaded", s.Snapshot().TextContent())
	assert.Equal(t, state.TagHydrate, s.Snapshot().Tag())

	// Выделение разрешено и в режиме только для чтения
	key := keyAt(t, s, 0, 0)
	require.NoError(t, s.Select(state.Caret(state.TextPoint(key, 2))))
	assert.Equal(t, state.TextPoint(key, 2), s.Snapshot().Selection().Anchor)
}

func TestStore_NotifiesInCommitOrder(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph())

	var generations []uint64
	nested := false
	unsubscribe := s.OnChange(func(snap *state.Snapshot) {
		generations = append(generations, snap.Generation())
		if !nested {
			nested = true
			require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertText("b") }))
		}
	})

	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertText("a") }))
	require.Len(t, generations, 2)
	assert.Less(t, generations[0], generations[1])
	assert.Equal(t, "ab", s.Snapshot().TextContent())

	unsubscribe()
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertText("c") }))
	assert.Len(t, generations, 2)
}

func TestStore_SelectionOnlyKeepsContentVersion(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
	before := s.Snapshot()
	require.NoError(t, s.Select(state.Caret(state.TextPoint(keyAt(t, s, 0, 0), 1))))

	after := s.Snapshot()
	assert.Equal(t, before.ContentVersion(), after.ContentVersion())
	assert.Greater(t, after.Generation(), before.Generation())
}

func TestTx_FormatText(t *testing.T) {
	t.Run("whole run", func(t *testing.T) {
		s := newStore(t, edtypes.NewParagraph(edtypes.NewText("hello", 0)))
		key := keyAt(t, s, 0, 0)
		require.NoError(t, s.Select(state.Range(state.TextPoint(key, 0), state.TextPoint(key, 5))))
		require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.FormatText(edtypes.FormatBold) }))

		p := nodeAt(t, s, 0)
		require.Len(t, p.Children, 1)
		text := nodeAt(t, s, 0, 0)
		assert.Equal(t, "hello", text.Text)
		assert.True(t, text.Format.Has(edtypes.FormatBold))
	})

	t.Run("partial run and toggle back", func(t *testing.T) {
		s := newStore(t, edtypes.NewParagraph(edtypes.NewText("hello world", 0)))
		key := keyAt(t, s, 0, 0)
		require.NoError(t, s.Select(state.Range(state.TextPoint(key, 5), state.TextPoint(key, 0))))
		require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.FormatText(edtypes.FormatItalic) }))

		require.Len(t, nodeAt(t, s, 0).Children, 2)
		assert.Equal(t, "hello", nodeAt(t, s, 0, 0).Text)
		assert.True(t, nodeAt(t, s, 0, 0).Format.Has(edtypes.FormatItalic))
		assert.Equal(t, " world", nodeAt(t, s, 0, 1).Text)
		assert.Zero(t, nodeAt(t, s, 0, 1).Format)

		require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.FormatText(edtypes.FormatItalic) }))
		require.Len(t, nodeAt(t, s, 0).Children, 1)
		assert.Equal(t, "hello world", nodeAt(t, s, 0, 0).Text)
	})

	t.Run("collapsed caret formats typed text", func(t *testing.T) {
		s := newStore(t, edtypes.NewParagraph(edtypes.NewText("ab", 0)))
		require.NoError(t, s.Select(state.Caret(state.TextPoint(keyAt(t, s, 0, 0), 1))))
		require.NoError(t, s.Update(func(tx *state.Tx) error {
			if err := tx.FormatText(edtypes.FormatBold); err != nil {
				return err
			}
			return tx.InsertText("X")
		}))
		require.Len(t, nodeAt(t, s, 0).Children, 3)
		assert.Equal(t, "X", nodeAt(t, s, 0, 1).Text)
		assert.True(t, nodeAt(t, s, 0, 1).Format.Has(edtypes.FormatBold))
		assert.Equal(t, "aXb", s.Snapshot().TextContent())
	})
}

func TestTx_InsertImageKeepsAdjacentText(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(edtypes.NewText("abc", 0), edtypes.NewText("def", edtypes.FormatBold)))
	first := keyAt(t, s, 0, 0)
	require.NoError(t, s.Select(state.Caret(state.TextPoint(first, 3))))

	require.NoError(t, s.Update(func(tx *state.Tx) error {
		return tx.InsertNodes([]edtypes.SerializedNode{edtypes.NewImage("https://cdn/a.png", "a")})
	}))

	p := nodeAt(t, s, 0)
	require.Len(t, p.Children, 3)
	assert.Equal(t, "abc", nodeAt(t, s, 0, 0).Text)
	assert.Equal(t, edtypes.ImageNode, nodeAt(t, s, 0, 1).Type)
	assert.Equal(t, "def", nodeAt(t, s, 0, 2).Text)

	// Каретка сразу после изображения
	sel := s.Snapshot().Selection()
	assert.True(t, sel.IsCollapsed())
	assert.Equal(t, state.ElementPoint(p.Key, 2), sel.Anchor)

	image := keyAt(t, s, 0, 1)
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.RemoveNode(image) }))
	p = nodeAt(t, s, 0)
	require.Len(t, p.Children, 2)
	assert.Equal(t, first, p.Children[0])
	assert.Equal(t, "abc", nodeAt(t, s, 0, 0).Text)
	assert.Equal(t, "def", nodeAt(t, s, 0, 1).Text)
}

func TestTx_InsertBlockSplitsParagraph(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(edtypes.NewText("abcdef", 0)))
	require.NoError(t, s.Select(state.Caret(state.TextPoint(keyAt(t, s, 0, 0), 3))))
	require.NoError(t, s.Update(func(tx *state.Tx) error {
		return tx.InsertNodes([]edtypes.SerializedNode{edtypes.NewYouTube("https://www.youtube.com/embed/x", "x")})
	}))

	root := s.Snapshot().Root()
	require.Len(t, root.Children, 3)
	assert.Equal(t, "abc", nodeAt(t, s, 0, 0).Text)
	assert.Equal(t, edtypes.YouTubeNode, nodeAt(t, s, 1).Type)
	assert.Equal(t, "def", nodeAt(t, s, 2, 0).Text)
	assert.Equal(t, state.TextPoint(keyAt(t, s, 2, 0), 0), s.Snapshot().Selection().Anchor)
}

func TestTx_DeleteSelectionAcrossBlocks(t *testing.T) {
	s := newStore(t,
		edtypes.NewParagraph(edtypes.NewText("hello", 0)),
		edtypes.NewParagraph(edtypes.NewText("middle", 0)),
		edtypes.NewParagraph(edtypes.NewText("world", 0)),
	)
	require.NoError(t, s.Select(state.Range(
		state.TextPoint(keyAt(t, s, 0, 0), 2),
		state.TextPoint(keyAt(t, s, 2, 0), 3),
	)))
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.DeleteSelection() }))

	assert.Len(t, s.Snapshot().Root().Children, 1)
	assert.Equal(t, "held", s.Snapshot().TextContent())
	sel := s.Snapshot().Selection()
	assert.Equal(t, state.TextPoint(keyAt(t, s, 0, 0), 2), sel.Anchor)
}

func TestTx_DeleteEverythingKeepsParagraph(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(edtypes.NewText("gone", 0)))
	key := keyAt(t, s, 0, 0)
	require.NoError(t, s.Select(state.Range(state.TextPoint(key, 0), state.TextPoint(key, 4))))
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.DeleteSelection() }))

	root := s.Snapshot().Root()
	require.Len(t, root.Children, 1)
	assert.Equal(t, edtypes.ParagraphNode, nodeAt(t, s, 0).Type)
	assert.Empty(t, s.Snapshot().TextContent())
}

func TestTx_Links(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(edtypes.NewText("hello world", 0)))
	key := keyAt(t, s, 0, 0)
	require.NoError(t, s.Select(state.Range(state.TextPoint(key, 6), state.TextPoint(key, 11))))

	require.NoError(t, s.Update(func(tx *state.Tx) error {
		return tx.SetLink(edtypes.Attrs{URL: "https://example.com"})
	}))
	require.Len(t, nodeAt(t, s, 0).Children, 2)
	link := nodeAt(t, s, 0, 1)
	assert.Equal(t, edtypes.LinkNode, link.Type)
	assert.Equal(t, "https://example.com", link.URL)
	assert.Equal(t, "world", nodeAt(t, s, 0, 1, 0).Text)

	// Повторная установка меняет адрес существующей ссылки
	require.NoError(t, s.Update(func(tx *state.Tx) error {
		return tx.SetLink(edtypes.Attrs{URL: "https://example.org"})
	}))
	require.Len(t, nodeAt(t, s, 0).Children, 2)
	assert.Equal(t, "https://example.org", nodeAt(t, s, 0, 1).URL)

	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.RemoveLinks() }))
	require.Len(t, nodeAt(t, s, 0).Children, 1)
	assert.Equal(t, "hello world", nodeAt(t, s, 0, 0).Text)
}

func TestTx_InsertParagraph(t *testing.T) {
	s := newStore(t, edtypes.NewHeading(2, edtypes.NewText("abcdef", 0)))
	require.NoError(t, s.Select(state.Caret(state.TextPoint(keyAt(t, s, 0, 0), 3))))
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertParagraph() }))

	require.Len(t, s.Snapshot().Root().Children, 2)
	assert.Equal(t, edtypes.HeadingNode, nodeAt(t, s, 0).Type)
	assert.Equal(t, edtypes.HeadingNode, nodeAt(t, s, 1).Type)
	assert.Equal(t, "def", nodeAt(t, s, 1, 0).Text)

	// В конце заголовка создается обычный параграф
	require.NoError(t, s.Select(state.Caret(state.TextPoint(keyAt(t, s, 1, 0), 3))))
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertParagraph() }))
	require.Len(t, s.Snapshot().Root().Children, 3)
	assert.Equal(t, edtypes.ParagraphNode, nodeAt(t, s, 2).Type)
}

func TestTx_InsertTextWithNewlines(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph())
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertText("one\ntwo") }))

	p := nodeAt(t, s, 0)
	require.Len(t, p.Children, 3)
	assert.Equal(t, edtypes.LineBreakNode, nodeAt(t, s, 0, 1).Type)
	assert.Equal(t, "one\ntwo", s.Snapshot().TextContent())
}

func TestSnapshot_ExportIgnoresKeys(t *testing.T) {
	build := func() []byte {
		s := state.New(true)
		// Сдвигаем счетчик ключей, чтобы ключи документов различались
		require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertText("tmp") }))
		require.NoError(t, s.UpdateWith(state.UpdateOptions{Hydrate: true}, func(tx *state.Tx) error {
			return tx.ReplaceRoot(edtypes.PlainTextState("same"))
		}))
		data, err := json.Marshal(s.Snapshot().Export())
		require.NoError(t, err)
		return data
	}
	other := state.New(true)
	require.NoError(t, other.UpdateWith(state.UpdateOptions{Hydrate: true}, func(tx *state.Tx) error {
		return tx.ReplaceRoot(edtypes.PlainTextState("same"))
	}))
	data, err := json.Marshal(other.Snapshot().Export())
	require.NoError(t, err)

	assert.Equal(t, string(data), string(build()))
}

func TestSnapshot_PathOf(t *testing.T) {
	s := newStore(t, edtypes.NewParagraph(), edtypes.NewParagraph(edtypes.NewText("x", 0)))
	key := keyAt(t, s, 1, 0)
	path, ok := s.Snapshot().PathOf(key)
	require.True(t, ok)
	assert.Equal(t, []int{1, 0}, path)
}
