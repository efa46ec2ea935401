package engine

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/paste"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/persist"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	filestorage "github.com/aisa-it/portal/portal.go/internal/portal/file-storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloDoc = `{"root":{"type":"root","version":1,"children":[{"type":"paragraph","version":1,"children":[{"type":"text","version":1,"text":"hello"}]}]}}`

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newEngine(t *testing.T, opts Options, deps Deps) (*Engine, *[]string) {
	t.Helper()
	var changes []string
	opts.OnChange = func(content string) { changes = append(changes, content) }
	if opts.Debounce == 0 {
		// Уведомления приходят только при Close и Flush
		opts.Debounce = time.Hour
	}
	e, err := New(opts, deps)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, &changes
}

func find(n edtypes.SerializedNode, t edtypes.NodeType) *edtypes.SerializedNode {
	if n.Type == t {
		return &n
	}
	for _, c := range n.Children {
		if found := find(c, t); found != nil {
			return found
		}
	}
	return nil
}

func TestEngine_FormatAndExport(t *testing.T) {
	e, _ := newEngine(t, Options{Editable: true, InitialContent: helloDoc}, Deps{})
	assert.Equal(t, persist.OutcomeDocument, e.Outcome())

	key, ok := e.Store().Snapshot().KeyAt([]int{0, 0})
	require.True(t, ok)
	require.NoError(t, e.Select(state.Range(state.TextPoint(key, 0), state.TextPoint(key, 5))))

	handled, err := e.Dispatch(context.Background(), "format-text", "bold")
	require.NoError(t, err)
	assert.True(t, handled)

	html, err := e.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>hello</strong>")

	md, err := e.Markdown()
	require.NoError(t, err)
	assert.Equal(t, "**hello**\n", md)
	assert.Equal(t, "hello", e.PlainText())

	content, err := e.State()
	require.NoError(t, err)
	doc, outcome := persist.Decode(content)
	assert.Equal(t, persist.OutcomeDocument, outcome)
	assert.Equal(t, edtypes.FormatBold, doc.Root.Children[0].Children[0].Format)
}

func TestEngine_CloseFlushes(t *testing.T) {
	e, changes := newEngine(t, Options{Editable: true, InitialContent: helloDoc}, Deps{})

	_, err := e.Dispatch(context.Background(), "insert-text", " world")
	require.NoError(t, err)
	assert.Empty(t, *changes)

	e.Close()
	require.Len(t, *changes, 1)
	assert.Contains(t, (*changes)[0], "hello world")

	_, err = e.Dispatch(context.Background(), "insert-text", "!")
	assert.ErrorIs(t, err, apierrors.ErrSessionClosed)
	assert.ErrorIs(t, e.Select(nil), apierrors.ErrSessionClosed)

	e.Close()
	assert.Len(t, *changes, 1)
}

func TestEngine_ReadOnly(t *testing.T) {
	e, _ := newEngine(t, Options{InitialContent: helloDoc}, Deps{})
	assert.Equal(t, "hello", e.PlainText())

	_, err := e.Dispatch(context.Background(), "insert-text", "x")
	assert.ErrorIs(t, err, apierrors.ErrNotEditable)

	e.SetEditable(true)
	_, err = e.Dispatch(context.Background(), "insert-text", "x")
	require.NoError(t, err)
	assert.Equal(t, "hellox", e.PlainText())
}

func TestEngine_PasteImageToStorage(t *testing.T) {
	base, _ := url.Parse("https://portal.example.com")
	files, err := filestorage.NewLocalStorage(t.TempDir(), base)
	require.NoError(t, err)

	e, _ := newEngine(t, Options{
		Editable:       true,
		InitialContent: helloDoc,
		SourceTable:    "tasks",
		SourceRecordId: "7",
		SourceField:    "description",
	}, Deps{Files: files})

	handled, err := e.Paste(context.Background(), paste.Payload{
		Files: []paste.File{{Name: "shot.png", Data: png}},
		HTML:  "<b>ignored</b>",
	})
	require.NoError(t, err)
	assert.True(t, handled)

	img := find(e.Document().Root, edtypes.ImageNode)
	require.NotNil(t, img)
	assert.True(t, strings.HasPrefix(img.Src, "https://portal.example.com/api/file/"), img.Src)
	assert.Equal(t, "shot.png", img.AltText)
	assert.NotContains(t, e.PlainText(), "ignored")

	name, err := filestorage.ParseName(strings.TrimSuffix(img.Src, "/"))
	require.NoError(t, err)
	ok, err := files.Exist(context.Background(), name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_InsertImageFileWithoutStorage(t *testing.T) {
	e, _ := newEngine(t, Options{Editable: true, InitialContent: helloDoc}, Deps{})
	before, err := e.State()
	require.NoError(t, err)

	err = e.InsertImageFile(context.Background(), paste.File{Name: "a.png", Data: png})
	assert.ErrorIs(t, err, apierrors.ErrUploadFailed)

	after, err := e.State()
	require.NoError(t, err)
	assert.JSONEq(t, before, after)
}

type denyLimiter struct{ calls []string }

func (l *denyLimiter) CanAddAttachment(_ context.Context, table, recordId string) bool {
	l.calls = append(l.calls, table+"/"+recordId)
	return false
}

func TestEngine_AttachmentLimit(t *testing.T) {
	base, _ := url.Parse("https://portal.example.com")
	files, err := filestorage.NewLocalStorage(t.TempDir(), base)
	require.NoError(t, err)
	lim := &denyLimiter{}

	e, _ := newEngine(t, Options{
		Editable:       true,
		InitialContent: helloDoc,
		SourceTable:    "tasks",
		SourceRecordId: "7",
		SourceField:    "description",
	}, Deps{Files: files, Limiter: lim})

	err = e.InsertImageFile(context.Background(), paste.File{Name: "a.png", Data: png})
	assert.ErrorIs(t, err, apierrors.ErrAttachmentLimit)
	assert.Equal(t, []string{"tasks/7"}, lim.calls)
	assert.Nil(t, find(e.Document().Root, edtypes.ImageNode))
}

func TestEngine_Tables(t *testing.T) {
	ctx := context.Background()

	e, _ := newEngine(t, Options{Editable: true}, Deps{})
	_, err := e.DispatchJSON(ctx, "insert-table", json.RawMessage(`{"rows":61,"columns":3}`))
	assert.ErrorIs(t, err, apierrors.ErrTableBounds)
	assert.Nil(t, find(e.Document().Root, edtypes.TableNode))

	handled, err := e.DispatchJSON(ctx, "insert-table", json.RawMessage(`{"rows":3,"columns":3}`))
	require.NoError(t, err)
	assert.True(t, handled)
	table := find(e.Document().Root, edtypes.TableNode)
	require.NotNil(t, table)
	assert.Len(t, table.Children, 3)

	noTables, _ := newEngine(t, Options{Editable: true, DisableTables: true}, Deps{})
	handled, err = noTables.DispatchJSON(ctx, "insert-table", json.RawMessage(`{"rows":3,"columns":3}`))
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestEngine_TruncatedContent(t *testing.T) {
	e, _ := newEngine(t, Options{Editable: true, InitialContent: `{"root":{"type":"root","children":[{"type":"paragraph","chil`}, Deps{})
	assert.Equal(t, persist.OutcomeTruncated, e.Outcome())
	assert.Equal(t, persist.TruncatedWarning, e.PlainText())
}
