package paste_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/paste"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeUploader struct {
	calls []paste.File
	url   string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, file paste.File) (string, error) {
	f.calls = append(f.calls, file)
	return f.url, f.err
}

func setup(t *testing.T, up paste.Uploader) (*commands.Dispatcher, *state.Store) {
	t.Helper()
	s := state.New(true)
	d := commands.New(s)
	paste.Register(d, paste.Options{Uploader: up})
	return d, s
}

func findType(doc edtypes.SerializedNode, t edtypes.NodeType) bool {
	if doc.Type == t {
		return true
	}
	for _, c := range doc.Children {
		if findType(c, t) {
			return true
		}
	}
	return false
}

func TestPaste_ImageWinsOverHTML(t *testing.T) {
	up := &fakeUploader{url: "https://cdn.example.com/files/a.png"}
	d, s := setup(t, up)

	handled, err := d.Dispatch(context.Background(), commands.Paste, paste.Payload{
		Files: []paste.File{
			{Name: "notes.txt", MIME: "text/plain", Data: []byte("text")},
			{Name: "shot.png", MIME: "image/png", Data: pngHeader},
			{Name: "second.png", MIME: "image/png", Data: pngHeader},
		},
		HTML: "<p><b>ignored</b></p>",
		Text: "ignored",
	})
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, up.calls, 1)
	assert.Equal(t, "shot.png", up.calls[0].Name)

	root := s.Snapshot().Export().Root
	assert.True(t, findType(root, edtypes.ImageNode))
	assert.NotContains(t, s.Snapshot().TextContent(), "ignored")
	img := root.Children[0].Children[0]
	assert.Equal(t, "https://cdn.example.com/files/a.png", img.Src)
	assert.Equal(t, "shot.png", img.AltText)
}

func TestPaste_HTMLOnly(t *testing.T) {
	up := &fakeUploader{}
	d, s := setup(t, up)

	handled, err := d.Dispatch(context.Background(), commands.Paste, paste.Payload{
		HTML: `<p>one <b>bold</b></p><ul><li>item</li></ul>`,
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, up.calls)

	root := s.Snapshot().Export().Root
	assert.True(t, findType(root, edtypes.ListNode))
	assert.Contains(t, s.Snapshot().TextContent(), "one bold")
}

func TestPaste_NonImageFileFallsToHTML(t *testing.T) {
	up := &fakeUploader{}
	d, s := setup(t, up)

	handled, err := d.Dispatch(context.Background(), commands.Paste, paste.Payload{
		Files: []paste.File{{Name: "doc.pdf", MIME: "application/pdf", Data: []byte("%PDF")}},
		HTML:  "<i>styled</i>",
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, up.calls)
	assert.Equal(t, "styled", s.Snapshot().TextContent())
}

func TestPaste_PlainTextNotHandled(t *testing.T) {
	d, s := setup(t, &fakeUploader{})
	before := s.Snapshot()

	handled, err := d.Dispatch(context.Background(), commands.Paste, paste.Payload{Text: "just text"})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Same(t, before, s.Snapshot())
}

func TestPaste_UploadFailureLeavesDocument(t *testing.T) {
	d, s := setup(t, &fakeUploader{err: errors.New("storage down")})
	require.NoError(t, s.Update(func(tx *state.Tx) error { return tx.InsertText("keep") }))
	before := s.Snapshot()

	handled, err := d.Dispatch(context.Background(), commands.Paste, paste.Payload{
		Files: []paste.File{{Name: "a.png", MIME: "image/png", Data: pngHeader}},
	})
	assert.False(t, handled)
	assert.ErrorIs(t, err, apierrors.ErrUploadFailed)
	assert.Same(t, before, s.Snapshot())
}

func TestPaste_UploadTimeout(t *testing.T) {
	s := state.New(true)
	d := commands.New(s)
	slow := paste.UploaderFunc(func(ctx context.Context, _ paste.File) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	paste.Register(d, paste.Options{Uploader: slow, UploadTimeout: 10 * time.Millisecond})

	_, err := d.Dispatch(context.Background(), commands.Paste, paste.Payload{
		Files: []paste.File{{Name: "a.png", MIME: "image/png", Data: pngHeader}},
	})
	assert.ErrorIs(t, err, apierrors.ErrUploadFailed)
}

func TestInsertImageFile(t *testing.T) {
	s := state.New(true)
	d := commands.New(s)
	up := &fakeUploader{url: "/uploads/b.png"}

	err := paste.InsertImageFile(context.Background(), d, paste.Options{Uploader: up, MaxFileSize: 1024},
		paste.File{Name: "b.png", Data: pngHeader})
	require.NoError(t, err)
	assert.True(t, findType(s.Snapshot().Export().Root, edtypes.ImageNode))

	err = paste.InsertImageFile(context.Background(), d, paste.Options{Uploader: up},
		paste.File{Name: "c.txt", MIME: "text/plain", Data: []byte("x")})
	assert.ErrorIs(t, err, apierrors.ErrUnsupportedImageType)

	err = paste.InsertImageFile(context.Background(), d, paste.Options{Uploader: up, MaxFileSize: 4},
		paste.File{Name: "d.png", MIME: "image/png", Data: pngHeader})
	assert.ErrorIs(t, err, apierrors.ErrFileTooLarge)
}

func TestPaste_ReadOnlySkipsUpload(t *testing.T) {
	s := state.New(false)
	d := commands.New(s)
	up := &fakeUploader{url: "/uploads/a.png"}
	paste.Register(d, paste.Options{Uploader: up})
	before := s.Snapshot()

	handled, err := d.Dispatch(context.Background(), commands.Paste, paste.Payload{
		Files: []paste.File{{Name: "a.png", MIME: "image/png", Data: pngHeader}},
	})
	assert.False(t, handled)
	assert.ErrorIs(t, err, apierrors.ErrNotEditable)

	err = paste.InsertImageFile(context.Background(), d, paste.Options{Uploader: up},
		paste.File{Name: "b.png", MIME: "image/png", Data: pngHeader})
	assert.ErrorIs(t, err, apierrors.ErrNotEditable)

	assert.Empty(t, up.calls)
	assert.Same(t, before, s.Snapshot())
}
