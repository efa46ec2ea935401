package commands

import (
	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/decorator"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
)

func registerBuiltins(d *Dispatcher) {
	d.Register(FormatText, PriorityEditor, formatText)
	d.Register(ToggleLink, PriorityEditor, toggleLink)
	d.Register(InsertImage, PriorityEditor, insertImage)
	d.Register(InsertYouTube, PriorityEditor, insertYouTube)
	d.Register(FontSizeIncrease, PriorityEditor, stepFontSize(edtypes.FontSizeStep))
	d.Register(FontSizeDecrease, PriorityEditor, stepFontSize(-edtypes.FontSizeStep))
	d.Register(SetFontSize, PriorityEditor, setFontSize)
	d.Register(InsertText, PriorityEditor, insertText)
	d.Register(DeleteSelection, PriorityEditor, update(func(tx *state.Tx) error { return tx.DeleteSelection() }))
	d.Register(InsertParagraph, PriorityEditor, update(func(tx *state.Tx) error { return tx.InsertParagraph() }))
	d.Register(RemoveNode, PriorityEditor, removeNode)
	d.Register(SelectAroundDecorator, PriorityEditor, selectAroundDecorator)
}

// update оборачивает изменение без параметров в обработчик.
func update(fn func(tx *state.Tx) error) Handler {
	return func(c Context, _ any) (bool, error) {
		return true, c.Store.Update(fn)
	}
}

func formatText(c Context, payload any) (bool, error) {
	var flag edtypes.Format
	switch p := payload.(type) {
	case edtypes.Format:
		flag = p
	case string:
		f, ok := edtypes.ParseFormat(p)
		if !ok {
			return false, apierrors.ErrUnsupportedFormat.WithFormattedMessage(p)
		}
		flag = f
	default:
		return false, invalidPayload(FormatText, payload)
	}
	return true, c.Store.Update(func(tx *state.Tx) error {
		return tx.FormatText(flag)
	})
}

// linkAttrs возвращает атрибуты новой ссылки или remove=true, если ссылку нужно снять.
func linkAttrs(payload any) (attrs edtypes.Attrs, remove bool, err error) {
	var p LinkPayload
	switch v := payload.(type) {
	case nil:
		return attrs, true, nil
	case *string:
		if v == nil {
			return attrs, true, nil
		}
		p.URL = *v
	case string:
		p.URL = v
	case LinkPayload:
		p = v
	case *LinkPayload:
		if v == nil {
			return attrs, true, nil
		}
		p = *v
	default:
		return attrs, false, invalidPayload(ToggleLink, payload)
	}
	if p.URL == "" {
		return attrs, true, nil
	}
	u, err := NormalizeURL(p.URL)
	if err != nil {
		return attrs, false, err
	}
	return edtypes.Attrs{URL: u, Target: p.Target, Rel: p.Rel, Title: p.Title}, false, nil
}

func toggleLink(c Context, payload any) (bool, error) {
	attrs, remove, err := linkAttrs(payload)
	if err != nil {
		return false, err
	}
	return true, c.Store.Update(func(tx *state.Tx) error {
		// Выделено одно изображение: ссылка задается атрибутом href, а не оберткой
		if img, err := selectedImage(tx); err != nil {
			return err
		} else if img != 0 {
			tx.Writable(img).Href = attrs.URL
			return nil
		}
		if remove {
			return tx.RemoveLinks()
		}
		return tx.SetLink(attrs)
	})
}

// selectedImage возвращает ключ изображения, если выделено ровно одно изображение.
func selectedImage(tx *state.Tx) (edtypes.NodeKey, error) {
	sel := tx.Selection()
	if sel == nil || (sel.IsCollapsed() && !sel.IsNodeSelection()) {
		return 0, nil
	}
	leaves, err := tx.SelectedLeaves()
	if err != nil {
		return 0, err
	}
	if len(leaves) != 1 {
		return 0, nil
	}
	if n := tx.Node(leaves[0]); n != nil && n.Type == edtypes.ImageNode {
		return n.Key, nil
	}
	return 0, nil
}

func insertImage(c Context, payload any) (bool, error) {
	var p ImagePayload
	switch v := payload.(type) {
	case ImagePayload:
		p = v
	case *ImagePayload:
		if v == nil {
			return false, apierrors.ErrImageSourceRequired
		}
		p = *v
	case string:
		p.Src = v
	default:
		return false, invalidPayload(InsertImage, payload)
	}
	src, err := normalizeImageSource(p.Src)
	if err != nil {
		return false, err
	}
	var href string
	if p.Href != "" {
		if href, err = NormalizeURL(p.Href); err != nil {
			return false, err
		}
	}
	node := edtypes.NewNode(edtypes.ImageNode, edtypes.Attrs{
		Src:      src,
		AltText:  p.AltText,
		Width:    max(p.Width, 0),
		Height:   max(p.Height, 0),
		MaxWidth: max(p.MaxWidth, 0),
		Href:     href,
	})
	return true, c.Store.Update(func(tx *state.Tx) error {
		return tx.InsertNodes([]edtypes.SerializedNode{node})
	})
}

func insertYouTube(c Context, payload any) (bool, error) {
	raw, ok := payload.(string)
	if !ok {
		return false, invalidPayload(InsertYouTube, payload)
	}
	src, id, err := NormalizeYouTube(raw)
	if err != nil {
		return false, err
	}
	return true, c.Store.Update(func(tx *state.Tx) error {
		return tx.InsertNodes([]edtypes.SerializedNode{edtypes.NewYouTube(src, id)})
	})
}

func stepFontSize(step int) Handler {
	return func(c Context, _ any) (bool, error) {
		return true, c.Store.Update(func(tx *state.Tx) error {
			return tx.PatchTextStyle(func(style string) string {
				return edtypes.WithFontSize(style, edtypes.FontSize(style)+step)
			})
		})
	}
}

func setFontSize(c Context, payload any) (bool, error) {
	var size int
	switch v := payload.(type) {
	case int:
		size = v
	case float64:
		size = int(v + 0.5)
	default:
		return false, invalidPayload(SetFontSize, payload)
	}
	if size < edtypes.MinFontSize || size > edtypes.MaxFontSize {
		return false, apierrors.ErrFontSizeBounds.WithFormattedMessage(edtypes.MinFontSize, edtypes.MaxFontSize)
	}
	return true, c.Store.Update(func(tx *state.Tx) error {
		return tx.PatchTextStyle(func(style string) string {
			return edtypes.WithFontSize(style, size)
		})
	})
}

func insertText(c Context, payload any) (bool, error) {
	text, ok := payload.(string)
	if !ok {
		return false, invalidPayload(InsertText, payload)
	}
	return true, c.Store.Update(func(tx *state.Tx) error {
		return tx.InsertText(text)
	})
}

func removeNode(c Context, payload any) (bool, error) {
	var key edtypes.NodeKey
	switch v := payload.(type) {
	case edtypes.NodeKey:
		key = v
	case uint64:
		key = edtypes.NodeKey(v)
	case int:
		key = edtypes.NodeKey(v)
	default:
		return false, invalidPayload(RemoveNode, payload)
	}
	return true, c.Store.Update(func(tx *state.Tx) error {
		return tx.RemoveNode(key)
	})
}

func selectAroundDecorator(c Context, payload any) (bool, error) {
	var p ClickPayload
	switch v := payload.(type) {
	case ClickPayload:
		p = v
	case *ClickPayload:
		if v == nil {
			return false, invalidPayload(SelectAroundDecorator, payload)
		}
		p = *v
	default:
		return false, invalidPayload(SelectAroundDecorator, payload)
	}
	return true, c.Store.Update(func(tx *state.Tx) error {
		return c.Dispatcher.Decorators().HandleClick(tx, p.Key, p.Width, p.X)
	})
}

// SetDecorators заменяет реестр декораторов, используемый командой select-around-decorator.
func (d *Dispatcher) SetDecorators(r *decorator.Registry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decorators = r
}
