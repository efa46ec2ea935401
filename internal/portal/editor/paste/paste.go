// Пакет paste обрабатывает вставку из буфера обмена. За одно событие выполняется ровно одна ветка:
// загрузка первого изображения, разбор HTML или передача обычного текста хосту.
package paste

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
)

const DefaultUploadTimeout = 60 * time.Second

type File struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// ContentType возвращает MIME файла, при отсутствии определяет его по содержимому.
func (f File) ContentType() string {
	if f.MIME != "" {
		return f.MIME
	}
	return http.DetectContentType(f.Data)
}

func (f File) IsImage() bool {
	return strings.HasPrefix(f.ContentType(), "image/")
}

type Payload struct {
	Files []File `json:"files,omitempty"`
	HTML  string `json:"html,omitempty"`
	Text  string `json:"text,omitempty"`
}

// FirstImage возвращает первый файл-изображение или nil.
func (p Payload) FirstImage() *File {
	for i := range p.Files {
		if p.Files[i].IsImage() {
			return &p.Files[i]
		}
	}
	return nil
}

// Uploader загружает файл во внешнее хранилище и возвращает публичный адрес.
type Uploader interface {
	Upload(ctx context.Context, file File) (string, error)
}

type UploaderFunc func(ctx context.Context, file File) (string, error)

func (f UploaderFunc) Upload(ctx context.Context, file File) (string, error) {
	return f(ctx, file)
}

type Options struct {
	Uploader      Uploader
	UploadTimeout time.Duration
	// MaxFileSize в байтах, 0 - без ограничения
	MaxFileSize int64
}

type handler struct {
	opts Options
}

// Register подключает обработчик команды paste. Возвращает функцию отключения.
func Register(d *commands.Dispatcher, opts Options) func() {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	h := &handler{opts: opts}
	d.RegisterDecoder(commands.Paste.String(), func(raw json.RawMessage) (any, error) {
		var p Payload
		err := json.Unmarshal(raw, &p)
		return p, err
	})
	return d.Register(commands.Paste, commands.PriorityEditor, h.paste)
}

func (h *handler) paste(c commands.Context, payload any) (bool, error) {
	var p Payload
	switch v := payload.(type) {
	case Payload:
		p = v
	case *Payload:
		if v != nil {
			p = *v
		}
	case string:
		p.Text = v
	default:
		return false, apierrors.ErrInvalidPayload.WithFormattedMessage("paste expects clipboard content")
	}

	if img := p.FirstImage(); img != nil {
		if !c.Store.Editable() {
			return false, apierrors.ErrNotEditable
		}
		src, err := h.UploadImage(c, *img)
		if err != nil {
			return false, err
		}
		return c.Dispatcher.Dispatch(c, commands.InsertImage, commands.ImagePayload{Src: src, AltText: img.Name})
	}

	if strings.TrimSpace(p.HTML) != "" {
		nodes, err := editor.ParseHTMLString(p.HTML)
		if err != nil {
			slog.Warn("Parse pasted HTML", "err", err)
			return false, nil
		}
		if len(nodes) == 0 {
			return false, nil
		}
		return true, c.Store.Update(func(tx *state.Tx) error {
			return tx.InsertNodes(nodes)
		})
	}

	// Обычный текст вставляет хост
	return false, nil
}

// UploadImage загружает изображение с ограничением по времени. Ошибка загрузки не меняет документ.
func (h *handler) UploadImage(ctx context.Context, file File) (string, error) {
	if !file.IsImage() {
		return "", apierrors.ErrUnsupportedImageType.WithFormattedMessage(file.ContentType())
	}
	if h.opts.MaxFileSize > 0 && int64(len(file.Data)) > h.opts.MaxFileSize {
		return "", apierrors.ErrFileTooLarge.WithFormattedMessage(h.opts.MaxFileSize / 1024 / 1024)
	}
	if h.opts.Uploader == nil {
		slog.Error("Paste image without uploader", "name", file.Name)
		return "", apierrors.ErrUploadFailed
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.UploadTimeout)
	defer cancel()

	src, err := h.opts.Uploader.Upload(ctx, file)
	if err != nil {
		if defined, ok := apierrors.AsDefined(err); ok {
			return "", defined
		}
		slog.Error("Upload pasted image", "name", file.Name, "mime", file.ContentType(), "err", err)
		return "", apierrors.ErrUploadFailed
	}
	return src, nil
}

// InsertImageFile загружает изображение и вставляет его в позицию каретки.
func InsertImageFile(ctx context.Context, d *commands.Dispatcher, opts Options, file File) error {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	if !d.Store().Editable() {
		return apierrors.ErrNotEditable
	}
	h := &handler{opts: opts}
	src, err := h.UploadImage(ctx, file)
	if err != nil {
		return err
	}
	_, err = d.Dispatch(ctx, commands.InsertImage, commands.ImagePayload{Src: src, AltText: file.Name})
	return err
}
