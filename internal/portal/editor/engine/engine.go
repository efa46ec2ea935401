// Пакет engine собирает редактор документа для одной сессии редактирования: хранилище,
// шину команд с таблицами и вставкой, автоссылки, адаптер сохранения и выгрузку в HTML и Markdown.
//
// Команды выполняются по одной: следующая команда ждет завершения предыдущей, включая загрузку
// изображения при вставке.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/autolink"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/decorator"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/export"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/paste"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/persist"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/tables"
	filestorage "github.com/aisa-it/portal/portal.go/internal/portal/file-storage"
	"github.com/aisa-it/portal/portal.go/internal/portal/limiter"
)

type Options struct {
	Editable       bool
	InitialContent any
	// OnChange получает сериализованный документ после серии изменений
	OnChange func(content string)

	SourceTable    string
	SourceRecordId string
	SourceField    string

	Debounce      time.Duration
	UploadTimeout time.Duration
	// MaxFileSize в байтах, 0 - без ограничения
	MaxFileSize int64
	// MaxImageSide уменьшает большие изображения перед загрузкой, 0 - без изменений
	MaxImageSide  uint
	DisableTables bool
	// Clock подменяет таймер отложенных уведомлений в тестах
	Clock persist.Clock
}

type Deps struct {
	// Files хранит вставленные изображения
	Files filestorage.FileStorage
	// Uploader заменяет загрузку в Files
	Uploader   paste.Uploader
	Limiter    limiter.Limiter
	Decorators *decorator.Registry
}

type Engine struct {
	mu sync.Mutex

	opts       Options
	store      *state.Store
	dispatcher *commands.Dispatcher
	adapter    *persist.Adapter
	renderer   *decorator.HTMLRenderer
	pasteOpts  paste.Options
	outcome    persist.Outcome

	closed     bool
	unregister []func()
}

// New создает редактор и загружает в него начальное содержимое. Некорректное содержимое
// не считается ошибкой: оно загружается как текст или предупреждение, см. Outcome.
func New(opts Options, deps Deps) (*Engine, error) {
	store := state.New(opts.Editable)
	autolink.Register(store)

	dispatcher := commands.New(store)
	registry := deps.Decorators
	if registry == nil {
		registry = decorator.Default()
	}
	dispatcher.SetDecorators(registry)

	e := &Engine{
		opts:       opts,
		store:      store,
		dispatcher: dispatcher,
		renderer:   decorator.NewHTMLRenderer(registry),
	}

	e.pasteOpts = paste.Options{
		Uploader:      e.uploader(deps),
		UploadTimeout: opts.UploadTimeout,
		MaxFileSize:   opts.MaxFileSize,
	}
	e.unregister = append(e.unregister, paste.Register(dispatcher, e.pasteOpts))
	if !opts.DisableTables {
		e.unregister = append(e.unregister, tables.Register(dispatcher))
	}

	e.adapter = persist.New(store, persist.Options{
		OnChange: opts.OnChange,
		Debounce: opts.Debounce,
		Clock:    opts.Clock,
	})
	outcome, err := e.adapter.Load(opts.InitialContent)
	if err != nil {
		e.adapter.Dispose()
		return nil, err
	}
	e.outcome = outcome
	return e, nil
}

func (e *Engine) uploader(deps Deps) paste.Uploader {
	if deps.Uploader != nil {
		return deps.Uploader
	}
	if deps.Files == nil {
		return nil
	}
	meta := &filestorage.Metadata{
		SourceTable:    e.opts.SourceTable,
		SourceRecordId: e.opts.SourceRecordId,
		SourceField:    e.opts.SourceField,
	}
	return paste.UploaderFunc(func(ctx context.Context, file paste.File) (string, error) {
		if deps.Limiter != nil && !deps.Limiter.CanAddAttachment(ctx, e.opts.SourceTable, e.opts.SourceRecordId) {
			return "", apierrors.ErrAttachmentLimit
		}
		data, contentType, err := filestorage.ShrinkImage(file.Data, file.ContentType(), e.opts.MaxImageSide)
		if err != nil {
			slog.Warn("Shrink pasted image", "name", file.Name, "err", err)
			data, contentType = file.Data, file.ContentType()
		}
		return filestorage.Upload(ctx, deps.Files, data, contentType, meta)
	})
}

// Outcome сообщает, как было загружено начальное содержимое.
func (e *Engine) Outcome() persist.Outcome {
	return e.outcome
}

func (e *Engine) Store() *state.Store {
	return e.store
}

func (e *Engine) Dispatcher() *commands.Dispatcher {
	return e.dispatcher
}

// Dispatch выполняет команду по имени, встроенную или команду плагина.
func (e *Engine) Dispatch(ctx context.Context, name string, payload any) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, apierrors.ErrSessionClosed
	}
	return e.dispatcher.DispatchNamed(ctx, name, payload)
}

// DispatchJSON разбирает параметры команды из JSON и выполняет ее.
func (e *Engine) DispatchJSON(ctx context.Context, name string, raw json.RawMessage) (bool, error) {
	payload, err := e.dispatcher.DecodePayload(name, raw)
	if err != nil {
		return false, err
	}
	return e.Dispatch(ctx, name, payload)
}

// Select устанавливает выделение.
func (e *Engine) Select(sel *state.Selection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return apierrors.ErrSessionClosed
	}
	return e.store.Select(sel)
}

// Paste обрабатывает вставку из буфера обмена. false означает, что вставку обычного текста
// выполняет хост.
func (e *Engine) Paste(ctx context.Context, payload paste.Payload) (bool, error) {
	return e.Dispatch(ctx, commands.Paste.String(), payload)
}

// InsertImageFile загружает изображение и вставляет его в позицию каретки.
func (e *Engine) InsertImageFile(ctx context.Context, file paste.File) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return apierrors.ErrSessionClosed
	}
	return paste.InsertImageFile(ctx, e.dispatcher, e.pasteOpts, file)
}

func (e *Engine) SetEditable(editable bool) {
	e.store.SetEditable(editable)
}

// State возвращает текущий документ в каноническом JSON.
func (e *Engine) State() (string, error) {
	return e.adapter.Save()
}

// Document возвращает копию текущего документа.
func (e *Engine) Document() edtypes.SerializedEditorState {
	return e.store.Snapshot().Export()
}

func (e *Engine) HTML() (string, error) {
	return e.renderer.Render(e.Document())
}

func (e *Engine) Markdown() (string, error) {
	return export.Markdown(e.Document())
}

func (e *Engine) PlainText() string {
	return export.PlainText(e.Document())
}

// Flush немедленно отправляет отложенное уведомление об изменениях.
func (e *Engine) Flush() {
	e.adapter.Flush()
}

// Close отправляет последнее изменение и отключает редактор. Повторный вызов ничего не делает.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.adapter.Dispose()
	for _, unregister := range e.unregister {
		unregister()
	}
}
