package portal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	contentstore "github.com/aisa-it/portal/portal.go/internal/portal/content-store"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/engine"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/paste"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/persist"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	stack_error "github.com/aisa-it/portal/portal.go/internal/portal/stack-error"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

const saveTimeout = 30 * time.Second

const EditorMsgSaveFailed = "save_failed"

// EditorSession - открытый редактор документа из поля записи.
type EditorSession struct {
	Id        uuid.UUID
	Key       contentstore.Key
	Engine    *engine.Engine
	CreatedAt time.Time
}

type OpenSessionRequest struct {
	SourceTable   string `json:"source_table" validate:"required,identifier"`
	RecordId      string `json:"record_id" validate:"required"`
	Field         string `json:"field" validate:"required,identifier"`
	Editable      bool   `json:"editable"`
	DisableTables bool   `json:"disable_tables"`
}

type SessionResponse struct {
	Id          uuid.UUID       `json:"id"`
	SourceTable string          `json:"source_table"`
	RecordId    string          `json:"record_id"`
	Field       string          `json:"field"`
	Editable    bool            `json:"editable"`
	Outcome     string          `json:"outcome"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CommandRequest struct {
	Command string          `json:"command" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CommandResponse struct {
	Handled bool            `json:"handled"`
	Content json.RawMessage `json:"content"`
}

type EditableRequest struct {
	Editable bool `json:"editable"`
}

// NodeInfo описывает узел живого документа. Ключи нужны клиенту для выделения.
type NodeInfo struct {
	Key   edtypes.NodeKey  `json:"key"`
	Type  edtypes.NodeType `json:"type"`
	Path  []int            `json:"path"`
	Depth int              `json:"depth"`
	Text  string           `json:"text,omitempty"`
}

func (s *Services) AddEditorServices(g *echo.Group) {
	g.POST("sessions/", s.openSession)

	sessionGroup := g.Group("sessions/:sessionId/")
	sessionGroup.GET("", s.getSession)
	sessionGroup.DELETE("", s.closeSessionHandler)
	sessionGroup.GET("html/", s.getSessionHTML)
	sessionGroup.GET("markdown/", s.getSessionMarkdown)
	sessionGroup.GET("text/", s.getSessionText)
	sessionGroup.GET("nodes/", s.getSessionNodes)
	sessionGroup.POST("commands/", s.dispatchCommand)
	sessionGroup.POST("paste/", s.pasteContent)
	sessionGroup.POST("images/", s.uploadImage)
	sessionGroup.PUT("selection/", s.setSelection)
	sessionGroup.PUT("editable/", s.setEditable)
	sessionGroup.POST("flush/", s.flushSession)
	sessionGroup.GET("ws/", s.sessionWebsocket)
}

// openSession открывает редактор для поля записи. Содержимое берется из хранилища
// документов, изменения сохраняются туда же после паузы в правках.
//
// @id openSession
// @Summary editor: открытие сессии редактирования
// @Description Загружает содержимое поля записи и открывает для него редактор. Изменения сохраняются автоматически после паузы в правках
// @Tags Editor
// @Accept json
// @Produce json
// @Param data body OpenSessionRequest true "Поле записи и режим редактора"
// @Success 201 {object} SessionResponse "Открытая сессия"
// @Failure 400 {object} apierrors.DefinedError "Некорректные параметры запроса"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/editor/sessions/ [post]
func (s *Services) openSession(c echo.Context) error {
	var req OpenSessionRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrSessionParamsRequired)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}
	key := contentstore.Key{Table: req.SourceTable, RecordId: req.RecordId, Field: req.Field}
	if err := key.Validate(); err != nil {
		return EError(c, err)
	}

	content, err := s.contents.LoadContent(c.Request().Context(), key)
	if err != nil {
		stack_error.GetError(c, stack_error.TrackErrorStack(err).AddContext("key", key.String()))
		return EErrorDefined(c, apierrors.ErrContentLoadFailed)
	}
	var initial any
	if content != nil {
		initial = *content
	}

	session := &EditorSession{
		Id:        uuid.Must(uuid.NewV4()),
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}
	session.Engine, err = engine.New(engine.Options{
		Editable:       req.Editable,
		InitialContent: initial,
		OnChange: func(content string) {
			s.saveContent(session, content)
		},
		SourceTable:    key.Table,
		SourceRecordId: key.RecordId,
		SourceField:    key.Field,
		Debounce:       s.cfg.Debounce(),
		UploadTimeout:  s.cfg.UploadTimeout(),
		MaxFileSize:    s.cfg.MaxUploadSize(),
		MaxImageSide:   uint(s.cfg.ImageMaxSide),
		DisableTables:  req.DisableTables,
	}, engine.Deps{
		Files:      s.storage,
		Limiter:    s.limiter,
		Decorators: s.decorators,
	})
	if err != nil {
		return EError(c, stack_error.TrackErrorStack(err).AddContext("key", key.String()))
	}
	if session.Engine.Outcome() == persist.OutcomeTruncated {
		slog.Warn("Open editor session with truncated content", "key", key.String())
	}

	s.sessions.Add(session.Id, session)
	slog.Info("Editor session opened",
		"sessionId", session.Id,
		"key", key.String(),
		"editable", req.Editable,
		"outcome", session.Engine.Outcome().String())

	resp, err := s.sessionResponse(session)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *Services) saveContent(session *EditorSession, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.contents.SaveContent(ctx, session.Key, content); err != nil {
		stack_error.GetError(nil, stack_error.TrackErrorStack(err).
			AddContext("sessionId", session.Id).
			AddContext("key", session.Key.String()))
		s.hub.Send(session.Id, EditorMsg{Type: EditorMsgSaveFailed})
		return
	}
	s.hub.Send(session.Id, EditorMsg{Type: EditorMsgState, Content: json.RawMessage(content)})
}

func (s *Services) sessionResponse(session *EditorSession) (SessionResponse, error) {
	content, err := session.Engine.State()
	if err != nil {
		return SessionResponse{}, err
	}
	return SessionResponse{
		Id:          session.Id,
		SourceTable: session.Key.Table,
		RecordId:    session.Key.RecordId,
		Field:       session.Key.Field,
		Editable:    session.Engine.Store().Editable(),
		Outcome:     session.Engine.Outcome().String(),
		Content:     json.RawMessage(content),
		CreatedAt:   session.CreatedAt,
	}, nil
}

func (s *Services) lookupSession(c echo.Context) (*EditorSession, error) {
	id, err := uuid.FromString(c.Param("sessionId"))
	if err != nil {
		return nil, apierrors.ErrSessionNotFound
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, apierrors.ErrSessionNotFound
	}
	return session, nil
}

// getSession godoc
// @id getSession
// @Summary editor: текущее состояние сессии
// @Tags Editor
// @Produce json
// @Param sessionId path string true "ID сессии редактирования"
// @Success 200 {object} SessionResponse "Сессия и сериализованный документ"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/ [get]
func (s *Services) getSession(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	resp, err := s.sessionResponse(session)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// getSessionHTML godoc
// @id getSessionHTML
// @Summary editor: документ в HTML
// @Tags Editor
// @Produce html
// @Param sessionId path string true "ID сессии редактирования"
// @Success 200 {string} string "HTML документа"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/editor/sessions/{sessionId}/html/ [get]
func (s *Services) getSessionHTML(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	html, err := session.Engine.HTML()
	if err != nil {
		return EError(c, err)
	}
	return c.HTML(http.StatusOK, html)
}

// getSessionMarkdown godoc
// @id getSessionMarkdown
// @Summary editor: документ в Markdown
// @Tags Editor
// @Produce text/markdown
// @Param sessionId path string true "ID сессии редактирования"
// @Success 200 {string} string "Markdown документа"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/editor/sessions/{sessionId}/markdown/ [get]
func (s *Services) getSessionMarkdown(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	md, err := session.Engine.Markdown()
	if err != nil {
		return EError(c, err)
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=UTF-8", []byte(md))
}

// getSessionText godoc
// @id getSessionText
// @Summary editor: текст документа без разметки
// @Tags Editor
// @Produce plain
// @Param sessionId path string true "ID сессии редактирования"
// @Success 200 {string} string "Текст документа"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/text/ [get]
func (s *Services) getSessionText(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	return c.String(http.StatusOK, session.Engine.PlainText())
}

// getSessionNodes godoc
// @id getSessionNodes
// @Summary editor: список узлов документа
// @Description Возвращает узлы в порядке обхода с ключами и путями для построения выделения
// @Tags Editor
// @Produce json
// @Param sessionId path string true "ID сессии редактирования"
// @Success 200 {array} NodeInfo "Узлы документа"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/nodes/ [get]
func (s *Services) getSessionNodes(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	snap := session.Engine.Store().Snapshot()
	nodes := make([]NodeInfo, 0, snap.Len())
	snap.Walk(func(n *edtypes.Node, depth int) bool {
		path, _ := snap.PathOf(n.Key)
		info := NodeInfo{Key: n.Key, Type: n.Type, Path: path, Depth: depth}
		if n.Type == edtypes.TextNode {
			info.Text = n.Text
		}
		nodes = append(nodes, info)
		return true
	})
	return c.JSON(http.StatusOK, nodes)
}

// dispatchCommand godoc
// @id dispatchCommand
// @Summary editor: выполнение команды
// @Description Выполняет команду редактора (format-text, toggle-link, insert-table и др.) над текущим выделением
// @Tags Editor
// @Accept json
// @Produce json
// @Param sessionId path string true "ID сессии редактирования"
// @Param data body CommandRequest true "Команда и ее параметры"
// @Success 200 {object} CommandResponse "Результат и документ после команды"
// @Failure 400 {object} apierrors.DefinedError "Некорректные параметры запроса"
// @Failure 403 {object} apierrors.DefinedError "Документ доступен только для чтения"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/editor/sessions/{sessionId}/commands/ [post]
func (s *Services) dispatchCommand(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidPayload.WithFormattedMessage(err.Error()))
	}
	if req.Command == "" || !session.Engine.Dispatcher().Has(req.Command) {
		return EErrorDefined(c, apierrors.ErrUnknownCommand.WithFormattedMessage(req.Command))
	}

	handled, err := session.Engine.DispatchJSON(c.Request().Context(), req.Command, req.Payload)
	if err != nil {
		return EError(c, err)
	}
	return s.commandResponse(c, session, handled)
}

func (s *Services) commandResponse(c echo.Context, session *EditorSession, handled bool) error {
	content, err := session.Engine.State()
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, CommandResponse{Handled: handled, Content: json.RawMessage(content)})
}

// pasteContent принимает содержимое буфера обмена в JSON или multipart: файлы в поле files,
// разметку в html и текст в text.
//
// @id pasteContent
// @Summary editor: вставка из буфера обмена
// @Description Первое изображение загружается и вставляется, иначе вставляется HTML. Обычный текст вставляет клиент
// @Tags Editor
// @Accept json,multipart/form-data
// @Produce json
// @Param sessionId path string true "ID сессии редактирования"
// @Param files formData file false "Файлы из буфера обмена"
// @Param html formData string false "HTML из буфера обмена"
// @Param text formData string false "Текст из буфера обмена"
// @Success 200 {object} CommandResponse "Результат и документ после вставки"
// @Failure 400 {object} apierrors.DefinedError "Некорректные параметры запроса"
// @Failure 403 {object} apierrors.DefinedError "Документ доступен только для чтения"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Failure 402 {object} apierrors.DefinedError "Превышен лимит вложений"
// @Failure 413 {object} apierrors.DefinedError "Файл слишком большой"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/editor/sessions/{sessionId}/paste/ [post]
func (s *Services) pasteContent(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}

	var payload paste.Payload
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := c.Bind(&payload); err != nil {
			return EErrorDefined(c, apierrors.ErrInvalidPayload.WithFormattedMessage(err.Error()))
		}
	} else {
		form, err := c.MultipartForm()
		if err != nil {
			return EErrorDefined(c, apierrors.ErrInvalidPayload.WithFormattedMessage(err.Error()))
		}
		payload.HTML = c.FormValue("html")
		payload.Text = c.FormValue("text")
		for _, fh := range form.File["files"] {
			file, err := s.readFormFile(fh)
			if err != nil {
				return EError(c, err)
			}
			payload.Files = append(payload.Files, file)
		}
	}

	handled, err := session.Engine.Paste(c.Request().Context(), payload)
	if err != nil {
		return EError(c, err)
	}
	return s.commandResponse(c, session, handled)
}

// uploadImage godoc
// @id uploadImage
// @Summary editor: загрузка изображения в документ
// @Tags Editor
// @Accept multipart/form-data
// @Produce json
// @Param sessionId path string true "ID сессии редактирования"
// @Param asset formData file true "Изображение"
// @Success 200 {object} CommandResponse "Документ после вставки"
// @Failure 400 {object} apierrors.DefinedError "Некорректные параметры запроса"
// @Failure 403 {object} apierrors.DefinedError "Документ доступен только для чтения"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Failure 402 {object} apierrors.DefinedError "Превышен лимит вложений"
// @Failure 413 {object} apierrors.DefinedError "Файл слишком большой"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/editor/sessions/{sessionId}/images/ [post]
func (s *Services) uploadImage(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	fh, err := c.FormFile("asset")
	if err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidPayload.WithFormattedMessage(err.Error()))
	}
	file, err := s.readFormFile(fh)
	if err != nil {
		return EError(c, err)
	}
	if err := session.Engine.InsertImageFile(c.Request().Context(), file); err != nil {
		return EError(c, err)
	}
	return s.commandResponse(c, session, true)
}

func (s *Services) readFormFile(fh *multipart.FileHeader) (paste.File, error) {
	if limit := s.cfg.MaxUploadSize(); limit > 0 && fh.Size > limit {
		return paste.File{}, apierrors.ErrFileTooLarge.WithFormattedMessage(s.cfg.MaxUploadSizeMB)
	}
	f, err := fh.Open()
	if err != nil {
		return paste.File{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return paste.File{}, err
	}
	mime := fh.Header.Get(echo.HeaderContentType)
	if mime == "application/octet-stream" {
		mime = ""
	}
	return paste.File{Name: fh.Filename, MIME: mime, Data: data}, nil
}

// setSelection устанавливает выделение. Тело null снимает выделение.
//
// @id setSelection
// @Summary editor: установка выделения
// @Tags Editor
// @Accept json
// @Produce json
// @Param sessionId path string true "ID сессии редактирования"
// @Param data body state.Selection false "Выделение, null снимает выделение"
// @Success 200 {object} state.Selection "Нормализованное выделение"
// @Failure 400 {object} apierrors.DefinedError "Некорректные параметры запроса"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/selection/ [put]
func (s *Services) setSelection(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	var sel *state.Selection
	if err := json.NewDecoder(c.Request().Body).Decode(&sel); err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidSelection)
	}
	if sel != nil && !selectionExists(session.Engine.Store().Snapshot(), sel) {
		return EErrorDefined(c, apierrors.ErrInvalidSelection)
	}
	if err := session.Engine.Select(sel); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, session.Engine.Store().Snapshot().Selection())
}

func selectionExists(snap *state.Snapshot, sel *state.Selection) bool {
	if sel.IsNodeSelection() {
		for _, key := range sel.Nodes {
			if _, ok := snap.Node(key); !ok {
				return false
			}
		}
		return true
	}
	for _, p := range []state.Point{sel.Anchor, sel.Focus} {
		n, ok := snap.Node(p.Key)
		if !ok || p.Offset < 0 {
			return false
		}
		if p.Kind == state.PointText && n.Type != edtypes.TextNode {
			return false
		}
	}
	return true
}

// setEditable godoc
// @id setEditable
// @Summary editor: переключение режима только для чтения
// @Tags Editor
// @Accept json
// @Produce json
// @Param sessionId path string true "ID сессии редактирования"
// @Param data body EditableRequest true "Режим редактора"
// @Success 200 {object} EditableRequest "Установленный режим"
// @Failure 400 {object} apierrors.DefinedError "Некорректные параметры запроса"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/editable/ [put]
func (s *Services) setEditable(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	var req EditableRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidPayload.WithFormattedMessage(err.Error()))
	}
	session.Engine.SetEditable(req.Editable)
	return c.JSON(http.StatusOK, req)
}

// flushSession сохраняет накопленные изменения, не дожидаясь паузы в правках.
//
// @id flushSession
// @Summary editor: немедленное сохранение изменений
// @Tags Editor
// @Param sessionId path string true "ID сессии редактирования"
// @Success 200 "Изменения переданы в хранилище"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/flush/ [post]
func (s *Services) flushSession(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	session.Engine.Flush()
	return c.NoContent(http.StatusOK)
}

// sessionWebsocket godoc
// @id sessionWebsocket
// @Summary editor: вебсокет изменений документа
// @Description Отправляет состояние документа при подключении и после каждой серии изменений, сообщает о закрытии сессии
// @Tags Editor
// @Param sessionId path string true "ID сессии редактирования"
// @Success 101 {object} EditorMsg "Поток сообщений"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/ws/ [get]
func (s *Services) sessionWebsocket(c echo.Context) error {
	session, err := s.lookupSession(c)
	if err != nil {
		return EError(c, err)
	}
	content, err := session.Engine.State()
	if err != nil {
		return EError(c, err)
	}
	s.hub.Handle(session.Id, &EditorMsg{Type: EditorMsgState, Content: json.RawMessage(content)}, c.Response(), c.Request())
	return nil
}

// closeSessionHandler godoc
// @id closeSession
// @Summary editor: закрытие сессии
// @Description Сохраняет последние изменения и отключает подписчиков вебсокета
// @Tags Editor
// @Param sessionId path string true "ID сессии редактирования"
// @Success 200 "Сессия закрыта"
// @Failure 404 {object} apierrors.DefinedError "Сессия не найдена"
// @Router /api/editor/sessions/{sessionId}/ [delete]
func (s *Services) closeSessionHandler(c echo.Context) error {
	id, err := uuid.FromString(c.Param("sessionId"))
	if err != nil {
		return EErrorDefined(c, apierrors.ErrSessionNotFound)
	}
	session, ok := s.sessions.Remove(id)
	if !ok {
		return EErrorDefined(c, apierrors.ErrSessionNotFound)
	}
	s.closeSession(session, "session closed")
	return c.NoContent(http.StatusOK)
}

func (s *Services) expireSession(_ uuid.UUID, session *EditorSession) {
	slog.Info("Editor session expired", "sessionId", session.Id, "key", session.Key.String())
	s.closeSession(session, "session expired")
}

// closeSession сохраняет последние изменения и отключает подписчиков.
func (s *Services) closeSession(session *EditorSession, reason string) {
	session.Engine.Close()
	s.hub.CloseSession(session.Id, reason)
	slog.Info("Editor session closed", "sessionId", session.Id, "reason", reason)
}
