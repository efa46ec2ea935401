package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gofrs/uuid"
)

const (
	pingPeriod = time.Second * 20
	wsTimeout  = time.Minute
)

const (
	EditorMsgState  = "state"
	EditorMsgClosed = "closed"
)

// EditorMsg - сообщение подписчикам сессии: новое содержимое документа или закрытие сессии.
type EditorMsg struct {
	Type      string          `json:"type"`
	SessionId uuid.UUID       `json:"session_id"`
	Content   json.RawMessage `json:"content,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EditorHub рассылает изменения документа по вебсокетам, подключенным к сессии.
type EditorHub struct {
	sessions map[uuid.UUID]map[uuid.UUID]*websocket.Conn
	mutex    sync.RWMutex
}

func NewEditorHub() *EditorHub {
	return &EditorHub{
		sessions: make(map[uuid.UUID]map[uuid.UUID]*websocket.Conn),
	}
}

// Handle держит соединение до его закрытия. initial отправляется сразу после подключения.
func (h *EditorHub) Handle(sessionId uuid.UUID, initial *EditorMsg, w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Open websocket connection", "sessionId", sessionId, "err", err)
		return
	}
	defer c.CloseNow()

	conId := uuid.Must(uuid.NewV4())
	h.mutex.Lock()
	cons, ok := h.sessions[sessionId]
	if !ok {
		cons = make(map[uuid.UUID]*websocket.Conn)
		h.sessions[sessionId] = cons
	}
	cons[conId] = c
	h.mutex.Unlock()

	ctx := c.CloseRead(req.Context())

	if initial != nil {
		wctx, cancel := context.WithTimeout(ctx, wsTimeout)
		err := wsjson.Write(wctx, c, initial)
		cancel()
		if err != nil {
			slog.Debug("Write initial editor state", "sessionId", sessionId, "err", err)
		}
	}

	go h.pingLoop(ctx, sessionId, conId, c)

	<-ctx.Done()
	h.remove(sessionId, conId)
	c.Close(websocket.StatusNormalClosure, "")
}

// Count возвращает число подключений к сессии.
func (h *EditorHub) Count(sessionId uuid.UUID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions[sessionId])
}

func (h *EditorHub) Send(sessionId uuid.UUID, msg EditorMsg) {
	msg.SessionId = sessionId
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	h.mutex.RLock()
	cons := make([]*websocket.Conn, 0, len(h.sessions[sessionId]))
	for _, con := range h.sessions[sessionId] {
		cons = append(cons, con)
	}
	h.mutex.RUnlock()

	for _, con := range cons {
		ctx, cancel := context.WithTimeout(context.Background(), wsTimeout)
		if err := wsjson.Write(ctx, con, msg); err != nil {
			slog.Error("Write editor state to websocket", "sessionId", sessionId, "err", err)
		}
		cancel()
	}
}

// CloseSession уведомляет подписчиков о закрытии сессии и отключает их.
func (h *EditorHub) CloseSession(sessionId uuid.UUID, reason string) {
	h.Send(sessionId, EditorMsg{Type: EditorMsgClosed})

	h.mutex.Lock()
	cons := h.sessions[sessionId]
	delete(h.sessions, sessionId)
	h.mutex.Unlock()

	for _, con := range cons {
		con.Close(websocket.StatusNormalClosure, reason)
	}
}

func (h *EditorHub) remove(sessionId, conId uuid.UUID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.sessions[sessionId], conId)
	if len(h.sessions[sessionId]) == 0 {
		delete(h.sessions, sessionId)
	}
}

func (h *EditorHub) pingLoop(ctx context.Context, sessionId, conId uuid.UUID, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pctx, cancel := context.WithTimeout(ctx, wsTimeout)
		err := conn.Ping(pctx)
		cancel()
		if err != nil {
			slog.Debug("Ping to websocket failed", "sessionId", sessionId, "err", err)
			h.remove(sessionId, conId)
			conn.Close(websocket.StatusNormalClosure, "Ping failed, connection closed")
			return
		}
	}
}
