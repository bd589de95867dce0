package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Samicowest/bag-bot/pkg/utils"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания между pong сообщениями
	pongWait = 60 * time.Second

	// Интервал отправки ping сообщений (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения, клиенты шлют только pong и close
	maxMessageSize = 4096

	// Размер буфера отправки клиента
	clientSendBufferSize = 256
)

// OriginChecker проверяет Origin с O(1) lookup через map.
// Потокобезопасен для чтения после создания.
type OriginChecker struct {
	allowedOrigins map[string]struct{}
	allowAll       bool
}

// NewOriginChecker создает проверку по списку origins.
// Пустой список или "*" разрешают любой Origin.
func NewOriginChecker(origins []string) *OriginChecker {
	checker := &OriginChecker{
		allowedOrigins: make(map[string]struct{}),
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			checker.allowAll = true
		default:
			checker.allowedOrigins[origin] = struct{}{}
		}
	}
	if len(checker.allowedOrigins) == 0 {
		checker.allowAll = true
	}
	return checker
}

// Check проверяет origin за O(1)
func (oc *OriginChecker) Check(origin string) bool {
	if origin == "" {
		return true // не браузер (curl, bagctl)
	}
	if oc.allowAll {
		return true
	}
	_, ok := oc.allowedOrigins[origin]
	return ok
}

// Client представляет одно WebSocket соединение
//
// Каждый клиент имеет две горутины:
// 1. readPump - читает управляющие сообщения и следит за pong
// 2. writePump - пишет сообщения из send и шлёт ping
//
// Канал send закрывает только Hub.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
}

// readPump читает сообщения от клиента до ошибки соединения.
// Поток однонаправленный: входящие данные игнорируются.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error", utils.Err(err))
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту.
// Сообщения, накопившиеся в буфере, склеиваются через '\n' в один фрейм.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

		drain:
			for {
				select {
				case msg, ok := <-c.send:
					if !ok {
						break drain
					}
					w.Write([]byte{'\n'})
					w.Write(msg)
				default:
					break drain
				}
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS апгрейдит HTTP соединение до WebSocket и регистрирует клиента
//
// Использование в routes:
// router.HandleFunc("/ws/stream", hub.ServeWS)
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return h.origins.Check(r.Header.Get("Origin"))
		},
		EnableCompression: true,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", utils.Err(err))
		return
	}

	client := &Client{
		conn: conn,
		hub:  h,
		send: make(chan []byte, clientSendBufferSize),
	}
	if !h.registerClient(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
