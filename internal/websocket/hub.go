package websocket

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// broadcastBufferSize - ёмкость очереди рассылки, при переполнении сообщения отбрасываются
const broadcastBufferSize = 256

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bagbot",
		Subsystem: "websocket",
		Name:      "clients",
		Help:      "Number of connected WebSocket clients",
	})

	droppedMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bagbot",
		Subsystem: "websocket",
		Name:      "dropped_messages_total",
		Help:      "Broadcast messages dropped because the queue was full",
	})
)

// Пул буферов для сериализации сообщений
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Рассылает клиентам результаты циклов стратегии и записи журнала,
// реализует bot.Broadcaster.
//
// Рассылка не блокирует торговое ядро: при переполнении очереди
// сообщение отбрасывается и учитывается в DroppedMessages,
// клиент, не успевающий читать, отключается.
//
// Использование:
// 1. Создать hub: hub := NewHub(origins)
// 2. Запустить в горутине: go hub.Run()
// 3. Передать в bot.NewScheduler как Broadcaster
// 4. При завершении: hub.Stop()
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Очередь сообщений для рассылки
	broadcast chan []byte

	register   chan *Client
	unregister chan *Client

	stop     chan struct{}
	stopOnce sync.Once

	// Проверка Origin при апгрейде соединения
	origins *OriginChecker

	clientCount atomic.Int64
	dropped     atomic.Int64

	logger *utils.Logger
}

// NewHub создает новый Hub.
// Пустой список origins разрешает любой Origin.
func NewHub(origins []string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		origins:    NewOriginChecker(origins),
		logger:     utils.L().WithComponent("websocket"),
	}
}

// Run запускает главный цикл Hub, должен запускаться в отдельной горутине.
// Завершается после Stop, закрывая каналы всех клиентов.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			for client := range h.clients {
				h.removeClient(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setClientCount()
			h.logger.Info("Client connected", utils.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if h.clients[client] {
				h.removeClient(client)
				h.logger.Info("Client disconnected", utils.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			var slow []*Client
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			for _, client := range slow {
				h.removeClient(client)
			}
			if len(slow) > 0 {
				h.logger.Warn("Removed slow clients",
					utils.Int("removed", len(slow)),
					utils.Int("clients", len(h.clients)),
				)
			}
		}
	}
}

// removeClient вызывается только из Run
func (h *Hub) removeClient(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setClientCount()
}

func (h *Hub) setClientCount() {
	h.clientCount.Store(int64(len(h.clients)))
	connectedClients.Set(float64(len(h.clients)))
}

// Stop останавливает Run, повторный вызов безопасен
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Broadcast сериализует сообщение и ставит его в очередь рассылки
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("Failed to marshal broadcast message", utils.Err(err))
		return
	}

	data := bytes.TrimRight(buf.Bytes(), "\n")
	msg := make([]byte, len(data))
	copy(msg, data)

	h.BroadcastRaw(msg)
}

// BroadcastRaw ставит в очередь уже сериализованное сообщение
func (h *Hub) BroadcastRaw(data []byte) {
	select {
	case <-h.stop:
		return
	default:
	}

	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
		droppedMessagesTotal.Inc()
	}
}

// BroadcastCycleResult отправляет сводку цикла стратегии
func (h *Hub) BroadcastCycleResult(result *bot.CycleResult) {
	if result == nil {
		return
	}
	h.Broadcast(NewCycleResultMessage(result))
}

// BroadcastNotification отправляет новую запись журнала
func (h *Hub) BroadcastNotification(n *models.Notification) {
	if n == nil {
		return
	}
	h.Broadcast(NewNotificationMessage(n))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// DroppedMessages возвращает число сообщений, отброшенных из-за переполнения очереди
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}

// registerClient не блокируется после Stop
func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

var _ bot.Broadcaster = (*Hub)(nil)
