package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/shaiso/FocusTasks/internal/domain"
	"github.com/shaiso/FocusTasks/internal/protocol"
	"github.com/shaiso/FocusTasks/internal/telemetry"
)

// ErrNoClients — нет ни одного подключённого клиента.
var ErrNoClients = errors.New("no connected clients")

// FrameSink принимает входящие сообщения клиентов (snapshot'ы, действия).
type FrameSink func(ctx context.Context, f protocol.Frame) error

// Config — конфигурация Hub.
type Config struct {
	// Sink получает SET_REMINDERS, TASKS_SNAPSHOT и NOTIFICATION_ACTION.
	Sink FrameSink

	// NeedSnapshot — true, пока у планировщика нет ни одного snapshot'а.
	// Тогда каждое окно после HELLO получает REQUEST_SNAPSHOT.
	NeedSnapshot func() bool

	Logger *slog.Logger

	// OriginPatterns — разрешённые Origin для браузерных клиентов.
	// Пусто — только same-origin.
	OriginPatterns []string

	WriteTimeout time.Duration // default: 5s
	ReadLimit    int64         // default: 1 MiB
	SendBuffer   int           // default: 16
}

// Hub — WebSocket шлюз к окнам клиента.
//
// Для Scheduler'а Hub одновременно поверхность уведомлений (Notifier)
// и обратный канал (Host): NOTIFY и REQUEST_SNAPSHOT рассылаются всем
// окнам, FOCUS уходит последнему активному. Если окон нет, запрос на
// открытие запоминается и отдаётся первому окну, приславшему HELLO,
// как OPEN_CLIENT.
type Hub struct {
	sink         FrameSink
	needSnapshot func() bool
	logger       *slog.Logger
	origins      []string
	writeTimeout time.Duration
	readLimit    int64
	sendBuffer   int

	mu           sync.Mutex
	clients      map[string]*client
	pendingFocus string
}

// client — одно подключённое окно.
type client struct {
	id         string
	conn       *websocket.Conn
	send       chan protocol.Frame
	permission domain.Permission
	lastActive time.Time
	connected  time.Time
}

// NewHub создаёт Hub.
func NewHub(cfg Config) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		sink:         cfg.Sink,
		needSnapshot: cfg.NeedSnapshot,
		logger:       telemetry.WithComponent(logger, "gateway"),
		origins:      cfg.OriginPatterns,
		writeTimeout: cfg.WriteTimeout,
		readLimit:    cfg.ReadLimit,
		sendBuffer:   cfg.SendBuffer,
		clients:      make(map[string]*client),
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = 5 * time.Second
	}
	if h.readLimit <= 0 {
		h.readLimit = 1 << 20
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = 16
	}
	return h
}

// ServeHTTP принимает WebSocket соединение и обслуживает его до закрытия.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(h.readLimit)

	c := &client{
		id:         uuid.New().String(),
		conn:       conn,
		send:       make(chan protocol.Frame, h.sendBuffer),
		permission: domain.PermissionDefault,
		connected:  time.Now(),
		lastActive: time.Now(),
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.register(c)
	defer h.unregister(c)

	go h.writeLoop(ctx, c)

	err = h.readLoop(ctx, c)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		h.logger.Debug("client connection lost", "client_id", c.id, "error", err)
		conn.CloseNow()
	}
}

// readLoop читает кадры клиента, пока соединение живо.
func (h *Hub) readLoop(ctx context.Context, c *client) error {
	for {
		var f protocol.Frame
		if err := wsjson.Read(ctx, c.conn, &f); err != nil {
			return err
		}
		h.touch(c)

		switch f.Type {
		case protocol.TypePing:
			continue

		case protocol.TypeHello:
			h.hello(c, domain.ParsePermission(f.Permission))
			continue
		}

		if h.sink == nil {
			continue
		}
		if err := h.sink(ctx, f); err != nil {
			h.logger.Warn("client frame rejected",
				"client_id", c.id,
				"type", f.Type,
				"error", err,
			)
		}
	}
}

// writeLoop отправляет кадры из очереди клиента.
func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := wsjson.Write(wctx, c.conn, f)
			cancel()
			if err != nil {
				h.logger.Debug("client write failed", "client_id", c.id, "error", err)
				c.conn.CloseNow()
				return
			}
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	telemetry.GatewayClients.Set(float64(n))
	h.logger.Info("client connected", "client_id", c.id, "clients", n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()

	telemetry.GatewayClients.Set(float64(n))
	h.logger.Info("client disconnected", "client_id", c.id, "clients", n)
}

func (h *Hub) touch(c *client) {
	h.mu.Lock()
	c.lastActive = time.Now()
	h.mu.Unlock()
}

// hello запоминает разрешение клиента, отдаёт отложенный OPEN_CLIENT
// и, пока планировщик пуст, просит у окна snapshot.
func (h *Hub) hello(c *client, perm domain.Permission) {
	h.mu.Lock()
	taskID := h.pendingFocus
	h.pendingFocus = ""
	h.mu.Unlock()

	if taskID != "" {
		h.enqueue(c, protocol.Frame{Type: protocol.TypeOpenClient, TaskID: taskID})
	}
	if h.needSnapshot != nil && h.needSnapshot() {
		h.enqueue(c, protocol.Frame{Type: protocol.TypeRequestSnapshot})
	}

	// разрешение видно снаружи только после отложенных кадров
	h.mu.Lock()
	c.permission = perm
	h.mu.Unlock()

	h.logger.Debug("client hello", "client_id", c.id, "permission", perm)
}

// enqueue кладёт кадр в очередь клиента. Медленный клиент теряет кадр,
// а не блокирует планировщик.
func (h *Hub) enqueue(c *client, f protocol.Frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		h.logger.Warn("client send buffer full, dropping frame", "client_id", c.id, "type", f.Type)
		return false
	}
}

// snapshot возвращает клиентов, отсортированных от последнего активного.
func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].lastActive.After(out[j].lastActive)
	})
	return out
}

// broadcast рассылает кадр всем клиентам.
func (h *Hub) broadcast(f protocol.Frame) error {
	clients := h.snapshot()
	if len(clients) == 0 {
		return ErrNoClients
	}

	delivered := 0
	for _, c := range clients {
		if h.enqueue(c, f) {
			delivered++
		}
	}
	if delivered == 0 {
		return errors.New("all client send buffers are full")
	}
	return nil
}

// Notify показывает уведомление во всех окнах.
func (h *Hub) Notify(_ context.Context, n domain.Notification) error {
	return h.broadcast(protocol.NewNotify(n))
}

// RequestSnapshot просит окна прислать TASKS_SNAPSHOT.
func (h *Hub) RequestSnapshot(context.Context) error {
	return h.broadcast(protocol.Frame{Type: protocol.TypeRequestSnapshot})
}

// FocusOrOpen выводит на передний план последнее активное окно.
// Без окон запрос откладывается до следующего HELLO.
func (h *Hub) FocusOrOpen(_ context.Context, taskID string) error {
	for _, c := range h.snapshot() {
		if h.enqueue(c, protocol.Frame{Type: protocol.TypeFocus, TaskID: taskID}) {
			return nil
		}
	}

	h.mu.Lock()
	h.pendingFocus = taskID
	h.mu.Unlock()

	h.logger.Info("no client to focus, open requested", "task_id", taskID)
	return nil
}

// Permission — разрешение на уведомления: granted, если хоть одно окно
// его выдало.
func (h *Hub) Permission() domain.Permission {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := domain.PermissionDefault
	for _, c := range h.clients {
		switch c.permission {
		case domain.PermissionGranted:
			return domain.PermissionGranted
		case domain.PermissionDenied:
			result = domain.PermissionDenied
		}
	}
	return result
}

// ClientInfo — описание подключённого окна для /debug.
type ClientInfo struct {
	ID         string            `json:"id"`
	Permission domain.Permission `json:"permission"`
	Connected  time.Time         `json:"connected_at"`
	LastActive time.Time         `json:"last_active_at"`
}

// Clients возвращает список подключённых окон.
func (h *Hub) Clients() []ClientInfo {
	clients := h.snapshot()

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ClientInfo, 0, len(clients))
	for _, c := range clients {
		out = append(out, ClientInfo{
			ID:         c.id,
			Permission: c.permission,
			Connected:  c.connected,
			LastActive: c.lastActive,
		})
	}
	return out
}
