package socket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultQueueSize = 64
	writeTimeout     = 5 * time.Second
	readLimit        = 64 << 10
)

// HandlerFunc обрабатывает входящее событие от конкретного соединения
type HandlerFunc func(ctx context.Context, c *Conn, data json.RawMessage)

// Conn - одно подключение к хабу
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *Conn) ID() string { return c.id }

// Emit ставит событие в очередь соединения и сразу возвращается
func (c *Conn) Emit(event string, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *Conn) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Conn) writeLoop(ctx context.Context, logger *zap.Logger) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case frame := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				logger.Debug("socket write failed", zap.String("conn_id", c.id), zap.Error(err))
				c.close()
				return
			}
		}
	}
}

// Hub принимает websocket соединения и раздает события обработчикам
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Conn
	handlers  map[string]HandlerFunc
	queueSize int
	logger    *zap.Logger
}

func NewHub(queueSize int, logger *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:     make(map[string]*Conn),
		handlers:  make(map[string]HandlerFunc),
		queueSize: queueSize,
		logger:    logger.With(zap.String("component", "socket_hub")),
	}
}

// On регистрирует обработчик события; повторная регистрация заменяет прежний
func (h *Hub) On(event string, handler HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = handler
}

func (h *Hub) handler(event string) HandlerFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handlers[event]
}

// Count - число активных соединений
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Serve обслуживает соединение до его закрытия. Обработчики вызываются
// в горутине чтения, по одному событию за раз.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ws.SetReadLimit(readLimit)
	c := &Conn{
		id:   uuid.New().String(),
		ws:   ws,
		send: make(chan []byte, h.queueSize),
		done: make(chan struct{}),
	}
	h.add(c)
	defer h.remove(c)

	go c.writeLoop(ctx, h.logger)

	for {
		typ, frame, err := ws.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		env, err := Decode(frame)
		if err != nil {
			h.logger.Warn("dropping malformed frame", zap.String("conn_id", c.id), zap.Error(err))
			continue
		}
		handle := h.handler(env.Event)
		if handle == nil {
			h.logger.Debug("no handler for event", zap.String("conn_id", c.id), zap.String("event", env.Event))
			continue
		}
		handle(ctx, c, env.Data)
	}
}

// Broadcast отправляет событие всем соединениям; медленные соединения пропускаются
func (h *Hub) Broadcast(event string, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.enqueue(frame); err != nil {
			h.logger.Debug("dropped event for connection",
				zap.String("conn_id", c.id),
				zap.String("event", event),
				zap.Error(err))
		}
	}
	return nil
}

// Close закрывает все соединения
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
		c.ws.Close(websocket.StatusGoingAway, "server shutdown")
	}
	h.logger.Debug("hub closed", zap.Int("connections", len(conns)))
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("connection added", zap.String("conn_id", c.id), zap.Int("connections", n))
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.id)
	n := len(h.conns)
	h.mu.Unlock()

	c.close()
	c.ws.Close(websocket.StatusNormalClosure, "")
	h.logger.Debug("connection removed", zap.String("conn_id", c.id), zap.Int("connections", n))
}
