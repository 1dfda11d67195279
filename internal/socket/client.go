package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Client - клиентская сторона соединения. Emit не ждет подтверждения,
// входящие события раздаются зарегистрированным обработчикам из Run.
type Client struct {
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc

	mu       sync.RWMutex
	handlers map[string]func(data json.RawMessage)

	logger *zap.Logger
}

// Dial подключается к серверу; url может быть ws(s):// или http(s)://
func Dial(ctx context.Context, url string, queueSize int, logger *zap.Logger) (*Client, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newClient(ws, queueSize, logger), nil
}

func newClient(ws *websocket.Conn, queueSize int, logger *zap.Logger) *Client {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ws.SetReadLimit(readLimit)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ws:       ws,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
		cancel:   cancel,
		handlers: make(map[string]func(json.RawMessage)),
		logger:   logger.With(zap.String("component", "socket_client")),
	}
	go c.writeLoop(ctx)
	return c
}

// On регистрирует обработчик входящего события
func (c *Client) On(event string, handler func(data json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Emit ставит событие в очередь отправки и сразу возвращается
func (c *Client) Emit(event string, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
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

// Run читает события до закрытия соединения или отмены ctx
func (c *Client) Run(ctx context.Context) error {
	for {
		typ, frame, err := c.ws.Read(ctx)
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		env, err := Decode(frame)
		if err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		c.mu.RLock()
		handle := c.handlers[env.Event]
		c.mu.RUnlock()
		if handle == nil {
			c.logger.Debug("no handler for event", zap.String("event", env.Event))
			continue
		}
		handle(env.Data)
	}
}

// Close закрывает соединение; повторный вызов ничего не делает
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.cancel()
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	return err
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.logger.Warn("socket write failed", zap.Error(err))
				// дальнейшие Emit должны получать ErrClosed
				c.once.Do(func() {
					close(c.done)
					c.cancel()
					c.ws.CloseNow()
				})
				return
			}
		}
	}
}
