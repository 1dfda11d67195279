package handler

import (
	"context"
	"encoding/json"

	"currency-bridge/internal/model"
	"currency-bridge/internal/service"
	"currency-bridge/internal/socket"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SocketHandler принимает websocket соединения и отвечает на click событием rate
type SocketHandler struct {
	hub       *socket.Hub
	service   service.ConversionServiceInterface
	broadcast bool
	logger    *zap.Logger
}

// NewSocketHandler регистрирует обработчик click в хабе. При broadcast ответ
// получают все подключенные клиенты, иначе только отправитель.
func NewSocketHandler(hub *socket.Hub, svc service.ConversionServiceInterface, broadcast bool, logger *zap.Logger) *SocketHandler {
	h := &SocketHandler{
		hub:       hub,
		service:   svc,
		broadcast: broadcast,
		logger:    logger,
	}
	hub.On(model.EventClick, h.onClick)
	return h
}

func (h *SocketHandler) Serve(c *gin.Context) {
	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS открыт для всех, как и в HTTP API
	})
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err),
		)
		return
	}
	if err := h.hub.Serve(c.Request.Context(), ws); err != nil {
		h.logger.Debug("Websocket connection ended", zap.Error(err))
	}
}

func (h *SocketHandler) onClick(ctx context.Context, conn *socket.Conn, data json.RawMessage) {
	var resp model.ConversionResponse
	req, err := model.DecodeConversionRequest(data)
	if err != nil {
		h.logger.Warn("Malformed click event",
			zap.String("conn_id", conn.ID()),
			zap.Error(err),
		)
		resp = model.ConversionResponse{Msg: "Invalid request: " + err.Error(), Error: true}
	} else {
		resp = h.service.Quote(ctx, req)
	}

	if h.broadcast {
		err := h.hub.Broadcast(model.EventRate, resp)
		if err != nil {
			h.logger.Error("Failed to broadcast rate", zap.Error(err))
		}
		return
	}
	if err := conn.Emit(model.EventRate, resp); err != nil {
		h.logger.Warn("Failed to emit rate",
			zap.String("conn_id", conn.ID()),
			zap.Error(err),
		)
	}
}
