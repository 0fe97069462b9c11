package handler

import (
	"net/http"
	"time"

	"merchant-settlement/internal/events"
	"merchant-settlement/internal/middleware"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler streams ledger change events to a seller's dashboard.
type EventsHandler struct {
	bus *events.Bus
	log *zap.Logger
}

func NewEventsHandler(bus *events.Bus, log *zap.Logger) *EventsHandler {
	return &EventsHandler{
		bus: bus,
		log: log.Named("ws"),
	}
}

func (h *EventsHandler) Stream(c echo.Context) error {
	userID := middleware.UserID(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Debug("Websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	defer conn.Close()

	sub := h.bus.Subscribe(userID)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	h.log.Info("Dashboard connected", zap.String("user_id", userID))
	for {
		select {
		case <-done:
			h.log.Info("Dashboard disconnected", zap.String("user_id", userID))
			return nil
		case event, ok := <-sub.C():
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				h.log.Debug("Websocket write failed", zap.String("user_id", userID), zap.Error(err))
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
