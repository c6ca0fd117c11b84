package rooms

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/bananalabs-oss/stocking/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	qrSize       = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventFrame tells a client to re-read the room. It carries no room state.
type eventFrame struct {
	Type     string    `json:"type"`
	RoomCode string    `json:"room_code"`
	At       time.Time `json:"at"`
}

// Events streams room change notifications over a websocket.
func (h *Handler) Events(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.coord.Watch(ctx, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	metrics.SubscriberOpened()
	defer metrics.SubscriberClosed()

	// Inbound frames are ignored; a read error means the client is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			frame := eventFrame{Type: "room_changed", RoomCode: ev.RoomCode, At: ev.At}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

// QRCode renders a PNG that opens the join page for the room.
func (h *Handler) QRCode(c *gin.Context) {
	r, err := h.coord.JoinRoomCheck(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	png, err := qrcode.Encode(h.publicURL+"/?code="+r.Code, qrcode.Medium, qrSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}
