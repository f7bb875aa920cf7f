package handler

import (
	"bidbot/internal/clock"
	"bidbot/internal/events"
	model "bidbot/internal/models"
	"bidbot/services/bidding/helpers"
	"bidbot/utils"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type ItemReader interface {
	GetItem(ctx context.Context, itemID string) (model.AuctionItem, error)
	GetWinningBid(ctx context.Context, itemID string) (model.BidRecord, error)
}

type Subscriber interface {
	Subscribe(itemID string) *events.Subscription
}

// LiveHandler streams an item's bid events over a websocket
type LiveHandler struct {
	items    ItemReader
	feed     Subscriber
	clock    clock.Clock
	upgrader websocket.Upgrader
}

// NewLiveHandler accepts websocket handshakes from the server's own host and
// from allowedOrigins. "*" in allowedOrigins accepts any origin.
func NewLiveHandler(items ItemReader, feed Subscriber, clk clock.Clock, allowedOrigins []string) *LiveHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &LiveHandler{
		items: items,
		feed:  feed,
		clock: clk,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))] = struct{}{}
	}
	_, anyOrigin := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || anyOrigin {
			// non-browser clients send no Origin
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// StreamHandler handles GET /items/:item_id/live
func (h *LiveHandler) StreamHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	item, err := h.items.GetItem(c.Request.Context(), itemID)
	if err != nil {
		helpers.HandleServiceError(c, "StreamHandler", err, map[string]any{"item_id": itemID})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		utils.Warn("StreamHandler: websocket upgrade failed", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}

	// the closer publishes auction_closed once; late subscribers get it here
	if !item.OpenAt(h.clock.Now()) {
		h.sendClosed(c.Request.Context(), conn, item)
		utils.Info("StreamHandler: item already closed", map[string]any{"item_id": itemID})
		return
	}

	sub := h.feed.Subscribe(itemID)
	utils.Info("StreamHandler: live subscriber connected", map[string]any{"item_id": itemID, "remote": c.ClientIP()})

	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(conn, sub, closed)

	utils.Info("StreamHandler: live subscriber disconnected", map[string]any{"item_id": itemID})
}

// readPump discards client frames and reports when the peer goes away
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// sendClosed tells a subscriber that arrived after the deadline how the
// auction ended and closes the connection.
func (h *LiveHandler) sendClosed(ctx context.Context, conn *websocket.Conn, item model.AuctionItem) {
	defer conn.Close()

	event := events.BidEvent{
		Type:      events.TypeAuctionClosed,
		ItemID:    item.ItemID,
		Amount:    item.CurrentBid,
		Timestamp: item.EndTime,
	}
	if winner, err := h.items.GetWinningBid(ctx, item.ItemID); err == nil {
		event.BidderID = winner.BidderID
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "auction closed"))
}

// writePump owns all writes to conn. It returns after an auction_closed
// event, when the subscription ends or when the peer disconnects.
func writePump(conn *websocket.Conn, sub *events.Subscription, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Cancel()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			if event.Type == events.TypeAuctionClosed {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "auction closed"))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
