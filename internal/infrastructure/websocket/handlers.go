package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AuctionOperations is the part of the auction service the socket needs.
type AuctionOperations interface {
	GetAuction(ctx context.Context, itemID string) (*domain.Auction, error)
	PlaceBid(ctx context.Context, itemID string, bid domain.Bid) (*domain.Auction, error)
}

type WebSocketHandler struct {
	auctions    AuctionOperations
	clock       domain.Clock
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(auctions AuctionOperations, clock domain.Clock,
	connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		auctions:    auctions,
		clock:       clock,
		connManager: connManager,
		log:         log,
	}
}

type clientMessage struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

// HandleConnection upgrades GET /ws/auctions/:id for watchers of an open auction.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	auctionID := c.Param("id")

	auction, err := h.auctions.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		return c.JSON(statusFor(err), map[string]string{
			"error":   string(domain.KindOf(err)),
			"message": domain.MessageOf(err),
		})
	}
	if auction.State(h.clock.Now()) == domain.StateClosed {
		h.log.Info("Rejected connection - auction has ended", "auction_id", auctionID)
		return c.JSON(http.StatusConflict, map[string]string{
			"error":   string(domain.KindAuctionEnded),
			"message": domain.ErrAuctionEnded.Message,
		})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return nil
	}

	wsConn := NewWebSocketConnection(conn, uuid.NewString(), auctionID, c.QueryParam("bidder"))

	if err := h.connManager.RegisterConnection(auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return nil
	}

	go h.handleMessages(wsConn)
	return nil
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection) {
	defer func() {
		h.connManager.UnregisterConnection(conn.AuctionID(), conn.ConnID())
		conn.Close()
	}()

	for {
		var msg clientMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Connection read ended", "conn_id", conn.ConnID(), "error", err)
			}
			return
		}

		switch msg.Type {
		case "place_bid":
			h.handleBidMessage(conn, msg)
		case "ping":
			conn.Send(map[string]string{"type": "pong"})
		default:
			conn.Send(map[string]string{"type": "error", "message": "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) handleBidMessage(conn *WebSocketConnection, msg clientMessage) {
	bid := domain.Bid{Bidder: conn.Bidder(), Amount: msg.Amount}

	auction, err := h.auctions.PlaceBid(context.Background(), conn.AuctionID(), bid)
	if err != nil {
		conn.Send(map[string]string{
			"type":    "bid_rejected",
			"error":   string(domain.KindOf(err)),
			"message": domain.MessageOf(err),
		})
		return
	}

	conn.Send(map[string]interface{}{
		"type":    "bid_accepted",
		"auction": auction,
	})
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type WebSocketConnection struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	connID    string
	auctionID string
	bidder    string
}

func NewWebSocketConnection(conn *websocket.Conn, connID, auctionID, bidder string) *WebSocketConnection {
	return &WebSocketConnection{
		conn:      conn,
		connID:    connID,
		auctionID: auctionID,
		bidder:    bidder,
	}
}

// Send is safe for concurrent use; gorilla connections allow one writer at a time.
func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()

	wsc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()

	wsc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return wsc.conn.Close()
}

func (wsc *WebSocketConnection) ConnID() string {
	return wsc.connID
}

func (wsc *WebSocketConnection) AuctionID() string {
	return wsc.auctionID
}

func (wsc *WebSocketConnection) Bidder() string {
	return wsc.bidder
}
