package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"treasure-trove/internal/auctionerrors"
	"treasure-trove/internal/broadcast"
	model "treasure-trove/internal/models"
	"treasure-trove/utils"
)

const (
	writeTimeout   = 10 * time.Second
	sendBufferSize = 64
)

// Authenticator verifies the handshake token and resolves the account behind
// it. Satisfied by the user service.
type Authenticator interface {
	VerifyToken(token string) (string, error)
	GetUserInfo(ctx context.Context, userID string) (model.Account, error)
}

// BidTopics is the broadcaster surface the live feed needs. Satisfied by
// broadcast.Hub.
type BidTopics interface {
	Join(ctx context.Context, auctionID string, sub broadcast.Subscriber) error
	Leave(auctionID string, sub broadcast.Subscriber)
	LeaveAll(sub broadcast.Subscriber)
}

// BidPlacer accepts bids arriving over the live connection. Satisfied by the
// bidding service.
type BidPlacer interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (model.Bid, error)
}

// LiveHandler upgrades authenticated connections to the per-auction live bid
// feed. The client speaks in small action frames; the server answers bid
// placements with ack/error frames and streams broadcast.BidMessage for every
// bid in joined topics.
type LiveHandler struct {
	auth    Authenticator
	topics  BidTopics
	bidding BidPlacer
}

func NewLiveHandler(auth Authenticator, topics BidTopics, bidding BidPlacer) *LiveHandler {
	return &LiveHandler{auth: auth, topics: topics, bidding: bidding}
}

// clientFrame is what the browser sends over the socket.
type clientFrame struct {
	Action    string `json:"action"` // join | leave | bid
	AuctionID string `json:"auctionId"`
	Amount    int64  `json:"amount"`
}

// controlFrame answers bid placements and reports protocol errors.
type controlFrame struct {
	Action    string `json:"action"` // ack | error
	AuctionID string `json:"auctionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers send the token explicitly; origin checks belong to the
	// deployment's reverse proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS handles GET /ws?token=...
// Authentication happens before the upgrade so an anonymous caller gets a
// plain 401 and never touches a topic.
func (h *LiveHandler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, "missing credentials")
		return
	}
	userID, err := h.auth.VerifyToken(token)
	if err != nil {
		utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, "invalid credentials")
		return
	}
	account, err := h.auth.GetUserInfo(c.Request.Context(), userID)
	if err != nil || account.Locked {
		utils.JSONError(c, http.StatusForbidden, auctionerrors.ErrAccountLocked, "account unavailable")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("ServeWS: upgrade failed", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	client := &liveClient{
		conn: conn,
		send: make(chan any, sendBufferSize),
		done: make(chan struct{}),
	}

	go client.writePump()
	h.readLoop(client, account)
}

// readLoop processes client frames until the connection drops.
func (h *LiveHandler) readLoop(client *liveClient, account model.Account) {
	defer func() {
		h.topics.LeaveAll(client)
		client.close()
	}()

	for {
		var frame clientFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Action {
		case "join":
			if err := h.topics.Join(context.Background(), frame.AuctionID, client); err != nil {
				client.control(controlFrame{Action: "error", AuctionID: frame.AuctionID, Error: "failed to join auction"})
			}
		case "leave":
			h.topics.Leave(frame.AuctionID, client)
		case "bid":
			if _, err := h.bidding.PlaceBid(context.Background(), frame.AuctionID, account.UserID, frame.Amount); err != nil {
				client.control(controlFrame{Action: "error", AuctionID: frame.AuctionID, Error: rejectionText(err)})
				continue
			}
			client.control(controlFrame{Action: "ack", AuctionID: frame.AuctionID})
		default:
			client.control(controlFrame{Action: "error", Error: "unknown action"})
		}
	}
}

// rejectionText keeps user-facing rejection reasons and hides internals.
func rejectionText(err error) string {
	for _, sentinel := range []error{
		auctionerrors.ErrAuctionNotActive,
		auctionerrors.ErrSelfBid,
		auctionerrors.ErrBelowMinimum,
		auctionerrors.ErrInsufficientBalance,
		auctionerrors.ErrNotHighEnough,
		auctionerrors.ErrRepeatBidder,
		auctionerrors.ErrInvalidBid,
		auctionerrors.ErrAuctionNotFound,
		auctionerrors.ErrConcurrentConflict,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "failed to place bid"
}

// liveClient is one websocket connection's view of the hub.
type liveClient struct {
	conn *websocket.Conn
	send chan any
	done chan struct{}
}

// Send implements broadcast.Subscriber. It never blocks; a full buffer means
// the hub should drop this subscriber.
func (c *liveClient) Send(msg broadcast.BidMessage) bool {
	select {
	case <-c.done:
		return false
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// control queues a protocol reply, best effort.
func (c *liveClient) control(frame controlFrame) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
	}
}

func (c *liveClient) writePump() {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (c *liveClient) close() {
	close(c.done)
	c.conn.Close()
}
