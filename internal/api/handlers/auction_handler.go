package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"auction-ledger/internal/domain"
	"auction-ledger/internal/services"
	"auction-ledger/pkg/logger"
)

type AuctionService interface {
	ListItem(ctx context.Context, req services.ListItemRequest) (*domain.Auction, error)
	PlaceBid(ctx context.Context, itemID string, bid domain.Bid) (*domain.Auction, error)
	GetAuctions(ctx context.Context) ([]*domain.Auction, error)
	GetAuction(ctx context.Context, itemID string) (*domain.Auction, error)
	GetWinner(ctx context.Context, itemID string) (domain.HighestBid, error)
}

type AuctionHandler struct {
	auctions AuctionService
	events   domain.EventLog
	log      logger.Logger
}

// NewAuctionHandler wires the auction endpoints. events may be nil, in which
// case the audit endpoint is not registered.
func NewAuctionHandler(auctions AuctionService, events domain.EventLog, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctions: auctions,
		events:   events,
		log:      log,
	}
}

func (h *AuctionHandler) Register(api *echo.Group) {
	api.POST("/auctions", h.ListItem)
	api.GET("/auctions", h.GetAuctions)
	api.GET("/auctions/:id", h.GetAuction)
	api.POST("/auctions/:id/bids", h.PlaceBid)
	api.GET("/auctions/:id/winner", h.GetWinner)
	if h.events != nil {
		api.GET("/auctions/:id/events", h.GetEvents)
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type WinnerResponse struct {
	AuctionID string            `json:"auctionId"`
	Winner    domain.HighestBid `json:"winner"`
}

func (h *AuctionHandler) ListItem(c echo.Context) error {
	var req services.ListItemRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, domain.NewError(domain.KindInvalidPayload, "invalid request body"))
	}

	auction, err := h.auctions.ListItem(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, auction)
}

func (h *AuctionHandler) GetAuctions(c echo.Context) error {
	auctions, err := h.auctions.GetAuctions(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, auctions)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auction, err := h.auctions.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, auction)
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var bid domain.Bid
	if err := c.Bind(&bid); err != nil {
		return h.writeError(c, domain.NewError(domain.KindInvalidBid, "invalid request body"))
	}

	auction, err := h.auctions.PlaceBid(c.Request().Context(), c.Param("id"), bid)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, auction)
}

func (h *AuctionHandler) GetWinner(c echo.Context) error {
	auctionID := c.Param("id")
	winner, err := h.auctions.GetWinner(c.Request().Context(), auctionID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, WinnerResponse{AuctionID: auctionID, Winner: winner})
}

func (h *AuctionHandler) GetEvents(c echo.Context) error {
	auctionID := c.Param("id")
	if _, err := h.auctions.GetAuction(c.Request().Context(), auctionID); err != nil {
		return h.writeError(c, err)
	}

	events, err := h.events.ListEvents(c.Request().Context(), auctionID)
	if err != nil {
		h.log.Error("Failed to list auction events", "auction_id", auctionID, "error", err)
		return h.writeError(c, domain.StorageFailure("list auction events", err))
	}
	return c.JSON(http.StatusOK, events)
}

func (h *AuctionHandler) writeError(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	status := StatusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, ErrorResponse{Error: string(kind), Message: domain.MessageOf(err)})
}

func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidPayload, domain.KindInvalidBid:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAuctionEnded, domain.KindBidTooLow, domain.KindAuctionNotEnded:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
