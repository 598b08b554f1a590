package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
	"treasure-trove/utils"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Bid rejections carry the specific rule violated so clients can render
// actionable guidance.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusOK, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusBadRequest, "auction is not accepting bids"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusBadRequest, "sellers cannot bid on their own auction"
	case errors.Is(err, auctionerrors.ErrBelowMinimum):
		return http.StatusBadRequest, "bid is below the auction minimum"
	case errors.Is(err, auctionerrors.ErrInsufficientBalance):
		return http.StatusBadRequest, "not enough tokens to cover the bid"
	case errors.Is(err, auctionerrors.ErrNotHighEnough):
		return http.StatusConflict, "bid must exceed current highest bid"
	case errors.Is(err, auctionerrors.ErrRepeatBidder):
		return http.StatusConflict, "already holding the highest bid"
	case errors.Is(err, auctionerrors.ErrConcurrentConflict):
		return http.StatusConflict, "another bid won the race, re-read and retry"
	case errors.Is(err, auctionerrors.ErrUsernameTaken):
		return http.StatusConflict, "username already taken"
	case errors.Is(err, auctionerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auctionerrors.ErrAccountLocked):
		return http.StatusForbidden, "account locked"
	case errors.Is(err, auctionerrors.ErrAccountNotLockable):
		return http.StatusBadRequest, "cannot lock admin or protected accounts"
	case errors.Is(err, auctionerrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage temporarily unavailable, retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// IsRejection reports whether err is an expected bid/user input outcome
// rather than an operational failure. Rejections are never logged as errors.
func IsRejection(err error) bool {
	for _, sentinel := range []error{
		auctionerrors.ErrInvalidBid,
		auctionerrors.ErrAuctionNotActive,
		auctionerrors.ErrSelfBid,
		auctionerrors.ErrBelowMinimum,
		auctionerrors.ErrInsufficientBalance,
		auctionerrors.ErrNotHighEnough,
		auctionerrors.ErrRepeatBidder,
		auctionerrors.ErrInvalidCredentials,
		auctionerrors.ErrAccountLocked,
		auctionerrors.ErrAccountNotLockable,
		auctionerrors.ErrUsernameTaken,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// AccountContextKey is where AuthMiddleware stores the caller's account.
const AccountContextKey = "account"

// CallerAccount returns the authenticated account placed on the request
// context by the auth middleware.
func CallerAccount(c *gin.Context) (model.Account, bool) {
	value, exists := c.Get(AccountContextKey)
	if !exists {
		return model.Account{}, false
	}
	account, ok := value.(model.Account)
	return account, ok
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
