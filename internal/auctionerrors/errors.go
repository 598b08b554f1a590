package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrUsernameTaken   = errors.New("username already taken")
)

// Bid rejection reasons. These are expected user outcomes, returned typed to
// the caller and never logged as errors.
var (
	ErrInvalidBid          = errors.New("invalid bid")
	ErrAuctionNotActive    = errors.New("auction is not accepting bids")
	ErrSelfBid             = errors.New("sellers cannot bid on their own auction")
	ErrBelowMinimum        = errors.New("bid is below the auction minimum")
	ErrInsufficientBalance = errors.New("not enough tokens to cover the bid")
	ErrNotHighEnough       = errors.New("bid must exceed current highest bid")
	ErrRepeatBidder        = errors.New("already holding the highest bid")
)

// Auth / admin errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountNotLockable = errors.New("cannot lock admin or protected accounts")
)

// Transient errors. StorageUnavailable and ConcurrentConflict are retryable;
// the caller should re-read and may resubmit.
var (
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
	ErrConcurrentConflict = errors.New("concurrent update conflict")
)
