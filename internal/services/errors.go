package services

import "errors"

var (
	ErrInvalidDraft          = errors.New("invalid playlist draft")
	ErrInvalidTransition     = errors.New("invalid deployment status transition")
	ErrReceiptTimeout        = errors.New("timed out waiting for transaction receipt")
	ErrPlaylistEventNotFound = errors.New("deployment confirmed but playlist address could not be determined")
	ErrTransactionReverted   = errors.New("transaction reverted")
	ErrPaymentMismatch       = errors.New("transaction does not pay for the playlist deployment")
	ErrAttemptNotFound       = errors.New("deployment attempt not found")
	ErrChainNotFound         = errors.New("chain not found")
	ErrSessionExpired        = errors.New("session expired")
)
