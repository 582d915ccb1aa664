package services

import "github.com/rxtech-lab/playlist-launchpad/internal/models"

// Hook is used to perform actions when the wallet reports a transaction outcome, based on the transaction type
type Hook interface {
	// CanHandle is used to check if the hook can handle the transaction type
	CanHandle(txType models.TransactionType) bool
	// OnTransactionPending is called when the wallet has the transaction; txHash may be empty
	OnTransactionPending(txType models.TransactionType, txHash string, session models.TransactionSession) error
	// OnTransactionConfirmed is called when the wallet reports the transaction as sent and confirmed
	OnTransactionConfirmed(txType models.TransactionType, txHash string, session models.TransactionSession) error
	// OnTransactionFailed is called when the wallet rejected or failed the transaction
	OnTransactionFailed(txType models.TransactionType, reason string, session models.TransactionSession) error
}
