package services

import (
	"errors"

	"github.com/rxtech-lab/playlist-launchpad/internal/models"
)

type HookService interface {
	AddHook(hook Hook) error
	OnTransactionPending(txType models.TransactionType, txHash string, session models.TransactionSession) error
	OnTransactionConfirmed(txType models.TransactionType, txHash string, session models.TransactionSession) error
	OnTransactionFailed(txType models.TransactionType, reason string, session models.TransactionSession) error
}

type hookService struct {
	hooks []Hook
}

func NewHookService() HookService {
	return &hookService{
		hooks: []Hook{},
	}
}

func (h *hookService) AddHook(hook Hook) error {
	if hook == nil {
		return errors.New("hook is nil")
	}
	h.hooks = append(h.hooks, hook)
	return nil
}

func (h *hookService) OnTransactionPending(txType models.TransactionType, txHash string, session models.TransactionSession) error {
	return h.each(txType, func(hook Hook) error {
		return hook.OnTransactionPending(txType, txHash, session)
	})
}

func (h *hookService) OnTransactionConfirmed(txType models.TransactionType, txHash string, session models.TransactionSession) error {
	return h.each(txType, func(hook Hook) error {
		return hook.OnTransactionConfirmed(txType, txHash, session)
	})
}

func (h *hookService) OnTransactionFailed(txType models.TransactionType, reason string, session models.TransactionSession) error {
	return h.each(txType, func(hook Hook) error {
		return hook.OnTransactionFailed(txType, reason, session)
	})
}

func (h *hookService) each(txType models.TransactionType, fn func(hook Hook) error) error {
	for _, hook := range h.hooks {
		if hook.CanHandle(txType) {
			if err := fn(hook); err != nil {
				return err
			}
		}
	}
	return nil
}
