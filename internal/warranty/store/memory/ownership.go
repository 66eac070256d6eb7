package memory

import (
	"context"
	"fmt"
	"sync"

	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
	"warranty/pkg/platform/sentinel"
)

// OwnershipLedger maps certificate ids to their current holder.
type OwnershipLedger struct {
	mu      sync.RWMutex
	holders map[domain.CertificateID]domain.Address
}

func NewOwnershipLedger() *OwnershipLedger {
	return &OwnershipLedger{holders: make(map[domain.CertificateID]domain.Address)}
}

func (l *OwnershipLedger) Initialize(ctx context.Context, id domain.CertificateID, holder domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.holders[id]; exists {
		return fmt.Errorf("owner of certificate %d already set: %w", id, sentinel.ErrConflict)
	}
	l.holders[id] = holder
	onRollback(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.holders, id)
	})
	return nil
}

func (l *OwnershipLedger) Transfer(ctx context.Context, id domain.CertificateID, from, to domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	holder, ok := l.holders[id]
	if !ok {
		return fmt.Errorf("certificate %d: %w", id, sentinel.ErrNotFound)
	}
	if err := models.CheckTransfer(holder, from, to); err != nil {
		return err
	}
	l.holders[id] = to
	onRollback(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.holders[id] = holder
	})
	return nil
}

func (l *OwnershipLedger) OwnerOf(_ context.Context, id domain.CertificateID) (domain.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	holder, ok := l.holders[id]
	if !ok {
		return "", fmt.Errorf("certificate %d: %w", id, sentinel.ErrNotFound)
	}
	return holder, nil
}

func (l *OwnershipLedger) BalanceOf(_ context.Context, holder domain.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var n uint64
	for _, h := range l.holders {
		if h.Equal(holder) {
			n++
		}
	}
	return n, nil
}
