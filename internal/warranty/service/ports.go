package service

import (
	"context"
	"time"

	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
)

// CertificateStore holds the append-only set of certificates. Append assigns
// the next identifier, which always equals the number of certificates stored
// before the call, and sets it on cert.
type CertificateStore interface {
	Append(ctx context.Context, cert *models.Certificate) (domain.CertificateID, error)
	FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	Count(ctx context.Context) (uint64, error)
	ListByParty(ctx context.Context, party domain.Address) ([]*models.Certificate, error)
}

// OwnershipLedger tracks the current holder of each certificate, separately
// from the buyer recorded on the certificate itself.
type OwnershipLedger interface {
	Initialize(ctx context.Context, id domain.CertificateID, holder domain.Address) error
	Transfer(ctx context.Context, id domain.CertificateID, from, to domain.Address) error
	OwnerOf(ctx context.Context, id domain.CertificateID) (domain.Address, error)
	BalanceOf(ctx context.Context, holder domain.Address) (uint64, error)
}

// StoreTx is the single exclusion boundary around the stores. RunInTx is
// exclusive and used by create and transfer; View runs reads against one
// consistent snapshot and may run concurrently with other views.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	View(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventEmitter records a notification as part of the surrounding transaction.
type EventEmitter interface {
	Emit(ctx context.Context, event models.Event) error
}

// ValidityOracle computes validity for a stored certificate at a given instant.
type ValidityOracle interface {
	IsValid(ctx context.Context, id domain.CertificateID, now time.Time) (models.ValidityStatus, error)
}
