package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
	"warranty/pkg/platform/sentinel"
	"warranty/pkg/platform/tx"
)

// OwnershipLedger persists the current holder of each certificate.
type OwnershipLedger struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewOwnershipLedger(db *sql.DB, dialect Dialect) *OwnershipLedger {
	return &OwnershipLedger{db: db, dialect: dialect, now: time.Now}
}

func (l *OwnershipLedger) Initialize(ctx context.Context, id domain.CertificateID, holder domain.Address) error {
	_, err := tx.ExecutorFrom(ctx, l.db).ExecContext(ctx, l.dialect.rebind(`
		INSERT INTO certificate_owners (certificate_id, holder, updated_at)
		VALUES ($1, $2, $3)`),
		int64(id), string(holder), l.now().Unix(),
	)
	if err != nil {
		if l.dialect.isUniqueViolation(err) {
			return fmt.Errorf("owner of certificate %d already set: %w", id, sentinel.ErrConflict)
		}
		return fmt.Errorf("initialize owner: %w", err)
	}
	return nil
}

// Transfer locks the ownership row, re-checks the holder and moves it to to.
func (l *OwnershipLedger) Transfer(ctx context.Context, id domain.CertificateID, from, to domain.Address) error {
	if _, ok := tx.From(ctx); !ok {
		return errors.New("ownership transfer requires a transaction")
	}
	exec := tx.ExecutorFrom(ctx, l.db)

	var holder string
	err := exec.QueryRowContext(ctx, l.dialect.rebind(
		`SELECT holder FROM certificate_owners WHERE certificate_id = $1`+l.dialect.forUpdate()),
		int64(id),
	).Scan(&holder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("certificate %d: %w", id, sentinel.ErrNotFound)
		}
		return fmt.Errorf("load owner: %w", err)
	}
	if err := models.CheckTransfer(domain.Address(holder), from, to); err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, l.dialect.rebind(`
		UPDATE certificate_owners SET holder = $2, updated_at = $3
		WHERE certificate_id = $1`),
		int64(id), string(to), l.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("update owner: %w", err)
	}
	return nil
}

func (l *OwnershipLedger) OwnerOf(ctx context.Context, id domain.CertificateID) (domain.Address, error) {
	var holder string
	err := tx.ExecutorFrom(ctx, l.db).QueryRowContext(ctx, l.dialect.rebind(
		`SELECT holder FROM certificate_owners WHERE certificate_id = $1`),
		int64(id),
	).Scan(&holder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("certificate %d: %w", id, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("load owner: %w", err)
	}
	return domain.Address(holder), nil
}

func (l *OwnershipLedger) BalanceOf(ctx context.Context, holder domain.Address) (uint64, error) {
	var n int64
	err := tx.ExecutorFrom(ctx, l.db).QueryRowContext(ctx, l.dialect.rebind(
		`SELECT COUNT(*) FROM certificate_owners WHERE holder = $1`),
		string(holder),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count holdings: %w", err)
	}
	return uint64(n), nil
}
