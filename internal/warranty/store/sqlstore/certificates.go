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

// CertificateStore persists certificates. Identifiers come from the
// single-row certificate_counter table, bumped in the same transaction as the
// insert so they stay gap-free.
type CertificateStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewCertificateStore(db *sql.DB, dialect Dialect) *CertificateStore {
	return &CertificateStore{db: db, dialect: dialect}
}

const certificateColumns = `id, brand_name, product, category, description, price,
	warranty_period, creation_time, seller_address, buyer_address`

// Append must run inside a transaction; outside one the counter bump and the
// insert could be split by a failure.
func (s *CertificateStore) Append(ctx context.Context, cert *models.Certificate) (domain.CertificateID, error) {
	if _, ok := tx.From(ctx); !ok {
		return 0, errors.New("certificate append requires a transaction")
	}
	exec := tx.ExecutorFrom(ctx, s.db)

	var next int64
	err := exec.QueryRowContext(ctx,
		`UPDATE certificate_counter SET next_id = next_id + 1 WHERE id = 1 RETURNING next_id - 1`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate certificate id: %w", err)
	}

	id := domain.CertificateID(next)
	_, err = exec.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`),
		int64(id),
		cert.BrandName,
		cert.Product,
		cert.Category,
		cert.Description,
		cert.Price,
		cert.WarrantyPeriod,
		cert.CreationTime.Unix(),
		string(cert.SellerAddress),
		string(cert.BuyerAddress),
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return 0, fmt.Errorf("certificate %d: %w", id, sentinel.ErrConflict)
		}
		return 0, fmt.Errorf("insert certificate: %w", err)
	}
	cert.ID = id
	return id, nil
}

func (s *CertificateStore) FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+certificateColumns+` FROM certificates WHERE id = $1`),
		int64(id),
	)
	cert, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("certificate %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return cert, nil
}

func (s *CertificateStore) Count(ctx context.Context) (uint64, error) {
	var next int64
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT next_id FROM certificate_counter WHERE id = 1`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return uint64(next), nil
}

func (s *CertificateStore) ListByParty(ctx context.Context, party domain.Address) ([]*models.Certificate, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, s.dialect.rebind(`
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE seller_address = $1 OR buyer_address = $1
		ORDER BY id`),
		string(party),
	)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*models.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row scanner) (*models.Certificate, error) {
	var (
		cert          models.Certificate
		id            int64
		created       int64
		seller, buyer string
	)
	err := row.Scan(
		&id,
		&cert.BrandName,
		&cert.Product,
		&cert.Category,
		&cert.Description,
		&cert.Price,
		&cert.WarrantyPeriod,
		&created,
		&seller,
		&buyer,
	)
	if err != nil {
		return nil, err
	}
	cert.ID = domain.CertificateID(id)
	cert.CreationTime = time.Unix(created, 0).UTC()
	cert.SellerAddress = domain.Address(seller)
	cert.BuyerAddress = domain.Address(buyer)
	return &cert, nil
}
