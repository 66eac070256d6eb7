package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// InstanceID returns the random identifier of this database, minting it on
// first use. A recreated or reset database gets a new one, so anything keyed
// by it from an earlier database no longer matches.
func InstanceID(ctx context.Context, db *sql.DB, dialect Dialect) (string, error) {
	_, err := db.ExecContext(ctx, dialect.rebind(
		`INSERT INTO registry_instance (id, instance_id) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`),
		uuid.NewString(),
	)
	if err != nil {
		return "", fmt.Errorf("mint registry instance id: %w", err)
	}
	var id string
	if err := db.QueryRowContext(ctx, `SELECT instance_id FROM registry_instance WHERE id = 1`).Scan(&id); err != nil {
		return "", fmt.Errorf("read registry instance id: %w", err)
	}
	return id, nil
}
