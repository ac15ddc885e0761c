package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraints únicos del esquema (ver migrations/001_custody.sql).
const (
	constraintProductBarcode = "products_barcode_key"
	constraintEventSequence  = "custody_events_product_seq_key"
	constraintUsername       = "users_username_key"
)

// uniqueViolation devuelve el nombre del constraint si err es una violación de unicidad (23505).
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
